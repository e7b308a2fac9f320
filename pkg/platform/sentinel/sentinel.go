package sentinel

import "errors"

// Sentinel errors for storage facts. Stores return these (optionally wrapped)
// and services translate them into coded domain errors:
//   - ErrNotFound: no officer, voter, candidate or session under that key
//   - ErrAlreadyUsed: the one-time resource was consumed (a voter's ballot)
//   - ErrExpired: a verification session outlived its TTL
//   - ErrUnavailable: backing store could not be reached
var (
	ErrNotFound    = errors.New("not found")
	ErrAlreadyUsed = errors.New("already used")
	ErrExpired     = errors.New("expired")
	ErrUnavailable = errors.New("unavailable")
)
