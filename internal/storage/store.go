// Package storage holds the store objects backing the registry, the vote
// ledger and the audit log. A store is constructed explicitly (once per
// process or once per test) and passed to the services that need it.
package storage

import (
	"context"

	"pollbooth/internal/audit"
	"pollbooth/internal/ledger"
	"pollbooth/internal/registry"
)

// Seeder inserts registry records. Inserts are keyed by business id and fail
// with sentinel.ErrAlreadyUsed on duplicates.
type Seeder interface {
	SaveOfficer(ctx context.Context, officer *registry.Officer) error
	SaveVoter(ctx context.Context, voter *registry.Voter) error
	SaveCandidate(ctx context.Context, candidate *registry.Candidate) error
}

// Store is everything a backing store must provide.
type Store interface {
	registry.Store
	ledger.Store
	audit.Store
	Seeder
}

var (
	_ Store = (*Memory)(nil)
)
