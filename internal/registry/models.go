package registry

import (
	"strings"

	"github.com/google/uuid"

	dErrors "pollbooth/pkg/domain-errors"
)

// Officer operates verification at a single booth. The secret is compared by
// exact match and never serialized.
type Officer struct {
	ID        uuid.UUID `json:"id"`
	OfficerID string    `json:"officerId"`
	Secret    string    `json:"-"`
	Name      string    `json:"name"`
	BoothID   string    `json:"boothId"`
}

// Voter is registered at exactly one booth. HasVoted only ever moves from
// false to true and is written by the vote ledger alone.
type Voter struct {
	ID                  uuid.UUID `json:"id"`
	VoterID             string    `json:"voterId"`
	Name                string    `json:"name"`
	Age                 int       `json:"age"`
	Address             string    `json:"address"`
	BoothID             string    `json:"boothId"`
	PhotoURL            *string   `json:"photoUrl"`
	FingerprintTemplate *string   `json:"fingerprintTemplate"`
	HasVoted            bool      `json:"hasVoted"`
}

// Candidate is a ballot option scoped to one booth.
type Candidate struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	PartyName   string    `json:"partyName"`
	PartySymbol string    `json:"partySymbol"`
	BoothID     string    `json:"boothId"`
}

// NewOfficer validates the fields every officer record must carry.
func NewOfficer(id uuid.UUID, officerID, secret, name, boothID string) (*Officer, error) {
	if strings.TrimSpace(officerID) == "" || secret == "" || strings.TrimSpace(boothID) == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "officer requires officerId, secret and boothId")
	}
	return &Officer{ID: id, OfficerID: officerID, Secret: secret, Name: name, BoothID: boothID}, nil
}

// NewVoter validates a voter record. New voters have not voted.
func NewVoter(id uuid.UUID, voterID, name string, age int, address, boothID string) (*Voter, error) {
	if strings.TrimSpace(voterID) == "" || strings.TrimSpace(boothID) == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "voter requires voterId and boothId")
	}
	if age < 0 {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "voter age must not be negative")
	}
	return &Voter{ID: id, VoterID: voterID, Name: name, Age: age, Address: address, BoothID: boothID}, nil
}

// NewCandidate validates a candidate record.
func NewCandidate(id uuid.UUID, name, partyName, partySymbol, boothID string) (*Candidate, error) {
	if strings.TrimSpace(name) == "" || strings.TrimSpace(boothID) == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "candidate requires name and boothId")
	}
	return &Candidate{ID: id, Name: name, PartyName: partyName, PartySymbol: partySymbol, BoothID: boothID}, nil
}
