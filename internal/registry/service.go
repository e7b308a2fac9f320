package registry

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	dErrors "pollbooth/pkg/domain-errors"
	"pollbooth/pkg/platform/sentinel"
)

// Store is the read side of the identity registry.
type Store interface {
	FindOfficerByOfficerID(ctx context.Context, officerID string) (*Officer, error)
	FindVoterByVoterID(ctx context.Context, voterID string) (*Voter, error)
	ListCandidatesByBooth(ctx context.Context, boothID string) ([]*Candidate, error)
}

// Service resolves officers, voters and candidates and translates storage
// facts into domain errors.
type Service struct {
	store  Store
	logger *slog.Logger
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func NewService(store Store, opts ...Option) *Service {
	s := &Service{store: store, logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Authenticate returns the officer when the secret matches exactly.
// Unknown officer and wrong secret are indistinguishable to the caller.
func (s *Service) Authenticate(ctx context.Context, officerID, secret string) (*Officer, error) {
	officer, err := s.store.FindOfficerByOfficerID(ctx, officerID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeInvalidCredentials, "Invalid credentials")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load officer")
	}
	if officer.Secret != secret {
		return nil, dErrors.New(dErrors.CodeInvalidCredentials, "Invalid credentials")
	}
	return officer, nil
}

// FindVoter looks a voter up globally by voter id.
func (s *Service) FindVoter(ctx context.Context, voterID string) (*Voter, error) {
	voterID = strings.TrimSpace(voterID)
	if voterID == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "voterId is required")
	}
	voter, err := s.store.FindVoterByVoterID(ctx, voterID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeVoterNotFound, "Voter not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load voter")
	}
	return voter, nil
}

// CandidatesForBooth never returns candidates of another booth.
func (s *Service) CandidatesForBooth(ctx context.Context, boothID string) ([]*Candidate, error) {
	boothID = strings.TrimSpace(boothID)
	if boothID == "" {
		return nil, dErrors.New(dErrors.CodeBoothIDRequired, "Booth ID required")
	}
	candidates, err := s.store.ListCandidatesByBooth(ctx, boothID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list candidates")
	}
	scoped := make([]*Candidate, 0, len(candidates))
	for _, c := range candidates {
		if c.BoothID == boothID {
			scoped = append(scoped, c)
		}
	}
	return scoped, nil
}
