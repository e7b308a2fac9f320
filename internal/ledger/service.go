package ledger

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"pollbooth/internal/platform/metrics"
	dErrors "pollbooth/pkg/domain-errors"
	"pollbooth/pkg/platform/sentinel"
)

// Store owns vote records and the voter's hasVoted flag. RecordVote must
// check the flag, insert the vote and set the flag as one atomic unit,
// returning sentinel.ErrAlreadyUsed when the flag is already set and
// sentinel.ErrNotFound when the voter does not resolve.
type Store interface {
	RecordVote(ctx context.Context, vote *Vote) error
	ListVotesByBooth(ctx context.Context, boothID string) ([]*Vote, error)
}

// Service is the single writer of ballots.
type Service struct {
	store   Store
	logger  *slog.Logger
	metrics *metrics.Metrics
	clock   func() time.Time
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// WithClock overrides the commit timestamp source.
func WithClock(clock func() time.Time) Option {
	return func(s *Service) {
		if clock != nil {
			s.clock = clock
		}
	}
}

func NewService(store Store, opts ...Option) *Service {
	s := &Service{store: store, logger: slog.Default(), clock: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// RecordVote commits one ballot. A second commit for the same voter fails
// with CodeAlreadyVoted no matter how the calls interleave.
func (s *Service) RecordVote(ctx context.Context, req RecordRequest) (*Vote, error) {
	req.Normalize()
	if err := req.Validate(); err != nil {
		return nil, err
	}

	vote := &Vote{
		ID:                    uuid.New(),
		VoterID:               req.VoterID,
		CandidateID:           req.CandidateID,
		OfficerID:             req.OfficerID,
		BoothID:               req.BoothID,
		FaceMatchScore:        *req.FaceMatchScore,
		FingerprintMatchScore: *req.FingerprintMatchScore,
		Timestamp:             s.clock(),
	}
	if err := s.store.RecordVote(ctx, vote); err != nil {
		switch {
		case errors.Is(err, sentinel.ErrAlreadyUsed):
			return nil, dErrors.New(dErrors.CodeAlreadyVoted, "Voter has already voted")
		case errors.Is(err, sentinel.ErrNotFound):
			return nil, dErrors.New(dErrors.CodeVoterNotFound, "Voter not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to record vote")
	}

	s.metrics.IncrementVotesCommitted(vote.BoothID)
	s.logger.InfoContext(ctx, "vote recorded",
		"vote_id", vote.ID,
		"booth_id", vote.BoothID,
		"officer_id", vote.OfficerID,
	)
	return vote, nil
}

// VotesForBooth lists the committed votes of a booth in no particular order.
func (s *Service) VotesForBooth(ctx context.Context, boothID string) ([]*Vote, error) {
	if boothID == "" {
		return nil, dErrors.New(dErrors.CodeBoothIDRequired, "Booth ID required")
	}
	votes, err := s.store.ListVotesByBooth(ctx, boothID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list votes")
	}
	return votes, nil
}
