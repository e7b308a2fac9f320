package audit

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"pollbooth/internal/platform/metrics"
	dErrors "pollbooth/pkg/domain-errors"
)

// Store persists entries append-only. ListAuditEntriesByBooth returns newest
// first; a limit <= 0 means no limit.
type Store interface {
	AppendAuditEntry(ctx context.Context, entry *Entry) error
	ListAuditEntriesByBooth(ctx context.Context, boothID string, limit int) ([]*Entry, error)
}

// Forwarder hands appended entries to an external stream without blocking.
type Forwarder interface {
	Enqueue(entry Entry) bool
}

// Service captures structured audit entries. It is append-only and uses the
// storage layer for persistence so tests can swap sinks easily.
type Service struct {
	store     Store
	forwarder Forwarder
	logger    *slog.Logger
	metrics   *metrics.Metrics
	clock     func() time.Time
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

// WithForwarder streams every appended entry to f.
func WithForwarder(f Forwarder) Option {
	return func(s *Service) {
		s.forwarder = f
	}
}

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

// Append records an entry with a server-assigned id and timestamp.
func (s *Service) Append(ctx context.Context, req AppendRequest) (*Entry, error) {
	req.Normalize()
	if err := req.Validate(); err != nil {
		return nil, err
	}

	entry := &Entry{
		ID:        uuid.New(),
		Action:    req.Action,
		VoterID:   req.VoterID,
		OfficerID: req.OfficerID,
		BoothID:   req.BoothID,
		Details:   req.Details,
		Timestamp: s.clock(),
	}
	if err := s.store.AppendAuditEntry(ctx, entry); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to append audit entry")
	}
	s.metrics.IncrementAuditEntry(string(Classify(entry.Action)))

	if s.forwarder != nil && !s.forwarder.Enqueue(*entry) {
		s.logger.WarnContext(ctx, "audit stream backlog full, entry not forwarded",
			"entry_id", entry.ID,
			"action", entry.Action,
		)
	}
	return entry, nil
}

// RecentForBooth returns up to limit entries of a booth, newest first.
func (s *Service) RecentForBooth(ctx context.Context, boothID string, limit int) ([]*Entry, error) {
	if boothID == "" {
		return nil, dErrors.New(dErrors.CodeBoothIDRequired, "Booth ID required")
	}
	entries, err := s.store.ListAuditEntriesByBooth(ctx, boothID, limit)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list audit entries")
	}
	return entries, nil
}
