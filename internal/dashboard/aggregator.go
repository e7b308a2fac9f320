// Package dashboard derives booth counters and the activity feed from the
// vote ledger and audit log. Nothing is cached; every call recomputes.
package dashboard

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"pollbooth/internal/audit"
	"pollbooth/internal/ledger"
	"pollbooth/internal/registry"
	dErrors "pollbooth/pkg/domain-errors"
)

// ActivityLimit caps the activity feed.
const ActivityLimit = 10

const timestampLayout = "03:04 PM"

type VoteSource interface {
	VotesForBooth(ctx context.Context, boothID string) ([]*ledger.Vote, error)
}

type AuditSource interface {
	RecentForBooth(ctx context.Context, boothID string, limit int) ([]*audit.Entry, error)
}

type VoterLookup interface {
	FindVoter(ctx context.Context, voterID string) (*registry.Voter, error)
}

// Stats are the booth counters. Pending is always zero: no in-flight
// verification count is tracked server side.
type Stats struct {
	TotalVerified int `json:"totalVerified"`
	Pending       int `json:"pending"`
	Suspicious    int `json:"suspicious"`
}

// ActivityItem is an audit entry enriched for display.
type ActivityItem struct {
	ID        uuid.UUID    `json:"id"`
	VoterID   string       `json:"voterId"`
	VoterName string       `json:"voterName"`
	Action    string       `json:"action"`
	Status    audit.Status `json:"status"`
	Timestamp string       `json:"timestamp"`
}

type Aggregator struct {
	votes    VoteSource
	audit    AuditSource
	voters   VoterLookup
	logger   *slog.Logger
	location *time.Location
}

type Option func(*Aggregator)

func WithLogger(logger *slog.Logger) Option {
	return func(a *Aggregator) {
		a.logger = logger
	}
}

// WithLocation sets the zone activity timestamps are rendered in.
func WithLocation(loc *time.Location) Option {
	return func(a *Aggregator) {
		if loc != nil {
			a.location = loc
		}
	}
}

func NewAggregator(votes VoteSource, auditLog AuditSource, voters VoterLookup, opts ...Option) *Aggregator {
	a := &Aggregator{
		votes:    votes,
		audit:    auditLog,
		voters:   voters,
		logger:   slog.Default(),
		location: time.Local,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Stats counts committed votes and suspicious audit entries of a booth.
func (a *Aggregator) Stats(ctx context.Context, boothID string) (*Stats, error) {
	boothID = strings.TrimSpace(boothID)
	if boothID == "" {
		return nil, dErrors.New(dErrors.CodeBoothIDRequired, "Booth ID required")
	}

	var (
		votes   []*ledger.Vote
		entries []*audit.Entry
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		votes, err = a.votes.VotesForBooth(gctx, boothID)
		return err
	})
	g.Go(func() error {
		var err error
		entries, err = a.audit.RecentForBooth(gctx, boothID, 0)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	suspicious := 0
	for _, e := range entries {
		if audit.IsSuspicious(e.Action) {
			suspicious++
		}
	}
	return &Stats{TotalVerified: len(votes), Pending: 0, Suspicious: suspicious}, nil
}

// Activity returns the newest entries of a booth with voter names resolved.
// A voter that cannot be resolved is shown as Unknown rather than failing
// the feed. A cancelled ctx fails it.
func (a *Aggregator) Activity(ctx context.Context, boothID string) ([]ActivityItem, error) {
	boothID = strings.TrimSpace(boothID)
	if boothID == "" {
		return nil, dErrors.New(dErrors.CodeBoothIDRequired, "Booth ID required")
	}

	entries, err := a.audit.RecentForBooth(ctx, boothID, ActivityLimit)
	if err != nil {
		return nil, err
	}
	if len(entries) > ActivityLimit {
		entries = entries[:ActivityLimit]
	}

	items := make([]ActivityItem, len(entries))
	g, gctx := errgroup.WithContext(ctx)
	for i, entry := range entries {
		items[i] = ActivityItem{
			ID:        entry.ID,
			VoterID:   "N/A",
			VoterName: "Unknown",
			Action:    entry.Action,
			Status:    audit.Classify(entry.Action),
			Timestamp: entry.Timestamp.In(a.location).Format(timestampLayout),
		}
		if entry.VoterID == "" {
			continue
		}
		items[i].VoterID = entry.VoterID
		g.Go(func() error {
			voter, err := a.voters.FindVoter(gctx, entry.VoterID)
			if err != nil {
				if ctxErr := gctx.Err(); ctxErr != nil {
					return ctxErr
				}
				if !dErrors.HasCode(err, dErrors.CodeVoterNotFound) {
					a.logger.WarnContext(gctx, "failed to resolve voter for activity feed",
						"voter_id", entry.VoterID,
						"error", err,
					)
				}
				return nil
			}
			if voter.Name != "" {
				items[i].VoterName = voter.Name
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return items, nil
}
