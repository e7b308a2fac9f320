package dashboard_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"pollbooth/internal/audit"
	"pollbooth/internal/dashboard"
	"pollbooth/internal/ledger"
	"pollbooth/internal/registry"
	"pollbooth/internal/storage"
	dErrors "pollbooth/pkg/domain-errors"
)

type AggregatorSuite struct {
	suite.Suite
	ctx        context.Context
	now        time.Time
	audit      *audit.Service
	ledger     *ledger.Service
	aggregator *dashboard.Aggregator
}

func TestAggregatorSuite(t *testing.T) {
	suite.Run(t, new(AggregatorSuite))
}

func (s *AggregatorSuite) SetupTest() {
	s.ctx = context.Background()
	s.now = time.Date(2026, 3, 1, 14, 5, 0, 0, time.UTC)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	store := storage.NewMemory()
	s.Require().NoError(storage.SeedDemoData(s.ctx, store))

	// each append advances the clock by a minute
	clock := func() time.Time {
		s.now = s.now.Add(time.Minute)
		return s.now
	}
	s.audit = audit.NewService(store, audit.WithLogger(logger), audit.WithClock(clock))
	s.ledger = ledger.NewService(store, ledger.WithLogger(logger))
	s.aggregator = dashboard.NewAggregator(s.ledger, s.audit, registry.NewService(store),
		dashboard.WithLogger(logger),
		dashboard.WithLocation(time.UTC),
	)
}

func (s *AggregatorSuite) appendEntry(action, voterID, booth string) {
	_, err := s.audit.Append(s.ctx, audit.AppendRequest{
		Action: action, VoterID: voterID, OfficerID: "OFF001", BoothID: booth,
	})
	s.Require().NoError(err)
}

func (s *AggregatorSuite) TestStats() {
	s.Run("empty booth id", func() {
		_, err := s.aggregator.Stats(s.ctx, " ")
		s.True(dErrors.HasCode(err, dErrors.CodeBoothIDRequired))
	})

	s.Run("counts votes and suspicious entries of the booth only", func() {
		face, fp := 90, 95
		_, err := s.ledger.RecordVote(s.ctx, ledger.RecordRequest{
			VoterID: "VOT123456789", CandidateID: uuid.NewString(), OfficerID: "OFF001",
			BoothID: storage.DemoBoothID, FaceMatchScore: &face, FingerprintMatchScore: &fp,
		})
		s.Require().NoError(err)

		s.appendEntry(audit.ActionDuplicateVoteAttempt, "VOT123456789", storage.DemoBoothID)
		s.appendEntry(audit.ActionFaceVerificationFailed, "VOT987654321", storage.DemoBoothID)
		s.appendEntry(audit.ActionVoteSubmitted, "VOT123456789", storage.DemoBoothID)
		s.appendEntry(audit.ActionFailedOfficerLogin, "", audit.UnknownBooth)

		stats, err := s.aggregator.Stats(s.ctx, storage.DemoBoothID)
		s.Require().NoError(err)
		s.Equal(1, stats.TotalVerified)
		s.Equal(0, stats.Pending)
		s.Equal(2, stats.Suspicious)

		unknown, err := s.aggregator.Stats(s.ctx, audit.UnknownBooth)
		s.Require().NoError(err)
		s.Equal(0, unknown.TotalVerified)
		s.Equal(1, unknown.Suspicious)
	})
}

func (s *AggregatorSuite) TestActivity() {
	s.appendEntry(audit.ActionOfficerLogin, "", storage.DemoBoothID)
	s.appendEntry(audit.ActionVoterIdentified, "VOT000000000", storage.DemoBoothID)
	for i := 0; i < 10; i++ {
		s.appendEntry(audit.ActionVoterIdentified, "VOT987654321", storage.DemoBoothID)
	}
	s.appendEntry(audit.ActionDuplicateVoteAttempt, "VOT123456789", storage.DemoBoothID)
	s.appendEntry(audit.ActionFingerprintVerificationFailed, "VOT456789123", storage.DemoBoothID)

	items, err := s.aggregator.Activity(s.ctx, storage.DemoBoothID)
	s.Require().NoError(err)
	s.Require().Len(items, dashboard.ActivityLimit)

	s.Equal(audit.ActionFingerprintVerificationFailed, items[0].Action)
	s.Equal(audit.StatusRejected, items[0].Status)
	s.Equal("Amit Patel", items[0].VoterName)
	s.Equal(s.now.Format("03:04 PM"), items[0].Timestamp)

	s.Equal(audit.StatusSuspicious, items[1].Status)
	s.Equal("Rajesh Kumar", items[1].VoterName)

	for _, item := range items[2:] {
		s.Equal("Priya Sharma", item.VoterName)
		s.Equal(audit.StatusSuccess, item.Status)
	}

	s.Run("fallbacks for missing and unknown voters", func() {
		store := storage.NewMemory()
		auditSvc := audit.NewService(store)
		agg := dashboard.NewAggregator(ledger.NewService(store), auditSvc, registry.NewService(store))
		_, err := auditSvc.Append(s.ctx, audit.AppendRequest{Action: audit.ActionOfficerLogin, OfficerID: "OFF001", BoothID: "BH-1"})
		s.Require().NoError(err)
		_, err = auditSvc.Append(s.ctx, audit.AppendRequest{Action: audit.ActionVoterIdentified, VoterID: "VOT000000000", OfficerID: "OFF001", BoothID: "BH-1"})
		s.Require().NoError(err)

		feed, err := agg.Activity(s.ctx, "BH-1")
		s.Require().NoError(err)
		s.Require().Len(feed, 2)
		for _, item := range feed {
			switch item.Action {
			case audit.ActionOfficerLogin:
				s.Equal("N/A", item.VoterID)
				s.Equal("Unknown", item.VoterName)
			default:
				s.Equal("VOT000000000", item.VoterID)
				s.Equal("Unknown", item.VoterName)
			}
		}
	})

	s.Run("empty booth id", func() {
		_, err := s.aggregator.Activity(s.ctx, "")
		s.True(dErrors.HasCode(err, dErrors.CodeBoothIDRequired))
	})
}

// cancellingLookup cancels the request while resolving voters and fails
// every other lookup with a transient error.
type cancellingLookup struct {
	cancel context.CancelFunc
}

func (l cancellingLookup) FindVoter(ctx context.Context, voterID string) (*registry.Voter, error) {
	if voterID == "VOT123456789" {
		l.cancel()
		return nil, ctx.Err()
	}
	return nil, errors.New("registry timeout")
}

func (s *AggregatorSuite) TestActivityHonoursCancellation() {
	store := storage.NewMemory()
	auditSvc := audit.NewService(store)
	_, err := auditSvc.Append(s.ctx, audit.AppendRequest{Action: audit.ActionVoterIdentified, VoterID: "VOT987654321", OfficerID: "OFF001", BoothID: "BH-1"})
	s.Require().NoError(err)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	s.Run("lookup errors degrade to unknown", func() {
		agg := dashboard.NewAggregator(ledger.NewService(store), auditSvc,
			cancellingLookup{cancel: func() {}}, dashboard.WithLogger(logger))
		feed, err := agg.Activity(s.ctx, "BH-1")
		s.Require().NoError(err)
		s.Require().Len(feed, 1)
		s.Equal("Unknown", feed[0].VoterName)
	})

	s.Run("cancelled request fails the feed", func() {
		_, err := auditSvc.Append(s.ctx, audit.AppendRequest{Action: audit.ActionVoterIdentified, VoterID: "VOT123456789", OfficerID: "OFF001", BoothID: "BH-1"})
		s.Require().NoError(err)

		ctx, cancel := context.WithCancel(s.ctx)
		defer cancel()
		agg := dashboard.NewAggregator(ledger.NewService(store), auditSvc,
			cancellingLookup{cancel: cancel}, dashboard.WithLogger(logger))
		feed, err := agg.Activity(ctx, "BH-1")
		s.ErrorIs(err, context.Canceled)
		s.Nil(feed)
	})
}
