//go:build integration

package postgres_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"pollbooth/internal/audit"
	"pollbooth/internal/ledger"
	"pollbooth/internal/storage"
	"pollbooth/internal/storage/postgres"
	"pollbooth/pkg/platform/sentinel"
	"pollbooth/pkg/testutil/containers"
)

type PostgresStoreSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *postgres.Store
}

func TestPostgresStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresStoreSuite))
}

func (s *PostgresStoreSuite) SetupSuite() {
	s.postgres = containers.NewPostgresContainer(s.T())
	s.Require().NoError(postgres.CreateSchema(context.Background(), s.postgres.DB))
	s.store = postgres.New(s.postgres.DB)
}

func (s *PostgresStoreSuite) SetupTest() {
	ctx := context.Background()
	s.Require().NoError(s.postgres.TruncateTables(ctx, "votes", "audit_logs", "candidates", "voters", "officers"))
	s.Require().NoError(storage.SeedDemoData(ctx, s.store))
}

func newVote(voterID string) *ledger.Vote {
	return &ledger.Vote{
		ID:                    uuid.New(),
		VoterID:               voterID,
		CandidateID:           uuid.NewString(),
		OfficerID:             "OFF001",
		BoothID:               storage.DemoBoothID,
		FaceMatchScore:        90,
		FingerprintMatchScore: 95,
		Timestamp:             time.Now(),
	}
}

func (s *PostgresStoreSuite) TestSeedIsIdempotent() {
	ctx := context.Background()
	s.Require().NoError(storage.SeedDemoData(ctx, s.store))

	candidates, err := s.store.ListCandidatesByBooth(ctx, storage.DemoBoothID)
	s.Require().NoError(err)
	s.Len(candidates, 4)
}

func (s *PostgresStoreSuite) TestRecordVote() {
	ctx := context.Background()

	s.Require().NoError(s.store.RecordVote(ctx, newVote("VOT123456789")))
	voter, err := s.store.FindVoterByVoterID(ctx, "VOT123456789")
	s.Require().NoError(err)
	s.True(voter.HasVoted)

	s.Require().ErrorIs(s.store.RecordVote(ctx, newVote("VOT123456789")), sentinel.ErrAlreadyUsed)
	s.Require().ErrorIs(s.store.RecordVote(ctx, newVote("VOT000000000")), sentinel.ErrNotFound)
}

// TestConcurrentRecordVote verifies the guarded update admits one commit.
func (s *PostgresStoreSuite) TestConcurrentRecordVote() {
	ctx := context.Background()
	const goroutines = 20

	var wg sync.WaitGroup
	var successCount atomic.Int32
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := s.store.RecordVote(ctx, newVote("VOT987654321")); err == nil {
				successCount.Add(1)
			}
		}()
	}
	wg.Wait()

	s.Equal(int32(1), successCount.Load())
	votes, err := s.store.ListVotesByBooth(ctx, storage.DemoBoothID)
	s.Require().NoError(err)
	s.Len(votes, 1)
}

func (s *PostgresStoreSuite) TestAuditNewestFirst() {
	ctx := context.Background()
	base := time.Now().UTC().Truncate(time.Millisecond)
	for i, action := range []string{audit.ActionOfficerLogin, audit.ActionVoterIdentified} {
		s.Require().NoError(s.store.AppendAuditEntry(ctx, &audit.Entry{
			ID: uuid.New(), Action: action, OfficerID: "OFF001", BoothID: storage.DemoBoothID,
			Timestamp: base.Add(time.Duration(i) * time.Second),
		}))
	}

	entries, err := s.store.ListAuditEntriesByBooth(ctx, storage.DemoBoothID, 1)
	s.Require().NoError(err)
	s.Require().Len(entries, 1)
	s.Equal(audit.ActionVoterIdentified, entries[0].Action)
	s.Empty(entries[0].VoterID)
}
