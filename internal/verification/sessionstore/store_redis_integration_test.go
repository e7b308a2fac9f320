//go:build integration

package sessionstore_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"pollbooth/internal/registry"
	"pollbooth/internal/verification"
	"pollbooth/internal/verification/sessionstore"
	"pollbooth/pkg/platform/sentinel"
	"pollbooth/pkg/testutil/containers"
)

type RedisStoreSuite struct {
	suite.Suite
	redis *containers.RedisContainer
	store *sessionstore.RedisStore
}

func TestRedisStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(RedisStoreSuite))
}

func (s *RedisStoreSuite) SetupSuite() {
	s.redis = containers.NewRedisContainer(s.T())
	s.store = sessionstore.NewRedis(s.redis.Client, time.Minute)
}

func (s *RedisStoreSuite) SetupTest() {
	s.Require().NoError(s.redis.FlushAll(context.Background()))
}

func (s *RedisStoreSuite) TestLifecycle() {
	ctx := context.Background()
	score := 91
	session := &verification.Session{
		ID:        uuid.New(),
		State:     verification.StateFingerprintCheck,
		Officer:   &registry.Officer{ID: uuid.New(), OfficerID: "OFF001", Secret: "password123", BoothID: "BH-042"},
		Voter:     &registry.Voter{ID: uuid.New(), VoterID: "VOT123456789", Name: "Rajesh Kumar", BoothID: "BH-042"},
		FaceScore: &score,
	}

	s.Require().NoError(s.store.Create(ctx, session))
	s.Require().ErrorIs(s.store.Create(ctx, session), sentinel.ErrAlreadyUsed)

	got, err := s.store.Find(ctx, session.ID)
	s.Require().NoError(err)
	s.Equal(verification.StateFingerprintCheck, got.State)
	s.Equal("VOT123456789", got.Voter.VoterID)
	s.Require().NotNil(got.FaceScore)
	s.Equal(91, *got.FaceScore)
	s.Empty(got.Officer.Secret, "secret must not be persisted")

	ttl, err := s.redis.Client.TTL(ctx, "pollbooth:session:"+session.ID.String()).Result()
	s.Require().NoError(err)
	s.Greater(ttl, time.Duration(0))

	s.Require().NoError(s.store.Delete(ctx, session.ID))
	_, err = s.store.Find(ctx, session.ID)
	s.ErrorIs(err, sentinel.ErrNotFound)
	s.ErrorIs(s.store.Update(ctx, session), sentinel.ErrNotFound)
}
