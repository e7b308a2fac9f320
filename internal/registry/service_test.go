package registry_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pollbooth/internal/registry"
	"pollbooth/internal/storage"
	dErrors "pollbooth/pkg/domain-errors"
	"pollbooth/pkg/testutil"
)

func seededService(t *testing.T) (*registry.Service, *storage.Memory) {
	t.Helper()
	store := storage.NewMemory()
	require.NoError(t, storage.SeedDemoData(context.Background(), store))
	return registry.NewService(store), store
}

func TestAuthenticate(t *testing.T) {
	ctx := context.Background()
	svc, _ := seededService(t)

	testutil.Given(t, "the seeded demo officer", func(t *testing.T) {
		testutil.When(t, "the secret matches", func(t *testing.T) {
			officer, err := svc.Authenticate(ctx, "OFF001", "password123")

			testutil.Then(t, "the officer is returned with its booth", func(t *testing.T) {
				require.NoError(t, err)
				assert.Equal(t, "Officer Ramesh Singh", officer.Name)
				assert.Equal(t, storage.DemoBoothID, officer.BoothID)
			})
			testutil.And(t, "the secret is not serialized", func(t *testing.T) {
				require.NotNil(t, officer)
				body, err := json.Marshal(officer)
				require.NoError(t, err)
				assert.NotContains(t, string(body), "password123")
			})
		})

		testutil.When(t, "the secret differs or the officer is unknown", func(t *testing.T) {
			_, wrongSecret := svc.Authenticate(ctx, "OFF001", "Password123")
			_, unknown := svc.Authenticate(ctx, "OFF999", "password123")

			testutil.Then(t, "both fail the same way", func(t *testing.T) {
				assert.True(t, dErrors.HasCode(wrongSecret, dErrors.CodeInvalidCredentials))
				assert.True(t, dErrors.HasCode(unknown, dErrors.CodeInvalidCredentials))
				assert.Equal(t, wrongSecret.Error(), unknown.Error())
			})
		})
	})
}

func TestFindVoter(t *testing.T) {
	ctx := context.Background()
	svc, _ := seededService(t)

	voter, err := svc.FindVoter(ctx, "  VOT987654321 ")
	require.NoError(t, err)
	assert.Equal(t, "Priya Sharma", voter.Name)
	assert.False(t, voter.HasVoted)

	_, err = svc.FindVoter(ctx, "VOT000000000")
	assert.True(t, dErrors.HasCode(err, dErrors.CodeVoterNotFound))

	_, err = svc.FindVoter(ctx, " ")
	assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
}

func TestCandidatesForBooth(t *testing.T) {
	ctx := context.Background()
	svc, store := seededService(t)

	testutil.Given(t, "candidates registered at two booths", func(t *testing.T) {
		other, err := registry.NewCandidate(uuid.New(), "Sunil Rao", "Independent", "kite", "BH-043")
		require.NoError(t, err)
		require.NoError(t, store.SaveCandidate(ctx, other))

		testutil.When(t, "listing the demo booth", func(t *testing.T) {
			candidates, err := svc.CandidatesForBooth(ctx, storage.DemoBoothID)

			testutil.Then(t, "only that booth's candidates come back", func(t *testing.T) {
				require.NoError(t, err)
				assert.Len(t, candidates, 4)
				for _, c := range candidates {
					assert.Equal(t, storage.DemoBoothID, c.BoothID)
				}
			})
		})

		testutil.When(t, "listing a booth with no candidates", func(t *testing.T) {
			candidates, err := svc.CandidatesForBooth(ctx, "BH-999")

			testutil.Then(t, "the list is empty", func(t *testing.T) {
				require.NoError(t, err)
				assert.Empty(t, candidates)
			})
		})

		testutil.When(t, "no booth is given", func(t *testing.T) {
			_, err := svc.CandidatesForBooth(ctx, "")

			testutil.Then(t, "the booth id is required", func(t *testing.T) {
				assert.True(t, dErrors.HasCode(err, dErrors.CodeBoothIDRequired))
			})
		})
	})
}

type failingStore struct{ err error }

func (f failingStore) FindOfficerByOfficerID(context.Context, string) (*registry.Officer, error) {
	return nil, f.err
}

func (f failingStore) FindVoterByVoterID(context.Context, string) (*registry.Voter, error) {
	return nil, f.err
}

func (f failingStore) ListCandidatesByBooth(context.Context, string) ([]*registry.Candidate, error) {
	return nil, f.err
}

func TestStoreFailuresAreInternal(t *testing.T) {
	ctx := context.Background()
	svc := registry.NewService(failingStore{err: errors.New("connection reset")})

	_, err := svc.Authenticate(ctx, "OFF001", "password123")
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInternal))

	_, err = svc.FindVoter(ctx, "VOT123456789")
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInternal))

	_, err = svc.CandidatesForBooth(ctx, storage.DemoBoothID)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInternal))
}
