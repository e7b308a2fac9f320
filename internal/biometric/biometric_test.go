package biometric

import (
	"context"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "pollbooth/pkg/domain-errors"
)

func TestEvaluate(t *testing.T) {
	tests := []struct {
		name    string
		gate    Gate
		score   int
		passed  bool
		quality string
	}{
		{"face at threshold", GateFace, 75, true, "Medium"},
		{"face below threshold", GateFace, 74, false, "Low"},
		{"face high", GateFace, 92, true, "High"},
		{"fingerprint at threshold", GateFingerprint, 80, true, "Good"},
		{"fingerprint below threshold", GateFingerprint, 79, false, "Poor"},
		{"fingerprint excellent", GateFingerprint, 97, true, "Excellent"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := Evaluate(tt.gate, tt.score)
			require.NoError(t, err)
			assert.Equal(t, tt.passed, res.Passed)
			assert.Equal(t, tt.quality, res.Quality)
			assert.Equal(t, tt.score, res.Score)
		})
	}

	t.Run("out of range score", func(t *testing.T) {
		_, err := Evaluate(GateFace, 101)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
		_, err = Evaluate(GateFingerprint, -1)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
	})

	t.Run("unknown gate", func(t *testing.T) {
		_, err := Evaluate(Gate("iris"), 90)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
	})
}

func TestMockMatcherRanges(t *testing.T) {
	m := NewMockMatcher(WithSource(rand.NewPCG(1, 2)))
	ctx := context.Background()

	for i := 0; i < 500; i++ {
		face, err := m.MatchFace(ctx, Voter{VoterID: "VOT123456789"})
		require.NoError(t, err)
		if face.Passed {
			assert.GreaterOrEqual(t, face.Score, 85)
			assert.LessOrEqual(t, face.Score, 99)
			assert.False(t, face.SpoofSuspected)
		} else {
			assert.GreaterOrEqual(t, face.Score, 30)
			assert.LessOrEqual(t, face.Score, 69)
		}

		fp, err := m.MatchFingerprint(ctx, Voter{VoterID: "VOT123456789"})
		require.NoError(t, err)
		if fp.Passed {
			assert.GreaterOrEqual(t, fp.Score, 90)
			assert.LessOrEqual(t, fp.Score, 99)
		} else {
			assert.GreaterOrEqual(t, fp.Score, 40)
			assert.LessOrEqual(t, fp.Score, 69)
		}
	}
}

func TestMockMatcherCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewMockMatcher().MatchFace(ctx, Voter{})
	assert.ErrorIs(t, err, context.Canceled)
}
