package biometric

import (
	"context"
	"math/rand/v2"
	"sync"
)

// MockMatcher simulates scanner hardware. Most scans of a genuine voter
// land well above the threshold; the rest fall clearly below it.
type MockMatcher struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// MockOption configures a MockMatcher.
type MockOption func(*MockMatcher)

// WithSource seeds the matcher for reproducible runs.
func WithSource(src rand.Source) MockOption {
	return func(m *MockMatcher) {
		m.rng = rand.New(src)
	}
}

func NewMockMatcher(opts ...MockOption) *MockMatcher {
	m := &MockMatcher{}
	for _, opt := range opts {
		opt(m)
	}
	if m.rng == nil {
		m.rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return m
}

// MatchFace passes 90% of scans with a score in [85,99]. Failed scans score
// in [30,69] and half of them are flagged as a possible spoof.
func (m *MockMatcher) MatchFace(ctx context.Context, _ Voter) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	var score int
	spoof := false
	if m.rng.Float64() < 0.9 {
		score = 85 + m.rng.IntN(15)
	} else {
		score = 30 + m.rng.IntN(40)
		spoof = m.rng.Float64() < 0.5
	}
	return Result{
		Gate:           GateFace,
		Score:          score,
		Passed:         score >= FaceThreshold,
		SpoofSuspected: spoof,
		Quality:        Quality(GateFace, score),
	}, nil
}

// MatchFingerprint passes 95% of scans with a score in [90,99]. Failed scans
// score in [40,69].
func (m *MockMatcher) MatchFingerprint(ctx context.Context, _ Voter) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	var score int
	if m.rng.Float64() < 0.95 {
		score = 90 + m.rng.IntN(10)
	} else {
		score = 40 + m.rng.IntN(30)
	}
	return Result{
		Gate:    GateFingerprint,
		Score:   score,
		Passed:  score >= FingerprintThreshold,
		Quality: Quality(GateFingerprint, score),
	}, nil
}
