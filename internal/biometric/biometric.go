// Package biometric scores face and fingerprint scans against a voter record.
//
// Scores are integers in [0,100]. A face scan passes at 75 or above and a
// fingerprint scan passes at 80 or above.
package biometric

import (
	"context"

	dErrors "pollbooth/pkg/domain-errors"
)

// Gate identifies which biometric check produced a result.
type Gate string

const (
	GateFace        Gate = "face"
	GateFingerprint Gate = "fingerprint"
)

const (
	FaceThreshold        = 75
	FingerprintThreshold = 80
)

// Result is the outcome of a single scan.
type Result struct {
	Gate           Gate   `json:"gate"`
	Score          int    `json:"matchScore"`
	Passed         bool   `json:"passed"`
	SpoofSuspected bool   `json:"spoofSuspected,omitempty"`
	Quality        string `json:"quality"`
}

// Voter is the subset of a voter record a matcher may compare against.
type Voter struct {
	VoterID             string
	PhotoURL            *string
	FingerprintTemplate *string
}

// Matcher produces scan results. Implementations must be safe for concurrent use.
type Matcher interface {
	MatchFace(ctx context.Context, voter Voter) (Result, error)
	MatchFingerprint(ctx context.Context, voter Voter) (Result, error)
}

// Threshold returns the pass mark for gate.
func Threshold(gate Gate) int {
	if gate == GateFingerprint {
		return FingerprintThreshold
	}
	return FaceThreshold
}

// Evaluate applies the gate threshold to a score supplied by the client.
func Evaluate(gate Gate, score int) (Result, error) {
	if gate != GateFace && gate != GateFingerprint {
		return Result{}, dErrors.New(dErrors.CodeValidation, "unknown biometric gate")
	}
	if err := ValidateScore(score); err != nil {
		return Result{}, err
	}
	return Result{
		Gate:    gate,
		Score:   score,
		Passed:  score >= Threshold(gate),
		Quality: Quality(gate, score),
	}, nil
}

// ValidateScore rejects scores outside [0,100].
func ValidateScore(score int) error {
	if score < 0 || score > 100 {
		return dErrors.New(dErrors.CodeValidation, "match score must be between 0 and 100")
	}
	return nil
}

// Quality labels a score for display.
func Quality(gate Gate, score int) string {
	if gate == GateFingerprint {
		switch {
		case score >= 90:
			return "Excellent"
		case score >= FingerprintThreshold:
			return "Good"
		default:
			return "Poor"
		}
	}
	switch {
	case score >= 85:
		return "High"
	case score >= FaceThreshold:
		return "Medium"
	default:
		return "Low"
	}
}
