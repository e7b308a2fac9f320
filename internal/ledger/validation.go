package ledger

import (
	"strings"

	dErrors "pollbooth/pkg/domain-errors"
)

// Normalize trims identifier whitespace.
func (r *RecordRequest) Normalize() {
	r.VoterID = strings.TrimSpace(r.VoterID)
	r.CandidateID = strings.TrimSpace(r.CandidateID)
	r.OfficerID = strings.TrimSpace(r.OfficerID)
	r.BoothID = strings.TrimSpace(r.BoothID)
}

// Validate enforces required identifiers and 0-100 match scores.
func (r *RecordRequest) Validate() error {
	switch {
	case r.VoterID == "":
		return dErrors.New(dErrors.CodeValidation, "voterId is required")
	case r.CandidateID == "":
		return dErrors.New(dErrors.CodeValidation, "candidateId is required")
	case r.OfficerID == "":
		return dErrors.New(dErrors.CodeValidation, "officerId is required")
	case r.BoothID == "":
		return dErrors.New(dErrors.CodeValidation, "boothId is required")
	case r.FaceMatchScore == nil:
		return dErrors.New(dErrors.CodeValidation, "faceMatchScore is required")
	case r.FingerprintMatchScore == nil:
		return dErrors.New(dErrors.CodeValidation, "fingerprintMatchScore is required")
	}
	if !validScore(*r.FaceMatchScore) || !validScore(*r.FingerprintMatchScore) {
		return dErrors.New(dErrors.CodeValidation, "match scores must be between 0 and 100")
	}
	return nil
}

func validScore(score int) bool {
	return score >= 0 && score <= 100
}
