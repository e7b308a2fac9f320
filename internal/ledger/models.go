package ledger

import (
	"time"

	"github.com/google/uuid"
)

// Vote is an immutable ballot record. At most one exists per voter id.
type Vote struct {
	ID                    uuid.UUID `json:"id"`
	VoterID               string    `json:"voterId"`
	CandidateID           string    `json:"candidateId"`
	OfficerID             string    `json:"officerId"`
	BoothID               string    `json:"boothId"`
	FaceMatchScore        int       `json:"faceMatchScore"`
	FingerprintMatchScore int       `json:"fingerprintMatchScore"`
	Timestamp             time.Time `json:"timestamp"`
}

// RecordRequest is the ballot submitted for commit.
type RecordRequest struct {
	VoterID               string `json:"voterId"`
	CandidateID           string `json:"candidateId"`
	OfficerID             string `json:"officerId"`
	BoothID               string `json:"boothId"`
	FaceMatchScore        *int   `json:"faceMatchScore"`
	FingerprintMatchScore *int   `json:"fingerprintMatchScore"`
}
