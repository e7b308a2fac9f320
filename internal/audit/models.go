package audit

import (
	"strings"
	"time"

	"github.com/google/uuid"

	dErrors "pollbooth/pkg/domain-errors"
)

// Entry is an immutable audit record. Entries are never updated or deleted.
type Entry struct {
	ID        uuid.UUID `json:"id"`
	Action    string    `json:"action"`
	VoterID   string    `json:"voterId,omitempty"`
	OfficerID string    `json:"officerId"`
	BoothID   string    `json:"boothId"`
	Details   string    `json:"details,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// AppendRequest carries the caller-supplied fields of a new entry. The id and
// timestamp are always assigned server side.
type AppendRequest struct {
	Action    string `json:"action"`
	VoterID   string `json:"voterId,omitempty"`
	OfficerID string `json:"officerId"`
	BoothID   string `json:"boothId"`
	Details   string `json:"details,omitempty"`
}

func (r *AppendRequest) Normalize() {
	r.Action = strings.TrimSpace(r.Action)
	r.VoterID = strings.TrimSpace(r.VoterID)
	r.OfficerID = strings.TrimSpace(r.OfficerID)
	r.BoothID = strings.TrimSpace(r.BoothID)
}

// Validate checks only the required fields: action, officerId and boothId.
func (r *AppendRequest) Validate() error {
	switch {
	case r.Action == "":
		return dErrors.New(dErrors.CodeValidation, "action is required")
	case r.OfficerID == "":
		return dErrors.New(dErrors.CodeValidation, "officerId is required")
	case r.BoothID == "":
		return dErrors.New(dErrors.CodeValidation, "boothId is required")
	}
	return nil
}
