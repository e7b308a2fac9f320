package verification

import (
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"

	"pollbooth/internal/ledger"
	"pollbooth/internal/registry"
	dErrors "pollbooth/pkg/domain-errors"
)

// State is a step of the booth workflow.
type State string

const (
	StateLoggedOut        State = "logged_out"
	StateDashboard        State = "dashboard"
	StateIdentifying      State = "identifying"
	StateFaceCheck        State = "face_check"
	StateFingerprintCheck State = "fingerprint_check"
	StateCandidateSelect  State = "candidate_select"
	StateCommitted        State = "committed"
)

// Session is one officer's pass through the workflow. Only one voter is bound
// at a time; Officer stays bound until logout.
type Session struct {
	ID               uuid.UUID             `json:"id"`
	State            State                 `json:"state"`
	Officer          *registry.Officer     `json:"officer,omitempty"`
	Voter            *registry.Voter       `json:"voter,omitempty"`
	Candidates       []*registry.Candidate `json:"candidates,omitempty"`
	FaceScore        *int                  `json:"faceMatchScore,omitempty"`
	FingerprintScore *int                  `json:"fingerprintMatchScore,omitempty"`
	LastVote         *ledger.Vote          `json:"lastVote,omitempty"`
	CreatedAt        time.Time             `json:"createdAt"`
	UpdatedAt        time.Time             `json:"updatedAt"`
}

// BoothID is the booth of the logged in officer, or empty when logged out.
func (s *Session) BoothID() string {
	if s.Officer == nil {
		return ""
	}
	return s.Officer.BoothID
}

// OfficerID is the officer identifier of the logged in officer.
func (s *Session) OfficerID() string {
	if s.Officer == nil {
		return ""
	}
	return s.Officer.OfficerID
}

func (s *Session) require(op string, states ...State) error {
	if slices.Contains(states, s.State) {
		return nil
	}
	return dErrors.New(dErrors.CodeInvalidState, fmt.Sprintf("cannot %s from state %s", op, s.State))
}

// clearVoter drops the bound voter and everything derived from it.
func (s *Session) clearVoter() {
	s.Voter = nil
	s.FaceScore = nil
	s.FingerprintScore = nil
}

func (s *Session) clearAll() {
	s.clearVoter()
	s.Officer = nil
	s.Candidates = nil
	s.LastVote = nil
}

func (s *Session) hasCandidate(candidateID string) bool {
	for _, c := range s.Candidates {
		if c.ID.String() == candidateID {
			return true
		}
	}
	return false
}

// Clone returns a copy that shares no mutable state with s.
func (s *Session) Clone() *Session {
	if s == nil {
		return nil
	}
	c := *s
	if s.Officer != nil {
		o := *s.Officer
		c.Officer = &o
	}
	if s.Voter != nil {
		v := *s.Voter
		c.Voter = &v
	}
	if s.Candidates != nil {
		c.Candidates = make([]*registry.Candidate, len(s.Candidates))
		for i, cand := range s.Candidates {
			cc := *cand
			c.Candidates[i] = &cc
		}
	}
	c.FaceScore = copyInt(s.FaceScore)
	c.FingerprintScore = copyInt(s.FingerprintScore)
	if s.LastVote != nil {
		v := *s.LastVote
		c.LastVote = &v
	}
	return &c
}

func copyInt(p *int) *int {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
