// Package verification drives a booth session through identification, the
// two biometric gates and the vote commit, emitting audit entries on the way.
package verification

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"pollbooth/internal/audit"
	"pollbooth/internal/biometric"
	"pollbooth/internal/ledger"
	"pollbooth/internal/platform/metrics"
	"pollbooth/internal/registry"
	dErrors "pollbooth/pkg/domain-errors"
	"pollbooth/pkg/platform/sentinel"
)

// Registry resolves identities.
type Registry interface {
	Authenticate(ctx context.Context, officerID, secret string) (*registry.Officer, error)
	FindVoter(ctx context.Context, voterID string) (*registry.Voter, error)
	CandidatesForBooth(ctx context.Context, boothID string) ([]*registry.Candidate, error)
}

// Ledger commits ballots.
type Ledger interface {
	RecordVote(ctx context.Context, req ledger.RecordRequest) (*ledger.Vote, error)
}

// AuditLog appends audit entries.
type AuditLog interface {
	Append(ctx context.Context, req audit.AppendRequest) (*audit.Entry, error)
}

// SessionStore persists sessions between requests. Find returns
// sentinel.ErrNotFound for unknown sessions and may return
// sentinel.ErrExpired or wrap sentinel.ErrUnavailable.
type SessionStore interface {
	Create(ctx context.Context, session *Session) error
	Find(ctx context.Context, id uuid.UUID) (*Session, error)
	Update(ctx context.Context, session *Session) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// CheckInput is a client-reported gate outcome. A nil MatchScore asks the
// server to scan; a nil Passed lets the gate threshold decide.
type CheckInput struct {
	MatchScore *int  `json:"matchScore,omitempty"`
	Passed     *bool `json:"passed,omitempty"`
}

const VoteSubmittedMessage = "Vote submitted successfully"

type Service struct {
	registry Registry
	ledger   Ledger
	audit    AuditLog
	sessions SessionStore
	matcher  biometric.Matcher
	logger   *slog.Logger
	metrics  *metrics.Metrics
	tracer   trace.Tracer
	clock    func() time.Time
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// WithMatcher replaces the default randomized matcher.
func WithMatcher(m biometric.Matcher) Option {
	return func(s *Service) {
		if m != nil {
			s.matcher = m
		}
	}
}

func WithTracer(t trace.Tracer) Option {
	return func(s *Service) {
		if t != nil {
			s.tracer = t
		}
	}
}

func WithClock(clock func() time.Time) Option {
	return func(s *Service) {
		if clock != nil {
			s.clock = clock
		}
	}
}

func NewService(reg Registry, led Ledger, auditLog AuditLog, sessions SessionStore, opts ...Option) *Service {
	s := &Service{
		registry: reg,
		ledger:   led,
		audit:    auditLog,
		sessions: sessions,
		matcher:  biometric.NewMockMatcher(),
		logger:   slog.Default(),
		tracer:   otel.Tracer("pollbooth/verification"),
		clock:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Authenticate checks officer credentials and audits the attempt. Failed
// attempts are logged against the UNKNOWN booth.
func (s *Service) Authenticate(ctx context.Context, officerID, secret string) (officer *registry.Officer, err error) {
	ctx, span := s.tracer.Start(ctx, "verification.Authenticate")
	defer func() { endSpan(span, err) }()

	officerID = strings.TrimSpace(officerID)
	if officerID == "" || secret == "" {
		return nil, dErrors.New(dErrors.CodeBadRequest, "Officer ID and password required")
	}

	officer, err = s.registry.Authenticate(ctx, officerID, secret)
	if err != nil {
		if dErrors.HasCode(err, dErrors.CodeInvalidCredentials) {
			s.metrics.IncrementLogin(false)
			s.appendAudit(ctx, audit.AppendRequest{
				Action:    audit.ActionFailedOfficerLogin,
				OfficerID: officerID,
				BoothID:   audit.UnknownBooth,
				Details:   "Invalid credentials",
			})
		}
		return nil, err
	}

	s.metrics.IncrementLogin(true)
	s.appendAudit(ctx, audit.AppendRequest{
		Action:    audit.ActionOfficerLogin,
		OfficerID: officer.OfficerID,
		BoothID:   officer.BoothID,
		Details:   "Successful login",
	})
	return officer, nil
}

// Login authenticates the officer and opens a session on the dashboard.
func (s *Service) Login(ctx context.Context, officerID, secret string) (*Session, error) {
	officer, err := s.Authenticate(ctx, officerID, secret)
	if err != nil {
		return nil, err
	}

	now := s.clock()
	session := &Session{
		ID:        uuid.New(),
		State:     StateDashboard,
		Officer:   officer,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.sessions.Create(ctx, session); err != nil {
		return nil, sessionError(err, "failed to create session")
	}
	s.logger.InfoContext(ctx, "session opened",
		"session_id", session.ID,
		"officer_id", officer.OfficerID,
		"booth_id", officer.BoothID,
	)
	return session, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Session, error) {
	return s.load(ctx, id)
}

// StartVerification loads the booth's candidates and waits for a voter id.
func (s *Service) StartVerification(ctx context.Context, id uuid.UUID) (session *Session, err error) {
	ctx, span := s.startSpan(ctx, "verification.StartVerification", id)
	defer func() { endSpan(span, err) }()

	session, err = s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := session.require("start verification", StateDashboard); err != nil {
		return nil, err
	}

	candidates, err := s.registry.CandidatesForBooth(ctx, session.BoothID())
	if err != nil {
		return nil, err
	}
	session.Candidates = candidates
	session.LastVote = nil
	session.clearVoter()
	session.State = StateIdentifying
	if err := s.save(ctx, session); err != nil {
		return nil, err
	}
	return session, nil
}

// IdentifyVoter binds a voter who has not voted yet. An unknown voter leaves
// the session untouched; a voter who already voted is audited as a duplicate
// attempt and the session stays on Identifying.
func (s *Service) IdentifyVoter(ctx context.Context, id uuid.UUID, voterID string) (session *Session, err error) {
	ctx, span := s.startSpan(ctx, "verification.IdentifyVoter", id)
	defer func() { endSpan(span, err) }()

	session, err = s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := session.require("identify voter", StateIdentifying); err != nil {
		return nil, err
	}

	voter, err := s.registry.FindVoter(ctx, voterID)
	if err != nil {
		return nil, err
	}
	if voter.HasVoted {
		s.duplicateAttempt(ctx, voter.VoterID, session.OfficerID(), session.BoothID())
		return nil, dErrors.New(dErrors.CodeAlreadyVoted, "Voter has already voted")
	}

	s.appendAudit(ctx, audit.AppendRequest{
		Action:    audit.ActionVoterIdentified,
		VoterID:   voter.VoterID,
		OfficerID: session.OfficerID(),
		BoothID:   session.BoothID(),
	})
	session.Voter = voter
	session.FaceScore = nil
	session.FingerprintScore = nil
	session.State = StateFaceCheck
	if err := s.save(ctx, session); err != nil {
		return nil, err
	}
	return session, nil
}

// SubmitFaceCheck applies a face gate outcome. A pass moves to the
// fingerprint gate; a failure releases the voter and returns to the dashboard.
func (s *Service) SubmitFaceCheck(ctx context.Context, id uuid.UUID, in CheckInput) (*Session, biometric.Result, error) {
	return s.submitCheck(ctx, id, biometric.GateFace, in)
}

// SubmitFingerprintCheck applies a fingerprint gate outcome. A pass moves to
// candidate selection.
func (s *Service) SubmitFingerprintCheck(ctx context.Context, id uuid.UUID, in CheckInput) (*Session, biometric.Result, error) {
	return s.submitCheck(ctx, id, biometric.GateFingerprint, in)
}

func (s *Service) submitCheck(ctx context.Context, id uuid.UUID, gate biometric.Gate, in CheckInput) (session *Session, result biometric.Result, err error) {
	ctx, span := s.startSpan(ctx, "verification.Submit"+gateName(gate)+"Check", id)
	defer func() { endSpan(span, err) }()

	session, err = s.load(ctx, id)
	if err != nil {
		return nil, biometric.Result{}, err
	}
	want := StateFaceCheck
	if gate == biometric.GateFingerprint {
		want = StateFingerprintCheck
	}
	if err := session.require("submit "+string(gate)+" check", want); err != nil {
		return nil, biometric.Result{}, err
	}
	if session.Voter == nil {
		return nil, biometric.Result{}, dErrors.New(dErrors.CodeInvalidState, "no voter bound to session")
	}

	result, err = s.resolveOutcome(ctx, gate, session.Voter, in)
	if err != nil {
		return nil, biometric.Result{}, err
	}
	span.SetAttributes(
		attribute.String("gate", string(gate)),
		attribute.Int("match_score", result.Score),
		attribute.Bool("passed", result.Passed),
	)
	s.metrics.IncrementVerificationOutcome(string(gate), result.Passed)

	entry := audit.AppendRequest{
		VoterID:   session.Voter.VoterID,
		OfficerID: session.OfficerID(),
		BoothID:   session.BoothID(),
	}
	score := result.Score
	switch {
	case result.Passed && gate == biometric.GateFace:
		entry.Action = audit.ActionFaceVerified
		entry.Details = fmt.Sprintf("Match score: %d%%", score)
		session.FaceScore = &score
		session.State = StateFingerprintCheck
	case result.Passed:
		entry.Action = audit.ActionFingerprintVerified
		entry.Details = fmt.Sprintf("Match score: %d%%", score)
		session.FingerprintScore = &score
		session.State = StateCandidateSelect
	case gate == biometric.GateFace:
		entry.Action = audit.ActionFaceVerificationFailed
		entry.Details = "Face did not match"
		session.clearVoter()
		session.State = StateDashboard
	default:
		entry.Action = audit.ActionFingerprintVerificationFailed
		entry.Details = "Fingerprint did not match"
		session.clearVoter()
		session.State = StateDashboard
	}
	s.appendAudit(ctx, entry)

	if result.SpoofSuspected {
		s.logger.WarnContext(ctx, "possible spoof detected",
			"session_id", session.ID,
			"gate", gate,
			"match_score", result.Score,
		)
	}
	if err := s.save(ctx, session); err != nil {
		return nil, biometric.Result{}, err
	}
	return session, result, nil
}

func (s *Service) resolveOutcome(ctx context.Context, gate biometric.Gate, voter *registry.Voter, in CheckInput) (biometric.Result, error) {
	if in.MatchScore == nil {
		subject := biometric.Voter{
			VoterID:             voter.VoterID,
			PhotoURL:            voter.PhotoURL,
			FingerprintTemplate: voter.FingerprintTemplate,
		}
		var (
			res biometric.Result
			err error
		)
		if gate == biometric.GateFace {
			res, err = s.matcher.MatchFace(ctx, subject)
		} else {
			res, err = s.matcher.MatchFingerprint(ctx, subject)
		}
		if err != nil {
			return biometric.Result{}, dErrors.Wrap(err, dErrors.CodeInternal, "biometric scan failed")
		}
		return res, nil
	}

	res, err := biometric.Evaluate(gate, *in.MatchScore)
	if err != nil {
		return biometric.Result{}, err
	}
	if in.Passed != nil {
		res.Passed = *in.Passed
	}
	return res, nil
}

// Back steps one gate backwards without any audit entry.
func (s *Service) Back(ctx context.Context, id uuid.UUID) (*Session, error) {
	session, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	switch session.State {
	case StateCandidateSelect:
		session.FingerprintScore = nil
		session.State = StateFingerprintCheck
	case StateFingerprintCheck:
		session.FaceScore = nil
		session.State = StateFaceCheck
	default:
		return nil, session.require("go back", StateCandidateSelect, StateFingerprintCheck)
	}
	if err := s.save(ctx, session); err != nil {
		return nil, err
	}
	return session, nil
}

// CommitVote records the ballot for the bound voter. On AlreadyVoted the
// session stays on CandidateSelect; the officer backs out with Back twice and
// then ReturnToDashboard.
func (s *Service) CommitVote(ctx context.Context, id uuid.UUID, candidateID string) (session *Session, vote *ledger.Vote, err error) {
	ctx, span := s.startSpan(ctx, "verification.CommitVote", id)
	defer func() { endSpan(span, err) }()

	session, err = s.load(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	if err := session.require("commit vote", StateCandidateSelect); err != nil {
		return nil, nil, err
	}
	if session.Voter == nil {
		return nil, nil, dErrors.New(dErrors.CodeVoterNotFound, "Voter not found")
	}
	if session.FaceScore == nil || session.FingerprintScore == nil {
		return nil, nil, dErrors.New(dErrors.CodeInvalidState, "biometric checks incomplete")
	}
	candidateID = strings.TrimSpace(candidateID)
	if !session.hasCandidate(candidateID) {
		return nil, nil, dErrors.New(dErrors.CodeValidation, "candidate is not on this booth's ballot")
	}

	vote, err = s.SubmitVote(ctx, ledger.RecordRequest{
		VoterID:               session.Voter.VoterID,
		CandidateID:           candidateID,
		OfficerID:             session.OfficerID(),
		BoothID:               session.BoothID(),
		FaceMatchScore:        session.FaceScore,
		FingerprintMatchScore: session.FingerprintScore,
	})
	if err != nil {
		return nil, nil, err
	}

	session.Voter.HasVoted = true
	session.LastVote = vote
	session.State = StateCommitted
	if err := s.save(ctx, session); err != nil {
		return nil, nil, err
	}
	return session, vote, nil
}

// SubmitVote records a ballot outside any session. The voter must resolve and
// must not have voted; duplicate attempts are audited whether they are caught
// by the pre-check or by the ledger.
func (s *Service) SubmitVote(ctx context.Context, req ledger.RecordRequest) (vote *ledger.Vote, err error) {
	ctx, span := s.tracer.Start(ctx, "verification.SubmitVote")
	defer func() { endSpan(span, err) }()

	req.Normalize()
	if err := req.Validate(); err != nil {
		return nil, err
	}
	span.SetAttributes(attribute.String("booth_id", req.BoothID))

	voter, err := s.registry.FindVoter(ctx, req.VoterID)
	if err != nil {
		return nil, err
	}
	if voter.HasVoted {
		s.duplicateAttempt(ctx, req.VoterID, req.OfficerID, req.BoothID)
		return nil, dErrors.New(dErrors.CodeAlreadyVoted, "Voter has already voted")
	}

	vote, err = s.ledger.RecordVote(ctx, req)
	if err != nil {
		if dErrors.HasCode(err, dErrors.CodeAlreadyVoted) {
			s.duplicateAttempt(ctx, req.VoterID, req.OfficerID, req.BoothID)
		}
		return nil, err
	}

	s.appendAudit(ctx, audit.AppendRequest{
		Action:    audit.ActionVoteSubmitted,
		VoterID:   vote.VoterID,
		OfficerID: vote.OfficerID,
		BoothID:   vote.BoothID,
		Details:   fmt.Sprintf("Face: %d%%, Fingerprint: %d%%", vote.FaceMatchScore, vote.FingerprintMatchScore),
	})
	return vote, nil
}

// ReturnToDashboard cancels an identification in progress or closes a
// committed voter. Candidates stay loaded for the next voter.
func (s *Service) ReturnToDashboard(ctx context.Context, id uuid.UUID) (*Session, error) {
	session, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := session.require("return to dashboard", StateIdentifying, StateFaceCheck, StateCommitted); err != nil {
		return nil, err
	}
	session.clearVoter()
	session.LastVote = nil
	session.State = StateDashboard
	if err := s.save(ctx, session); err != nil {
		return nil, err
	}
	return session, nil
}

// Logout clears everything bound to the session and discards it.
func (s *Service) Logout(ctx context.Context, id uuid.UUID) (*Session, error) {
	session, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	officerID := session.OfficerID()
	session.clearAll()
	session.State = StateLoggedOut
	session.UpdatedAt = s.clock()

	if err := s.sessions.Delete(ctx, id); err != nil && !errors.Is(err, sentinel.ErrNotFound) {
		return nil, sessionError(err, "failed to delete session")
	}
	s.logger.InfoContext(ctx, "session closed", "session_id", id, "officer_id", officerID)
	return session, nil
}

func (s *Service) load(ctx context.Context, id uuid.UUID) (*Session, error) {
	session, err := s.sessions.Find(ctx, id)
	if err != nil {
		return nil, sessionError(err, "failed to load session")
	}
	return session, nil
}

func (s *Service) save(ctx context.Context, session *Session) error {
	session.UpdatedAt = s.clock()
	if err := s.sessions.Update(ctx, session); err != nil {
		return sessionError(err, "failed to save session")
	}
	return nil
}

// sessionError translates session store facts. Expired sessions read as
// missing so a stale terminal is sent back to login.
func sessionError(err error, msg string) error {
	switch {
	case errors.Is(err, sentinel.ErrNotFound):
		return dErrors.New(dErrors.CodeNotFound, "session not found")
	case errors.Is(err, sentinel.ErrExpired):
		return dErrors.New(dErrors.CodeNotFound, "session expired")
	case errors.Is(err, sentinel.ErrUnavailable):
		return dErrors.Wrap(err, dErrors.CodeUnavailable, "session store unavailable")
	}
	return dErrors.Wrap(err, dErrors.CodeInternal, msg)
}

func (s *Service) duplicateAttempt(ctx context.Context, voterID, officerID, boothID string) {
	s.metrics.IncrementDuplicateAttempt(boothID)
	s.appendAudit(ctx, audit.AppendRequest{
		Action:    audit.ActionDuplicateVoteAttempt,
		VoterID:   voterID,
		OfficerID: officerID,
		BoothID:   boothID,
		Details:   "Voter already voted",
	})
}

// appendAudit logs storage failures instead of returning them.
func (s *Service) appendAudit(ctx context.Context, req audit.AppendRequest) {
	if _, err := s.audit.Append(ctx, req); err != nil {
		s.logger.ErrorContext(ctx, "failed to append audit entry",
			"action", req.Action,
			"booth_id", req.BoothID,
			"error", err,
		)
	}
}

func (s *Service) startSpan(ctx context.Context, name string, id uuid.UUID) (context.Context, trace.Span) {
	return s.tracer.Start(ctx, name, trace.WithAttributes(attribute.String("session_id", id.String())))
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, string(dErrors.GetCode(err)))
	}
	span.End()
}

func gateName(gate biometric.Gate) string {
	if gate == biometric.GateFingerprint {
		return "Fingerprint"
	}
	return "Face"
}
