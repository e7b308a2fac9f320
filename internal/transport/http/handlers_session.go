package httptransport

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"pollbooth/internal/biometric"
	"pollbooth/internal/ledger"
	"pollbooth/internal/verification"
	dErrors "pollbooth/pkg/domain-errors"
	"pollbooth/pkg/platform/httputil"
)

// SessionService drives the verification workflow one transition per call.
type SessionService interface {
	Login(ctx context.Context, officerID, secret string) (*verification.Session, error)
	Get(ctx context.Context, id uuid.UUID) (*verification.Session, error)
	StartVerification(ctx context.Context, id uuid.UUID) (*verification.Session, error)
	IdentifyVoter(ctx context.Context, id uuid.UUID, voterID string) (*verification.Session, error)
	SubmitFaceCheck(ctx context.Context, id uuid.UUID, in verification.CheckInput) (*verification.Session, biometric.Result, error)
	SubmitFingerprintCheck(ctx context.Context, id uuid.UUID, in verification.CheckInput) (*verification.Session, biometric.Result, error)
	Back(ctx context.Context, id uuid.UUID) (*verification.Session, error)
	CommitVote(ctx context.Context, id uuid.UUID, candidateID string) (*verification.Session, *ledger.Vote, error)
	ReturnToDashboard(ctx context.Context, id uuid.UUID) (*verification.Session, error)
	Logout(ctx context.Context, id uuid.UUID) (*verification.Session, error)
}

type SessionHandler struct {
	sessions SessionService
	logger   *slog.Logger
}

func NewSessionHandler(sessions SessionService, logger *slog.Logger) *SessionHandler {
	return &SessionHandler{sessions: sessions, logger: logger}
}

func (h *SessionHandler) Register(r chi.Router) {
	r.Route("/sessions", func(r chi.Router) {
		r.Post("/", h.handleLogin)
		r.Route("/{sessionId}", func(r chi.Router) {
			r.Get("/", h.handleGet)
			r.Delete("/", h.handleLogout)
			r.Post("/start", h.transition(h.sessions.StartVerification))
			r.Post("/back", h.transition(h.sessions.Back))
			r.Post("/dashboard", h.transition(h.sessions.ReturnToDashboard))
			r.Post("/identify", h.handleIdentify)
			r.Post("/face", h.handleCheck(h.sessions.SubmitFaceCheck))
			r.Post("/fingerprint", h.handleCheck(h.sessions.SubmitFingerprintCheck))
			r.Post("/vote", h.handleCommitVote)
		})
	})
}

func (h *SessionHandler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := httputil.DecodeJSON(r, &req, false); err != nil {
		h.fail(w, r, err)
		return
	}
	session, err := h.sessions.Login(r.Context(), req.OfficerID, req.secret())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, map[string]any{"session": session})
}

func (h *SessionHandler) handleGet(w http.ResponseWriter, r *http.Request) {
	h.transition(h.sessions.Get)(w, r)
}

func (h *SessionHandler) handleLogout(w http.ResponseWriter, r *http.Request) {
	id, err := sessionID(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if _, err := h.sessions.Logout(r.Context(), id); err != nil {
		h.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// transition adapts a body-less session operation to a handler.
func (h *SessionHandler) transition(op func(context.Context, uuid.UUID) (*verification.Session, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := sessionID(r)
		if err != nil {
			h.fail(w, r, err)
			return
		}
		session, err := op(r.Context(), id)
		if err != nil {
			h.fail(w, r, err)
			return
		}
		httputil.WriteJSON(w, http.StatusOK, map[string]any{"session": session})
	}
}

func (h *SessionHandler) handleIdentify(w http.ResponseWriter, r *http.Request) {
	id, err := sessionID(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	var req struct {
		VoterID string `json:"voterId"`
	}
	if err := httputil.DecodeJSON(r, &req, false); err != nil {
		h.fail(w, r, err)
		return
	}
	session, err := h.sessions.IdentifyVoter(r.Context(), id, req.VoterID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"session": session})
}

func (h *SessionHandler) handleCheck(op func(context.Context, uuid.UUID, verification.CheckInput) (*verification.Session, biometric.Result, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := sessionID(r)
		if err != nil {
			h.fail(w, r, err)
			return
		}
		var in verification.CheckInput
		if err := httputil.DecodeJSON(r, &in, true); err != nil {
			h.fail(w, r, err)
			return
		}
		session, result, err := op(r.Context(), id, in)
		if err != nil {
			h.fail(w, r, err)
			return
		}
		httputil.WriteJSON(w, http.StatusOK, map[string]any{"session": session, "result": result})
	}
}

func (h *SessionHandler) handleCommitVote(w http.ResponseWriter, r *http.Request) {
	id, err := sessionID(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	var req struct {
		CandidateID string `json:"candidateId"`
	}
	if err := httputil.DecodeJSON(r, &req, false); err != nil {
		h.fail(w, r, err)
		return
	}
	session, vote, err := h.sessions.CommitVote(r.Context(), id, req.CandidateID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{
		"session": session,
		"vote":    vote,
		"message": verification.VoteSubmittedMessage,
	})
}

func (h *SessionHandler) fail(w http.ResponseWriter, r *http.Request, err error) {
	logFailure(r.Context(), h.logger, r, err)
	httputil.WriteError(w, err)
}

func sessionID(r *http.Request) (uuid.UUID, error) {
	id, err := uuid.Parse(chi.URLParam(r, "sessionId"))
	if err != nil {
		return uuid.Nil, dErrors.New(dErrors.CodeBadRequest, "invalid session id")
	}
	return id, nil
}
