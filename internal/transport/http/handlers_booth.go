package httptransport

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"pollbooth/internal/audit"
	"pollbooth/internal/dashboard"
	"pollbooth/internal/ledger"
	"pollbooth/internal/platform/middleware"
	"pollbooth/internal/registry"
	"pollbooth/internal/verification"
	dErrors "pollbooth/pkg/domain-errors"
	"pollbooth/pkg/platform/httputil"
)

// BoothService covers the stateless booth operations.
type BoothService interface {
	Authenticate(ctx context.Context, officerID, secret string) (*registry.Officer, error)
	SubmitVote(ctx context.Context, req ledger.RecordRequest) (*ledger.Vote, error)
}

type RegistryService interface {
	FindVoter(ctx context.Context, voterID string) (*registry.Voter, error)
	CandidatesForBooth(ctx context.Context, boothID string) ([]*registry.Candidate, error)
}

type DashboardService interface {
	Stats(ctx context.Context, boothID string) (*dashboard.Stats, error)
	Activity(ctx context.Context, boothID string) ([]dashboard.ActivityItem, error)
}

type AuditService interface {
	Append(ctx context.Context, req audit.AppendRequest) (*audit.Entry, error)
}

// BoothHandler serves the officer-facing lookup, vote and dashboard routes.
type BoothHandler struct {
	booth     BoothService
	registry  RegistryService
	dashboard DashboardService
	audit     AuditService
	logger    *slog.Logger
}

func NewBoothHandler(booth BoothService, reg RegistryService, dash DashboardService, auditSvc AuditService, logger *slog.Logger) *BoothHandler {
	return &BoothHandler{
		booth:     booth,
		registry:  reg,
		dashboard: dash,
		audit:     auditSvc,
		logger:    logger,
	}
}

func (h *BoothHandler) Register(r chi.Router) {
	r.Post("/auth/login", h.handleLogin)
	r.Get("/voters/{voterId}", h.handleGetVoter)
	r.Get("/candidates", h.handleListCandidates)
	r.Post("/votes", h.handleSubmitVote)
	r.Get("/dashboard/stats", h.handleStats)
	r.Get("/dashboard/activity", h.handleActivity)
	r.Post("/audit", h.handleCreateAuditEntry)
}

type loginRequest struct {
	OfficerID string `json:"officerId"`
	Secret    string `json:"secret"`
	// Password is accepted as an alias of Secret.
	Password string `json:"password"`
}

func (r loginRequest) secret() string {
	if r.Secret != "" {
		return r.Secret
	}
	return r.Password
}

func (h *BoothHandler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := httputil.DecodeJSON(r, &req, false); err != nil {
		h.fail(w, r, err)
		return
	}
	officer, err := h.booth.Authenticate(r.Context(), req.OfficerID, req.secret())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"officer": officer})
}

func (h *BoothHandler) handleGetVoter(w http.ResponseWriter, r *http.Request) {
	voter, err := h.registry.FindVoter(r.Context(), chi.URLParam(r, "voterId"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"voter": voter})
}

func (h *BoothHandler) handleListCandidates(w http.ResponseWriter, r *http.Request) {
	candidates, err := h.registry.CandidatesForBooth(r.Context(), r.URL.Query().Get("boothId"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"candidates": candidates})
}

func (h *BoothHandler) handleSubmitVote(w http.ResponseWriter, r *http.Request) {
	var req ledger.RecordRequest
	if err := httputil.DecodeJSON(r, &req, false); err != nil {
		h.fail(w, r, err)
		return
	}
	vote, err := h.booth.SubmitVote(r.Context(), req)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{
		"vote":    vote,
		"message": verification.VoteSubmittedMessage,
	})
}

func (h *BoothHandler) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.dashboard.Stats(r.Context(), r.URL.Query().Get("boothId"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, stats)
}

func (h *BoothHandler) handleActivity(w http.ResponseWriter, r *http.Request) {
	items, err := h.dashboard.Activity(r.Context(), r.URL.Query().Get("boothId"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"activity": items})
}

func (h *BoothHandler) handleCreateAuditEntry(w http.ResponseWriter, r *http.Request) {
	var req audit.AppendRequest
	if err := httputil.DecodeJSON(r, &req, false); err != nil {
		h.fail(w, r, err)
		return
	}
	entry, err := h.audit.Append(r.Context(), req)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"log": entry})
}

func (h *BoothHandler) fail(w http.ResponseWriter, r *http.Request, err error) {
	logFailure(r.Context(), h.logger, r, err)
	httputil.WriteError(w, err)
}

// logFailure logs user-facing rejections at warn and everything else at error.
func logFailure(ctx context.Context, logger *slog.Logger, r *http.Request, err error) {
	level := slog.LevelWarn
	if dErrors.GetCode(err) == dErrors.CodeInternal {
		level = slog.LevelError
	}
	logger.Log(ctx, level, "request failed",
		"request_id", middleware.GetRequestID(ctx),
		"path", r.URL.Path,
		"code", dErrors.GetCode(err),
		"error", err.Error(),
	)
}
