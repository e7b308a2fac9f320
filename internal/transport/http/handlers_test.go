package httptransport

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"pollbooth/internal/audit"
	"pollbooth/internal/biometric"
	"pollbooth/internal/dashboard"
	"pollbooth/internal/ledger"
	"pollbooth/internal/platform/metrics"
	"pollbooth/internal/registry"
	"pollbooth/internal/storage"
	"pollbooth/internal/transport/http/mocks"
	"pollbooth/internal/verification"
	"pollbooth/internal/verification/sessionstore"
	dErrors "pollbooth/pkg/domain-errors"
	"pollbooth/pkg/testutil"
)

//go:generate mockgen -source=handlers_booth.go -destination=mocks/dashboard-mocks.go -package=mocks DashboardService

const booth = storage.DemoBoothID

type HandlerSuite struct {
	suite.Suite
	router http.Handler
}

func TestHandlerSuite(t *testing.T) {
	suite.Run(t, new(HandlerSuite))
}

func (s *HandlerSuite) SetupTest() {
	s.router = newTestRouter(s.T(), nil)
}

// newTestRouter wires the full in-memory stack. dash overrides the dashboard
// service when non-nil.
func newTestRouter(t *testing.T, dash DashboardService) http.Handler {
	t.Helper()
	ctx := context.Background()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)

	store := storage.NewMemory()
	require.NoError(t, storage.SeedDemoData(ctx, store))

	registrySvc := registry.NewService(store, registry.WithLogger(logger))
	ledgerSvc := ledger.NewService(store, ledger.WithLogger(logger), ledger.WithMetrics(m))
	auditSvc := audit.NewService(store, audit.WithLogger(logger), audit.WithMetrics(m))
	verifier := verification.NewService(registrySvc, ledgerSvc, auditSvc, sessionstore.NewInMemory(0),
		verification.WithLogger(logger),
		verification.WithMetrics(m),
		verification.WithMatcher(biometric.NewMockMatcher()),
	)
	if dash == nil {
		dash = dashboard.NewAggregator(ledgerSvc, auditSvc, registrySvc, dashboard.WithLogger(logger))
	}

	return NewRouter(RouterConfig{
		Logger:   logger,
		Metrics:  m,
		Gatherer: reg,
		Health:   map[string]HealthCheck{"store": func(context.Context) error { return nil }},
		Handlers: []interface{ Register(chi.Router) }{
			NewBoothHandler(verifier, registrySvc, dash, auditSvc, logger),
			NewSessionHandler(verifier, logger),
		},
	})
}

func (s *HandlerSuite) do(method, path string, body any) *httptest.ResponseRecorder {
	return testutil.DoRequest(s.router, testutil.NewJSONRequest(s.T(), method, path, body))
}

func (s *HandlerSuite) vote(voterID string) map[string]any {
	return map[string]any{
		"voterId": voterID, "candidateId": "c-1", "officerId": "OFF001", "boothId": booth,
		"faceMatchScore": 91, "fingerprintMatchScore": 96,
	}
}

func (s *HandlerSuite) TestLogin() {
	s.Run("valid credentials return the officer without the secret", func() {
		res := s.do(http.MethodPost, "/auth/login", map[string]string{"officerId": "OFF001", "secret": "password123"})
		testutil.AssertStatus(s.T(), res, http.StatusOK)
		body := testutil.UnmarshalResponse[map[string]map[string]any](s.T(), res)
		officer := (*body)["officer"]
		s.Equal("OFF001", officer["officerId"])
		s.Equal("Officer Ramesh Singh", officer["name"])
		s.Equal(booth, officer["boothId"])
		s.NotContains(officer, "secret")
	})

	s.Run("password is accepted as the secret field", func() {
		res := s.do(http.MethodPost, "/auth/login", map[string]string{"officerId": "OFF001", "password": "password123"})
		testutil.AssertStatus(s.T(), res, http.StatusOK)
	})

	s.Run("wrong secret is 401", func() {
		res := s.do(http.MethodPost, "/auth/login", map[string]string{"officerId": "OFF001", "secret": "nope"})
		body := testutil.AssertStatusAndError(s.T(), res, http.StatusUnauthorized, string(dErrors.CodeInvalidCredentials))
		s.Equal("Invalid credentials", body.ErrorDescription)
	})

	s.Run("missing fields are 400", func() {
		res := s.do(http.MethodPost, "/auth/login", map[string]string{"officerId": "OFF001"})
		testutil.AssertStatusAndError(s.T(), res, http.StatusBadRequest, string(dErrors.CodeBadRequest))
	})

	s.Run("malformed body is 400", func() {
		rr := testutil.DoRequest(s.router, testutil.NewRequestWithBody(s.T(), http.MethodPost, "/auth/login", "{"))
		testutil.AssertStatusAndError(s.T(), rr, http.StatusBadRequest, string(dErrors.CodeBadRequest))
	})
}

func (s *HandlerSuite) TestVoterAndCandidates() {
	res := s.do(http.MethodGet, "/voters/VOT987654321", nil)
	testutil.AssertStatus(s.T(), res, http.StatusOK)
	voter := testutil.UnmarshalResponse[map[string]registry.Voter](s.T(), res)
	s.Equal("Priya Sharma", (*voter)["voter"].Name)
	s.False((*voter)["voter"].HasVoted)

	res = s.do(http.MethodGet, "/voters/VOT000000000", nil)
	testutil.AssertStatusAndError(s.T(), res, http.StatusNotFound, string(dErrors.CodeVoterNotFound))

	res = s.do(http.MethodGet, "/candidates?boothId="+booth, nil)
	testutil.AssertStatus(s.T(), res, http.StatusOK)
	candidates := testutil.UnmarshalResponse[map[string][]registry.Candidate](s.T(), res)
	s.Len((*candidates)["candidates"], 4)
	for _, c := range (*candidates)["candidates"] {
		s.Equal(booth, c.BoothID)
	}

	res = s.do(http.MethodGet, "/candidates?boothId=BH-001", nil)
	testutil.AssertStatus(s.T(), res, http.StatusOK)
	other := testutil.UnmarshalResponse[map[string][]registry.Candidate](s.T(), res)
	s.Empty((*other)["candidates"])

	res = s.do(http.MethodGet, "/candidates", nil)
	testutil.AssertStatusAndError(s.T(), res, http.StatusBadRequest, string(dErrors.CodeBoothIDRequired))
}

func (s *HandlerSuite) TestSubmitVoteAndDashboard() {
	res := s.do(http.MethodPost, "/votes", s.vote("VOT123456789"))
	testutil.AssertStatus(s.T(), res, http.StatusOK)
	body := testutil.UnmarshalResponse[struct {
		Vote    ledger.Vote `json:"vote"`
		Message string      `json:"message"`
	}](s.T(), res)
	s.Equal("Vote submitted successfully", body.Message)
	s.Equal(91, body.Vote.FaceMatchScore)

	res = s.do(http.MethodPost, "/votes", s.vote("VOT123456789"))
	testutil.AssertStatusAndError(s.T(), res, http.StatusBadRequest, string(dErrors.CodeAlreadyVoted))

	res = s.do(http.MethodPost, "/votes", s.vote("VOT000000000"))
	testutil.AssertStatusAndError(s.T(), res, http.StatusNotFound, string(dErrors.CodeVoterNotFound))

	bad := s.vote("VOT987654321")
	bad["fingerprintMatchScore"] = 120
	res = s.do(http.MethodPost, "/votes", bad)
	testutil.AssertStatusAndError(s.T(), res, http.StatusBadRequest, string(dErrors.CodeValidation))

	res = s.do(http.MethodGet, "/dashboard/stats?boothId="+booth, nil)
	testutil.AssertStatus(s.T(), res, http.StatusOK)
	stats := testutil.UnmarshalResponse[dashboard.Stats](s.T(), res)
	s.Equal(dashboard.Stats{TotalVerified: 1, Pending: 0, Suspicious: 1}, *stats)

	res = s.do(http.MethodGet, "/dashboard/activity?boothId="+booth, nil)
	testutil.AssertStatus(s.T(), res, http.StatusOK)
	activity := testutil.UnmarshalResponse[map[string][]dashboard.ActivityItem](s.T(), res)
	items := (*activity)["activity"]
	s.Require().Len(items, 2)
	s.Equal(audit.ActionDuplicateVoteAttempt, items[0].Action)
	s.Equal(audit.StatusSuspicious, items[0].Status)
	s.Equal("Rajesh Kumar", items[0].VoterName)
	s.Equal(audit.ActionVoteSubmitted, items[1].Action)

	res = s.do(http.MethodGet, "/dashboard/stats", nil)
	testutil.AssertStatusAndError(s.T(), res, http.StatusBadRequest, string(dErrors.CodeBoothIDRequired))
}

func (s *HandlerSuite) TestCreateAuditEntry() {
	res := s.do(http.MethodPost, "/audit", map[string]string{
		"action": "Face Verified", "voterId": "VOT123456789", "officerId": "OFF001", "boothId": booth, "details": "Match score: 90%",
	})
	testutil.AssertStatus(s.T(), res, http.StatusOK)
	body := testutil.UnmarshalResponse[map[string]audit.Entry](s.T(), res)
	s.Equal("Face Verified", (*body)["log"].Action)
	s.False((*body)["log"].Timestamp.IsZero())

	res = s.do(http.MethodPost, "/audit", map[string]string{"officerId": "OFF001", "boothId": booth})
	testutil.AssertStatusAndError(s.T(), res, http.StatusBadRequest, string(dErrors.CodeValidation))
}

func (s *HandlerSuite) TestOperationalEndpoints() {
	res := s.do(http.MethodGet, "/health", nil)
	testutil.AssertStatus(s.T(), res, http.StatusOK)

	s.do(http.MethodPost, "/votes", s.vote("VOT456789123"))
	res = s.do(http.MethodGet, "/metrics", nil)
	testutil.AssertStatus(s.T(), res, http.StatusOK)
	s.Contains(res.Body.String(), "pollbooth_votes_committed_total")
}

func (s *HandlerSuite) TestSessionFlow() {
	res := s.do(http.MethodPost, "/sessions", map[string]string{"officerId": "OFF001", "secret": "password123"})
	testutil.AssertStatus(s.T(), res, http.StatusCreated)
	created := testutil.UnmarshalResponse[map[string]verification.Session](s.T(), res)
	session := (*created)["session"]
	base := "/sessions/" + session.ID.String()
	s.Equal(verification.StateDashboard, session.State)

	res = s.do(http.MethodPost, base+"/identify", map[string]string{"voterId": "VOT987654321"})
	testutil.AssertStatusAndError(s.T(), res, http.StatusConflict, string(dErrors.CodeInvalidState))

	res = s.do(http.MethodPost, base+"/start", nil)
	testutil.AssertStatus(s.T(), res, http.StatusOK)

	res = s.do(http.MethodPost, base+"/identify", map[string]string{"voterId": "VOT987654321"})
	testutil.AssertStatus(s.T(), res, http.StatusOK)

	res = s.do(http.MethodPost, base+"/face", map[string]int{"matchScore": 90})
	testutil.AssertStatus(s.T(), res, http.StatusOK)
	face := testutil.UnmarshalResponse[struct {
		Session verification.Session `json:"session"`
		Result  biometric.Result     `json:"result"`
	}](s.T(), res)
	s.True(face.Result.Passed)
	s.Equal(verification.StateFingerprintCheck, face.Session.State)

	res = s.do(http.MethodPost, base+"/fingerprint", map[string]int{"matchScore": 95})
	testutil.AssertStatus(s.T(), res, http.StatusOK)
	fp := testutil.UnmarshalResponse[struct {
		Session verification.Session `json:"session"`
	}](s.T(), res)
	s.Require().NotEmpty(fp.Session.Candidates)

	res = s.do(http.MethodPost, base+"/vote", map[string]string{"candidateId": fp.Session.Candidates[0].ID.String()})
	testutil.AssertStatus(s.T(), res, http.StatusOK)
	committed := testutil.UnmarshalResponse[struct {
		Session verification.Session `json:"session"`
		Vote    ledger.Vote          `json:"vote"`
		Message string               `json:"message"`
	}](s.T(), res)
	s.Equal(verification.StateCommitted, committed.Session.State)
	s.Equal(90, committed.Vote.FaceMatchScore)
	s.Equal(95, committed.Vote.FingerprintMatchScore)

	res = s.do(http.MethodGet, "/voters/VOT987654321", nil)
	voter := testutil.UnmarshalResponse[map[string]registry.Voter](s.T(), res)
	s.True((*voter)["voter"].HasVoted)

	res = s.do(http.MethodPost, base+"/dashboard", nil)
	testutil.AssertStatus(s.T(), res, http.StatusOK)

	res = s.do(http.MethodDelete, base, nil)
	testutil.AssertStatus(s.T(), res, http.StatusNoContent)

	res = s.do(http.MethodGet, base, nil)
	testutil.AssertStatusAndError(s.T(), res, http.StatusNotFound, string(dErrors.CodeNotFound))

	res = s.do(http.MethodGet, "/sessions/not-a-uuid", nil)
	testutil.AssertStatusAndError(s.T(), res, http.StatusBadRequest, string(dErrors.CodeBadRequest))
}

func TestDashboardInternalErrorIsOpaque(t *testing.T) {
	ctrl := gomock.NewController(t)
	dash := mocks.NewMockDashboardService(ctrl)
	dash.EXPECT().Stats(gomock.Any(), booth).
		Return(nil, dErrors.Wrap(errors.New("pq: connection refused"), dErrors.CodeInternal, "failed to list votes"))

	router := newTestRouter(t, dash)
	rr := testutil.DoRequest(router, testutil.NewJSONRequest(t, http.MethodGet, "/dashboard/stats?boothId="+booth, nil))

	body := testutil.AssertStatusAndError(t, rr, http.StatusInternalServerError, string(dErrors.CodeInternal))
	assert.Empty(t, body.ErrorDescription)
	assert.NotContains(t, rr.Body.String(), "connection refused")
}
