package handlers_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/SscSPs/loan_ledger/internal/core/domain"
	"github.com/SscSPs/loan_ledger/internal/core/services"
	"github.com/SscSPs/loan_ledger/internal/handlers"
	"github.com/SscSPs/loan_ledger/internal/middleware"
	"github.com/SscSPs/loan_ledger/internal/platform/clock"
	"github.com/SscSPs/loan_ledger/internal/platform/config"
	"github.com/SscSPs/loan_ledger/internal/platform/lock"
	"github.com/SscSPs/loan_ledger/internal/repositories/memory"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"
	"go.uber.org/zap"
)

type HandlersTestSuite struct {
	suite.Suite
	router *gin.Engine
	cfg    *config.Config
}

func (s *HandlersTestSuite) SetupTest() {
	s.cfg = &config.Config{
		UndoDailyLimit:     3,
		ReconcileEpsilon:   decimal.NewFromFloat(0.01),
		RepairPolicy:       domain.RepairStrict,
		RepairLockTTL:      time.Minute,
		RateLimit:          "1000-S",
		CORSAllowedOrigins: []string{"http://localhost:3000"},
	}
	s.buildRouter()
}

func (s *HandlersTestSuite) buildRouter() {
	gin.SetMode(gin.TestMode)
	calendar := clock.NewCalendar(clock.NewManual(time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC)), time.UTC)
	container := services.NewServiceContainer(s.cfg, memory.NewRepositoryProvider(), calendar, lock.NewLocalLocker())

	s.router = gin.New()
	s.router.Use(middleware.StructuredLoggingMiddleware(zap.NewNop()))
	s.Require().NoError(handlers.RegisterRoutes(s.router, s.cfg, container, calendar))
}

func (s *HandlersTestSuite) do(method, path string, body any) (*httptest.ResponseRecorder, map[string]any) {
	var buf bytes.Buffer
	if body != nil {
		s.Require().NoError(json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(middleware.ActorHeader, "operator-1")

	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)

	out := map[string]any{}
	if w.Body.Len() > 0 && w.Body.Bytes()[0] == '{' {
		s.Require().NoError(json.Unmarshal(w.Body.Bytes(), &out))
	}
	return w, out
}

func (s *HandlersTestSuite) createOrder(orderID, chatID string, amount int64) map[string]any {
	w, body := s.do(http.MethodPost, "/api/v1/orders", map[string]any{
		"orderID":       orderID,
		"chatID":        chatID,
		"issueDate":     "2024-03-15",
		"customerClass": "new",
		"amount":        amount,
	})
	s.Require().Equal(http.StatusCreated, w.Code, w.Body.String())
	return body
}

func (s *HandlersTestSuite) TestHealth() {
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	s.Equal(http.StatusOK, w.Code)
	s.Equal("OK", w.Body.String())
}

func (s *HandlersTestSuite) TestMissingActorIsUnauthorized() {
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/orders", nil))
	s.Equal(http.StatusUnauthorized, w.Code)
}

func (s *HandlersTestSuite) TestOrderLifecycle() {
	created := s.createOrder("s01 1", "chat-1", 10000)
	s.Equal("S01-1", created["orderID"])
	s.Equal("normal", created["state"])
	s.Equal("DEFAULT", created["ownershipGroup"])

	w, body := s.do(http.MethodPost, "/api/v1/orders/S01-1/interest", map[string]any{"amount": 250})
	s.Require().Equal(http.StatusCreated, w.Code, w.Body.String())
	s.Equal("interest", body["type"])

	w, body = s.do(http.MethodPost, "/api/v1/orders/S01-1/transitions", map[string]any{"targetState": "end"})
	s.Require().Equal(http.StatusOK, w.Code, w.Body.String())
	s.Equal("end", body["state"])

	w, body = s.do(http.MethodPost, "/api/v1/orders/S01-1/transitions", map[string]any{"targetState": "breach"})
	s.Equal(http.StatusConflict, w.Code)
	s.Equal("rejected", body["outcome"])

	w, body = s.do(http.MethodGet, "/api/v1/counters?scope=global", nil)
	s.Require().Equal(http.StatusOK, w.Code, w.Body.String())
	total := body["total"].(map[string]any)
	s.Equal("10000", total["completed_amount"])
	s.Equal("250", total["interest_total"])

	w, body = s.do(http.MethodGet, "/api/v1/income?limit=1", nil)
	s.Require().Equal(http.StatusOK, w.Code, w.Body.String())
	s.Len(body["records"], 1)
	s.NotEmpty(body["nextToken"])
}

func (s *HandlersTestSuite) TestErrorMapping() {
	s.createOrder("S01-1", "chat-1", 10000)

	w, body := s.do(http.MethodPost, "/api/v1/orders", map[string]any{
		"orderID": "S01-2", "chatID": "chat-1", "issueDate": "2024-03-15", "customerClass": "new", "amount": 500,
	})
	s.Equal(http.StatusConflict, w.Code, "second active order in the same chat")
	s.Equal("rejected", body["outcome"])

	w, _ = s.do(http.MethodGet, "/api/v1/orders/NOPE", nil)
	s.Equal(http.StatusNotFound, w.Code)

	w, _ = s.do(http.MethodPost, "/api/v1/orders/S01-1/reductions", map[string]any{"amount": -5})
	s.Equal(http.StatusBadRequest, w.Code)

	w, _ = s.do(http.MethodGet, "/api/v1/counters?scope=daily", nil)
	s.Equal(http.StatusBadRequest, w.Code)

	w, _ = s.do(http.MethodGet, "/api/v1/reconciliation/audit?from=2024-03-16&to=2024-03-15", nil)
	s.Equal(http.StatusBadRequest, w.Code)
}

func (s *HandlersTestSuite) TestUndoLimitIsTooManyRequests() {
	s.cfg.UndoDailyLimit = 1
	s.buildRouter()

	s.createOrder("S01-1", "chat-1", 1000)
	s.createOrder("S01-2", "chat-2", 2000)

	w, body := s.do(http.MethodGet, "/api/v1/history/last?chatID=chat-2", nil)
	s.Require().Equal(http.StatusOK, w.Code, w.Body.String())
	s.Equal(string(domain.OpOrderCreated), body["operationType"])

	w, body = s.do(http.MethodPost, "/api/v1/history/undo", map[string]any{"chatID": "chat-2"})
	s.Require().Equal(http.StatusOK, w.Code, w.Body.String())
	s.Equal(string(domain.OpUndo), body["operationType"])

	w, body = s.do(http.MethodPost, "/api/v1/history/undo", map[string]any{"chatID": "chat-1"})
	s.Equal(http.StatusTooManyRequests, w.Code)
	s.Equal("rejected", body["outcome"])

	w, _ = s.do(http.MethodGet, "/api/v1/orders/S01-2", nil)
	s.Equal(http.StatusNotFound, w.Code)
}

func (s *HandlersTestSuite) TestReconciliation() {
	s.createOrder("S01-1", "chat-1", 1000)

	w, body := s.do(http.MethodGet, "/api/v1/reconciliation/audit?from=2024-03-15&to=2024-03-15", nil)
	s.Require().Equal(http.StatusOK, w.Code, w.Body.String())
	s.Empty(body["discrepancies"])

	w, body = s.do(http.MethodPost, "/api/v1/reconciliation/repair", map[string]any{"from": "2024-03-15", "to": "2024-03-15"})
	s.Require().Equal(http.StatusOK, w.Code, w.Body.String())
	s.Equal(string(domain.RepairStrict), body["policy"])
	s.EqualValues(0, body["partitionsFixed"])
}

func TestHandlersTestSuite(t *testing.T) {
	suite.Run(t, new(HandlersTestSuite))
}
