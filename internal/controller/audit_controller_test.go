package controller_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"streampay-audit-backend/config"
	"streampay-audit-backend/internal/audit"
	"streampay-audit-backend/internal/controller"
	"streampay-audit-backend/internal/dto"
	"streampay-audit-backend/internal/model"
	"streampay-audit-backend/internal/redact"
	"streampay-audit-backend/internal/service"
)

type stubQueryService struct {
	lastReq dto.AuditQueryRequest
}

func (s *stubQueryService) Query(_ context.Context, req dto.AuditQueryRequest) (*dto.AuditQueryResponse, error) {
	s.lastReq = req
	return &dto.AuditQueryResponse{Entries: []model.AuditEntry{}, Limit: req.Limit, Offset: req.Offset}, nil
}

func newTestRouter(t *testing.T) (*gin.Engine, *audit.Queue, *stubQueryService) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := &config.Config{
		Audit: config.AuditConfig{
			MinLevel:     "INFO",
			AsyncWrites:  true,
			MaxQueueSize: 100,
			Redaction:    config.RedactionConfig{Enabled: true},
		},
	}
	queue := audit.NewQueue(&cfg.Audit, nil)
	logger := audit.NewLogger(cfg, redact.NewRedactor(cfg.Audit.Redaction), queue, nil, nil)

	queryService := &stubQueryService{}
	exportService := service.NewAuditExportService(queryService)

	router := gin.New()
	controller.RegisterAuditRoutes(router, controller.NewAuditController(logger, queryService, exportService))
	return router, queue, queryService
}

func perform(router *gin.Engine, method, target, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestGetLogs_ParsesFilters(t *testing.T) {
	router, _, queryService := newTestRouter(t)

	w := perform(router, http.MethodGet, "/api/v1/audit/logs?level=ERROR&employer=EMP-1&actionType=stream_creation&limit=25&offset=50", "")

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, model.LevelError, queryService.lastReq.Level)
	assert.Equal(t, "EMP-1", queryService.lastReq.Employer)
	assert.Equal(t, model.ActionStreamCreation, queryService.lastReq.ActionType)
	assert.Equal(t, 25, queryService.lastReq.Limit)
	assert.Equal(t, 50, queryService.lastReq.Offset)
}

func TestGetLogs_RejectsBadParams(t *testing.T) {
	tests := []struct {
		name   string
		target string
	}{
		{name: "Bad Level", target: "/api/v1/audit/logs?level=DEBUG"},
		{name: "Bad Action Type", target: "/api/v1/audit/logs?actionType=telemetry"},
		{name: "Bad Start Time", target: "/api/v1/audit/logs?startTime=yesterday"},
		{name: "Bad End Time", target: "/api/v1/audit/logs?endTime=tomorrow"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router, _, _ := newTestRouter(t)
			w := perform(router, http.MethodGet, tt.target, "")
			assert.Equal(t, http.StatusBadRequest, w.Code)
		})
	}
}

func TestIngestEvent_AcceptsAndQueues(t *testing.T) {
	router, queue, _ := newTestRouter(t)

	w := perform(router, http.MethodPost, "/api/v1/audit/events",
		`{"level":"WARN","message":"manual check","action_type":"monitoring","context":{"worker":"W1"}}`)

	require.Equal(t, http.StatusAccepted, w.Code)
	batch := queue.DrainAll()
	require.Len(t, batch, 1)
	assert.Equal(t, model.LevelWarn, batch[0].Level)
	assert.Equal(t, model.ActionMonitoring, batch[0].ActionType)
	assert.Equal(t, "manual check", batch[0].Message)
}

func TestIngestEvent_RejectsMalformedBody(t *testing.T) {
	router, queue, _ := newTestRouter(t)

	w := perform(router, http.MethodPost, "/api/v1/audit/events", `{"level":`)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, 0, queue.Len())
}

func TestIngestStreamCreation_DerivesLevelAndAction(t *testing.T) {
	router, queue, _ := newTestRouter(t)

	w := perform(router, http.MethodPost, "/api/v1/audit/events/stream-creation",
		`{"employer":"E1","worker":"W1","success":false,"error":"insufficient balance"}`)

	require.Equal(t, http.StatusAccepted, w.Code)
	batch := queue.DrainAll()
	require.Len(t, batch, 1)
	assert.Equal(t, model.LevelError, batch[0].Level)
	assert.Equal(t, model.ActionStreamCreation, batch[0].ActionType)
	assert.Equal(t, "E1", batch[0].Employer)
	assert.Equal(t, "insufficient balance", batch[0].ErrorMessage)
}

func TestExportLogs_RequiresEmployer(t *testing.T) {
	router, _, _ := newTestRouter(t)

	w := perform(router, http.MethodGet, "/api/v1/audit/logs/export", "")

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestExportLogs_CSVSetsHeaders(t *testing.T) {
	router, _, _ := newTestRouter(t)

	w := perform(router, http.MethodGet, "/api/v1/audit/logs/export?employer=EMP-1&format=csv", "")

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "text/csv")
	assert.Contains(t, w.Header().Get("Content-Disposition"), "audit_logs.csv")
	assert.True(t, strings.HasPrefix(w.Body.String(), "timestamp,log_level,"))
}
