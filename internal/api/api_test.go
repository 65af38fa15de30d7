package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/Corphon/InfraAdvisor/internal/auth"
	"github.com/Corphon/InfraAdvisor/internal/config"
	"github.com/Corphon/InfraAdvisor/internal/di"
	"github.com/Corphon/InfraAdvisor/internal/models"
	"github.com/Corphon/InfraAdvisor/internal/services"
	"github.com/Corphon/InfraAdvisor/internal/storage"
	"github.com/Corphon/InfraAdvisor/internal/utils"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testEnv struct {
	router *gin.Engine
	auth   *Authenticator
	events *DraftEventHub
}

func newTestEnv(t *testing.T, cfg *config.AppConfig) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	if cfg == nil {
		cfg = &config.AppConfig{DebugMode: true, RateLimitPerMinute: 1000}
	}

	fs, err := storage.NewFileStorage(t.TempDir())
	require.NoError(t, err)
	locks := services.NewLockManager()
	events := NewDraftEventHub()
	limiter := NewRateLimiter(time.Hour)
	metrics := utils.NewAPIMetricsWith(utils.NewMetricsCollector(), utils.GetLogger())
	tokens, err := auth.NewTokenConfig("test-secret", time.Hour)
	require.NoError(t, err)

	drafts := services.NewDraftService(fs, locks, events, metrics)

	container := di.NewContainer()
	container.Register(di.ServiceConfig, cfg)
	container.Register(di.ServiceDrafts, drafts)
	container.Register(di.ServiceAssessments, services.NewAssessmentService(fs, drafts, events))
	container.Register(di.ServiceAuth, NewAuthenticator(tokens))
	container.Register(di.ServiceEvents, events)
	container.Register(di.ServiceMetrics, metrics)
	container.Register(di.ServiceRateLimiter, limiter)

	router, err := SetupRouter(container)
	require.NoError(t, err)
	gin.SetMode(gin.TestMode)

	t.Cleanup(func() {
		events.Stop()
		limiter.Stop()
		locks.Stop()
		fs.Close()
	})

	authenticator, _ := di.Resolve[*Authenticator](container, di.ServiceAuth)
	return &testEnv{router: router, auth: authenticator, events: events}
}

type envelope struct {
	Success   bool            `json:"success"`
	Data      json.RawMessage `json:"data"`
	Error     *APIError       `json:"error"`
	RequestID string          `json:"request_id"`
}

func (e *testEnv) do(t *testing.T, method, path string, body interface{}, token string) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)

	var env envelope
	if w.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	}
	return w, env
}

func TestProgressLifecycle(t *testing.T) {
	env := newTestEnv(t, nil)

	w, resp := env.do(t, http.MethodPost, "/api/assessments/progress", models.Draft{
		FormID:      "form_1",
		FormData:    map[string]interface{}{"industry": "technology"},
		CurrentStep: 1,
		TotalSteps:  5,
	}, "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.True(t, resp.Success)
	assert.NotEmpty(t, resp.RequestID)

	var saved models.Draft
	require.NoError(t, json.Unmarshal(resp.Data, &saved))
	assert.False(t, saved.SavedAt.IsZero())

	w, resp = env.do(t, http.MethodGet, "/api/assessments/progress/form_1", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	var loaded models.Draft
	require.NoError(t, json.Unmarshal(resp.Data, &loaded))
	assert.Equal(t, "technology", loaded.FormData["industry"])
	assert.Equal(t, 1, loaded.CurrentStep)

	w, resp = env.do(t, http.MethodGet, "/api/assessments/progress", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	var list []models.SavedFormSummary
	require.NoError(t, json.Unmarshal(resp.Data, &list))
	require.Len(t, list, 1)
	assert.Equal(t, 40, list[0].CompletionPercentage)

	w, _ = env.do(t, http.MethodDelete, "/api/assessments/progress/form_1", nil, "")
	require.Equal(t, http.StatusOK, w.Code)

	w, resp = env.do(t, http.MethodGet, "/api/assessments/progress/form_1", nil, "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.False(t, resp.Success)
	assert.Equal(t, ErrorNotFound, resp.Error.Code)

	w, _ = env.do(t, http.MethodDelete, "/api/assessments/progress/form_1", nil, "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestSaveProgressRejectsBadDraft(t *testing.T) {
	env := newTestEnv(t, nil)

	w, resp := env.do(t, http.MethodPost, "/api/assessments/progress", models.Draft{FormID: "", CurrentStep: 0}, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, ErrorValidationFailed, resp.Error.Code)

	req := httptest.NewRequest(http.MethodPost, "/api/assessments/progress", strings.NewReader("{not json"))
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestTokensScopeDrafts(t *testing.T) {
	env := newTestEnv(t, nil)

	w, resp := env.do(t, http.MethodPost, "/api/auth/token", TokenRequest{UserID: "alice"}, "")
	require.Equal(t, http.StatusOK, w.Code)
	var issued TokenResponse
	require.NoError(t, json.Unmarshal(resp.Data, &issued))
	require.NotEmpty(t, issued.Token)

	w, _ = env.do(t, http.MethodPost, "/api/assessments/progress",
		models.Draft{FormID: "form_alice", CurrentStep: 0}, issued.Token)
	require.Equal(t, http.StatusOK, w.Code)

	// 访客看不到 alice 的草稿
	w, _ = env.do(t, http.MethodGet, "/api/assessments/progress/form_alice", nil, "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	// 无效令牌降级为访客而不是 401
	w, _ = env.do(t, http.MethodGet, "/api/assessments/progress/form_alice", nil, "garbage")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w, _ = env.do(t, http.MethodGet, "/api/assessments/progress/form_alice", nil, issued.Token)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestIssueTokenDisabledOutsideDebug(t *testing.T) {
	env := newTestEnv(t, &config.AppConfig{DebugMode: false, RateLimitPerMinute: 100})

	w, resp := env.do(t, http.MethodPost, "/api/auth/token", TokenRequest{UserID: "alice"}, "")
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, ErrorTokenIssueDisabled, resp.Error.Code)
}

func TestCreateAndGetAssessment(t *testing.T) {
	env := newTestEnv(t, nil)

	env.do(t, http.MethodPost, "/api/assessments/progress", models.Draft{FormID: "form_1", CurrentStep: 4}, "")

	w, resp := env.do(t, http.MethodPost, "/api/assessments", models.AssessmentRequest{
		Title:  "Acme",
		FormID: "form_1",
		BusinessRequirements: models.BusinessRequirements{
			CompanyName: "Acme",
			Industry:    "technology",
		},
		TechnicalRequirements: models.TechnicalRequirements{CloudProviders: []string{"aws"}},
	}, "")
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var created models.AssessmentCreated
	require.NoError(t, json.Unmarshal(resp.Data, &created))
	assert.NotEmpty(t, created.AssessmentID)
	assert.Equal(t, models.AssessmentStatusSubmitted, created.Status)

	w, resp = env.do(t, http.MethodGet, "/api/assessments/"+created.AssessmentID, nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	var got models.Assessment
	require.NoError(t, json.Unmarshal(resp.Data, &got))
	assert.Equal(t, "form_1", got.FormID)

	w, resp = env.do(t, http.MethodGet, "/api/assessments/progress/form_1", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	var draft models.Draft
	require.NoError(t, json.Unmarshal(resp.Data, &draft))
	assert.Equal(t, created.AssessmentID, draft.AssessmentID)

	w, resp = env.do(t, http.MethodGet, "/api/assessments", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	var list []models.Assessment
	require.NoError(t, json.Unmarshal(resp.Data, &list))
	assert.Len(t, list, 1)
}

func TestCreateAssessmentValidationDetails(t *testing.T) {
	env := newTestEnv(t, nil)

	w, resp := env.do(t, http.MethodPost, "/api/assessments", models.AssessmentRequest{Title: "x"}, "")
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, ErrorValidationFailed, resp.Error.Code)

	details, ok := resp.Error.Details.(map[string]interface{})
	require.True(t, ok)
	assert.Contains(t, details, "technical_requirements.cloud_providers")

	// 缺少 title 由绑定校验拒绝
	w, resp = env.do(t, http.MethodPost, "/api/assessments", models.AssessmentRequest{}, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, ErrorAssessmentInvalid, resp.Error.Code)
}

func TestRateLimitOnAssessmentRoutes(t *testing.T) {
	env := newTestEnv(t, &config.AppConfig{DebugMode: true, RateLimitPerMinute: 2})

	for i := 0; i < 2; i++ {
		w, _ := env.do(t, http.MethodGet, "/api/assessments/progress", nil, "")
		require.Equal(t, http.StatusOK, w.Code)
	}
	w, resp := env.do(t, http.MethodGet, "/api/assessments/progress", nil, "")
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, ErrorRateLimited, resp.Error.Code)
	assert.Equal(t, "0", w.Header().Get("X-RateLimit-Remaining"))

	// 健康检查不受限流影响
	w, _ = env.do(t, http.MethodGet, "/api/health", nil, "")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	env := newTestEnv(t, nil)

	env.do(t, http.MethodGet, "/api/health", nil, "")
	w, resp := env.do(t, http.MethodGet, "/api/metrics", nil, "")
	require.Equal(t, http.StatusOK, w.Code)

	var snapshot map[string]map[string]interface{}
	require.NoError(t, json.Unmarshal(resp.Data, &snapshot))
	assert.Contains(t, snapshot["counters"], "api_requests_total")
}

func TestDraftEventsWebSocket(t *testing.T) {
	env := newTestEnv(t, nil)
	server := httptest.NewServer(env.router)
	defer server.Close()

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http") + "/ws/drafts"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	var welcome map[string]interface{}
	require.NoError(t, conn.ReadJSON(&welcome))
	assert.Equal(t, "connected", welcome["type"])
	assert.Equal(t, GuestUserID, welcome["user_id"])

	require.Eventually(t, func() bool { return env.events.ConnectionCount() == 1 },
		2*time.Second, 10*time.Millisecond)

	raw, _ := json.Marshal(models.Draft{FormID: "form_ws", CurrentStep: 0})
	resp, err := http.Post(server.URL+"/api/assessments/progress", "application/json", bytes.NewReader(raw))
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var event services.DraftEvent
	require.NoError(t, conn.ReadJSON(&event))
	assert.Equal(t, services.EventDraftSaved, event.Type)
	assert.Equal(t, "form_ws", event.FormID)
}

func TestHubDropsEventsForOtherUsers(t *testing.T) {
	hub := NewDraftEventHub()
	defer hub.Stop()

	client := &draftClient{userID: "alice", send: make(chan []byte, 1)}
	hub.register <- client
	require.Eventually(t, func() bool { return hub.ConnectionCount() == 1 }, time.Second, 5*time.Millisecond)

	hub.PublishToUser("bob", services.DraftEvent{Type: services.EventDraftSaved})
	hub.PublishToUser("alice", services.DraftEvent{Type: services.EventDraftDeleted, FormID: "f"})

	select {
	case payload := <-client.send:
		assert.Contains(t, string(payload), services.EventDraftDeleted)
	case <-time.After(time.Second):
		t.Fatal("alice did not receive her event")
	}

	hub.Stop()
	_, open := <-client.send
	assert.False(t, open)
	assert.Equal(t, 0, hub.ConnectionCount())
}
