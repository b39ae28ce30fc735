package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/deppfellow/portfolio-backend/internal/config"
	"github.com/deppfellow/portfolio-backend/internal/errs"
	"github.com/deppfellow/portfolio-backend/internal/middleware"
	"github.com/deppfellow/portfolio-backend/internal/model"
	"github.com/deppfellow/portfolio-backend/internal/server"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ---------------------------------------------------------------------------
// fakes
// ---------------------------------------------------------------------------

type mockContactService struct {
	mu         sync.Mutex
	submitted  []model.NewSubmission
	submitFunc func(in model.NewSubmission) (*model.Submission, error)
	listFunc   func() ([]model.Submission, error)
}

func (m *mockContactService) Submit(_ context.Context, in model.NewSubmission) (*model.Submission, error) {
	m.mu.Lock()
	m.submitted = append(m.submitted, in)
	m.mu.Unlock()

	if m.submitFunc != nil {
		return m.submitFunc(in)
	}
	return &model.Submission{ID: 1, Name: in.Name, Email: in.Email, Mobile: in.Mobile, Message: in.Message}, nil
}

func (m *mockContactService) List(context.Context) ([]model.Submission, error) {
	if m.listFunc != nil {
		return m.listFunc()
	}
	return []model.Submission{}, nil
}

type mockChatService struct {
	calls     int
	replyFunc func(message string) (string, error)
}

func (m *mockChatService) Reply(_ context.Context, message string) (string, error) {
	m.calls++
	return m.replyFunc(message)
}

func newTestServer() *server.Server {
	logger := zerolog.Nop()
	return &server.Server{Config: config.Default(), Logger: &logger}
}

func newTestEcho(s *server.Server) *echo.Echo {
	e := echo.New()
	e.HTTPErrorHandler = middleware.NewGlobalMiddlewares(s).GlobalErrorHandler
	return e
}

func doJSON(e *echo.Echo, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) errs.HTTPError {
	t.Helper()
	var body errs.HTTPError
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body), rec.Body.String())
	return body
}

func newContactEcho(svc *mockContactService) *echo.Echo {
	s := newTestServer()
	h := NewContactHandler(s, svc)
	e := newTestEcho(s)
	e.POST("/submit-contact", h.SubmitRoute())
	e.POST("/api/contact", h.SubmitRoute())
	e.GET("/admin/messages", h.ListMessagesRoute())
	return e
}

// ---------------------------------------------------------------------------
// contact
// ---------------------------------------------------------------------------

func TestContactHandler_Submit_Success(t *testing.T) {
	svc := &mockContactService{}
	e := newContactEcho(svc)

	for _, path := range []string{"/submit-contact", "/api/contact"} {
		rec := doJSON(e, http.MethodPost, path, `{"name":"Ada","email":"ada@example.com","mobile":"555-0100","message":"Hello!"}`)

		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		assert.JSONEq(t, `{"success":true,"message":"Message Received"}`, rec.Body.String())
	}

	require.Len(t, svc.submitted, 2)
	got := svc.submitted[0]
	assert.Equal(t, "Ada", got.Name)
	assert.Equal(t, "ada@example.com", got.Email)
	require.NotNil(t, got.Mobile)
	assert.Equal(t, "555-0100", *got.Mobile)
	assert.Equal(t, "Hello!", got.Message)
}

func TestContactHandler_Submit_MobileOptional(t *testing.T) {
	svc := &mockContactService{}
	e := newContactEcho(svc)

	rec := doJSON(e, http.MethodPost, "/api/contact", `{"name":"Ada","email":"a@x","message":"hi"}`)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Nil(t, svc.submitted[0].Mobile)
}

func TestContactHandler_Submit_MissingFields(t *testing.T) {
	svc := &mockContactService{}
	e := newContactEcho(svc)

	rec := doJSON(e, http.MethodPost, "/api/contact", `{"mobile":"555"}`)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	body := decodeError(t, rec)
	assert.Equal(t, "Validation failed", body.Message)
	assert.ElementsMatch(t, []errs.FieldError{
		{Field: "name", Error: "is required"},
		{Field: "email", Error: "is required"},
		{Field: "message", Error: "is required"},
	}, body.Errors)
	assert.Empty(t, svc.submitted, "no write on validation failure")
}

func TestContactHandler_Submit_EachFieldRequired(t *testing.T) {
	cases := map[string]string{
		"name":    `{"email":"a@x","message":"hi"}`,
		"email":   `{"name":"Ada","message":"hi"}`,
		"message": `{"name":"Ada","email":"a@x","message":""}`,
	}
	for field, body := range cases {
		t.Run(field, func(t *testing.T) {
			svc := &mockContactService{}
			rec := doJSON(newContactEcho(svc), http.MethodPost, "/api/contact", body)

			require.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Equal(t, []errs.FieldError{{Field: field, Error: "is required"}}, decodeError(t, rec).Errors)
			assert.Empty(t, svc.submitted)
		})
	}
}

func TestContactHandler_Submit_TooLong(t *testing.T) {
	svc := &mockContactService{}
	body := fmt.Sprintf(`{"name":"Ada","email":"a@x","message":%q}`, strings.Repeat("x", 5001))

	rec := doJSON(newContactEcho(svc), http.MethodPost, "/api/contact", body)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, []errs.FieldError{{Field: "message", Error: "must not exceed 5000 characters"}}, decodeError(t, rec).Errors)
}

func TestContactHandler_Submit_MalformedJSON(t *testing.T) {
	svc := &mockContactService{}

	rec := doJSON(newContactEcho(svc), http.MethodPost, "/api/contact", `{"name":`)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Invalid request body", decodeError(t, rec).Message)
	assert.Empty(t, svc.submitted)
}

func TestContactHandler_Submit_StoreFailure(t *testing.T) {
	svc := &mockContactService{submitFunc: func(model.NewSubmission) (*model.Submission, error) {
		return nil, errs.NewInternalServerError().WithMessage("Database Error").WithCause(errors.New("dial tcp: refused"))
	}}

	rec := doJSON(newContactEcho(svc), http.MethodPost, "/api/contact", `{"name":"Ada","email":"a@x","message":"hi"}`)

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	body := decodeError(t, rec)
	assert.Equal(t, "Database Error", body.Message)
	assert.NotContains(t, rec.Body.String(), "refused")
}

func TestContactHandler_Submit_ConcurrentRequestsBindSeparately(t *testing.T) {
	svc := &mockContactService{}
	e := newContactEcho(svc)

	var wg sync.WaitGroup
	codes := make([]int, 10)
	for i := range 10 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			body := fmt.Sprintf(`{"name":"visitor-%d","email":"v%d@x","message":"hi"}`, i, i)
			codes[i] = doJSON(e, http.MethodPost, "/api/contact", body).Code
		}()
	}
	wg.Wait()

	for _, code := range codes {
		assert.Equal(t, http.StatusOK, code)
	}
	names := make(map[string]bool)
	for _, s := range svc.submitted {
		names[s.Name] = true
	}
	assert.Len(t, names, 10)
}

func TestContactHandler_ListMessages(t *testing.T) {
	ts := time.Date(2024, 3, 14, 9, 26, 0, 0, time.UTC)
	svc := &mockContactService{listFunc: func() ([]model.Submission, error) {
		return []model.Submission{{ID: 2, Name: "B", Email: "b@x", Message: "second", Timestamp: ts}}, nil
	}}

	rec := doJSON(newContactEcho(svc), http.MethodGet, "/admin/messages", "")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[{"id":2,"name":"B","email":"b@x","mobile":null,"message":"second","timestamp":"2024-03-14T09:26:00Z"}]`, rec.Body.String())
}

func TestContactHandler_ListMessages_Empty(t *testing.T) {
	rec := doJSON(newContactEcho(&mockContactService{}), http.MethodGet, "/admin/messages", "")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())
}

// ---------------------------------------------------------------------------
// chat
// ---------------------------------------------------------------------------

func newChatEcho(svc *mockChatService) *echo.Echo {
	s := newTestServer()
	e := newTestEcho(s)
	e.POST("/api/chat", NewChatHandler(s, svc).ChatRoute())
	return e
}

func TestChatHandler_Reply(t *testing.T) {
	svc := &mockChatService{replyFunc: func(message string) (string, error) {
		return "You asked: " + message, nil
	}}

	rec := doJSON(newChatEcho(svc), http.MethodPost, "/api/chat", `{"message":"what are his skills?"}`)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"reply":"You asked: what are his skills?"}`, rec.Body.String())
}

func TestChatHandler_Offline(t *testing.T) {
	svc := &mockChatService{replyFunc: func(string) (string, error) {
		return "", errs.NewServiceUnavailableError("Prometheus is offline temporarily.")
	}}

	rec := doJSON(newChatEcho(svc), http.MethodPost, "/api/chat", `{"message":"hi"}`)

	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "Prometheus is offline temporarily.", decodeError(t, rec).Message)
}

func TestChatHandler_MissingMessage(t *testing.T) {
	svc := &mockChatService{}

	rec := doJSON(newChatEcho(svc), http.MethodPost, "/api/chat", `{}`)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Zero(t, svc.calls)
}

// ---------------------------------------------------------------------------
// system
// ---------------------------------------------------------------------------

func TestRoot(t *testing.T) {
	e := echo.New()
	e.GET("/", Root)

	rec := doJSON(e, http.MethodGet, "/", "")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, RootMessage, rec.Body.String())
	assert.Contains(t, rec.Header().Get(echo.HeaderContentType), "text/plain")
}

func newHealthEcho(s *server.Server, db, redis pingFunc) *echo.Echo {
	h := &HealthHandler{Handler: NewHandler(s), database: db, redis: redis}
	e := newTestEcho(s)
	e.GET("/status", h.CheckHealth)
	return e
}

func decodeHealth(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestHealth(t *testing.T) {
	ok := func(context.Context) error { return nil }
	down := func(context.Context) error { return errors.New("connection refused") }

	t.Run("healthy", func(t *testing.T) {
		rec := doJSON(newHealthEcho(newTestServer(), ok, ok), http.MethodGet, "/status", "")

		require.Equal(t, http.StatusOK, rec.Code)
		body := decodeHealth(t, rec)
		assert.Equal(t, "healthy", body["status"])
		assert.Contains(t, body["checks"], "database")
		assert.Contains(t, body["checks"], "redis")
	})

	t.Run("database down", func(t *testing.T) {
		rec := doJSON(newHealthEcho(newTestServer(), down, nil), http.MethodGet, "/status", "")

		require.Equal(t, http.StatusServiceUnavailable, rec.Code)
		assert.Equal(t, "unhealthy", decodeHealth(t, rec)["status"])
	})

	t.Run("no database", func(t *testing.T) {
		rec := doJSON(newHealthEcho(newTestServer(), nil, nil), http.MethodGet, "/status", "")

		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	})

	t.Run("redis down", func(t *testing.T) {
		rec := doJSON(newHealthEcho(newTestServer(), ok, down), http.MethodGet, "/status", "")

		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "degraded", decodeHealth(t, rec)["status"])
	})

	t.Run("checks disabled", func(t *testing.T) {
		s := newTestServer()
		s.Config.Observability.HealthChecks.Enabled = false

		rec := doJSON(newHealthEcho(s, down, down), http.MethodGet, "/status", "")

		require.Equal(t, http.StatusOK, rec.Code)
		assert.NotContains(t, decodeHealth(t, rec), "checks")
	})

	t.Run("bounded by timeout", func(t *testing.T) {
		s := newTestServer()
		s.Config.Observability.HealthChecks.Timeout = 20 * time.Millisecond
		slow := func(ctx context.Context) error {
			<-ctx.Done()
			return ctx.Err()
		}

		rec := doJSON(newHealthEcho(s, slow, nil), http.MethodGet, "/status", "")

		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	})
}

func TestOpenAPI(t *testing.T) {
	s := newTestServer()
	dir := t.TempDir()
	page := filepath.Join(dir, "openapi.html")
	require.NoError(t, os.WriteFile(page, []byte("<html>docs</html>"), 0o644))

	h := &OpenAPIHandler{Handler: NewHandler(s), path: page}
	e := newTestEcho(s)
	e.GET("/docs", h.ServeOpenAPIUI)

	rec := doJSON(e, http.MethodGet, "/docs", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "<html>docs</html>", rec.Body.String())
	assert.Equal(t, "no-cache", rec.Header().Get("Cache-Control"))

	h.path = filepath.Join(dir, "missing.html")
	rec = doJSON(e, http.MethodGet, "/docs", "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}
