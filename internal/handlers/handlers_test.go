package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/vivekr077/CodePilot/internal/completion"
	"github.com/vivekr077/CodePilot/internal/config"
	"github.com/vivekr077/CodePilot/internal/middleware"
	"github.com/vivekr077/CodePilot/internal/models"
	"github.com/vivekr077/CodePilot/internal/repository"
	"github.com/vivekr077/CodePilot/internal/security"
	"github.com/vivekr077/CodePilot/internal/service"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type testEnv struct {
	router *gin.Engine
	calls  int
	model  func(ctx context.Context, prompt string) (string, error)
}

type pingFunc func(ctx context.Context) error

func (f pingFunc) Ping(ctx context.Context) error { return f(ctx) }

func newTestEnv(t *testing.T, generations repository.GenerationStore) *testEnv {
	t.Helper()

	cfg := &config.AppConfig{
		Environment: "test",
		Security: config.SecurityConfig{
			SessionSecret: "handler-test-secret",
			SessionTTL:    7 * 24 * time.Hour,
			Cookie: config.CookieConfig{
				Name: "authToken", Path: "/", Secure: true, HTTPOnly: true, SameSite: "strict",
			},
		},
		History: config.HistoryConfig{DefaultLimit: 10, MaxLimit: 100},
	}

	hasher, err := security.NewPasswordHasher(security.AlgorithmBcrypt, bcrypt.MinCost, security.Argon2Params{})
	require.NoError(t, err)
	tokens := security.NewSessionTokens(cfg.Security.SessionSecret, cfg.Security.SessionTTL)

	env := &testEnv{
		model: func(context.Context, string) (string, error) { return "def add(a,b): return a+b", nil },
	}
	completer := completion.CompleterFunc(func(ctx context.Context, prompt string) (string, error) {
		env.calls++
		return env.model(ctx, prompt)
	})

	log := zerolog.Nop()
	h := NewHandlerSet(log, cfg, Deps{
		Auth:        service.NewAuthService(repository.NewMemoryUserRepository(), hasher, tokens, log),
		Generations: service.NewGenerationService(generations, completer, nil, time.Second, log),
		History:     service.NewHistoryService(generations, cfg.History.MaxLimit),
		Gate:        middleware.NewSessionGate(tokens, cfg.Security.Cookie.Name, log),
		DB:          pingFunc(func(context.Context) error { return nil }),
	})

	router := gin.New()
	router.Use(middleware.RequestID(), middleware.Recovery(log))
	h.Register(router.Group("/api"))
	env.router = router
	return env
}

func (e *testEnv) do(t *testing.T, method, path string, body any, cookies ...*http.Cookie) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for _, c := range cookies {
		req.AddCookie(c)
	}

	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)

	var out map[string]any
	if rec.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	}
	return rec, out
}

func (e *testEnv) signUpAndLogIn(t *testing.T, email string) *http.Cookie {
	t.Helper()

	rec, _ := e.do(t, http.MethodPost, "/api/v1/signUp", gin.H{"name": "Alice", "email": email, "password": "Secret123"})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec, _ = e.do(t, http.MethodPost, "/api/v1/logIn", gin.H{"email": email, "password": "Secret123"})
	require.Equal(t, http.StatusOK, rec.Code)

	for _, c := range rec.Result().Cookies() {
		if c.Name == "authToken" {
			return c
		}
	}
	t.Fatal("no session cookie set")
	return nil
}

func TestSignUpLogInGenerateHistory(t *testing.T) {
	env := newTestEnv(t, repository.NewMemoryGenerationRepository())

	rec, body := env.do(t, http.MethodPost, "/api/v1/signUp", gin.H{
		"name": "Alice", "email": "alice@example.com", "password": "Secret123",
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, true, body["status"])
	assert.NotContains(t, rec.Body.String(), "Secret123")
	assert.NotContains(t, rec.Body.String(), "password")

	rec, body = env.do(t, http.MethodPost, "/api/v1/logIn", gin.H{
		"email": "alice@example.com", "password": "Secret123",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, body["token"])

	var cookie *http.Cookie
	for _, c := range rec.Result().Cookies() {
		if c.Name == "authToken" {
			cookie = c
		}
	}
	require.NotNil(t, cookie)
	assert.True(t, cookie.HttpOnly)
	assert.True(t, cookie.Secure)
	assert.Equal(t, http.SameSiteStrictMode, cookie.SameSite)

	rec, body = env.do(t, http.MethodPost, "/api/v1/generate", gin.H{
		"prompt": "write a function that adds two numbers", "language": "python",
	}, cookie)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "def add(a,b): return a+b", body["response"])
	data := body["data"].(map[string]any)
	assert.Equal(t, "python", data["language"])

	rec, body = env.do(t, http.MethodGet, "/api/v1/history?page=1&limit=10", nil, cookie)
	require.Equal(t, http.StatusOK, rec.Code)
	records := body["records"].([]any)
	require.Len(t, records, 1)
	first := records[0].(map[string]any)
	assert.Equal(t, data["id"], first["id"])
	assert.Equal(t, "def add(a,b): return a+b", first["code"])
	assert.EqualValues(t, 1, body["totalCount"])
	assert.EqualValues(t, 1, body["totalPages"])

	rec, body = env.do(t, http.MethodGet, "/api/v1/session", nil, cookie)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "alice@example.com", body["user"].(map[string]any)["email"])
}

func TestBearerHeaderCarrier(t *testing.T) {
	env := newTestEnv(t, repository.NewMemoryGenerationRepository())
	cookie := env.signUpAndLogIn(t, "bearer@example.com")

	req := httptest.NewRequest(http.MethodGet, "/api/v1/session", nil)
	req.Header.Set("Authorization", "Bearer "+cookie.Value)
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestSignUpErrors(t *testing.T) {
	env := newTestEnv(t, repository.NewMemoryGenerationRepository())

	rec, _ := env.do(t, http.MethodPost, "/api/v1/signUp", gin.H{"name": "A", "email": "dup@example.com", "password": "pw"})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec, body := env.do(t, http.MethodPost, "/api/v1/signUp", gin.H{"name": "B", "email": "dup@example.com", "password": "pw2"})
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "duplicate_email", body["error"])
	assert.Equal(t, false, body["status"])

	rec, body = env.do(t, http.MethodPost, "/api/v1/signUp", gin.H{"name": "B", "email": "nope", "password": "pw"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "validation", body["error"])

	rec, body = env.do(t, http.MethodPost, "/api/v1/signUp", gin.H{"email": "x@example.com"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "validation", body["error"])
}

func TestLogInFailuresLookAlike(t *testing.T) {
	env := newTestEnv(t, repository.NewMemoryGenerationRepository())
	env.signUpAndLogIn(t, "a@example.com")

	wrongPassword, wpBody := env.do(t, http.MethodPost, "/api/v1/logIn", gin.H{"email": "a@example.com", "password": "nope"})
	unknownEmail, ueBody := env.do(t, http.MethodPost, "/api/v1/logIn", gin.H{"email": "ghost@example.com", "password": "nope"})

	assert.Equal(t, http.StatusUnauthorized, wrongPassword.Code)
	assert.Equal(t, http.StatusUnauthorized, unknownEmail.Code)
	assert.Equal(t, wpBody, ueBody)
	assert.Empty(t, wrongPassword.Result().Cookies())
	assert.Nil(t, wpBody["token"])
}

func TestGatedRoutesRequireSession(t *testing.T) {
	env := newTestEnv(t, repository.NewMemoryGenerationRepository())

	for _, route := range []struct{ method, path string }{
		{http.MethodGet, "/api/v1/session"},
		{http.MethodPost, "/api/v1/generate"},
		{http.MethodGet, "/api/v1/history"},
	} {
		rec, body := env.do(t, route.method, route.path, gin.H{"prompt": "p", "language": "go"})
		assert.Equal(t, http.StatusUnauthorized, rec.Code, route.path)
		assert.Equal(t, "unauthorized", body["error"])
	}
	assert.Zero(t, env.calls)
}

func TestGenerateErrors(t *testing.T) {
	env := newTestEnv(t, repository.NewMemoryGenerationRepository())
	cookie := env.signUpAndLogIn(t, "gen@example.com")

	rec, body := env.do(t, http.MethodPost, "/api/v1/generate", gin.H{"prompt": "  ", "language": "go"}, cookie)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "empty_prompt", body["error"])
	assert.Zero(t, env.calls)

	rec, body = env.do(t, http.MethodPost, "/api/v1/generate", gin.H{"prompt": "p"}, cookie)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "validation", body["error"])

	env.model = func(context.Context, string) (string, error) { return "", errors.New("quota exceeded") }
	rec, body = env.do(t, http.MethodPost, "/api/v1/generate", gin.H{"prompt": "p", "language": "go"}, cookie)
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Equal(t, "model_error", body["error"])
	assert.NotContains(t, rec.Body.String(), "quota")

	rec, body = env.do(t, http.MethodGet, "/api/v1/history", nil, cookie)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 0, body["totalCount"])
}

type failingStore struct {
	*repository.MemoryGenerationRepository
}

func (failingStore) Create(context.Context, models.Generation) (models.Generation, error) {
	return models.Generation{}, errors.New("db down")
}

func TestGenerateStorageFailureReturnsCode(t *testing.T) {
	env := newTestEnv(t, failingStore{repository.NewMemoryGenerationRepository()})
	cookie := env.signUpAndLogIn(t, "store@example.com")

	rec, body := env.do(t, http.MethodPost, "/api/v1/generate", gin.H{"prompt": "p", "language": "python"}, cookie)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "storage_error", body["error"])
	assert.Equal(t, "def add(a,b): return a+b", body["response"])
}

func TestHistoryPaging(t *testing.T) {
	env := newTestEnv(t, repository.NewMemoryGenerationRepository())
	cookie := env.signUpAndLogIn(t, "pages@example.com")

	for i := 0; i < 3; i++ {
		rec, _ := env.do(t, http.MethodPost, "/api/v1/generate", gin.H{"prompt": fmt.Sprintf("p%d", i), "language": "go"}, cookie)
		require.Equal(t, http.StatusOK, rec.Code)
	}

	rec, body := env.do(t, http.MethodGet, "/api/v1/history?page=2&limit=2", nil, cookie)
	require.Equal(t, http.StatusOK, rec.Code)
	records := body["records"].([]any)
	require.Len(t, records, 1)
	assert.Equal(t, "p0", records[0].(map[string]any)["prompt"])
	assert.EqualValues(t, 2, body["totalPages"])

	rec, body = env.do(t, http.MethodGet, "/api/v1/history?page=9&limit=2", nil, cookie)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, body["records"])
	assert.NotNil(t, body["records"])
	assert.EqualValues(t, 3, body["totalCount"])

	for _, q := range []string{"page=0", "limit=0", "limit=101", "page=abc"} {
		rec, body = env.do(t, http.MethodGet, "/api/v1/history?"+q, nil, cookie)
		assert.Equal(t, http.StatusBadRequest, rec.Code, q)
		assert.Equal(t, "validation", body["error"])
	}
}

func TestLogOutClearsCookie(t *testing.T) {
	env := newTestEnv(t, repository.NewMemoryGenerationRepository())

	rec, body := env.do(t, http.MethodPost, "/api/v1/logOut", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, body["status"])

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, "authToken", cookies[0].Name)
	assert.Empty(t, cookies[0].Value)
	assert.Less(t, cookies[0].MaxAge, 0)
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t, repository.NewMemoryGenerationRepository())

	rec, body := env.do(t, http.MethodGet, "/api/healthz", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", body["database"])
	assert.Equal(t, "disabled", body["cache"])
}
