package router

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"pinky-promise-api/internal/captcha"
	coreauth "pinky-promise-api/internal/core/auth"
	"pinky-promise-api/internal/domain"
	"pinky-promise-api/internal/ratelimit"
	authsvc "pinky-promise-api/internal/service/auth"
	"pinky-promise-api/internal/transport/http/handler"
)

type memRepo struct {
	mu      sync.Mutex
	byEmail map[string]*domain.User
}

func newMemRepo() *memRepo { return &memRepo{byEmail: make(map[string]*domain.User)} }

func (r *memRepo) Create(u *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byEmail[u.Email]; ok {
		return domain.ErrEmailTaken
	}
	u.CreatedAt = time.Now()
	cp := *u
	r.byEmail[u.Email] = &cp
	return nil
}

func (r *memRepo) FindByEmail(email string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if u, ok := r.byEmail[email]; ok {
		cp := *u
		return &cp, nil
	}
	return nil, nil
}

func (r *memRepo) FindByID(id string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.byEmail {
		if u.ID == id {
			cp := *u
			return &cp, nil
		}
	}
	return nil, nil
}

type env struct {
	engine *gin.Engine
	jwter  *coreauth.JWTer
}

func newEnv(t *testing.T, verifier captcha.Verifier, budget int) env {
	t.Helper()
	gin.SetMode(gin.TestMode)

	jwter := &coreauth.JWTer{
		AccessSecret:  []byte("access-secret"),
		RefreshSecret: []byte("refresh-secret"),
		Issuer:        "pinky-promise",
		AccessTTL:     time.Hour,
		RefreshTTL:    7 * 24 * time.Hour,
	}
	users := newMemRepo()
	log := zap.NewNop()
	svc := authsvc.NewService(users, jwter, 4, log)
	authH := handler.NewAuthHandler(svc, users, log)

	store := ratelimit.NewMemoryStore()
	t.Cleanup(store.Close)
	limiter := ratelimit.New(store, budget, 5*time.Minute, log)

	return env{engine: NewAPIEngine(log, authH, jwter, verifier, limiter), jwter: jwter}
}

func (e env) post(path string, body any, header map[string]string) *httptest.ResponseRecorder {
	b, _ := json.Marshal(body)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(b))
	req.Header.Set("Content-Type", "application/json")
	for k, v := range header {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	e.engine.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

func TestRegisterHappyPath(t *testing.T) {
	e := newEnv(t, captcha.Static{OK: true}, 30)

	w := e.post("/api/auth/register", gin.H{
		"name": "Ann", "email": "a@x.com", "password": "secret123", "captchaToken": "tok",
	}, nil)

	require.Equal(t, http.StatusCreated, w.Code)
	body := decode(t, w)
	user, ok := body["user"].(map[string]any)
	require.True(t, ok, "body must contain user object")
	assert.Equal(t, "Ann", user["name"])
	assert.Equal(t, "a@x.com", user["email"])
	assert.NotEmpty(t, user["id"])
	assert.NotEmpty(t, user["createdAt"])
	_, hasPassword := user["password"]
	assert.False(t, hasPassword, "password must never be returned")
	_, hasHash := user["passwordHash"]
	assert.False(t, hasHash)
}

func TestRegisterValidationAndDuplicate(t *testing.T) {
	e := newEnv(t, captcha.Static{OK: true}, 30)

	w := e.post("/api/auth/register", gin.H{
		"name": "", "email": "a@x.com", "password": "pw", "captchaToken": "tok",
	}, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "All fields are required", decode(t, w)["error"])

	w = e.post("/api/auth/register", gin.H{
		"name": "Ann", "email": "a@x.com", "password": "secret123", "captchaToken": "tok",
	}, nil)
	require.Equal(t, http.StatusCreated, w.Code)

	w = e.post("/api/auth/register", gin.H{
		"name": "Bob", "email": "a@x.com", "password": "other", "captchaToken": "tok",
	}, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Email already in use", decode(t, w)["error"])
}

func TestLoginFlow(t *testing.T) {
	e := newEnv(t, captcha.Static{OK: true}, 30)

	w := e.post("/api/auth/register", gin.H{
		"name": "Ann", "email": "a@x.com", "password": "secret123", "captchaToken": "tok",
	}, nil)
	require.Equal(t, http.StatusCreated, w.Code)

	w = e.post("/api/auth/login", gin.H{
		"email": "a@x.com", "password": "secret123", "captchaToken": "tok",
	}, nil)
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.NotEmpty(t, body["accessToken"])
	assert.NotEmpty(t, body["refreshToken"])

	// wrong password and unknown email produce the identical payload
	w1 := e.post("/api/auth/login", gin.H{
		"email": "a@x.com", "password": "wrong", "captchaToken": "tok",
	}, nil)
	w2 := e.post("/api/auth/login", gin.H{
		"email": "nobody@x.com", "password": "secret123", "captchaToken": "tok",
	}, nil)
	assert.Equal(t, http.StatusBadRequest, w1.Code)
	assert.Equal(t, http.StatusBadRequest, w2.Code)
	assert.Equal(t, "Invalid credentials", decode(t, w1)["error"])
	assert.Equal(t, w1.Body.String(), w2.Body.String())
}

func TestRefreshFlow(t *testing.T) {
	e := newEnv(t, captcha.Static{OK: true}, 30)

	e.post("/api/auth/register", gin.H{
		"name": "Ann", "email": "a@x.com", "password": "secret123", "captchaToken": "tok",
	}, nil)
	w := e.post("/api/auth/login", gin.H{
		"email": "a@x.com", "password": "secret123", "captchaToken": "tok",
	}, nil)
	require.Equal(t, http.StatusOK, w.Code)
	refresh := decode(t, w)["refreshToken"].(string)

	// refresh is not captcha-gated and returns only a new access token
	w = e.post("/api/auth/refresh", gin.H{"refreshToken": refresh}, nil)
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.NotEmpty(t, body["accessToken"])
	_, rotated := body["refreshToken"]
	assert.False(t, rotated, "refresh token must not be rotated")

	w = e.post("/api/auth/refresh", gin.H{}, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "Refresh token required", decode(t, w)["error"])

	w = e.post("/api/auth/refresh", gin.H{"refreshToken": "garbage"}, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "Invalid refresh token", decode(t, w)["error"])
}

func TestRefreshExpiredToken(t *testing.T) {
	e := newEnv(t, captcha.Static{OK: true}, 30)

	stale := &coreauth.JWTer{
		AccessSecret:  e.jwter.AccessSecret,
		RefreshSecret: e.jwter.RefreshSecret,
		Issuer:        e.jwter.Issuer,
		AccessTTL:     time.Hour,
		RefreshTTL:    -time.Minute,
	}
	tok, err := stale.IssueRefresh("u-1", "a@x.com")
	require.NoError(t, err)

	w := e.post("/api/auth/refresh", gin.H{"refreshToken": tok}, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "Invalid refresh token", decode(t, w)["error"])
}

func TestCaptchaGate(t *testing.T) {
	t.Run("missing token", func(t *testing.T) {
		e := newEnv(t, captcha.Static{OK: true}, 30)
		w := e.post("/api/auth/login", gin.H{"email": "a@x.com", "password": "pw"}, nil)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "Missing captcha token", decode(t, w)["error"])
	})

	t.Run("rejected", func(t *testing.T) {
		e := newEnv(t, captcha.Static{OK: false}, 30)
		w := e.post("/api/auth/login", gin.H{
			"email": "a@x.com", "password": "pw", "captchaToken": "tok",
		}, nil)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "Captcha verification failed", decode(t, w)["error"])
	})

	t.Run("service error", func(t *testing.T) {
		e := newEnv(t, captcha.Static{Err: captcha.ErrUnavailable}, 30)
		w := e.post("/api/auth/register", gin.H{
			"name": "Ann", "email": "a@x.com", "password": "pw", "captchaToken": "tok",
		}, nil)
		assert.Equal(t, http.StatusInternalServerError, w.Code)
		assert.Equal(t, "Captcha service error", decode(t, w)["error"])
	})
}

func TestAuthRateLimit(t *testing.T) {
	e := newEnv(t, captcha.Static{OK: true}, 30)

	for i := 0; i < 30; i++ {
		w := e.post("/api/auth/login", gin.H{
			"email": fmt.Sprintf("u%d@x.com", i), "password": "pw", "captchaToken": "tok",
		}, nil)
		require.NotEqual(t, http.StatusTooManyRequests, w.Code, "request %d within budget", i+1)
	}

	w := e.post("/api/auth/login", gin.H{
		"email": "u@x.com", "password": "pw", "captchaToken": "tok",
	}, nil)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.NotEmpty(t, w.Header().Get("Retry-After"))

	// refresh shares no budget with the gated endpoints
	w = e.post("/api/auth/refresh", gin.H{"refreshToken": "garbage"}, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestMeEndpoint(t *testing.T) {
	e := newEnv(t, captcha.Static{OK: true}, 30)

	e.post("/api/auth/register", gin.H{
		"name": "Ann", "email": "a@x.com", "password": "secret123", "captchaToken": "tok",
	}, nil)
	w := e.post("/api/auth/login", gin.H{
		"email": "a@x.com", "password": "secret123", "captchaToken": "tok",
	}, nil)
	access := decode(t, w)["accessToken"].(string)

	req := httptest.NewRequest(http.MethodGet, "/api/auth/me", nil)
	req.Header.Set("Authorization", "Bearer "+access)
	rec := httptest.NewRecorder()
	e.engine.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	user := decode(t, rec)["user"].(map[string]any)
	assert.Equal(t, "a@x.com", user["email"])

	req = httptest.NewRequest(http.MethodGet, "/api/auth/me", nil)
	rec = httptest.NewRecorder()
	e.engine.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestHealth(t *testing.T) {
	e := newEnv(t, captcha.Static{OK: true}, 30)
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	e.engine.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}
