package testutil

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/gatehouse-dev/gatehouse/internal/api"
	"github.com/gatehouse-dev/gatehouse/internal/app"
	"github.com/gatehouse-dev/gatehouse/internal/app/maintenance"
	iauth "github.com/gatehouse-dev/gatehouse/internal/auth"
	"github.com/gatehouse-dev/gatehouse/internal/cache"
	sharedtestutil "github.com/gatehouse-dev/gatehouse/internal/database/testutil"
	"github.com/gatehouse-dev/gatehouse/internal/models"
	"github.com/gatehouse-dev/gatehouse/internal/repository"
	"github.com/gatehouse-dev/gatehouse/internal/services"
	"github.com/gatehouse-dev/gatehouse/pkg/crypto"
	"github.com/gatehouse-dev/gatehouse/pkg/response"
)

// Env encapsulates a fully-wired API instance backed by an in-memory database for handler tests.
type Env struct {
	T             *testing.T
	DB            *gorm.DB
	Store         *repository.Store
	Router        *gin.Engine
	Tokens        *iauth.TokenService
	Registrations *services.RegistrationService
	Cleaner       *maintenance.Cleaner
	Cache         cache.Store
}

// NewEnv provisions a fresh handler test environment with migrations applied.
// Rate limiting is disabled so request-heavy tests cannot throttle themselves.
func NewEnv(t *testing.T, opts ...services.RegistrationOption) *Env {
	t.Helper()

	gin.SetMode(gin.TestMode)

	db := sharedtestutil.MustOpenTestDB(t, sharedtestutil.WithAutoMigrate())

	store, err := repository.NewStore(db)
	require.NoError(t, err)

	registrations, err := services.NewRegistrationService(store, nil, opts...)
	require.NoError(t, err)

	tokens, err := iauth.NewTokenService(iauth.TokenConfig{
		Secret:   "test-suite-super-secret-key-32-bytes!!",
		Issuer:   "test-suite",
		TokenTTL: time.Hour,
	})
	require.NoError(t, err)

	marks := cache.NewMemoryStore()
	t.Cleanup(marks.Close)

	cleaner := maintenance.NewCleaner(registrations, marks)

	cfg := &app.Config{}
	cfg.Server.RateLimit.Enabled = false

	router, err := api.NewRouter(db, tokens, cfg, registrations, cleaner, marks)
	require.NoError(t, err)

	return &Env{
		T:             t,
		DB:            db,
		Store:         store,
		Router:        router,
		Tokens:        tokens,
		Registrations: registrations,
		Cleaner:       cleaner,
		Cache:         marks,
	}
}

// CreateInspector inserts an active staff account with a random username and
// returns the record.
func (e *Env) CreateInspector(password string) *models.Account {
	e.T.Helper()

	username := "warden-" + uuid.NewString()
	hashed, err := crypto.HashPassword(password)
	require.NoError(e.T, err)

	account := &models.Account{
		Username:     username,
		Email:        username + "@example.com",
		PasswordHash: hashed,
		IsActive:     true,
		IsStaff:      true,
		JoinedAt:     time.Now().UTC(),
	}

	require.NoError(e.T, e.DB.Create(account).Error)
	return account
}

// RegisterProfile submits a registration through the service layer and
// returns the stored profile.
func (e *Env) RegisterProfile(username string) *models.RegistrationProfile {
	e.T.Helper()

	profile, err := e.Registrations.Register(context.Background(), services.RegisterInput{
		Username: username,
		Email:    username + "@example.com",
	})
	require.NoError(e.T, err)
	return profile
}

// TokenResult mirrors the login response payload.
type TokenResult struct {
	AccessToken string    `json:"access_token"`
	TokenType   string    `json:"token_type"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// ProfilePayload captures the profile fields returned from the API.
type ProfilePayload struct {
	ID           string         `json:"id"`
	Username     string         `json:"username"`
	Email        string         `json:"email"`
	Status       string         `json:"status"`
	Supplement   map[string]any `json:"supplement"`
	RegisteredAt time.Time      `json:"registered_at"`
	ExpiresAt    *time.Time     `json:"expires_at"`
}

// AccountPayload captures the account fields returned from the API.
type AccountPayload struct {
	ID       string    `json:"id"`
	Username string    `json:"username"`
	Email    string    `json:"email"`
	IsActive bool      `json:"is_active"`
	JoinedAt time.Time `json:"joined_at"`
}

// Login authenticates an inspector and returns the issued bearer token.
func (e *Env) Login(username, password string) TokenResult {
	e.T.Helper()

	payload := map[string]string{
		"username": username,
		"password": password,
	}

	w := e.Request(http.MethodPost, "/api/auth/token", payload, "")
	require.Equal(e.T, http.StatusOK, w.Code, w.Body.String())

	resp := DecodeResponse(e.T, w)
	require.True(e.T, resp.Success, w.Body.String())

	var result TokenResult
	DecodeInto(e.T, resp.Data, &result)
	require.NotEmpty(e.T, result.AccessToken)
	require.Equal(e.T, "Bearer", result.TokenType)

	return result
}

// APIResponse represents the canonical API envelope returned by handlers.
type APIResponse struct {
	Success bool                `json:"success"`
	Data    json.RawMessage     `json:"data"`
	Error   *response.ErrorInfo `json:"error"`
	Meta    *response.Meta      `json:"meta"`
}

// DecodeResponse parses the standard API response object from a recorder.
func DecodeResponse(t *testing.T, w *httptest.ResponseRecorder) APIResponse {
	t.Helper()
	var resp APIResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp), w.Body.String())
	return resp
}

// DecodeInto unmarshals the data payload into the provided destination.
func DecodeInto[T any](t *testing.T, raw json.RawMessage, dest *T) {
	t.Helper()
	if dest == nil {
		t.Fatal("destination must not be nil")
	}
	require.NoError(t, json.Unmarshal(raw, dest))
}

// Request executes an HTTP request against the test router, applying JSON encoding and auth headers automatically.
func (e *Env) Request(method, path string, body any, token string) *httptest.ResponseRecorder {
	e.T.Helper()

	var buf *bytes.Buffer
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(e.T, err)
		buf = bytes.NewBuffer(data)
	} else {
		buf = bytes.NewBuffer(nil)
	}

	req, err := http.NewRequest(method, path, buf)
	require.NoError(e.T, err)

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	e.Router.ServeHTTP(w, req)
	return w
}
