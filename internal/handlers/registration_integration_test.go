package handlers_test

import (
	"context"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/gatehouse-dev/gatehouse/internal/handlers/testutil"
	"github.com/gatehouse-dev/gatehouse/internal/models"
	"github.com/gatehouse-dev/gatehouse/internal/services"
	"github.com/gatehouse-dev/gatehouse/pkg/crypto"
)

func TestRegistrationHandler_Register(t *testing.T) {
	env := testutil.NewEnv(t)

	payload := map[string]any{
		"username": "alice",
		"email":    "alice@example.com",
		"supplement": map[string]any{
			"remarks": "please approve",
		},
	}

	resp := env.Request(http.MethodPost, "/api/registration", payload, "")
	require.Equal(t, http.StatusCreated, resp.Code, resp.Body.String())

	decoded := testutil.DecodeResponse(t, resp)
	require.True(t, decoded.Success)

	var profile testutil.ProfilePayload
	testutil.DecodeInto(t, decoded.Data, &profile)
	require.NotEmpty(t, profile.ID)
	require.Equal(t, "alice", profile.Username)
	require.Equal(t, "alice@example.com", profile.Email)
	require.Equal(t, "untreated", profile.Status)
	require.Equal(t, "please approve", profile.Supplement["remarks"])
	require.Nil(t, profile.ExpiresAt)

	account, err := env.Store.Accounts().GetByUsername(context.Background(), "alice")
	require.NoError(t, err)
	require.False(t, account.IsActive)
	require.False(t, account.HasUsablePassword())
}

func TestRegistrationHandler_RegisterValidation(t *testing.T) {
	env := testutil.NewEnv(t)

	resp := env.Request(http.MethodPost, "/api/registration", map[string]any{
		"username": "has spaces",
		"email":    "not-an-email",
	}, "")
	require.Equal(t, http.StatusBadRequest, resp.Code)
	decoded := testutil.DecodeResponse(t, resp)
	require.False(t, decoded.Success)
	require.Equal(t, "BAD_REQUEST", decoded.Error.Code)
	require.Contains(t, decoded.Error.Message, "username")
}

func TestRegistrationHandler_RegisterDuplicate(t *testing.T) {
	env := testutil.NewEnv(t)
	env.RegisterProfile("bob")

	resp := env.Request(http.MethodPost, "/api/registration", map[string]any{
		"username": "bob",
		"email":    "bob@example.com",
	}, "")
	require.Equal(t, http.StatusConflict, resp.Code)
	require.Equal(t, "CONFLICT", testutil.DecodeResponse(t, resp).Error.Code)
}

func TestRegistrationHandler_RegisterClosed(t *testing.T) {
	env := testutil.NewEnv(t, services.WithRegistrationOpen(false))

	resp := env.Request(http.MethodPost, "/api/registration", map[string]any{
		"username": "carol",
		"email":    "carol@example.com",
	}, "")
	require.Equal(t, http.StatusForbidden, resp.Code)
	require.Equal(t, "REGISTRATION_CLOSED", testutil.DecodeResponse(t, resp).Error.Code)
}

func TestRegistrationHandler_Activate(t *testing.T) {
	env := testutil.NewEnv(t)
	ctx := context.Background()

	profile := env.RegisterProfile("dave")
	accepted, err := env.Registrations.Accept(ctx, profile.ID, services.AcceptInput{})
	require.NoError(t, err)
	key := accepted.Key()
	require.Len(t, key, 40)

	resp := env.Request(http.MethodPost, "/api/registration/activate/"+key, map[string]string{
		"password": "ChosenPassw0rd!",
	}, "")
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

	decoded := testutil.DecodeResponse(t, resp)
	var data map[string]any
	testutil.DecodeInto(t, decoded.Data, &data)
	require.Equal(t, false, data["generated"])
	_, leaked := data["password"]
	require.False(t, leaked)

	var result struct {
		Account testutil.AccountPayload `json:"account"`
	}
	testutil.DecodeInto(t, decoded.Data, &result)
	require.Equal(t, "dave", result.Account.Username)
	require.True(t, result.Account.IsActive)

	account, err := env.Store.Accounts().GetByID(ctx, result.Account.ID)
	require.NoError(t, err)
	require.True(t, crypto.VerifyPassword(account.PasswordHash, "ChosenPassw0rd!"))

	_, err = env.Store.Profiles().GetByID(ctx, profile.ID)
	require.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestRegistrationHandler_ActivateGeneratedPassword(t *testing.T) {
	env := testutil.NewEnv(t)
	ctx := context.Background()

	profile := env.RegisterProfile("erin")
	accepted, err := env.Registrations.Accept(ctx, profile.ID, services.AcceptInput{})
	require.NoError(t, err)

	resp := env.Request(http.MethodPost, "/api/registration/activate/"+accepted.Key(), nil, "")
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

	var data map[string]any
	testutil.DecodeInto(t, testutil.DecodeResponse(t, resp).Data, &data)
	require.Equal(t, true, data["generated"])
	password, ok := data["password"].(string)
	require.True(t, ok)
	require.Len(t, password, 10)
}

func TestRegistrationHandler_ActivateBadKey(t *testing.T) {
	env := testutil.NewEnv(t)

	malformed := env.Request(http.MethodPost, "/api/registration/activate/not-a-key", nil, "")
	require.Equal(t, http.StatusNotFound, malformed.Code)
	decoded := testutil.DecodeResponse(t, malformed)
	require.Equal(t, "NOT_FOUND", decoded.Error.Code)
	require.Equal(t, "activation key is invalid or already used", decoded.Error.Message)

	unknown := env.Request(http.MethodPost, "/api/registration/activate/"+strings.Repeat("ab", 20), nil, "")
	require.Equal(t, http.StatusNotFound, unknown.Code)
	require.Equal(t, "NOT_FOUND", testutil.DecodeResponse(t, unknown).Error.Code)
}

func TestRegistrationHandler_ActivateExpiredKey(t *testing.T) {
	env := testutil.NewEnv(t)
	ctx := context.Background()

	profile := env.RegisterProfile("frank")
	accepted, err := env.Registrations.Accept(ctx, profile.ID, services.AcceptInput{})
	require.NoError(t, err)

	stale := time.Now().UTC().Add(-8 * 24 * time.Hour)
	require.NoError(t, env.DB.Model(&models.Account{}).
		Where("id = ?", profile.AccountID).
		Update("joined_at", stale).Error)

	resp := env.Request(http.MethodPost, "/api/registration/activate/"+accepted.Key(), nil, "")
	require.Equal(t, http.StatusGone, resp.Code, resp.Body.String())
	decoded := testutil.DecodeResponse(t, resp)
	require.Equal(t, "GONE", decoded.Error.Code)
	require.Equal(t, "activation key has expired", decoded.Error.Message)
}

func TestRegistrationHandler_ActivateShortPassword(t *testing.T) {
	env := testutil.NewEnv(t)
	ctx := context.Background()

	profile := env.RegisterProfile("gina")
	accepted, err := env.Registrations.Accept(ctx, profile.ID, services.AcceptInput{})
	require.NoError(t, err)

	resp := env.Request(http.MethodPost, "/api/registration/activate/"+accepted.Key(), map[string]string{
		"password": "short",
	}, "")
	require.Equal(t, http.StatusBadRequest, resp.Code)
	decoded := testutil.DecodeResponse(t, resp)
	require.Equal(t, "BAD_REQUEST", decoded.Error.Code)
	require.Contains(t, decoded.Error.Message, "at least 8 characters")
}
