package handlers_test

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/gatehouse-dev/gatehouse/internal/app/maintenance"
	"github.com/gatehouse-dev/gatehouse/internal/handlers/testutil"
	"github.com/gatehouse-dev/gatehouse/internal/models"
	"github.com/gatehouse-dev/gatehouse/internal/services"
)

func TestInspectionHandler_ListAndGet(t *testing.T) {
	env := testutil.NewEnv(t)
	inspector := env.CreateInspector("InspectPassw0rd!")
	token := env.Login(inspector.Username, "InspectPassw0rd!").AccessToken
	ctx := context.Background()

	first := env.RegisterProfile("pat")
	second := env.RegisterProfile("quinn")
	_, err := env.Registrations.Accept(ctx, second.ID, services.AcceptInput{})
	require.NoError(t, err)

	all := env.Request(http.MethodGet, "/api/inspection/profiles", nil, token)
	require.Equal(t, http.StatusOK, all.Code)
	allResp := testutil.DecodeResponse(t, all)
	require.True(t, allResp.Success)
	require.NotNil(t, allResp.Meta)
	require.Equal(t, 2, allResp.Meta.Count)

	var profiles []testutil.ProfilePayload
	testutil.DecodeInto(t, allResp.Data, &profiles)
	require.Len(t, profiles, 2)

	accepted := env.Request(http.MethodGet, "/api/inspection/profiles?status=accepted", nil, token)
	require.Equal(t, http.StatusOK, accepted.Code)
	acceptedResp := testutil.DecodeResponse(t, accepted)
	require.Equal(t, 1, acceptedResp.Meta.Count)
	var acceptedProfiles []testutil.ProfilePayload
	testutil.DecodeInto(t, acceptedResp.Data, &acceptedProfiles)
	require.Len(t, acceptedProfiles, 1)
	require.Equal(t, "quinn", acceptedProfiles[0].Username)
	require.NotNil(t, acceptedProfiles[0].ExpiresAt)

	bogus := env.Request(http.MethodGet, "/api/inspection/profiles?status=bogus", nil, token)
	require.Equal(t, http.StatusBadRequest, bogus.Code)
	require.Equal(t, "BAD_REQUEST", testutil.DecodeResponse(t, bogus).Error.Code)

	one := env.Request(http.MethodGet, "/api/inspection/profiles/"+first.ID, nil, token)
	require.Equal(t, http.StatusOK, one.Code)
	var got testutil.ProfilePayload
	testutil.DecodeInto(t, testutil.DecodeResponse(t, one).Data, &got)
	require.Equal(t, first.ID, got.ID)
	require.Equal(t, "untreated", got.Status)

	missing := env.Request(http.MethodGet, "/api/inspection/profiles/"+uuid.NewString(), nil, token)
	require.Equal(t, http.StatusNotFound, missing.Code)
	require.Equal(t, "NOT_FOUND", testutil.DecodeResponse(t, missing).Error.Code)
}

func TestInspectionHandler_Accept(t *testing.T) {
	env := testutil.NewEnv(t)
	inspector := env.CreateInspector("InspectPassw0rd!")
	token := env.Login(inspector.Username, "InspectPassw0rd!").AccessToken
	ctx := context.Background()

	profile := env.RegisterProfile("rose")

	resp := env.Request(http.MethodPost, "/api/inspection/profiles/"+profile.ID+"/accept", map[string]any{
		"message": "welcome aboard",
	}, token)
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	var payload testutil.ProfilePayload
	testutil.DecodeInto(t, testutil.DecodeResponse(t, resp).Data, &payload)
	require.Equal(t, "accepted", payload.Status)
	require.NotNil(t, payload.ExpiresAt)

	stored, err := env.Store.Profiles().GetByID(ctx, profile.ID)
	require.NoError(t, err)
	firstKey := stored.Key()
	require.Len(t, firstKey, 40)

	again := env.Request(http.MethodPost, "/api/inspection/profiles/"+profile.ID+"/accept", nil, token)
	require.Equal(t, http.StatusConflict, again.Code)
	require.Equal(t, "CONFLICT", testutil.DecodeResponse(t, again).Error.Code)

	forced := env.Request(http.MethodPost, "/api/inspection/profiles/"+profile.ID+"/accept", map[string]any{
		"force": true,
	}, token)
	require.Equal(t, http.StatusOK, forced.Code, forced.Body.String())

	reloaded, err := env.Store.Profiles().GetByID(ctx, profile.ID)
	require.NoError(t, err)
	require.Len(t, reloaded.Key(), 40)
	require.NotEqual(t, firstKey, reloaded.Key())
}

func TestInspectionHandler_Reject(t *testing.T) {
	env := testutil.NewEnv(t)
	inspector := env.CreateInspector("InspectPassw0rd!")
	token := env.Login(inspector.Username, "InspectPassw0rd!").AccessToken

	profile := env.RegisterProfile("sam")

	resp := env.Request(http.MethodPost, "/api/inspection/profiles/"+profile.ID+"/reject", map[string]any{
		"message": "incomplete application",
	}, token)
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	var payload testutil.ProfilePayload
	testutil.DecodeInto(t, testutil.DecodeResponse(t, resp).Data, &payload)
	require.Equal(t, "rejected", payload.Status)
	require.Nil(t, payload.ExpiresAt)

	again := env.Request(http.MethodPost, "/api/inspection/profiles/"+profile.ID+"/reject", nil, token)
	require.Equal(t, http.StatusConflict, again.Code)
	require.Equal(t, "CONFLICT", testutil.DecodeResponse(t, again).Error.Code)

	accept := env.Request(http.MethodPost, "/api/inspection/profiles/"+profile.ID+"/accept", nil, token)
	require.Equal(t, http.StatusOK, accept.Code, accept.Body.String())
}

func TestInspectionHandler_SweepsAndStats(t *testing.T) {
	env := testutil.NewEnv(t)
	inspector := env.CreateInspector("InspectPassw0rd!")
	token := env.Login(inspector.Username, "InspectPassw0rd!").AccessToken
	ctx := context.Background()

	stale := env.RegisterProfile("tariq")
	_, err := env.Registrations.Accept(ctx, stale.ID, services.AcceptInput{})
	require.NoError(t, err)
	require.NoError(t, env.DB.Model(&models.Account{}).
		Where("id = ?", stale.AccountID).
		Update("joined_at", time.Now().UTC().Add(-8*24*time.Hour)).Error)

	refused := env.RegisterProfile("uma")
	_, err = env.Registrations.Reject(ctx, refused.ID, services.RejectInput{})
	require.NoError(t, err)

	env.RegisterProfile("vic")

	expired := env.Request(http.MethodPost, "/api/inspection/sweeps/expired", nil, token)
	require.Equal(t, http.StatusOK, expired.Code, expired.Body.String())
	var expiredResult services.SweepResult
	testutil.DecodeInto(t, testutil.DecodeResponse(t, expired).Data, &expiredResult)
	require.Equal(t, 1, expiredResult.AccountsDeleted)
	require.Equal(t, 1, expiredResult.ProfilesDeleted)

	rejected := env.Request(http.MethodPost, "/api/inspection/sweeps/rejected", nil, token)
	require.Equal(t, http.StatusOK, rejected.Code, rejected.Body.String())
	var rejectedResult services.SweepResult
	testutil.DecodeInto(t, testutil.DecodeResponse(t, rejected).Data, &rejectedResult)
	require.Equal(t, 1, rejectedResult.AccountsDeleted)
	require.Equal(t, 1, rejectedResult.ProfilesDeleted)

	stats := env.Request(http.MethodGet, "/api/inspection/stats", nil, token)
	require.Equal(t, http.StatusOK, stats.Code)
	var statsData struct {
		Profiles map[string]int                `json:"profiles"`
		Sweeps   map[string]maintenance.Marker `json:"sweeps"`
	}
	testutil.DecodeInto(t, testutil.DecodeResponse(t, stats).Data, &statsData)
	require.Equal(t, 1, statsData.Profiles["untreated"])
	require.Equal(t, 0, statsData.Profiles["accepted"])
	require.Equal(t, 0, statsData.Profiles["rejected"])
	require.Equal(t, 1, statsData.Sweeps["expired"].AccountsDeleted)
	require.Equal(t, 1, statsData.Sweeps["rejected"].ProfilesDeleted)
	require.False(t, statsData.Sweeps["expired"].At.IsZero())
}
