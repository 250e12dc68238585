package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/gatehouse-dev/gatehouse/internal/app"
	"github.com/gatehouse-dev/gatehouse/internal/models"
)

func testConfig(t *testing.T) *app.Config {
	t.Helper()

	cfg, err := app.LoadConfig(t.TempDir())
	require.NoError(t, err)

	// In-memory database so the test leaves no files behind.
	cfg.Database.Path = ""
	cfg.Auth.JWT.Secret = "bootstrap-test-secret-32-bytes!!!!"
	cfg.Auth.Inspector.Password = "BootPassw0rd!"
	return cfg
}

func TestBootstrapRuntimeServesHealth(t *testing.T) {
	cfg := testConfig(t)

	stack, err := bootstrapRuntime(context.Background(), cfg, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() {
		stack.Shutdown(context.Background(), zap.NewNop())
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	stack.Router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), `"status":"ok"`)

	var count int64
	require.NoError(t, stack.DB.Model(&models.Account{}).
		Where("username = ? AND is_staff = ?", cfg.Auth.Inspector.Username, true).
		Count(&count).Error)
	require.EqualValues(t, 1, count)
}

func TestRunSweep(t *testing.T) {
	cfg := testConfig(t)
	cfg.Maintenance.Enabled = false

	stack, err := bootstrapRuntime(context.Background(), cfg, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() {
		stack.Shutdown(context.Background(), zap.NewNop())
	})

	ctx := context.Background()
	require.NoError(t, runSweep(ctx, stack, "all", zap.NewNop()))
	require.NoError(t, runSweep(ctx, stack, " Expired ", zap.NewNop()))
	require.Error(t, runSweep(ctx, stack, "weekly", zap.NewNop()))
}

func TestEnsureSecretsPresent(t *testing.T) {
	require.Error(t, ensureSecretsPresent(nil))

	cfg := &app.Config{}
	require.Error(t, ensureSecretsPresent(cfg))

	cfg.Auth.JWT.Secret = "  configured-secret  "
	require.NoError(t, ensureSecretsPresent(cfg))
	require.Equal(t, "configured-secret", cfg.Auth.JWT.Secret)
}

func TestConvertDatabaseConfig(t *testing.T) {
	cfg := &app.Config{}
	cfg.Database.Driver = ""
	dbCfg := convertDatabaseConfig(cfg)
	require.Equal(t, "sqlite", dbCfg.Driver)

	cfg = &app.Config{}
	cfg.Database.Driver = "PostgreSQL"
	cfg.Database.Postgres = app.DBAuthConfig{
		Host:     " db.example.com ",
		Port:     5433,
		Database: "gatehouse",
		Username: "gatehouse",
		Password: "sekrit",
		Options:  map[string]string{"sslmode": "require"},
	}
	dbCfg = convertDatabaseConfig(cfg)
	require.Equal(t, "postgres", dbCfg.Driver)
	require.Equal(t, "db.example.com", dbCfg.Host)
	require.Equal(t, 5433, dbCfg.Port)
	require.Equal(t, "gatehouse", dbCfg.Name)
	require.Equal(t, "gatehouse", dbCfg.User)
	require.Equal(t, "sekrit", dbCfg.Password)
	require.Equal(t, map[string]string{"sslmode": "require"}, dbCfg.Options)

	cfg = &app.Config{}
	cfg.Database.Driver = "mysql"
	cfg.Database.MySQL = app.DBAuthConfig{Host: "mysql.local", Port: 3306, Database: "gate"}
	dbCfg = convertDatabaseConfig(cfg)
	require.Equal(t, "mysql", dbCfg.Driver)
	require.Equal(t, "mysql.local", dbCfg.Host)
	require.Equal(t, "gate", dbCfg.Name)

	cfg = &app.Config{}
	cfg.Database.Driver = "oracle"
	require.Equal(t, "oracle", convertDatabaseConfig(cfg).Driver)
}

func TestLoadApplicationConfigMissingPath(t *testing.T) {
	_, err := loadApplicationConfig("/definitely/not/a/real/config/path")
	require.Error(t, err)
	require.Contains(t, err.Error(), "does not exist")
}
