package router

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ahrie-ai/backend/config"
	"github.com/ahrie-ai/backend/internal/agent"
	"github.com/ahrie-ai/backend/internal/api"
	"github.com/ahrie-ai/backend/internal/metrics"
	"github.com/ahrie-ai/backend/internal/middleware"
	"github.com/ahrie-ai/backend/internal/telegram"
	"github.com/ahrie-ai/backend/internal/testhelpers"
)

type nopDispatcher struct{ n int }

func (d *nopDispatcher) Dispatch(context.Context, *telegram.MessageData) bool {
	d.n++
	return true
}

type nopWebhookClient struct{ set bool }

func (c *nopWebhookClient) SetWebhook(context.Context, telegram.WebhookParams) error {
	c.set = true
	return nil
}
func (c *nopWebhookClient) DeleteWebhook(context.Context, bool) error { return nil }
func (c *nopWebhookClient) GetWebhookInfo(context.Context) (*telegram.WebhookInfo, error) {
	return &telegram.WebhookInfo{}, nil
}

func setup(t *testing.T, cfg *config.Config) (*gin.Engine, *nopDispatcher, *nopWebhookClient) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	team, err := agent.LoadTeam()
	require.NoError(t, err)
	_, rdb := testhelpers.NewRedis(t)

	d := &nopDispatcher{}
	wc := &nopWebhookClient{}
	r := SetupRouter(Deps{
		Config:  cfg,
		Metrics: metrics.New(),
		Redis:   rdb,
		Webhook: api.NewWebhookHandler(cfg, d, wc),
		Health:  api.NewHealthHandler(api.HealthDeps{DB: testhelpers.NewSQLiteDB(t), Team: team}),
		Info:    api.NewInfoHandler(cfg, team),
	})
	return r, d, wc
}

func baseConfig() *config.Config {
	return &config.Config{
		AppName:           "Ahrie AI",
		AppVersion:        "1.0.0",
		Debug:             true,
		AllowedOrigins:    []string{"https://t.me"},
		RateLimitRequests: 100,
		RateLimitPeriod:   time.Minute,
		WebhookBaseURL:    "https://bot.example.com",
	}
}

func TestRouter_Routes(t *testing.T) {
	r, d, _ := setup(t, baseConfig())

	for _, path := range []string{"/", "/api/v1/info", "/api/v1/health", "/api/v1/health/liveness", "/api/v1/health/readiness", "/metrics"} {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusOK, rec.Code, path)
		assert.NotEmpty(t, rec.Header().Get(middleware.RequestIDHeader), path)
		assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"), path)
	}

	rec := httptest.NewRecorder()
	body := `{"update_id":1,"message":{"message_id":1,"from":{"id":1,"first_name":"A"},"chat":{"id":1,"type":"private"},"date":1,"text":"hi"}}`
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/webhook/telegram", strings.NewReader(body)))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, d.n)
	assert.Equal(t, "100", rec.Header().Get("X-RateLimit-Limit"))
}

func TestRouter_AdminRoutesRequireToken(t *testing.T) {
	cfg := baseConfig()
	cfg.AdminJWTSecret = "admin-secret"
	r, _, wc := setup(t, cfg)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/webhook/set", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.False(t, wc.set)

	token, err := middleware.IssueAdminToken(cfg.AdminJWTSecret, "ops", time.Hour)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/webhook/set", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, wc.set)
}
