package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ahrie-ai/backend/config"
	"github.com/ahrie-ai/backend/internal/middleware"
	"github.com/ahrie-ai/backend/internal/telegram"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type recordingDispatcher struct {
	mu      sync.Mutex
	updates []*telegram.MessageData
}

func (d *recordingDispatcher) Dispatch(_ context.Context, data *telegram.MessageData) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.updates = append(d.updates, data)
	return true
}

type fakeWebhookClient struct {
	params  telegram.WebhookParams
	deleted bool
	info    *telegram.WebhookInfo
	err     error
}

func (f *fakeWebhookClient) SetWebhook(_ context.Context, p telegram.WebhookParams) error {
	f.params = p
	return f.err
}

func (f *fakeWebhookClient) DeleteWebhook(_ context.Context, _ bool) error {
	f.deleted = f.err == nil
	return f.err
}

func (f *fakeWebhookClient) GetWebhookInfo(context.Context) (*telegram.WebhookInfo, error) {
	return f.info, f.err
}

func newWebhookRouter(cfg *config.Config, client *fakeWebhookClient, admin ...gin.HandlerFunc) (*gin.Engine, *recordingDispatcher) {
	d := &recordingDispatcher{}
	h := NewWebhookHandler(cfg, d, client)
	h.now = func() time.Time { return time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC) }

	r := gin.New()
	r.Use(middleware.ErrorHandler())
	h.RegisterRoutes(r.Group("/api/v1"), admin...)
	return r, d
}

func postUpdate(r *gin.Engine, body, secret string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/webhook/telegram", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if secret != "" {
		req.Header.Set(secretTokenHeader, secret)
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

const textUpdate = `{
	"update_id": 1001,
	"message": {
		"message_id": 5,
		"from": {"id": 42, "is_bot": false, "first_name": "Layla", "language_code": "ar"},
		"chat": {"id": 42, "type": "private"},
		"date": 1714550400,
		"text": "مرحبا"
	}
}`

func TestWebhook_DispatchesUpdates(t *testing.T) {
	r, d := newWebhookRouter(&config.Config{}, &fakeWebhookClient{})

	rec := postUpdate(r, textUpdate, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"ok":true}`, rec.Body.String())

	require.Len(t, d.updates, 1)
	got := d.updates[0]
	assert.Equal(t, int64(1001), got.UpdateID)
	assert.Equal(t, int64(42), got.ChatID)
	assert.Equal(t, "مرحبا", got.Text)
	assert.Equal(t, "ar", got.LanguageCode)
}

func TestWebhook_Callback(t *testing.T) {
	r, d := newWebhookRouter(&config.Config{}, &fakeWebhookClient{})

	body := `{"update_id": 7, "callback_query": {"id": "cb", "from": {"id": 42, "first_name": "Layla"},
		"message": {"message_id": 9, "chat": {"id": 42, "type": "private"}, "date": 1}, "data": "lang_ko"}}`
	rec := postUpdate(r, body, "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, d.updates, 1)
	assert.True(t, d.updates[0].IsCallback())
	assert.Equal(t, "lang_ko", d.updates[0].CallbackData)
}

func TestWebhook_NothingToProcess(t *testing.T) {
	r, d := newWebhookRouter(&config.Config{}, &fakeWebhookClient{})

	rec := postUpdate(r, `{"update_id": 5, "channel_post": {"message_id": 1}}`, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"ok":true,"description":"No message to process"}`, rec.Body.String())
	assert.Empty(t, d.updates)
}

func TestWebhook_MalformedBody(t *testing.T) {
	r, d := newWebhookRouter(&config.Config{}, &fakeWebhookClient{})

	rec := postUpdate(r, `{"update_id": `, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"ok":true,"description":"Error processed"}`, rec.Body.String())
	assert.Empty(t, d.updates)
}

func TestWebhook_SecretToken(t *testing.T) {
	tests := []struct {
		name   string
		cfg    config.Config
		header string
		status int
	}{
		{"valid", config.Config{TelegramWebhookSecret: "s3cret"}, "s3cret", http.StatusOK},
		{"missing", config.Config{TelegramWebhookSecret: "s3cret"}, "", http.StatusUnauthorized},
		{"mismatch", config.Config{TelegramWebhookSecret: "s3cret"}, "nope", http.StatusUnauthorized},
		{"debug skips check", config.Config{TelegramWebhookSecret: "s3cret", Debug: true}, "", http.StatusOK},
		{"no secret configured", config.Config{}, "", http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := tt.cfg
			r, d := newWebhookRouter(&cfg, &fakeWebhookClient{})
			rec := postUpdate(r, textUpdate, tt.header)
			assert.Equal(t, tt.status, rec.Code)
			if tt.status == http.StatusUnauthorized {
				assert.JSONEq(t, `{"detail":"Invalid signature"}`, rec.Body.String())
				assert.Empty(t, d.updates)
			}
		})
	}
}

func TestWebhook_Set(t *testing.T) {
	cfg := &config.Config{WebhookBaseURL: "https://bot.example.com", TelegramWebhookSecret: "s3cret"}
	client := &fakeWebhookClient{}
	r, _ := newWebhookRouter(cfg, client)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/webhook/set", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "success", body["status"])
	assert.Equal(t, cfg.WebhookURL(), body["webhook_url"])
	assert.Equal(t, "2024-05-01T09:00:00Z", body["timestamp"])

	assert.Equal(t, cfg.WebhookURL(), client.params.URL)
	assert.Equal(t, "s3cret", client.params.SecretToken)
	assert.Equal(t, []string{"message", "callback_query"}, client.params.AllowedUpdates)
	assert.True(t, client.params.DropPendingUpdates)
}

func TestWebhook_SetFailure(t *testing.T) {
	client := &fakeWebhookClient{err: errors.New("Bad Request: bad webhook")}
	r, _ := newWebhookRouter(&config.Config{WebhookBaseURL: "https://bot.example.com"}, client)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/webhook/set", nil))
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"detail":"Failed to set webhook: Bad Request: bad webhook"}`, rec.Body.String())
}

func TestWebhook_DeleteAndInfo(t *testing.T) {
	client := &fakeWebhookClient{info: &telegram.WebhookInfo{URL: "https://bot.example.com/api/v1/webhook/telegram", PendingUpdateCount: 3}}
	r, _ := newWebhookRouter(&config.Config{}, client)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/api/v1/webhook/delete", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"success","timestamp":"2024-05-01T09:00:00Z"}`, rec.Body.String())
	assert.True(t, client.deleted)

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/webhook/info", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var info telegram.WebhookInfo
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &info))
	assert.Equal(t, 3, info.PendingUpdateCount)
}

func TestWebhook_DeleteAndInfoFailures(t *testing.T) {
	client := &fakeWebhookClient{err: errors.New("Unauthorized")}
	r, _ := newWebhookRouter(&config.Config{}, client)

	for _, tt := range []struct {
		method, path, message string
	}{
		{http.MethodDelete, "/api/v1/webhook/delete", "failed to delete webhook"},
		{http.MethodGet, "/api/v1/webhook/info", "failed to get webhook info"},
	} {
		t.Run(tt.path, func(t *testing.T) {
			rec := httptest.NewRecorder()
			r.ServeHTTP(rec, httptest.NewRequest(tt.method, tt.path, nil))
			require.Equal(t, http.StatusBadGateway, rec.Code)

			var body middleware.ErrorResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, "UPSTREAM_UNAVAILABLE", body.Code)
			assert.Equal(t, tt.message, body.Message)
			assert.NotContains(t, rec.Body.String(), "Unauthorized")
		})
	}
	assert.False(t, client.deleted)
}

func TestWebhook_AdminGuard(t *testing.T) {
	deny := func(c *gin.Context) { c.AbortWithStatus(http.StatusUnauthorized) }
	client := &fakeWebhookClient{}
	r, d := newWebhookRouter(&config.Config{WebhookBaseURL: "https://bot.example.com"}, client, deny)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/webhook/set", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Empty(t, client.params.URL)

	// The Telegram endpoint is not behind the admin guard.
	assert.Equal(t, http.StatusOK, postUpdate(r, textUpdate, "").Code)
	assert.Len(t, d.updates, 1)
}
