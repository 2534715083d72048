package api

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/ahrie-ai/backend/config"
	"github.com/ahrie-ai/backend/internal/apperr"
	"github.com/ahrie-ai/backend/internal/logger"
	"github.com/ahrie-ai/backend/internal/telegram"
)

const (
	secretTokenHeader = "X-Telegram-Bot-Api-Secret-Token"
	maxUpdateBytes    = 1 << 20
)

// AllowedUpdates are the update kinds the webhook subscribes to.
var AllowedUpdates = []string{"message", "callback_query"}

// UpdateDispatcher hands an update to background processing.
type UpdateDispatcher interface {
	Dispatch(ctx context.Context, data *telegram.MessageData) bool
}

// WebhookClient is the subset of the Bot API used to manage the webhook.
type WebhookClient interface {
	SetWebhook(ctx context.Context, p telegram.WebhookParams) error
	DeleteWebhook(ctx context.Context, dropPending bool) error
	GetWebhookInfo(ctx context.Context) (*telegram.WebhookInfo, error)
}

// WebhookHandler receives Telegram updates and manages the webhook registration
type WebhookHandler struct {
	cfg        *config.Config
	dispatcher UpdateDispatcher
	client     WebhookClient
	now        func() time.Time
}

// NewWebhookHandler creates a new WebhookHandler instance
func NewWebhookHandler(cfg *config.Config, dispatcher UpdateDispatcher, client WebhookClient) *WebhookHandler {
	return &WebhookHandler{cfg: cfg, dispatcher: dispatcher, client: client, now: time.Now}
}

// RegisterRoutes registers the webhook routes. admin guards the management endpoints.
func (h *WebhookHandler) RegisterRoutes(v1 *gin.RouterGroup, admin ...gin.HandlerFunc) {
	webhook := v1.Group("/webhook")
	webhook.POST("/telegram", h.Telegram)

	manage := webhook.Group("", admin...)
	manage.POST("/set", h.Set)
	manage.DELETE("/delete", h.Delete)
	manage.GET("/info", h.Info)
}

// Telegram accepts an update. Anything short of a bad secret is acknowledged
// with 200 so Telegram does not redeliver it.
func (h *WebhookHandler) Telegram(c *gin.Context) {
	ctx := c.Request.Context()
	log := logger.FromContext(ctx)

	if h.checkSecret() && !telegram.VerifySecretToken(c.GetHeader(secretTokenHeader), h.cfg.TelegramWebhookSecret) {
		log.Warn("webhook secret mismatch", "client_ip", c.ClientIP())
		c.JSON(http.StatusUnauthorized, gin.H{"detail": "Invalid signature"})
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, maxUpdateBytes))
	if err != nil {
		log.Error("failed to read update body", "error", err)
		c.JSON(http.StatusOK, gin.H{"ok": true, "description": "Error processed"})
		return
	}

	var update telegram.Update
	if err := json.Unmarshal(body, &update); err != nil {
		log.Error("malformed update", "error", err, "bytes", len(body))
		c.JSON(http.StatusOK, gin.H{"ok": true, "description": "Error processed"})
		return
	}

	data, ok := telegram.ExtractMessageData(update)
	if !ok {
		log.Debug("update has nothing to process", "update_id", update.UpdateID)
		c.JSON(http.StatusOK, gin.H{"ok": true, "description": "No message to process"})
		return
	}

	h.dispatcher.Dispatch(ctx, data)
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// checkSecret reports whether the secret header is enforced.
func (h *WebhookHandler) checkSecret() bool {
	return !h.cfg.Debug && h.cfg.TelegramWebhookSecret != ""
}

// Set registers the webhook URL with Telegram.
func (h *WebhookHandler) Set(c *gin.Context) {
	ctx := c.Request.Context()
	url := h.cfg.WebhookURL()
	if url == "" {
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "Failed to set webhook: WEBHOOK_BASE_URL is not configured"})
		return
	}

	err := h.client.SetWebhook(ctx, telegram.WebhookParams{
		URL:                url,
		SecretToken:        h.cfg.TelegramWebhookSecret,
		AllowedUpdates:     AllowedUpdates,
		DropPendingUpdates: true,
	})
	if err != nil {
		logger.FromContext(ctx).Error("failed to set webhook", "url", url, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"detail": fmt.Sprintf("Failed to set webhook: %v", err)})
		return
	}

	logger.FromContext(ctx).Info("webhook set", "url", url)
	c.JSON(http.StatusOK, gin.H{
		"status":      "success",
		"webhook_url": url,
		"timestamp":   h.timestamp(),
	})
}

// Delete removes the webhook registration.
func (h *WebhookHandler) Delete(c *gin.Context) {
	ctx := c.Request.Context()
	if err := h.client.DeleteWebhook(ctx, false); err != nil {
		_ = c.Error(apperr.Wrap(err, apperr.CodeUpstreamUnavailable, "failed to delete webhook"))
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success", "timestamp": h.timestamp()})
}

// Info returns Telegram's view of the webhook.
func (h *WebhookHandler) Info(c *gin.Context) {
	info, err := h.client.GetWebhookInfo(c.Request.Context())
	if err != nil {
		_ = c.Error(apperr.Wrap(err, apperr.CodeUpstreamUnavailable, "failed to get webhook info"))
		return
	}
	c.JSON(http.StatusOK, info)
}

func (h *WebhookHandler) timestamp() string {
	return h.now().UTC().Format(time.RFC3339)
}
