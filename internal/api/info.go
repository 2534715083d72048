package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ahrie-ai/backend/config"
)

var features = []string{
	"Persona team with intent routing",
	"Telegram bot integration",
	"Medical procedure consultation",
	"Patient review analysis",
	"Cultural and halal guidance",
	"Multi-language support (AR, EN, KO)",
}

// InfoHandler serves the service description
type InfoHandler struct {
	cfg  *config.Config
	team PersonaLister
}

// NewInfoHandler creates a new InfoHandler instance
func NewInfoHandler(cfg *config.Config, team PersonaLister) *InfoHandler {
	return &InfoHandler{cfg: cfg, team: team}
}

// RegisterRoutes registers the root and info routes
func (h *InfoHandler) RegisterRoutes(router *gin.Engine) {
	router.GET("/", h.Root)
	router.GET("/api/v1/info", h.Info)
}

// Root is the welcome endpoint.
func (h *InfoHandler) Root(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"message": "Welcome to " + h.cfg.AppName + " API",
		"version": h.cfg.AppVersion,
		"status":  "operational",
	})
}

// Info describes the service and its personas.
func (h *InfoHandler) Info(c *gin.Context) {
	agents := []string{}
	if h.team != nil {
		agents = h.team.Names()
	}
	c.JSON(http.StatusOK, gin.H{
		"name":        h.cfg.AppName,
		"description": "K-Beauty Medical Tourism Chatbot",
		"version":     h.cfg.AppVersion,
		"features":    features,
		"agents":      agents,
	})
}
