package service

import (
	"context"
	"time"

	"github.com/ahrie-ai/backend/internal/models"
)

// IUserService defines the interface for Telegram user persistence
type IUserService interface {
	GetOrCreate(ctx context.Context, profile TelegramProfile) (*models.User, error)
	UpdateLanguage(ctx context.Context, telegramID int64, lang string) (*models.User, error)
	Get(ctx context.Context, telegramID int64) (*models.User, error)
}

// IConversationService defines the interface for conversation history
type IConversationService interface {
	GetOrCreateActive(ctx context.Context, userID uint, chatID int64) (*models.Conversation, error)
	AppendMessage(ctx context.Context, conversationID uint, role, content string, metadata map[string]any, tokens int) (*models.Message, error)
	RecentMessages(ctx context.Context, conversationID uint, n int) ([]models.Message, error)
	Close(ctx context.Context, id uint) error
	CloseIdle(ctx context.Context, idle time.Duration) (int64, error)
}

// ICatalogService defines the interface for the clinic and procedure catalog
type ICatalogService interface {
	ListProcedures(ctx context.Context) ([]models.Procedure, error)
	GetProcedure(ctx context.Context, name string) (*models.Procedure, error)
	SearchProcedures(ctx context.Context, query string) ([]models.Procedure, error)
	FindClinics(ctx context.Context, filter ClinicFilter) ([]models.Clinic, error)
	GetClinic(ctx context.Context, id uint) (*models.Clinic, error)
	HalalPlaces(ctx context.Context, filter HalalFilter) ([]models.HalalPlace, error)
	ReviewsFor(ctx context.Context, clinicID, procedureID uint, limit int) ([]models.Review, error)
	AddReview(ctx context.Context, review *models.Review) error
}

// ITranslationService defines the interface for cached translation
type ITranslationService interface {
	Lookup(ctx context.Context, text, src, tgt string) (string, bool, error)
	Store(ctx context.Context, text, src, tgt, translated, provider string) error
	Translate(ctx context.Context, text, src, tgt string) (string, error)
	PurgeOlderThan(ctx context.Context, age time.Duration) (int64, error)
}

// IMediaService defines the interface for clinic image links
type IMediaService interface {
	ImageURL(ctx context.Context, ref string) (string, error)
}

// Translator produces a translation on a cache miss.
type Translator interface {
	Translate(ctx context.Context, text, src, tgt string) (string, error)
	Name() string
}
