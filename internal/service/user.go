package service

import (
	"context"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/ahrie-ai/backend/internal/apperr"
	"github.com/ahrie-ai/backend/internal/database"
	"github.com/ahrie-ai/backend/internal/models"
)

// SupportedLanguages are the interface languages a user can pick.
var SupportedLanguages = []string{"en", "ar", "ko"}

// TelegramProfile is the subset of a Telegram user the bot stores.
type TelegramProfile struct {
	TelegramID   int64
	Username     string
	FirstName    string
	LastName     string
	LanguageCode string
}

// UserService handles Telegram user records
type UserService struct {
	db *gorm.DB
}

var _ IUserService = (*UserService)(nil)

// NewUserService creates a new UserService instance
func NewUserService(db *gorm.DB) *UserService {
	return &UserService{db: db}
}

// GetOrCreate upserts the user by telegram id, refreshing the name fields.
// A stored language preference is never overwritten by the Telegram client language.
func (s *UserService) GetOrCreate(ctx context.Context, profile TelegramProfile) (*models.User, error) {
	if profile.TelegramID == 0 {
		return nil, apperr.New(apperr.CodeInvalidArgument, "telegram id is required")
	}

	lang := normalizeLanguage(profile.LanguageCode)
	user := models.User{
		TelegramID:   profile.TelegramID,
		Username:     profile.Username,
		FirstName:    profile.FirstName,
		LastName:     profile.LastName,
		LanguageCode: lang,
		IsActive:     true,
		Preferences:  models.JSONMap{},
	}

	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "telegram_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"username", "first_name", "last_name", "updated_at"}),
	}).Create(&user).Error
	if err != nil {
		return nil, database.Classify(err, "failed to upsert user")
	}

	return s.Get(ctx, profile.TelegramID)
}

// UpdateLanguage stores the user's interface language.
func (s *UserService) UpdateLanguage(ctx context.Context, telegramID int64, lang string) (*models.User, error) {
	if !IsSupportedLanguage(lang) {
		return nil, apperr.New(apperr.CodeInvalidArgument, "unsupported language: "+lang)
	}

	res := s.db.WithContext(ctx).Model(&models.User{}).
		Where("telegram_id = ?", telegramID).
		Update("language_code", lang)
	if res.Error != nil {
		return nil, database.Classify(res.Error, "failed to update language")
	}
	if res.RowsAffected == 0 {
		return nil, apperr.New(apperr.CodeNotFound, "user not found")
	}
	return s.Get(ctx, telegramID)
}

// Get retrieves a user by telegram id
func (s *UserService) Get(ctx context.Context, telegramID int64) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).Where("telegram_id = ?", telegramID).First(&user).Error; err != nil {
		return nil, database.Classify(err, "user not found")
	}
	return &user, nil
}

// IsSupportedLanguage reports whether lang is one of SupportedLanguages.
func IsSupportedLanguage(lang string) bool {
	for _, l := range SupportedLanguages {
		if l == lang {
			return true
		}
	}
	return false
}

func normalizeLanguage(code string) string {
	code = strings.ToLower(strings.TrimSpace(code))
	switch {
	case strings.HasPrefix(code, "ar"):
		return "ar"
	case strings.HasPrefix(code, "ko"):
		return "ko"
	default:
		return "en"
	}
}
