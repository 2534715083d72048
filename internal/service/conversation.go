package service

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/ahrie-ai/backend/internal/apperr"
	"github.com/ahrie-ai/backend/internal/database"
	"github.com/ahrie-ai/backend/internal/models"
)

// ConversationService handles conversations and their messages
type ConversationService struct {
	db *gorm.DB
}

var _ IConversationService = (*ConversationService)(nil)

// NewConversationService creates a new ConversationService instance
func NewConversationService(db *gorm.DB) *ConversationService {
	return &ConversationService{db: db}
}

// GetOrCreateActive returns the newest active conversation for the chat, opening one when none exists.
func (s *ConversationService) GetOrCreateActive(ctx context.Context, userID uint, chatID int64) (*models.Conversation, error) {
	var conv models.Conversation
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND chat_id = ? AND status = ?", userID, chatID, models.ConversationActive).
		Order("id DESC").
		First(&conv).Error
	if err == nil {
		return &conv, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, database.Classify(err, "failed to load conversation")
	}

	conv = models.Conversation{
		UserID:  userID,
		ChatID:  chatID,
		Status:  models.ConversationActive,
		Context: models.JSONMap{},
	}
	if err := s.db.WithContext(ctx).Create(&conv).Error; err != nil {
		return nil, database.Classify(err, "failed to create conversation")
	}
	return &conv, nil
}

// AppendMessage stores one turn and marks the conversation as recently active.
func (s *ConversationService) AppendMessage(ctx context.Context, conversationID uint, role, content string, metadata map[string]any, tokens int) (*models.Message, error) {
	switch role {
	case models.RoleUser, models.RoleAssistant, models.RoleSystem:
	default:
		return nil, apperr.New(apperr.CodeInvalidArgument, "unknown message role: "+role)
	}
	if metadata == nil {
		metadata = map[string]any{}
	}

	msg := models.Message{
		ConversationID: conversationID,
		Role:           role,
		Content:        content,
		Metadata:       models.JSONMap(metadata),
		TokensUsed:     tokens,
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&msg).Error; err != nil {
			return err
		}
		return tx.Model(&models.Conversation{}).
			Where("id = ?", conversationID).
			Update("updated_at", time.Now()).Error
	})
	if err != nil {
		return nil, database.Classify(err, "failed to store message")
	}
	return &msg, nil
}

// RecentMessages returns up to n of the latest messages, oldest first.
func (s *ConversationService) RecentMessages(ctx context.Context, conversationID uint, n int) ([]models.Message, error) {
	if n <= 0 {
		n = 10
	}
	var msgs []models.Message
	err := s.db.WithContext(ctx).
		Where("conversation_id = ?", conversationID).
		Order("created_at DESC, id DESC").
		Limit(n).
		Find(&msgs).Error
	if err != nil {
		return nil, database.Classify(err, "failed to load messages")
	}
	for i, j := 0, len(msgs)-1; i < j; i, j = i+1, j-1 {
		msgs[i], msgs[j] = msgs[j], msgs[i]
	}
	return msgs, nil
}

// Close marks a conversation as closed.
func (s *ConversationService) Close(ctx context.Context, id uint) error {
	res := s.db.WithContext(ctx).Model(&models.Conversation{}).
		Where("id = ?", id).
		Update("status", models.ConversationClosed)
	if res.Error != nil {
		return database.Classify(res.Error, "failed to close conversation")
	}
	if res.RowsAffected == 0 {
		return apperr.New(apperr.CodeNotFound, "conversation not found")
	}
	return nil
}

// CloseIdle closes active conversations not updated within idle.
func (s *ConversationService) CloseIdle(ctx context.Context, idle time.Duration) (int64, error) {
	res := s.db.WithContext(ctx).Model(&models.Conversation{}).
		Where("status = ? AND updated_at < ?", models.ConversationActive, time.Now().Add(-idle)).
		Update("status", models.ConversationClosed)
	if res.Error != nil {
		return 0, database.Classify(res.Error, "failed to close idle conversations")
	}
	return res.RowsAffected, nil
}
