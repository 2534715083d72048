package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ahrie-ai/backend/internal/apperr"
	"github.com/ahrie-ai/backend/internal/testhelpers"
)

func TestUserService_GetOrCreate(t *testing.T) {
	db := testhelpers.NewSQLiteDB(t)
	svc := NewUserService(db.Gorm)
	ctx := context.Background()

	user, err := svc.GetOrCreate(ctx, TelegramProfile{TelegramID: 42, Username: "amina", FirstName: "Amina", LanguageCode: "ar-SA"})
	require.NoError(t, err)
	assert.NotZero(t, user.ID)
	assert.Equal(t, "ar", user.LanguageCode)
	assert.True(t, user.IsActive)

	again, err := svc.GetOrCreate(ctx, TelegramProfile{TelegramID: 42, Username: "amina_k", FirstName: "Amina", LastName: "K", LanguageCode: "en"})
	require.NoError(t, err)
	assert.Equal(t, user.ID, again.ID)
	assert.Equal(t, "amina_k", again.Username)
	assert.Equal(t, "K", again.LastName)
	assert.Equal(t, "ar", again.LanguageCode, "stored language must win over the client language")

	var count int64
	db.Gorm.Table("users").Count(&count)
	assert.Equal(t, int64(1), count)
}

func TestUserService_GetOrCreateRequiresID(t *testing.T) {
	svc := NewUserService(testhelpers.NewSQLiteDB(t).Gorm)
	_, err := svc.GetOrCreate(context.Background(), TelegramProfile{})
	assert.True(t, apperr.Is(err, apperr.CodeInvalidArgument))
}

func TestUserService_UpdateLanguage(t *testing.T) {
	svc := NewUserService(testhelpers.NewSQLiteDB(t).Gorm)
	ctx := context.Background()

	_, err := svc.GetOrCreate(ctx, TelegramProfile{TelegramID: 7, FirstName: "Omar"})
	require.NoError(t, err)

	user, err := svc.UpdateLanguage(ctx, 7, "ko")
	require.NoError(t, err)
	assert.Equal(t, "ko", user.LanguageCode)

	_, err = svc.UpdateLanguage(ctx, 7, "fr")
	assert.True(t, apperr.Is(err, apperr.CodeInvalidArgument))

	_, err = svc.UpdateLanguage(ctx, 8, "en")
	assert.True(t, apperr.Is(err, apperr.CodeNotFound))
}

func TestUserService_GetMissing(t *testing.T) {
	svc := NewUserService(testhelpers.NewSQLiteDB(t).Gorm)
	_, err := svc.Get(context.Background(), 404)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestNormalizeLanguage(t *testing.T) {
	assert.Equal(t, "ar", normalizeLanguage("ar"))
	assert.Equal(t, "ko", normalizeLanguage("ko-KR"))
	assert.Equal(t, "en", normalizeLanguage(""))
	assert.Equal(t, "en", normalizeLanguage("de"))
}
