package scheduler

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ahrie-ai/backend/internal/metrics"
	"github.com/ahrie-ai/backend/internal/models"
	"github.com/ahrie-ai/backend/internal/service"
	"github.com/ahrie-ai/backend/internal/testhelpers"
)

func exposition(m *metrics.Metrics) string {
	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	return rec.Body.String()
}

func TestScheduler_AddAndRun(t *testing.T) {
	m := metrics.New()
	s := New(m, time.Second)

	calls := 0
	require.NoError(t, s.Add("ok", "@every 1h", func(context.Context) error { calls++; return nil }))
	require.NoError(t, s.Add("bad", "@every 1h", func(context.Context) error { return errors.New("boom") }))

	require.Error(t, s.Add("ok", "@every 1h", func(context.Context) error { return nil }))
	require.Error(t, s.Add("invalid", "every other tuesday", func(context.Context) error { return nil }))

	require.NoError(t, s.Run(context.Background(), "ok"))
	assert.EqualError(t, s.Run(context.Background(), "bad"), "boom")
	assert.Error(t, s.Run(context.Background(), "missing"))
	assert.Equal(t, 1, calls)

	out := exposition(m)
	assert.Contains(t, out, `ahrie_scheduled_job_runs_total{job="ok",outcome="success"} 1`)
	assert.Contains(t, out, `ahrie_scheduled_job_runs_total{job="bad",outcome="error"} 1`)
}

func TestScheduler_RunHasDeadline(t *testing.T) {
	s := New(nil, 50*time.Millisecond)
	require.NoError(t, s.Add("slow", "@every 1h", func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	}))
	assert.ErrorIs(t, s.Run(context.Background(), "slow"), context.DeadlineExceeded)
}

func TestScheduler_StartStop(t *testing.T) {
	s := New(nil, time.Second)
	s.Start()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	assert.NoError(t, s.Stop(ctx))
}

func TestRegisterMaintenance(t *testing.T) {
	db := testhelpers.NewSQLiteDB(t)
	ctx := context.Background()

	translations := service.NewTranslationService(db.Gorm, nil, nil, time.Hour)
	require.NoError(t, translations.Store(ctx, "hello", "en", "ar", "مرحبا", "llm"))
	old := time.Now().Add(-48 * time.Hour)
	require.NoError(t, db.Gorm.Model(&models.TranslationCache{}).Where("1 = 1").Update("created_at", old).Error)

	users := service.NewUserService(db.Gorm)
	user, err := users.GetOrCreate(ctx, service.TelegramProfile{TelegramID: 1, FirstName: "A"})
	require.NoError(t, err)
	conversations := service.NewConversationService(db.Gorm)
	conv, err := conversations.GetOrCreateActive(ctx, user.ID, 1)
	require.NoError(t, err)
	require.NoError(t, db.Gorm.Model(&models.Conversation{}).Where("id = ?", conv.ID).
		UpdateColumn("updated_at", time.Now().Add(-2*time.Hour)).Error)

	s := New(nil, time.Second)
	require.NoError(t, RegisterMaintenance(s, translations, conversations, 24*time.Hour, time.Hour))

	require.NoError(t, s.Run(ctx, JobPurgeTranslations))
	_, found, err := translations.Lookup(ctx, "hello", "en", "ar")
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, s.Run(ctx, JobCloseIdle))
	var reloaded models.Conversation
	require.NoError(t, db.Gorm.First(&reloaded, conv.ID).Error)
	assert.Equal(t, models.ConversationClosed, reloaded.Status)
}
