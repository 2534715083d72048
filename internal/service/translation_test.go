package service

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ahrie-ai/backend/internal/apperr"
	"github.com/ahrie-ai/backend/internal/metrics"
	"github.com/ahrie-ai/backend/internal/models"
	"github.com/ahrie-ai/backend/internal/testhelpers"
)

type fakeTranslator struct {
	calls int
	err   error
}

func (f *fakeTranslator) Translate(_ context.Context, text, _, tgt string) (string, error) {
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	return "[" + tgt + "] " + text, nil
}

func (f *fakeTranslator) Name() string { return "fake" }

func TestTranslationService_Translate(t *testing.T) {
	db := testhelpers.NewSQLiteDB(t)
	mr, rdb := testhelpers.NewRedis(t)
	tr := &fakeTranslator{}
	svc := NewTranslationService(db.Gorm, rdb, tr, time.Hour)
	m := metrics.New()
	svc.SetMetrics(m)
	ctx := context.Background()

	out, err := svc.Translate(ctx, "Hello", "en", "en")
	require.NoError(t, err)
	assert.Equal(t, "Hello", out)
	assert.Zero(t, tr.calls)

	out, err = svc.Translate(ctx, "Hello", "en", "ar")
	require.NoError(t, err)
	assert.Equal(t, "[ar] Hello", out)
	assert.Equal(t, 1, tr.calls)
	assert.True(t, mr.Exists(TranslationKey("Hello", "en", "ar")))

	out, err = svc.Translate(ctx, "Hello", "en", "ar")
	require.NoError(t, err)
	assert.Equal(t, "[ar] Hello", out)
	assert.Equal(t, 1, tr.calls, "second call is served from cache")

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Contains(t, rec.Body.String(), `ahrie_translations_total{result="hit"} 1`)
	assert.Contains(t, rec.Body.String(), `ahrie_translations_total{result="miss"} 1`)
}

func TestTranslationService_RedisEntriesUseTTL(t *testing.T) {
	db := testhelpers.NewSQLiteDB(t)
	mr, rdb := testhelpers.NewRedis(t)
	svc := NewTranslationService(db.Gorm, rdb, &fakeTranslator{}, 15*time.Minute)
	ctx := context.Background()

	_, err := svc.Translate(ctx, "Hello", "en", "ko")
	require.NoError(t, err)
	key := TranslationKey("Hello", "en", "ko")
	assert.Equal(t, 15*time.Minute, mr.TTL(key))

	// A database hit back-fills Redis with the same lifetime.
	mr.Del(key)
	got, ok, err := svc.Lookup(ctx, "Hello", "en", "ko")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "[ko] Hello", got)
	assert.Equal(t, 15*time.Minute, mr.TTL(key))
}

func TestTranslationService_LookupIsIdempotent(t *testing.T) {
	db := testhelpers.NewSQLiteDB(t)
	mr, rdb := testhelpers.NewRedis(t)
	svc := NewTranslationService(db.Gorm, rdb, nil, time.Hour)
	ctx := context.Background()

	require.NoError(t, svc.Store(ctx, "Where is the clinic?", "en", "ko", "병원은 어디에 있나요?", "model"))
	mr.FlushAll()

	for i := 0; i < 3; i++ {
		got, ok, err := svc.Lookup(ctx, "Where is the clinic?", "en", "ko")
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, "병원은 어디에 있나요?", got)
	}
	assert.True(t, mr.Exists(TranslationKey("Where is the clinic?", "en", "ko")), "database hit back-fills redis")

	_, ok, err := svc.Lookup(ctx, "Where is the clinic?", "en", "ar")
	require.NoError(t, err)
	assert.False(t, ok)

	var rows int64
	db.Gorm.Model(&models.TranslationCache{}).Count(&rows)
	assert.Equal(t, int64(1), rows)
}

func TestTranslationService_StoreUpserts(t *testing.T) {
	db := testhelpers.NewSQLiteDB(t)
	svc := NewTranslationService(db.Gorm, nil, nil, time.Hour)
	ctx := context.Background()

	require.NoError(t, svc.Store(ctx, "Thank you", "en", "ar", "شكرا", "model"))
	require.NoError(t, svc.Store(ctx, "Thank you", "en", "ar", "شكراً لك", "model"))

	var rows []models.TranslationCache
	require.NoError(t, db.Gorm.Find(&rows).Error)
	require.Len(t, rows, 1)
	assert.Equal(t, "شكراً لك", rows[0].TranslatedText)

	err := svc.Store(ctx, "", "en", "ar", "x", "")
	assert.True(t, apperr.Is(err, apperr.CodeInvalidArgument))
}

func TestTranslationService_RedisDownFallsBackToDatabase(t *testing.T) {
	db := testhelpers.NewSQLiteDB(t)
	mr, rdb := testhelpers.NewRedis(t)
	svc := NewTranslationService(db.Gorm, rdb, nil, time.Hour)
	ctx := context.Background()

	require.NoError(t, svc.Store(ctx, "Halal food", "en", "ar", "طعام حلال", "model"))
	mr.Close()

	got, ok, err := svc.Lookup(ctx, "Halal food", "en", "ar")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "طعام حلال", got)
}

func TestTranslationService_TranslatorErrors(t *testing.T) {
	db := testhelpers.NewSQLiteDB(t)
	ctx := context.Background()

	_, err := NewTranslationService(db.Gorm, nil, nil, time.Hour).Translate(ctx, "Hi", "en", "ar")
	assert.True(t, apperr.Is(err, apperr.CodeUpstreamUnavailable))

	failing := &fakeTranslator{err: errors.New("model down")}
	_, err = NewTranslationService(db.Gorm, nil, failing, time.Hour).Translate(ctx, "Hi", "en", "ar")
	assert.EqualError(t, err, "model down")
}

func TestTranslationService_PurgeOlderThan(t *testing.T) {
	db := testhelpers.NewSQLiteDB(t)
	svc := NewTranslationService(db.Gorm, nil, nil, time.Hour)
	ctx := context.Background()

	require.NoError(t, svc.Store(ctx, "old", "en", "ar", "قديم", "model"))
	require.NoError(t, svc.Store(ctx, "new", "en", "ar", "جديد", "model"))
	require.NoError(t, db.Gorm.Model(&models.TranslationCache{}).
		Where("source_text = ?", "old").
		UpdateColumn("created_at", time.Now().Add(-48*time.Hour)).Error)

	purged, err := svc.PurgeOlderThan(ctx, 24*time.Hour)
	require.NoError(t, err)
	assert.Equal(t, int64(1), purged)
}
