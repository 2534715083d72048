package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/ahrie-ai/backend/internal/apperr"
	"github.com/ahrie-ai/backend/internal/database"
	"github.com/ahrie-ai/backend/internal/logger"
	"github.com/ahrie-ai/backend/internal/metrics"
	"github.com/ahrie-ai/backend/internal/models"
)

const translationKeyPrefix = "translation:"

// TranslationService is a read-through translation cache: Redis in front of the translation_cache table.
type TranslationService struct {
	db         *gorm.DB
	redis      redis.Cmdable
	translator Translator
	ttl        time.Duration
	metrics    *metrics.Metrics
}

var _ ITranslationService = (*TranslationService)(nil)

// NewTranslationService creates a TranslationService. rdb and translator may be nil.
// ttl is the lifetime of Redis entries; database rows are purged separately.
func NewTranslationService(db *gorm.DB, rdb redis.Cmdable, translator Translator, ttl time.Duration) *TranslationService {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &TranslationService{db: db, redis: rdb, translator: translator, ttl: ttl}
}

// SetMetrics records cache hits, misses and translator failures on m.
func (s *TranslationService) SetMetrics(m *metrics.Metrics) {
	s.metrics = m
}

// SetTranslator replaces the miss handler.
func (s *TranslationService) SetTranslator(t Translator) {
	s.translator = t
}

// TranslationKey is the Redis key for a (text, src, tgt) tuple.
func TranslationKey(text, src, tgt string) string {
	sum := sha256.Sum256([]byte(src + "|" + tgt + "|" + text))
	return translationKeyPrefix + hex.EncodeToString(sum[:])
}

// Lookup returns a cached translation from Redis or, failing that, the database.
func (s *TranslationService) Lookup(ctx context.Context, text, src, tgt string) (string, bool, error) {
	log := logger.FromContext(ctx)
	key := TranslationKey(text, src, tgt)

	if s.redis != nil {
		val, err := s.redis.Get(ctx, key).Result()
		switch {
		case err == nil:
			return val, true, nil
		case !errors.Is(err, redis.Nil):
			log.Warn("translation cache read failed", "error", err)
		}
	}

	var row models.TranslationCache
	err := s.db.WithContext(ctx).
		Where("source_language = ? AND target_language = ? AND source_hash = ?", src, tgt, models.HashSource(text)).
		First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, database.Classify(err, "failed to read translation cache")
	}

	s.remember(ctx, key, row.TranslatedText)
	return row.TranslatedText, true, nil
}

// Store upserts a translation. Storing the same tuple again only replaces the translated text.
func (s *TranslationService) Store(ctx context.Context, text, src, tgt, translated, provider string) error {
	if text == "" || src == "" || tgt == "" {
		return apperr.New(apperr.CodeInvalidArgument, "text, source and target language are required")
	}
	if provider == "" {
		provider = "google"
	}

	row := models.TranslationCache{
		SourceText:         text,
		SourceHash:         models.HashSource(text),
		SourceLanguage:     src,
		TargetLanguage:     tgt,
		TranslatedText:     translated,
		TranslationService: provider,
	}
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{
			{Name: "source_language"},
			{Name: "target_language"},
			{Name: "source_hash"},
		},
		DoUpdates: clause.AssignmentColumns([]string{"translated_text", "translation_service"}),
	}).Create(&row).Error
	if err != nil {
		return database.Classify(err, "failed to store translation")
	}

	s.remember(ctx, TranslationKey(text, src, tgt), translated)
	return nil
}

// Translate returns text in tgt, consulting the cache before the translator.
func (s *TranslationService) Translate(ctx context.Context, text, src, tgt string) (string, error) {
	if strings.TrimSpace(text) == "" || src == tgt {
		return text, nil
	}

	cached, ok, err := s.Lookup(ctx, text, src, tgt)
	if err != nil {
		return "", err
	}
	if ok {
		s.metrics.ObserveTranslation("hit")
		return cached, nil
	}

	if s.translator == nil {
		s.metrics.ObserveTranslation("error")
		return "", apperr.New(apperr.CodeUpstreamUnavailable, "no translator configured")
	}
	translated, err := s.translator.Translate(ctx, text, src, tgt)
	if err != nil {
		s.metrics.ObserveTranslation("error")
		return "", err
	}
	s.metrics.ObserveTranslation("miss")

	if err := s.Store(ctx, text, src, tgt, translated, s.translator.Name()); err != nil {
		logger.FromContext(ctx).Warn("failed to cache translation", "error", err)
	}
	return translated, nil
}

// PurgeOlderThan deletes cached rows created more than age ago.
func (s *TranslationService) PurgeOlderThan(ctx context.Context, age time.Duration) (int64, error) {
	res := s.db.WithContext(ctx).
		Where("created_at < ?", time.Now().Add(-age)).
		Delete(&models.TranslationCache{})
	if res.Error != nil {
		return 0, database.Classify(res.Error, "failed to purge translation cache")
	}
	return res.RowsAffected, nil
}

func (s *TranslationService) remember(ctx context.Context, key, value string) {
	if s.redis == nil {
		return
	}
	if err := s.redis.Set(ctx, key, value, s.ttl).Err(); err != nil {
		logger.FromContext(ctx).Warn("translation cache write failed", "error", err)
	}
}
