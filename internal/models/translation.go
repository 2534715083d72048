package models

import (
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// TranslationCache stores a translated string keyed by (source text, source language, target language).
// SourceHash stands in for the text in the unique index so long texts stay indexable.
type TranslationCache struct {
	ID                 uint      `gorm:"primaryKey" json:"id"`
	SourceText         string    `gorm:"type:text;not null" json:"source_text"`
	SourceHash         string    `gorm:"size:64;not null;uniqueIndex:ux_translation_cache_key,priority:3" json:"-"`
	SourceLanguage     string    `gorm:"size:10;not null;uniqueIndex:ux_translation_cache_key,priority:1" json:"source_language"`
	TargetLanguage     string    `gorm:"size:10;not null;uniqueIndex:ux_translation_cache_key,priority:2" json:"target_language"`
	TranslatedText     string    `gorm:"type:text;not null" json:"translated_text"`
	TranslationService string    `gorm:"size:50;default:'google'" json:"translation_service"`
	CreatedAt          time.Time `gorm:"index" json:"created_at"`
}

// TableName keeps the singular table name.
func (TranslationCache) TableName() string { return "translation_cache" }

// HashSource returns the hex sha256 of text.
func HashSource(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}

// All lists every model in dependency order for auto-migration.
func All() []any {
	return []any{
		&User{},
		&Conversation{},
		&Message{},
		&Clinic{},
		&Procedure{},
		&ClinicProcedure{},
		&Review{},
		&HalalPlace{},
		&TranslationCache{},
	}
}
