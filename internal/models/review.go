package models

import (
	"fmt"
	"time"
)

const (
	MinRating = 1
	MaxRating = 5
)

// Review is a patient review of a clinic and/or procedure.
type Review struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	UserID         uint      `gorm:"not null;index" json:"user_id"`
	ClinicID       *uint     `gorm:"index:idx_reviews_clinic_rating,priority:1" json:"clinic_id,omitempty"`
	ProcedureID    *uint     `gorm:"index:idx_reviews_procedure_rating,priority:1" json:"procedure_id,omitempty"`
	Rating         float64   `gorm:"type:numeric(2,1);not null;check:chk_reviews_rating,rating >= 1 AND rating <= 5;index:idx_reviews_clinic_rating,priority:2;index:idx_reviews_procedure_rating,priority:2" json:"rating"`
	Title          string    `gorm:"size:255" json:"title,omitempty"`
	Content        string    `gorm:"type:text" json:"content,omitempty"`
	Pros           string    `gorm:"type:text" json:"pros,omitempty"`
	Cons           string    `gorm:"type:text" json:"cons,omitempty"`
	YoutubeVideoID string    `gorm:"size:50" json:"youtube_video_id,omitempty"`
	YoutubeChannel string    `gorm:"size:255" json:"youtube_channel,omitempty"`
	Source         string    `gorm:"size:50;default:'direct'" json:"source"`
	Language       string    `gorm:"size:10;default:'en'" json:"language"`
	SentimentScore float64   `json:"sentiment_score"`
	HelpfulCount   int       `gorm:"default:0" json:"helpful_count"`
	Verified       bool      `gorm:"default:false" json:"verified"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`

	User      *User      `json:"-"`
	Clinic    *Clinic    `json:"-"`
	Procedure *Procedure `json:"-"`
}

// Validate checks the rating bounds before the database does.
func (r *Review) Validate() error {
	if r.Rating < MinRating || r.Rating > MaxRating {
		return fmt.Errorf("rating %.1f out of range %d-%d", r.Rating, MinRating, MaxRating)
	}
	if r.UserID == 0 {
		return fmt.Errorf("review requires a user")
	}
	return nil
}
