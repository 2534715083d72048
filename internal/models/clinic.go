package models

import (
	"strings"
	"time"
)

// Clinic is a cosmetic surgery clinic in Korea.
type Clinic struct {
	ID                   uint       `gorm:"primaryKey" json:"id"`
	Name                 string     `gorm:"size:255;not null" json:"name"`
	NameAr               string     `gorm:"size:255" json:"name_ar,omitempty"`
	NameKo               string     `gorm:"size:255" json:"name_ko,omitempty"`
	Description          string     `gorm:"type:text" json:"description,omitempty"`
	DescriptionAr        string     `gorm:"type:text" json:"description_ar,omitempty"`
	DescriptionKo        string     `gorm:"type:text" json:"description_ko,omitempty"`
	Address              string     `gorm:"type:text" json:"address,omitempty"`
	District             string     `gorm:"size:100;index" json:"district,omitempty"`
	City                 string     `gorm:"size:100;default:'Seoul'" json:"city"`
	Phone                string     `gorm:"size:50" json:"phone,omitempty"`
	Email                string     `gorm:"size:255" json:"email,omitempty"`
	Website              string     `gorm:"size:255" json:"website,omitempty"`
	Specialties          StringList `gorm:"type:jsonb" json:"specialties"`
	Certifications       StringList `gorm:"type:jsonb" json:"certifications"`
	LanguagesSupported   StringList `gorm:"type:jsonb" json:"languages_supported"`
	HalalFriendly        bool       `gorm:"default:false" json:"halal_friendly"`
	ArabicSupport        bool       `gorm:"default:false" json:"arabic_support"`
	FemaleStaffAvailable bool       `gorm:"default:false" json:"female_staff_available"`
	Rating               float64    `gorm:"type:numeric(2,1);check:chk_clinics_rating,rating >= 0 AND rating <= 5" json:"rating"`
	ReviewCount          int        `gorm:"default:0" json:"review_count"`
	PriceRange           string     `gorm:"size:50" json:"price_range,omitempty"`
	OperatingHours       JSONMap    `gorm:"type:jsonb" json:"operating_hours"`
	Images               StringList `gorm:"type:jsonb" json:"images"`
	Latitude             float64    `json:"latitude,omitempty"`
	Longitude            float64    `json:"longitude,omitempty"`
	IsActive             bool       `gorm:"not null;default:true" json:"is_active"`
	CreatedAt            time.Time  `json:"created_at"`
	UpdatedAt            time.Time  `json:"updated_at"`

	Procedures []ClinicProcedure `gorm:"constraint:OnDelete:CASCADE" json:"-"`
	Reviews    []Review          `gorm:"constraint:OnDelete:CASCADE" json:"-"`
}

// LocalizedName returns the clinic name in lang, falling back to English.
func (c *Clinic) LocalizedName(lang string) string {
	return pick(lang, c.Name, c.NameAr, c.NameKo)
}

// LocalizedDescription returns the description in lang, falling back to English.
func (c *Clinic) LocalizedDescription(lang string) string {
	return pick(lang, c.Description, c.DescriptionAr, c.DescriptionKo)
}

// ClinicProcedure links a clinic to a procedure it offers.
type ClinicProcedure struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	ClinicID     uint      `gorm:"not null;uniqueIndex:ux_clinic_procedure,priority:1" json:"clinic_id"`
	ProcedureID  uint      `gorm:"not null;uniqueIndex:ux_clinic_procedure,priority:2" json:"procedure_id"`
	PriceMin     float64   `json:"price_min,omitempty"`
	PriceMax     float64   `json:"price_max,omitempty"`
	SpecialNotes string    `gorm:"type:text" json:"special_notes,omitempty"`
	IsAvailable  bool      `gorm:"not null;default:true" json:"is_available"`
	CreatedAt    time.Time `json:"created_at"`

	Clinic    *Clinic    `json:"-"`
	Procedure *Procedure `json:"-"`
}

func pick(lang, en, ar, ko string) string {
	switch strings.ToLower(lang) {
	case "ar":
		if ar != "" {
			return ar
		}
	case "ko":
		if ko != "" {
			return ko
		}
	}
	return en
}

func equalFold(a, b string) bool {
	return strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
}
