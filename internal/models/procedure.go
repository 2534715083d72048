package models

import "time"

// Procedure is a cosmetic procedure offered by clinics.
type Procedure struct {
	ID               uint       `gorm:"primaryKey" json:"id"`
	Name             string     `gorm:"size:255;not null;uniqueIndex" json:"name"`
	NameAr           string     `gorm:"size:255" json:"name_ar,omitempty"`
	NameKo           string     `gorm:"size:255" json:"name_ko,omitempty"`
	Category         string     `gorm:"size:100;index" json:"category,omitempty"`
	Description      string     `gorm:"type:text" json:"description,omitempty"`
	DescriptionAr    string     `gorm:"type:text" json:"description_ar,omitempty"`
	DescriptionKo    string     `gorm:"type:text" json:"description_ko,omitempty"`
	DurationMin      int        `json:"duration_min,omitempty"`
	DurationMax      int        `json:"duration_max,omitempty"`
	RecoveryDaysMin  int        `json:"recovery_days_min,omitempty"`
	RecoveryDaysMax  int        `json:"recovery_days_max,omitempty"`
	AnesthesiaType   string     `gorm:"size:100" json:"anesthesia_type,omitempty"`
	PriceRangeMin    float64    `json:"price_range_min,omitempty"`
	PriceRangeMax    float64    `json:"price_range_max,omitempty"`
	Risks            StringList `gorm:"type:jsonb" json:"risks"`
	Benefits         StringList `gorm:"type:jsonb" json:"benefits"`
	PreparationSteps StringList `gorm:"type:jsonb" json:"preparation_steps"`
	AftercareSteps   StringList `gorm:"type:jsonb" json:"aftercare_steps"`
	Images           StringList `gorm:"type:jsonb" json:"images"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`

	Clinics []ClinicProcedure `gorm:"constraint:OnDelete:CASCADE" json:"-"`
	Reviews []Review          `gorm:"constraint:OnDelete:CASCADE" json:"-"`
}

// LocalizedName returns the procedure name in lang, falling back to English.
func (p *Procedure) LocalizedName(lang string) string {
	return pick(lang, p.Name, p.NameAr, p.NameKo)
}

// LocalizedDescription returns the description in lang, falling back to English.
func (p *Procedure) LocalizedDescription(lang string) string {
	return pick(lang, p.Description, p.DescriptionAr, p.DescriptionKo)
}
