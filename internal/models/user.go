package models

import "time"

// User is a Telegram account that has talked to the bot.
type User struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	TelegramID   int64     `gorm:"uniqueIndex;not null" json:"telegram_id"`
	Username     string    `gorm:"size:255" json:"username,omitempty"`
	FirstName    string    `gorm:"size:255" json:"first_name,omitempty"`
	LastName     string    `gorm:"size:255" json:"last_name,omitempty"`
	LanguageCode string    `gorm:"size:10;not null;default:'en'" json:"language_code"`
	PhoneNumber  string    `gorm:"size:50" json:"phone_number,omitempty"`
	Email        string    `gorm:"size:255" json:"email,omitempty"`
	Country      string    `gorm:"size:100" json:"country,omitempty"`
	IsActive     bool      `gorm:"not null;default:true" json:"is_active"`
	Preferences  JSONMap   `gorm:"type:jsonb" json:"preferences"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`

	Conversations []Conversation `gorm:"constraint:OnDelete:CASCADE" json:"-"`
	Reviews       []Review       `gorm:"constraint:OnDelete:CASCADE" json:"-"`
}

// DisplayName is the name used to greet the user.
func (u *User) DisplayName() string {
	switch {
	case u.FirstName != "":
		return u.FirstName
	case u.Username != "":
		return u.Username
	default:
		return "there"
	}
}
