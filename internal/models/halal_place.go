package models

import "time"

const (
	PlaceRestaurant = "restaurant"
	PlaceMarket     = "market"
	PlaceMosque     = "mosque"
	PlacePrayerRoom = "prayer_room"
)

// HalalPlace is a halal restaurant, market, mosque or prayer room.
type HalalPlace struct {
	ID                  uint      `gorm:"primaryKey" json:"id"`
	Name                string    `gorm:"size:255;not null" json:"name"`
	NameAr              string    `gorm:"size:255" json:"name_ar,omitempty"`
	Type                string    `gorm:"size:50;not null;index;check:chk_halal_places_type,type IN ('restaurant','market','mosque','prayer_room')" json:"type"`
	Cuisine             string    `gorm:"size:100" json:"cuisine,omitempty"`
	Certification       string    `gorm:"size:100" json:"certification,omitempty"`
	Address             string    `gorm:"type:text" json:"address,omitempty"`
	District            string    `gorm:"size:100;index" json:"district,omitempty"`
	Phone               string    `gorm:"size:50" json:"phone,omitempty"`
	OperatingHours      JSONMap   `gorm:"type:jsonb" json:"operating_hours"`
	DeliveryAvailable   bool      `gorm:"default:false" json:"delivery_available"`
	Latitude            float64   `json:"latitude,omitempty"`
	Longitude           float64   `json:"longitude,omitempty"`
	DistanceFromGangnam float64   `json:"distance_from_gangnam,omitempty"`
	Rating              float64   `gorm:"type:numeric(2,1)" json:"rating"`
	PriceRange          string    `gorm:"size:50" json:"price_range,omitempty"`
	CreatedAt           time.Time `json:"created_at"`
}

// LocalizedName returns the Arabic name for ar when present.
func (h *HalalPlace) LocalizedName(lang string) string {
	return pick(lang, h.Name, h.NameAr, "")
}
