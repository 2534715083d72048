package testhelpers

import (
	"testing"

	"gorm.io/gorm"

	"github.com/ahrie-ai/backend/internal/models"
)

// Catalog is the seeded reference data returned by SeedCatalog.
type Catalog struct {
	Rhinoplasty  *models.Procedure
	DoubleEyelid *models.Procedure
	Gangnam      *models.Clinic
	Myeongdong   *models.Clinic
	Restaurant   *models.HalalPlace
	Mosque       *models.HalalPlace
}

// SeedCatalog inserts a small set of procedures, clinics and halal places.
func SeedCatalog(t *testing.T, db *gorm.DB) *Catalog {
	t.Helper()

	c := &Catalog{
		Rhinoplasty: &models.Procedure{
			Name:            "Rhinoplasty",
			NameAr:          "تجميل الأنف",
			NameKo:          "코성형",
			Category:        "face",
			Description:     "Reshaping of the nose.",
			DurationMin:     60,
			DurationMax:     120,
			RecoveryDaysMin: 7,
			RecoveryDaysMax: 14,
			PriceRangeMin:   3000,
			PriceRangeMax:   8000,
			Risks:           models.StringList{"swelling", "bruising"},
		},
		DoubleEyelid: &models.Procedure{
			Name:          "Double Eyelid Surgery",
			NameAr:        "عملية الجفن المزدوج",
			Category:      "eye",
			Description:   "Creates an upper eyelid crease.",
			PriceRangeMin: 1500,
			PriceRangeMax: 3000,
		},
		Gangnam: &models.Clinic{
			Name:                 "Gangnam Beauty Clinic",
			NameAr:               "عيادة جانجنام للتجميل",
			District:             "Gangnam",
			Specialties:          models.StringList{"Rhinoplasty", "Double Eyelid Surgery"},
			LanguagesSupported:   models.StringList{"en", "ar"},
			HalalFriendly:        true,
			ArabicSupport:        true,
			FemaleStaffAvailable: true,
			Rating:               4.8,
			Images:               models.StringList{"clinics/gangnam/front.jpg"},
		},
		Myeongdong: &models.Clinic{
			Name:        "Myeongdong Plastic Surgery",
			District:    "Jung",
			Specialties: models.StringList{"Rhinoplasty"},
			Rating:      4.2,
		},
		Restaurant: &models.HalalPlace{
			Name:     "Eid Halal Restaurant",
			NameAr:   "مطعم العيد الحلال",
			Type:     models.PlaceRestaurant,
			Cuisine:  "Korean",
			District: "Itaewon",
			Rating:   4.5,
		},
		Mosque: &models.HalalPlace{
			Name:     "Seoul Central Mosque",
			Type:     models.PlaceMosque,
			District: "Itaewon",
			Rating:   4.9,
		},
	}

	for _, v := range []any{c.Rhinoplasty, c.DoubleEyelid, c.Gangnam, c.Myeongdong, c.Restaurant, c.Mosque} {
		if err := db.Create(v).Error; err != nil {
			t.Fatalf("failed to seed %T: %v", v, err)
		}
	}
	links := []models.ClinicProcedure{
		{ClinicID: c.Gangnam.ID, ProcedureID: c.Rhinoplasty.ID, PriceMin: 4000, PriceMax: 7000, IsAvailable: true},
		{ClinicID: c.Gangnam.ID, ProcedureID: c.DoubleEyelid.ID, PriceMin: 1500, PriceMax: 2500, IsAvailable: true},
		{ClinicID: c.Myeongdong.ID, ProcedureID: c.Rhinoplasty.ID, PriceMin: 3000, PriceMax: 6000, IsAvailable: true},
	}
	if err := db.Create(&links).Error; err != nil {
		t.Fatalf("failed to seed clinic procedures: %v", err)
	}
	return c
}
