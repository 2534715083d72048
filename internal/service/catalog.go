package service

import (
	"context"
	"math"
	"strings"

	"gorm.io/gorm"

	"github.com/ahrie-ai/backend/internal/apperr"
	"github.com/ahrie-ai/backend/internal/database"
	"github.com/ahrie-ai/backend/internal/models"
)

const defaultListLimit = 5

// ClinicFilter narrows FindClinics. Zero values do not filter.
type ClinicFilter struct {
	Specialty     string
	District      string
	HalalFriendly bool
	FemaleStaff   bool
	ArabicSupport bool
	Limit         int
}

// HalalFilter narrows HalalPlaces. Zero values do not filter.
type HalalFilter struct {
	Type     string
	District string
	Limit    int
}

// CatalogService serves clinics, procedures, reviews and halal places
type CatalogService struct {
	db *gorm.DB
}

var _ ICatalogService = (*CatalogService)(nil)

// NewCatalogService creates a new CatalogService instance
func NewCatalogService(db *gorm.DB) *CatalogService {
	return &CatalogService{db: db}
}

// ListProcedures returns every procedure grouped by category.
func (s *CatalogService) ListProcedures(ctx context.Context) ([]models.Procedure, error) {
	var procs []models.Procedure
	if err := s.db.WithContext(ctx).Order("category, name").Find(&procs).Error; err != nil {
		return nil, database.Classify(err, "failed to list procedures")
	}
	return procs, nil
}

// GetProcedure finds a procedure by its name in any supported language.
func (s *CatalogService) GetProcedure(ctx context.Context, name string) (*models.Procedure, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, apperr.New(apperr.CodeInvalidArgument, "procedure name is required")
	}
	var proc models.Procedure
	err := s.db.WithContext(ctx).
		Where("LOWER(name) = ? OR name_ar = ? OR name_ko = ?", strings.ToLower(name), name, name).
		First(&proc).Error
	if err != nil {
		return nil, database.Classify(err, "procedure not found")
	}
	return &proc, nil
}

// SearchProcedures matches query against names, category and description.
func (s *CatalogService) SearchProcedures(ctx context.Context, query string) ([]models.Procedure, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return s.ListProcedures(ctx)
	}
	pattern := "%" + strings.ToLower(query) + "%"
	raw := "%" + query + "%"

	var procs []models.Procedure
	err := s.db.WithContext(ctx).
		Where("LOWER(name) LIKE ? OR LOWER(category) LIKE ? OR LOWER(description) LIKE ? OR name_ar LIKE ? OR name_ko LIKE ?",
			pattern, pattern, pattern, raw, raw).
		Order("name").
		Find(&procs).Error
	if err != nil {
		return nil, database.Classify(err, "failed to search procedures")
	}
	return procs, nil
}

// FindClinics returns active clinics matching filter, best rated first.
func (s *CatalogService) FindClinics(ctx context.Context, filter ClinicFilter) ([]models.Clinic, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}

	q := s.db.WithContext(ctx).Where("is_active = ?", true)
	if filter.District != "" {
		q = q.Where("LOWER(district) = ?", strings.ToLower(filter.District))
	}
	if filter.HalalFriendly {
		q = q.Where("halal_friendly = ?", true)
	}
	if filter.FemaleStaff {
		q = q.Where("female_staff_available = ?", true)
	}
	if filter.ArabicSupport {
		q = q.Where("arabic_support = ?", true)
	}

	var clinics []models.Clinic
	if err := q.Order("rating DESC, review_count DESC, id").Find(&clinics).Error; err != nil {
		return nil, database.Classify(err, "failed to find clinics")
	}

	// Specialties is a JSON array and is matched in memory.
	out := make([]models.Clinic, 0, limit)
	for _, c := range clinics {
		if filter.Specialty != "" && !c.Specialties.Contains(filter.Specialty) {
			continue
		}
		out = append(out, c)
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

// GetClinic loads a clinic with the procedures it offers.
func (s *CatalogService) GetClinic(ctx context.Context, id uint) (*models.Clinic, error) {
	var clinic models.Clinic
	err := s.db.WithContext(ctx).
		Preload("Procedures", "is_available = ?", true).
		Preload("Procedures.Procedure").
		First(&clinic, id).Error
	if err != nil {
		return nil, database.Classify(err, "clinic not found")
	}
	return &clinic, nil
}

// HalalPlaces lists halal places, best rated first.
func (s *CatalogService) HalalPlaces(ctx context.Context, filter HalalFilter) ([]models.HalalPlace, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}

	q := s.db.WithContext(ctx)
	if filter.Type != "" {
		switch filter.Type {
		case models.PlaceRestaurant, models.PlaceMarket, models.PlaceMosque, models.PlacePrayerRoom:
		default:
			return nil, apperr.New(apperr.CodeInvalidArgument, "unknown place type: "+filter.Type)
		}
		q = q.Where("type = ?", filter.Type)
	}
	if filter.District != "" {
		q = q.Where("LOWER(district) = ?", strings.ToLower(filter.District))
	}

	var places []models.HalalPlace
	if err := q.Order("rating DESC, id").Limit(limit).Find(&places).Error; err != nil {
		return nil, database.Classify(err, "failed to list halal places")
	}
	return places, nil
}

// ReviewsFor returns the most helpful reviews for a clinic and/or procedure. A zero id does not filter.
func (s *CatalogService) ReviewsFor(ctx context.Context, clinicID, procedureID uint, limit int) ([]models.Review, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	q := s.db.WithContext(ctx)
	if clinicID != 0 {
		q = q.Where("clinic_id = ?", clinicID)
	}
	if procedureID != 0 {
		q = q.Where("procedure_id = ?", procedureID)
	}

	var reviews []models.Review
	if err := q.Order("helpful_count DESC, created_at DESC").Limit(limit).Find(&reviews).Error; err != nil {
		return nil, database.Classify(err, "failed to load reviews")
	}
	return reviews, nil
}

// AddReview validates and stores a review, refreshing the clinic's rating aggregate.
func (s *CatalogService) AddReview(ctx context.Context, review *models.Review) error {
	if err := review.Validate(); err != nil {
		return apperr.Wrap(err, apperr.CodeInvalidArgument, "invalid review")
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(review).Error; err != nil {
			return err
		}
		if review.ClinicID == nil {
			return nil
		}

		var agg struct {
			Avg   float64
			Count int
		}
		if err := tx.Model(&models.Review{}).
			Select("COALESCE(AVG(rating), 0) AS avg, COUNT(*) AS count").
			Where("clinic_id = ?", *review.ClinicID).
			Scan(&agg).Error; err != nil {
			return err
		}
		return tx.Model(&models.Clinic{}).Where("id = ?", *review.ClinicID).Updates(map[string]any{
			"rating":       math.Round(agg.Avg*10) / 10,
			"review_count": agg.Count,
		}).Error
	})
	if err != nil {
		return database.Classify(err, "failed to add review")
	}
	return nil
}
