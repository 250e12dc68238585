package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/gatehouse-dev/gatehouse/internal/models"
	"github.com/gatehouse-dev/gatehouse/internal/registration"
)

// ProfileRepository persists registration profiles.
type ProfileRepository struct {
	db *gorm.DB
}

// Create inserts a new profile.
func (r *ProfileRepository) Create(ctx context.Context, profile *models.RegistrationProfile) error {
	return r.db.WithContext(ctx).Create(profile).Error
}

// GetByID fetches a profile with its account by primary key.
func (r *ProfileRepository) GetByID(ctx context.Context, id string) (*models.RegistrationProfile, error) {
	var profile models.RegistrationProfile
	err := r.db.WithContext(ctx).Preload("Account").First(&profile, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &profile, nil
}

// GetAcceptedByKey fetches the accepted profile holding the activation key.
// Profiles in any other status never match, whatever key they may hold.
func (r *ProfileRepository) GetAcceptedByKey(ctx context.Context, key string) (*models.RegistrationProfile, error) {
	var profile models.RegistrationProfile
	err := r.db.WithContext(ctx).
		Preload("Account").
		Where("status = ? AND activation_key = ?", registration.StatusAccepted, key).
		First(&profile).Error
	if err != nil {
		return nil, err
	}
	return &profile, nil
}

// ListByStatus returns all profiles holding the given stored status, oldest
// first, with accounts preloaded.
func (r *ProfileRepository) ListByStatus(ctx context.Context, status registration.Status) ([]models.RegistrationProfile, error) {
	var profiles []models.RegistrationProfile
	err := r.db.WithContext(ctx).
		Preload("Account").
		Where("status = ?", status).
		Order("created_at ASC").
		Find(&profiles).Error
	if err != nil {
		return nil, err
	}
	return profiles, nil
}

// List returns every profile, oldest first, with accounts preloaded.
func (r *ProfileRepository) List(ctx context.Context) ([]models.RegistrationProfile, error) {
	var profiles []models.RegistrationProfile
	err := r.db.WithContext(ctx).
		Preload("Account").
		Order("created_at ASC").
		Find(&profiles).Error
	if err != nil {
		return nil, err
	}
	return profiles, nil
}

// Save writes all fields of an existing profile.
func (r *ProfileRepository) Save(ctx context.Context, profile *models.RegistrationProfile) error {
	return r.db.WithContext(ctx).Save(profile).Error
}

// Delete removes a profile.
func (r *ProfileRepository) Delete(ctx context.Context, profile *models.RegistrationProfile) error {
	return r.db.WithContext(ctx).Delete(profile).Error
}

// CountByStatus reports how many profiles hold each stored status.
func (r *ProfileRepository) CountByStatus(ctx context.Context) (map[registration.Status]int64, error) {
	type row struct {
		Status registration.Status
		Total  int64
	}

	var rows []row
	err := r.db.WithContext(ctx).
		Model(&models.RegistrationProfile{}).
		Select("status, COUNT(*) AS total").
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	counts := make(map[registration.Status]int64, len(rows))
	for _, r := range rows {
		counts[r.Status] = r.Total
	}
	return counts, nil
}
