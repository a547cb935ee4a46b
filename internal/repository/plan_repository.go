package repository

import (
	"context"

	"gorm.io/gorm"
)

// PlanRepository определяет доступ к фичам тарифов.
type PlanRepository interface {
	// GetFeatures возвращает фичи всех тарифов, сгруппированные по тарифу,
	// в порядке position.
	GetFeatures(ctx context.Context) (map[string][]string, error)
}

// planRepository — GORM реализация PlanRepository.
type planRepository struct {
	db *gorm.DB
}

// NewPlanRepository создаёт новый репозиторий тарифов.
func NewPlanRepository(db *gorm.DB) PlanRepository {
	return &planRepository{db: db}
}

// GetFeatures возвращает фичи всех тарифов.
func (r *planRepository) GetFeatures(ctx context.Context) (map[string][]string, error) {
	var models []PlanFeatureModel

	if err := r.db.WithContext(ctx).
		Order("plan ASC, position ASC").
		Find(&models).Error; err != nil {
		return nil, err
	}

	features := make(map[string][]string)
	for _, m := range models {
		features[m.Plan] = append(features[m.Plan], m.Feature)
	}

	return features, nil
}
