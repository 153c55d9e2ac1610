package fluidmeter

import (
	"context"
	"errors"

	"gorm.io/gorm"

	commonerrors "fluidmeter-api-server/internal/api/common/errors"
	"fluidmeter-api-server/internal/cache"
	"fluidmeter-api-server/internal/models"
)

type fluidMeterRepository struct {
	db    *gorm.DB
	cache *cache.Cache
}

var _ FluidMeterRepository = (*fluidMeterRepository)(nil)

func NewFluidMeterRepository(db *gorm.DB, cache *cache.Cache) FluidMeterRepository {
	return &fluidMeterRepository{
		db:    db,
		cache: cache,
	}
}

// ListActive returns meters in registry order: registration time, then id.
func (r *fluidMeterRepository) ListActive(ctx context.Context) ([]*models.FluidMeter, error) {
	var meters []*models.FluidMeter
	err := r.db.WithContext(ctx).
		Where("status = ?", models.FluidMeterActive).
		Order("recorded_at").
		Order("id").
		Find(&meters).
		Error
	if err != nil {
		return nil, err
	}
	return meters, nil
}

func (r *fluidMeterRepository) Get(ctx context.Context, id string) (*models.FluidMeter, error) {
	if item, exist := r.cache.Get(cacheKey(id)); exist {
		meter := *item.(*models.FluidMeter)
		return &meter, nil
	}

	var meter models.FluidMeter
	err := r.db.WithContext(ctx).Where("id = ?", id).Take(&meter).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, commonerrors.NotFoundErr("fluid meter", id)
	}
	if err != nil {
		return nil, err
	}

	cached := meter
	r.cache.Set(cacheKey(id), &cached)
	return &meter, nil
}

func (r *fluidMeterRepository) ListByOwner(ctx context.Context, ownerID string) ([]*models.FluidMeter, error) {
	var meters []*models.FluidMeter
	err := r.db.WithContext(ctx).
		Where("owner_id = ?", ownerID).
		Order("recorded_at").
		Order("id").
		Find(&meters).
		Error
	if err != nil {
		return nil, err
	}
	return meters, nil
}
