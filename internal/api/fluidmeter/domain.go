package fluidmeter

import (
	"context"

	"fluidmeter-api-server/internal/models"
)

type FluidMeterRepository interface {
	ListActive(ctx context.Context) ([]*models.FluidMeter, error)
	Get(ctx context.Context, id string) (*models.FluidMeter, error)
	ListByOwner(ctx context.Context, ownerID string) ([]*models.FluidMeter, error)
}

type FluidMeterService interface {
	GetFluidMeter(ctx context.Context, callerID, id string) (*models.FluidMeter, error)
	GetFluidMeters(ctx context.Context, callerID string) ([]*models.FluidMeter, error)
}

func cacheKey(id string) string {
	return "fluid_meter/" + id
}
