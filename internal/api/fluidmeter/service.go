package fluidmeter

import (
	"context"

	"go.uber.org/zap"

	commonerrors "fluidmeter-api-server/internal/api/common/errors"
	"fluidmeter-api-server/internal/models"
)

type fluidMeterService struct {
	repository FluidMeterRepository
	logger     *zap.Logger
}

var _ FluidMeterService = (*fluidMeterService)(nil)

func NewFluidMeterService(r FluidMeterRepository, logger *zap.Logger) FluidMeterService {
	return &fluidMeterService{
		repository: r,
		logger:     logger,
	}
}

func (s *fluidMeterService) GetFluidMeter(ctx context.Context, callerID, id string) (*models.FluidMeter, error) {
	meter, err := s.repository.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if meter.OwnerID != callerID {
		s.logger.Debug("fluid meter requested by non owner",
			zap.String("meter_id", id),
			zap.String("caller_id", callerID))
		return nil, commonerrors.ErrNotOwner
	}
	return meter, nil
}

func (s *fluidMeterService) GetFluidMeters(ctx context.Context, callerID string) ([]*models.FluidMeter, error) {
	meters, err := s.repository.ListByOwner(ctx, callerID)
	if err != nil {
		return nil, err
	}
	if meters == nil {
		meters = []*models.FluidMeter{}
	}
	return meters, nil
}
