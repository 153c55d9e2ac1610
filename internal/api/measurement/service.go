package measurement

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	commonerrors "fluidmeter-api-server/internal/api/common/errors"
	"fluidmeter-api-server/internal/api/common/query"
	"fluidmeter-api-server/internal/metrics"
	"fluidmeter-api-server/internal/models"
)

type measurementService struct {
	cfg        Config
	repository MeasurementRepository
	meters     MeterLookup
	logger     *zap.Logger
	now        func() time.Time
}

var _ MeasurementService = (*measurementService)(nil)

func NewMeasurementService(
	cfg Config,
	r MeasurementRepository,
	meters MeterLookup,
	logger *zap.Logger) MeasurementService {

	return &measurementService{
		cfg:        cfg,
		repository: r,
		meters:     meters,
		logger:     logger,
		now:        time.Now,
	}
}

func (s *measurementService) Save(ctx context.Context, input SaveMeasurementInput) (m *models.Measurement, err error) {
	defer func() {
		status := "stored"
		if err != nil {
			status = "rejected"
		}
		metrics.MeasurementsTotal.WithLabelValues(status).Inc()
	}()

	if err := input.Validate(); err != nil {
		return nil, err
	}

	meter, err := s.meters.Get(ctx, input.DeviceID)
	if err != nil {
		return nil, err
	}
	if !meter.IsActive() {
		return nil, commonerrors.ErrMeterInactive
	}

	now := s.now().UTC()
	m = &models.Measurement{
		ID:         uuid.NewString(),
		DeviceID:   meter.ID,
		Value:      strings.TrimSpace(input.Measurement),
		RecordedAt: now,
	}
	inserted, err := s.repository.InsertUnlessRecent(ctx, m, now.Add(-s.cfg.DuplicateWindow))
	if err != nil {
		return nil, err
	}
	if !inserted {
		s.logger.Debug("duplicate measurement rejected", zap.String("device_id", meter.ID))
		return nil, commonerrors.ErrDuplicateMeasurement
	}
	return m, nil
}

func (s *measurementService) GetSeries(ctx context.Context, callerID string, q query.Query) (*Series, error) {
	meter, err := s.meters.Get(ctx, q.MeterID)
	if err != nil {
		return nil, err
	}
	if meter.OwnerID != callerID {
		return nil, commonerrors.ErrNotOwner
	}

	measurements, err := s.repository.Window(ctx, meter.ID, q.StartTime, q.EndTime)
	if err != nil {
		return nil, err
	}
	return buildSeries(measurements, q.Granularity, s.logger), nil
}
