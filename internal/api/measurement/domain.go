package measurement

import (
	"context"
	"strings"
	"time"

	"github.com/caarlos0/env/v6"
	"github.com/shopspring/decimal"

	commonerrors "fluidmeter-api-server/internal/api/common/errors"
	"fluidmeter-api-server/internal/api/common/query"
	"fluidmeter-api-server/internal/models"
)

type Config struct {
	// a second reading from the same device inside this window is rejected
	DuplicateWindow time.Duration `env:"MEASUREMENT_DUPLICATE_WINDOW" envDefault:"1m"`
}

func NewConfig() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg, env.Options{}); err != nil {
		return nil, err
	}
	return cfg, nil
}

type MeasurementRepository interface {
	// InsertUnlessRecent stores m unless its device already has a reading
	// recorded at or after since. The check and the insert are one step per
	// device; false means nothing was stored.
	InsertUnlessRecent(ctx context.Context, m *models.Measurement, since time.Time) (bool, error)
	Window(ctx context.Context, deviceID string, since, until time.Time) ([]*models.Measurement, error)
}

type MeterLookup interface {
	Get(ctx context.Context, id string) (*models.FluidMeter, error)
}

type MeasurementService interface {
	Save(ctx context.Context, input SaveMeasurementInput) (*models.Measurement, error)
	GetSeries(ctx context.Context, callerID string, q query.Query) (*Series, error)
}

type SaveMeasurementInput struct {
	DeviceID    string `json:"device_id"`
	Measurement string `json:"measurement"`
}

func (in SaveMeasurementInput) Validate() error {
	if strings.TrimSpace(in.DeviceID) == "" {
		return commonerrors.InvalidInputErr("device_id", "is required")
	}
	if strings.TrimSpace(in.Measurement) == "" {
		return commonerrors.InvalidInputErr("measurement", "is required")
	}
	if _, err := decimal.NewFromString(strings.TrimSpace(in.Measurement)); err != nil {
		return commonerrors.InvalidInputErr("measurement", "must be a decimal number")
	}
	return nil
}

type Series struct {
	Granularity query.Granularity `json:"granularity"`
	Items       []SeriesItem      `json:"items"`
}

type SeriesItem struct {
	Period time.Time `json:"period"`
	Value  string    `json:"value"`
}
