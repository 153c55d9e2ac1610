package measurement

import (
	"context"
	"sync"
	"time"

	commonerrors "fluidmeter-api-server/internal/api/common/errors"
	"fluidmeter-api-server/internal/models"
)

var testNow = time.Date(2024, time.May, 1, 12, 30, 0, 0, time.UTC)

type fakeMeters map[string]*models.FluidMeter

func (m fakeMeters) Get(ctx context.Context, id string) (*models.FluidMeter, error) {
	meter, ok := m[id]
	if !ok {
		return nil, commonerrors.NotFoundErr("fluid meter", id)
	}
	return meter, nil
}

type fakeRepository struct {
	mu    sync.Mutex
	saved []*models.Measurement
}

// add stores m without the duplicate check, for seeding.
func (r *fakeRepository) add(m *models.Measurement) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.saved = append(r.saved, m)
}

func (r *fakeRepository) InsertUnlessRecent(ctx context.Context, m *models.Measurement, since time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, prev := range r.saved {
		if prev.DeviceID == m.DeviceID && !prev.RecordedAt.Before(since) {
			return false, nil
		}
	}
	r.saved = append(r.saved, m)
	return true, nil
}

func (r *fakeRepository) Stored() []*models.Measurement {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]*models.Measurement(nil), r.saved...)
}

func (r *fakeRepository) Window(ctx context.Context, deviceID string, since, until time.Time) ([]*models.Measurement, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var window []*models.Measurement
	for _, m := range r.saved {
		if m.DeviceID == deviceID && !m.RecordedAt.Before(since) && !m.RecordedAt.After(until) {
			window = append(window, m)
		}
	}
	return window, nil
}

func testMeters() fakeMeters {
	return fakeMeters{
		"m-1": {ID: "m-1", OwnerID: "owner-a", Status: models.FluidMeterActive},
		"m-2": {ID: "m-2", OwnerID: "owner-a", Status: models.FluidMeterInactive},
	}
}
