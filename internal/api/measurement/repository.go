package measurement

import (
	"context"
	"time"

	"gorm.io/gorm"

	"fluidmeter-api-server/internal/models"
)

type measurementRepository struct {
	db *gorm.DB
}

var _ MeasurementRepository = (*measurementRepository)(nil)

func NewMeasurementRepository(db *gorm.DB) MeasurementRepository {
	return &measurementRepository{
		db: db,
	}
}

// InsertUnlessRecent serializes writers of one device on a transaction
// scoped advisory lock, so two readings racing inside the duplicate window
// cannot both see an empty window.
func (r *measurementRepository) InsertUnlessRecent(ctx context.Context, m *models.Measurement, since time.Time) (bool, error) {
	inserted := false
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec("SELECT pg_advisory_xact_lock(hashtext(?))", m.DeviceID).Error; err != nil {
			return err
		}

		var count int64
		err := tx.Model(&models.Measurement{}).
			Where("device_id = ? AND recorded_at >= ?", m.DeviceID, since).
			Limit(1).
			Count(&count).
			Error
		if err != nil {
			return err
		}
		if count > 0 {
			return nil
		}

		if err := tx.Create(m).Error; err != nil {
			return err
		}
		inserted = true
		return nil
	})
	if err != nil {
		return false, err
	}
	return inserted, nil
}

// Window orders by device time, not by arrival, so late writes land in place.
func (r *measurementRepository) Window(ctx context.Context, deviceID string, since, until time.Time) ([]*models.Measurement, error) {
	var measurements []*models.Measurement
	err := r.db.WithContext(ctx).
		Where("device_id = ?", deviceID).
		Where("recorded_at >= ? AND recorded_at <= ?", since, until).
		Order("recorded_at").
		Order("id").
		Find(&measurements).
		Error
	if err != nil {
		return nil, err
	}
	return measurements, nil
}
