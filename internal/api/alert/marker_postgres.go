package alert

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"fluidmeter-api-server/internal/models"
)

const markerRowID = 1

type postgresMarkerStore struct {
	db *gorm.DB
}

var _ MarkerStore = (*postgresMarkerStore)(nil)

// NewPostgresMarkerStore makes sure the single marker row exists. Every
// replica shares it, so admission holds across instances.
func NewPostgresMarkerStore(ctx context.Context, db *gorm.DB) (MarkerStore, error) {
	err := db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&models.CycleRunMarker{ID: markerRowID}).
		Error
	if err != nil {
		return nil, err
	}
	return &postgresMarkerStore{db: db}, nil
}

func (s *postgresMarkerStore) Load(ctx context.Context) (RunMarker, error) {
	var row models.CycleRunMarker
	if err := s.db.WithContext(ctx).First(&row, markerRowID).Error; err != nil {
		return RunMarker{}, err
	}
	return RunMarker{
		LastRun:    fromNullable(row.LastRun),
		LeaseUntil: fromNullable(row.LeaseUntil),
	}, nil
}

// CompareAndSwap is a conditional UPDATE; the row only changes when both
// columns still hold the values the caller observed.
func (s *postgresMarkerStore) CompareAndSwap(ctx context.Context, old, new RunMarker) (bool, error) {
	result := s.db.WithContext(ctx).
		Model(&models.CycleRunMarker{}).
		Where("id = ?", markerRowID).
		Where("last_run IS NOT DISTINCT FROM ?", toNullable(old.LastRun)).
		Where("lease_until IS NOT DISTINCT FROM ?", toNullable(old.LeaseUntil)).
		Updates(map[string]interface{}{
			"last_run":    toNullable(new.LastRun),
			"lease_until": toNullable(new.LeaseUntil),
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

func toNullable(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	utc := t.UTC()
	return &utc
}

func fromNullable(t *time.Time) time.Time {
	if t == nil {
		return time.Time{}
	}
	return t.UTC()
}
