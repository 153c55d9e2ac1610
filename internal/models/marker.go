package models

import "time"

// CycleRunMarker is the single row guarding alert cycle admission.
type CycleRunMarker struct {
	ID         int        `gorm:"column:id;primaryKey;autoIncrement:false"`
	LastRun    *time.Time `gorm:"column:last_run"`
	LeaseUntil *time.Time `gorm:"column:lease_until"`
}

func (CycleRunMarker) TableName() string {
	return "alert_cycle_run_marker"
}
