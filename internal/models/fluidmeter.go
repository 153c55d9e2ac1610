package models

import "time"

type FluidMeterStatus string

const (
	FluidMeterActive   FluidMeterStatus = "active"
	FluidMeterInactive FluidMeterStatus = "inactive"
)

type FluidMeter struct {
	ID         string           `gorm:"column:id;primaryKey" json:"id"`
	OwnerID    string           `gorm:"column:owner_id;index" json:"owner_id"`
	Name       string           `gorm:"column:name" json:"name"`
	Status     FluidMeterStatus `gorm:"column:status" json:"status"`
	RecordedAt time.Time        `gorm:"column:recorded_at" json:"recorded_at"`
	UpdatedAt  time.Time        `gorm:"column:updated_at" json:"updated_at"`
}

func (FluidMeter) TableName() string {
	return "fluid_meter"
}

func (m FluidMeter) IsActive() bool {
	return m.Status == FluidMeterActive
}
