package models

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type Measurement struct {
	ID       string `gorm:"column:id;primaryKey" json:"id"`
	DeviceID string `gorm:"column:device_id;index:idx_measurement_device_time,priority:1" json:"device_id"`
	// Value keeps the exact text the device reported.
	Value      string    `gorm:"column:measurement" json:"measurement"`
	RecordedAt time.Time `gorm:"column:recorded_at;index:idx_measurement_device_time,priority:2" json:"recorded_at"`
}

func (Measurement) TableName() string {
	return "measurement"
}

func (m Measurement) Decimal() (decimal.Decimal, error) {
	return decimal.NewFromString(strings.TrimSpace(m.Value))
}
