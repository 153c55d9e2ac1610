package alert

import (
	"context"
	"time"

	"fluidmeter-api-server/internal/models"
)

type AlertKind string

const (
	ConstantFlow AlertKind = "constant_flow"
	NotReporting AlertKind = "not_reporting"
)

// MeterFindings is produced fresh for every cycle and never stored.
type MeterFindings struct {
	Meter  *models.FluidMeter `json:"meter"`
	Alerts []AlertKind        `json:"alerts"`
}

type MeterRegistry interface {
	// ListActive returns active meters in registry order.
	ListActive(ctx context.Context) ([]*models.FluidMeter, error)
	Get(ctx context.Context, id string) (*models.FluidMeter, error)
}

type MeasurementSource interface {
	// Window returns readings with since <= recorded_at <= until, oldest first.
	Window(ctx context.Context, deviceID string, since, until time.Time) ([]*models.Measurement, error)
}

type Notifier interface {
	// Notify hands one owner's findings over for delivery. A nil error
	// means the batch was accepted, not that it was delivered.
	Notify(ctx context.Context, ownerID string, findings []*MeterFindings) error
}

type MarkerStore interface {
	Load(ctx context.Context) (RunMarker, error)
	// CompareAndSwap replaces old with new only if the stored marker still
	// equals old. It reports whether the swap happened.
	CompareAndSwap(ctx context.Context, old, new RunMarker) (bool, error)
}

type AlertService interface {
	RunCycle(ctx context.Context) error
	MeterAlerts(ctx context.Context, callerID, meterID string) (*MeterFindings, error)
}

// RunMarker records the last committed cycle and, while a cycle is in
// flight, the instant its reservation expires.
type RunMarker struct {
	LastRun    time.Time
	LeaseUntil time.Time
}

func (m RunMarker) Admits(now time.Time, cooldown time.Duration) bool {
	if !m.LeaseUntil.IsZero() && now.Before(m.LeaseUntil) {
		return false
	}
	return m.LastRun.IsZero() || now.Sub(m.LastRun) >= cooldown
}

func (m RunMarker) Equal(o RunMarker) bool {
	return m.LastRun.Equal(o.LastRun) && m.LeaseUntil.Equal(o.LeaseUntil)
}
