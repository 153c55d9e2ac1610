package alert

import (
	"sort"
	"time"

	"fluidmeter-api-server/internal/models"
)

type Thresholds struct {
	ConstantFlowSamples int
	ConstantFlowSpan    time.Duration
	NotReportingAfter   time.Duration
}

// Evaluate runs every rule against one meter's measurement window. Kinds
// are returned in a fixed order and each appears at most once.
func Evaluate(meter *models.FluidMeter, measurements []*models.Measurement, now time.Time, th Thresholds) []AlertKind {
	if meter == nil || !meter.IsActive() {
		return nil
	}

	ordered := byRecordedAt(measurements)

	var kinds []AlertKind
	if constantFlow(ordered, th) {
		kinds = append(kinds, ConstantFlow)
	}
	if notReporting(meter, ordered, now, th) {
		kinds = append(kinds, NotReporting)
	}
	return kinds
}

// constantFlow walks back from the newest sample. A zero reading resets the
// streak and counting restarts at the next older non-zero sample, so any
// unbroken run inside the window can fire.
func constantFlow(ordered []*models.Measurement, th Thresholds) bool {
	var (
		streak int
		newest time.Time
	)
	for i := len(ordered) - 1; i >= 0; i-- {
		m := ordered[i]
		if !flowing(m) {
			streak = 0
			continue
		}
		if streak == 0 {
			newest = m.RecordedAt
		}
		streak++
		if streak >= th.ConstantFlowSamples && newest.Sub(m.RecordedAt) >= th.ConstantFlowSpan {
			return true
		}
	}
	return false
}

func notReporting(meter *models.FluidMeter, ordered []*models.Measurement, now time.Time, th Thresholds) bool {
	last := meter.RecordedAt
	if len(ordered) > 0 {
		last = ordered[len(ordered)-1].RecordedAt
	}
	return now.Sub(last) >= th.NotReportingAfter
}

// flowing is false for the zero sentinel and for values that do not parse.
func flowing(m *models.Measurement) bool {
	v, err := m.Decimal()
	if err != nil {
		return false
	}
	return !v.IsZero()
}

func byRecordedAt(measurements []*models.Measurement) []*models.Measurement {
	ordered := make([]*models.Measurement, 0, len(measurements))
	for _, m := range measurements {
		if m != nil {
			ordered = append(ordered, m)
		}
	}
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].RecordedAt.Before(ordered[j].RecordedAt)
	})
	return ordered
}
