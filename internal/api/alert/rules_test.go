package alert

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"fluidmeter-api-server/internal/models"
)

func defaultThresholds() Thresholds {
	return DefaultConfig().Thresholds()
}

func TestEvaluateConstantFlow(t *testing.T) {
	registered := testNow.Add(-48 * time.Hour)

	tests := []struct {
		name         string
		measurements []*models.Measurement
		want         []AlertKind
	}{
		{
			name:         "five samples spanning exactly eighty minutes",
			measurements: flowSeries("m1", 5, testNow, 20*time.Minute),
			want:         []AlertKind{ConstantFlow},
		},
		{
			name:         "five samples spanning less than eighty minutes",
			measurements: flowSeries("m1", 5, testNow, 19*time.Minute),
		},
		{
			name:         "four samples spanning two hours",
			measurements: flowSeries("m1", 4, testNow, 40*time.Minute),
		},
		{
			name: "zero in the middle resets the streak",
			measurements: []*models.Measurement{
				sample("m1", "2", testNow.Add(-80*time.Minute)),
				sample("m1", "2", testNow.Add(-60*time.Minute)),
				sample("m1", "0", testNow.Add(-40*time.Minute)),
				sample("m1", "2", testNow.Add(-20*time.Minute)),
				sample("m1", "2", testNow),
			},
		},
		{
			name: "zero written with decimals counts as zero",
			measurements: []*models.Measurement{
				sample("m1", "1", testNow.Add(-80*time.Minute)),
				sample("m1", "1", testNow.Add(-60*time.Minute)),
				sample("m1", "1", testNow.Add(-40*time.Minute)),
				sample("m1", "0.000", testNow.Add(-20*time.Minute)),
				sample("m1", "1", testNow),
			},
		},
		{
			name: "unparsable value breaks the streak",
			measurements: []*models.Measurement{
				sample("m1", "1", testNow.Add(-80*time.Minute)),
				sample("m1", "1", testNow.Add(-60*time.Minute)),
				sample("m1", "n/a", testNow.Add(-40*time.Minute)),
				sample("m1", "1", testNow.Add(-20*time.Minute)),
				sample("m1", "1", testNow),
			},
		},
		{
			name: "older unbroken run still fires",
			measurements: append(
				flowSeries("m1", 5, testNow.Add(-2*time.Hour), 20*time.Minute),
				sample("m1", "0", testNow.Add(-time.Hour)),
				sample("m1", "1", testNow),
			),
			want: []AlertKind{ConstantFlow},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			meter := activeMeter("m1", "owner-1", registered)
			got := Evaluate(meter, tt.measurements, testNow, defaultThresholds())
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestEvaluateNotReporting(t *testing.T) {
	tests := []struct {
		name         string
		registered   time.Time
		measurements []*models.Measurement
		want         []AlertKind
	}{
		{
			name:       "registered 25h ago without measurements",
			registered: testNow.Add(-25 * time.Hour),
			want:       []AlertKind{NotReporting},
		},
		{
			name:         "one measurement 25h ago",
			registered:   testNow.Add(-25 * time.Hour),
			measurements: []*models.Measurement{sample("m1", "3", testNow.Add(-25*time.Hour))},
			want:         []AlertKind{NotReporting},
		},
		{
			name:       "registered less than 24h ago",
			registered: testNow.Add(-23 * time.Hour),
		},
		{
			name:       "silent for exactly 24h",
			registered: testNow.Add(-24 * time.Hour),
			want:       []AlertKind{NotReporting},
		},
		{
			name:         "recent zero reading counts as reporting",
			registered:   testNow.Add(-72 * time.Hour),
			measurements: []*models.Measurement{sample("m1", "0", testNow.Add(-time.Hour))},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			meter := activeMeter("m1", "owner-1", tt.registered)
			got := Evaluate(meter, tt.measurements, testNow, defaultThresholds())
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestEvaluateBothKindsInFixedOrder(t *testing.T) {
	meter := activeMeter("m1", "owner-1", testNow.Add(-72*time.Hour))
	// a constant run that ended more than a day ago
	measurements := flowSeries("m1", 6, testNow.Add(-25*time.Hour), 20*time.Minute)

	got := Evaluate(meter, measurements, testNow, defaultThresholds())
	assert.Equal(t, []AlertKind{ConstantFlow, NotReporting}, got)
}

func TestEvaluateUnorderedInput(t *testing.T) {
	meter := activeMeter("m1", "owner-1", testNow.Add(-48*time.Hour))
	series := flowSeries("m1", 5, testNow, 20*time.Minute)
	shuffled := []*models.Measurement{series[3], series[0], series[4], series[2], series[1]}
	before := append([]*models.Measurement(nil), shuffled...)

	got := Evaluate(meter, shuffled, testNow, defaultThresholds())

	assert.Equal(t, []AlertKind{ConstantFlow}, got)
	assert.Equal(t, before, shuffled, "input must not be reordered")
}

func TestEvaluateInactiveMeter(t *testing.T) {
	meter := activeMeter("m1", "owner-1", testNow.Add(-72*time.Hour))
	meter.Status = models.FluidMeterInactive

	assert.Nil(t, Evaluate(meter, nil, testNow, defaultThresholds()))
	assert.Nil(t, Evaluate(nil, nil, testNow, defaultThresholds()))
}

func TestRunMarkerAdmits(t *testing.T) {
	cooldown := time.Hour

	assert.True(t, RunMarker{}.Admits(testNow, cooldown), "never run")
	assert.False(t, RunMarker{LastRun: testNow.Add(-59 * time.Minute)}.Admits(testNow, cooldown))
	assert.True(t, RunMarker{LastRun: testNow.Add(-time.Hour)}.Admits(testNow, cooldown))
	assert.False(t, RunMarker{LeaseUntil: testNow.Add(time.Minute)}.Admits(testNow, cooldown), "held lease")
	assert.True(t, RunMarker{
		LastRun:    testNow.Add(-2 * time.Hour),
		LeaseUntil: testNow.Add(-time.Second),
	}.Admits(testNow, cooldown), "expired lease")
}

func TestConfigValidate(t *testing.T) {
	cfg := DefaultConfig()
	assert.NoError(t, cfg.Validate())

	short := DefaultConfig()
	short.Lookback = 23 * time.Hour
	assert.Error(t, short.Validate())

	unknown := DefaultConfig()
	unknown.MarkerBackend = "etcd"
	assert.Error(t, unknown.Validate())

	tight := DefaultConfig()
	tight.CycleTimeout = markerWriteTimeout
	assert.Error(t, tight.Validate(), "no room left for the commit")

	serial := DefaultConfig()
	serial.Concurrency = 0
	assert.Error(t, serial.Validate())
}
