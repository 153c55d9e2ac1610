package alert

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	commonerrors "fluidmeter-api-server/internal/api/common/errors"
	"fluidmeter-api-server/internal/models"
)

var errBoom = errors.New("boom")

var testNow = time.Date(2024, time.May, 1, 12, 0, 0, 0, time.UTC)

func activeMeter(id, owner string, registered time.Time) *models.FluidMeter {
	return &models.FluidMeter{
		ID:         id,
		OwnerID:    owner,
		Name:       "meter " + id,
		Status:     models.FluidMeterActive,
		RecordedAt: registered,
	}
}

func sample(device, value string, at time.Time) *models.Measurement {
	return &models.Measurement{
		ID:         device + "@" + at.Format(time.RFC3339),
		DeviceID:   device,
		Value:      value,
		RecordedAt: at,
	}
}

// flowSeries returns n non-zero samples ending at end, spaced by step.
func flowSeries(device string, n int, end time.Time, step time.Duration) []*models.Measurement {
	series := make([]*models.Measurement, 0, n)
	for i := n - 1; i >= 0; i-- {
		series = append(series, sample(device, "1.5", end.Add(-time.Duration(i)*step)))
	}
	return series
}

type fakeRegistry struct {
	meters    []*models.FluidMeter
	err       error
	listCalls atomic.Int32
	getCalls  atomic.Int32
}

func (r *fakeRegistry) ListActive(ctx context.Context) ([]*models.FluidMeter, error) {
	r.listCalls.Add(1)
	if r.err != nil {
		return nil, r.err
	}
	var active []*models.FluidMeter
	for _, m := range r.meters {
		if m.IsActive() {
			active = append(active, m)
		}
	}
	return active, nil
}

func (r *fakeRegistry) Get(ctx context.Context, id string) (*models.FluidMeter, error) {
	r.getCalls.Add(1)
	for _, m := range r.meters {
		if m.ID == id {
			return m, nil
		}
	}
	return nil, commonerrors.NotFoundErr("fluid meter", id)
}

type fakeSource struct {
	byDevice map[string][]*models.Measurement
	err      error
	calls    atomic.Int32
}

func (s *fakeSource) Window(ctx context.Context, deviceID string, since, until time.Time) ([]*models.Measurement, error) {
	s.calls.Add(1)
	if s.err != nil {
		return nil, s.err
	}
	var window []*models.Measurement
	for _, m := range s.byDevice[deviceID] {
		if !m.RecordedAt.Before(since) && !m.RecordedAt.After(until) {
			window = append(window, m)
		}
	}
	return window, nil
}

type notifyCall struct {
	OwnerID  string
	MeterIDs []string
}

type fakeNotifier struct {
	mu      sync.Mutex
	calls   []notifyCall
	failFor map[string]error
	// onNotify runs inside every call, after it was recorded
	onNotify func()
}

func (n *fakeNotifier) Notify(ctx context.Context, ownerID string, findings []*MeterFindings) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	ids := make([]string, len(findings))
	for i, f := range findings {
		ids[i] = f.Meter.ID
	}
	n.calls = append(n.calls, notifyCall{OwnerID: ownerID, MeterIDs: ids})
	if n.onNotify != nil {
		n.onNotify()
	}
	return n.failFor[ownerID]
}

func (n *fakeNotifier) Calls() []notifyCall {
	n.mu.Lock()
	defer n.mu.Unlock()

	return append([]notifyCall(nil), n.calls...)
}

type failingMarkerStore struct {
	loadErr error
	casErr  error
}

func (s *failingMarkerStore) Load(ctx context.Context) (RunMarker, error) {
	return RunMarker{}, s.loadErr
}

func (s *failingMarkerStore) CompareAndSwap(ctx context.Context, old, new RunMarker) (bool, error) {
	return false, s.casErr
}

// clock is a settable time source safe for concurrent readers.
type clock struct {
	mu  sync.Mutex
	now time.Time
}

func newClock(t time.Time) *clock {
	return &clock{now: t}
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// reversedSource finishes fetches in reverse registry order: each meter
// waits for the one after it.
type reversedSource struct {
	order []string
	done  map[string]chan struct{}

	mu       sync.Mutex
	finished []string
}

func newReversedSource(meters []*models.FluidMeter) *reversedSource {
	s := &reversedSource{done: make(map[string]chan struct{})}
	for _, m := range meters {
		s.order = append(s.order, m.ID)
		s.done[m.ID] = make(chan struct{})
	}
	return s
}

func (s *reversedSource) Window(ctx context.Context, deviceID string, since, until time.Time) ([]*models.Measurement, error) {
	for i, id := range s.order {
		if id != deviceID || i+1 == len(s.order) {
			continue
		}
		select {
		case <-s.done[s.order[i+1]]:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	s.mu.Lock()
	s.finished = append(s.finished, deviceID)
	s.mu.Unlock()
	close(s.done[deviceID])
	return nil, nil
}

// stallingNotifier holds the first batch until the cycle deadline, then
// runs onStall before giving up.
type stallingNotifier struct {
	mu      sync.Mutex
	owners  []string
	onStall func()
}

func (n *stallingNotifier) Notify(ctx context.Context, ownerID string, findings []*MeterFindings) error {
	n.mu.Lock()
	n.owners = append(n.owners, ownerID)
	first := len(n.owners) == 1
	n.mu.Unlock()

	if !first {
		return nil
	}
	<-ctx.Done()
	if n.onStall != nil {
		n.onStall()
	}
	return ctx.Err()
}

func (n *stallingNotifier) Owners() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.owners...)
}
