package alert

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	commonerrors "fluidmeter-api-server/internal/api/common/errors"
	"fluidmeter-api-server/internal/metrics"
)

// markerWriteTimeout bounds commit and release, which must outlive a
// cancelled request.
const markerWriteTimeout = 10 * time.Second

type alertService struct {
	cfg      Config
	registry MeterRegistry
	source   MeasurementSource
	notifier Notifier
	markers  MarkerStore
	logger   *zap.Logger
	now      func() time.Time
}

var _ AlertService = (*alertService)(nil)

func NewAlertService(
	cfg Config,
	registry MeterRegistry,
	source MeasurementSource,
	notifier Notifier,
	markers MarkerStore,
	logger *zap.Logger) AlertService {

	return newAlertService(cfg, registry, source, notifier, markers, logger, time.Now)
}

func newAlertService(
	cfg Config,
	registry MeterRegistry,
	source MeasurementSource,
	notifier Notifier,
	markers MarkerStore,
	logger *zap.Logger,
	now func() time.Time) *alertService {

	return &alertService{
		cfg:      cfg,
		registry: registry,
		source:   source,
		notifier: notifier,
		markers:  markers,
		logger:   logger,
		now:      now,
	}
}

type ownerBatch struct {
	OwnerID  string
	Findings []*MeterFindings
}

// RunCycle performs one admitted sweep over all active meters. Rejected
// calls return ErrRateLimited before touching meters or measurements.
func (s *alertService) RunCycle(ctx context.Context) (err error) {
	// stored markers keep microseconds, keep ours comparable after a round trip
	now := s.now().UTC().Truncate(time.Microsecond)

	defer func(start time.Time) {
		metrics.AlertCycleDuration.Observe(time.Since(start).Seconds())
		metrics.AlertCyclesTotal.WithLabelValues(cycleOutcome(err)).Inc()
	}(time.Now())

	reserved, err := s.admit(ctx, now)
	if err != nil {
		if errors.Is(err, commonerrors.ErrRateLimited) {
			s.logger.Debug("cycle rejected", zap.Time("now", now))
		}
		return err
	}
	s.logger.Info("cycle admitted",
		zap.Time("now", now),
		zap.Time("lease_until", reserved.LeaseUntil))

	// sweep and dispatch stop early enough for commit to land inside the lease
	cycleCtx, cancel := context.WithTimeout(ctx, s.cycleBudget(reserved))
	defer cancel()

	findings, err := s.sweep(cycleCtx, now)
	if err != nil {
		s.logger.Error("sweep failed", zap.Error(err))
		s.release(ctx, reserved)
		return fmt.Errorf("%w: %w", commonerrors.ErrUpstreamRead, err)
	}

	batches := groupByOwner(findings)
	dispatchErr := s.dispatch(cycleCtx, batches)

	if err := s.commit(ctx, reserved, now); err != nil {
		s.logger.Error("failed to commit cycle", zap.Error(err))
		return err
	}

	s.logger.Info("cycle committed",
		zap.Time("now", now),
		zap.Int("flagged_meters", len(findings)),
		zap.Int("owners", len(batches)))

	if dispatchErr != nil {
		return fmt.Errorf("%w: %w", commonerrors.ErrDispatch, dispatchErr)
	}
	return nil
}

func (s *alertService) MeterAlerts(ctx context.Context, callerID, meterID string) (*MeterFindings, error) {
	meter, err := s.registry.Get(ctx, meterID)
	if err != nil {
		return nil, err
	}
	if meter.OwnerID != callerID {
		return nil, commonerrors.ErrNotOwner
	}

	now := s.now().UTC()
	window, err := s.source.Window(ctx, meter.ID, now.Add(-s.cfg.Lookback), now)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", commonerrors.ErrUpstreamRead, err)
	}

	kinds := Evaluate(meter, window, now, s.cfg.Thresholds())
	if kinds == nil {
		kinds = []AlertKind{}
	}
	return &MeterFindings{Meter: meter, Alerts: kinds}, nil
}

// admit reserves the cycle with a compare-and-set on the observed marker so
// that only one of several concurrent callers proceeds.
func (s *alertService) admit(ctx context.Context, now time.Time) (RunMarker, error) {
	observed, err := s.markers.Load(ctx)
	if err != nil {
		return RunMarker{}, fmt.Errorf("%w: load: %w", commonerrors.ErrMarkerStore, err)
	}
	if !observed.Admits(now, s.cfg.Cooldown) {
		return RunMarker{}, commonerrors.ErrRateLimited
	}

	reserved := RunMarker{
		LastRun:    observed.LastRun,
		LeaseUntil: now.Add(s.cfg.CycleTimeout),
	}
	swapped, err := s.markers.CompareAndSwap(ctx, observed, reserved)
	if err != nil {
		return RunMarker{}, fmt.Errorf("%w: reserve: %w", commonerrors.ErrMarkerStore, err)
	}
	if !swapped {
		return RunMarker{}, commonerrors.ErrRateLimited
	}
	return reserved, nil
}

// cycleBudget is what is left of the lease once a marker write is reserved.
func (s *alertService) cycleBudget(reserved RunMarker) time.Duration {
	return reserved.LeaseUntil.Sub(s.now().UTC()) - markerWriteTimeout
}

// commit never writes past the lease; after it expires another caller may
// already hold the cycle.
func (s *alertService) commit(ctx context.Context, reserved RunMarker, now time.Time) error {
	timeout := markerWriteTimeout
	if left := reserved.LeaseUntil.Sub(s.now().UTC()); left < timeout {
		timeout = left
	}
	if timeout <= 0 {
		return fmt.Errorf("%w: lease expired before commit", commonerrors.ErrMarkerStore)
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), timeout)
	defer cancel()

	swapped, err := s.markers.CompareAndSwap(ctx, reserved, RunMarker{LastRun: now})
	if err != nil {
		return fmt.Errorf("%w: commit: %w", commonerrors.ErrMarkerStore, err)
	}
	if !swapped {
		return fmt.Errorf("%w: reservation lost before commit", commonerrors.ErrMarkerStore)
	}
	return nil
}

// release drops the reservation and leaves LastRun untouched so that the
// next call may retry the sweep.
func (s *alertService) release(ctx context.Context, reserved RunMarker) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), markerWriteTimeout)
	defer cancel()

	swapped, err := s.markers.CompareAndSwap(ctx, reserved, RunMarker{LastRun: reserved.LastRun})
	if err != nil {
		s.logger.Error("failed to release cycle reservation", zap.Error(err))
		return
	}
	if !swapped {
		s.logger.Warn("cycle reservation changed before release")
	}
}

func (s *alertService) sweep(ctx context.Context, now time.Time) ([]*MeterFindings, error) {
	meters, err := s.registry.ListActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("list active meters: %w", err)
	}

	var (
		since      = now.Add(-s.cfg.Lookback)
		thresholds = s.cfg.Thresholds()
		// indexed by registry position, restores order after the fan-out
		results = make([]*MeterFindings, len(meters))
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.Concurrency)
	for i, meter := range meters {
		i, meter := i, meter
		g.Go(func() error {
			window, err := s.source.Window(gctx, meter.ID, since, now)
			if err != nil {
				return fmt.Errorf("measurement window for %s: %w", meter.ID, err)
			}
			if kinds := Evaluate(meter, window, now, thresholds); len(kinds) > 0 {
				results[i] = &MeterFindings{Meter: meter, Alerts: kinds}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	findings := make([]*MeterFindings, 0, len(results))
	for _, f := range results {
		if f == nil {
			continue
		}
		for _, kind := range f.Alerts {
			metrics.AlertFindingsTotal.WithLabelValues(string(kind)).Inc()
		}
		findings = append(findings, f)
	}

	s.logger.Debug("sweep finished",
		zap.Int("meters", len(meters)),
		zap.Int("flagged", len(findings)))
	return findings, nil
}

// dispatch sends every batch even if an earlier one failed. Notifications
// are not transactional across owners, so nothing is rolled back. Once ctx
// is done the remaining owners are skipped and reported.
func (s *alertService) dispatch(ctx context.Context, batches []ownerBatch) error {
	var errs []error
	for i, batch := range batches {
		if err := ctx.Err(); err != nil {
			skipped := make([]string, 0, len(batches)-i)
			for _, b := range batches[i:] {
				skipped = append(skipped, b.OwnerID)
			}
			metrics.AlertDispatchesTotal.WithLabelValues("skipped").Add(float64(len(skipped)))
			s.logger.Error("cycle deadline reached, skipping owners",
				zap.Strings("owner_ids", skipped),
				zap.Error(err))
			errs = append(errs, fmt.Errorf("owners %s not notified: %w", strings.Join(skipped, ","), err))
			break
		}
		if err := s.notifier.Notify(ctx, batch.OwnerID, batch.Findings); err != nil {
			metrics.AlertDispatchesTotal.WithLabelValues("failed").Inc()
			s.logger.Error("failed to dispatch alerts",
				zap.String("owner_id", batch.OwnerID),
				zap.Int("meters", len(batch.Findings)),
				zap.Error(err))
			errs = append(errs, fmt.Errorf("owner %s: %w", batch.OwnerID, err))
			continue
		}
		metrics.AlertDispatchesTotal.WithLabelValues("accepted").Inc()
	}
	return errors.Join(errs...)
}

// groupByOwner keeps owners in the order of their first flagged meter and
// meters in encounter order within each owner.
func groupByOwner(findings []*MeterFindings) []ownerBatch {
	var (
		index   = make(map[string]int)
		batches []ownerBatch
	)
	for _, f := range findings {
		owner := f.Meter.OwnerID
		i, exist := index[owner]
		if !exist {
			i = len(batches)
			index[owner] = i
			batches = append(batches, ownerBatch{OwnerID: owner})
		}
		batches[i].Findings = append(batches[i].Findings, f)
	}
	return batches
}

func cycleOutcome(err error) string {
	switch {
	case err == nil:
		return "completed"
	case errors.Is(err, commonerrors.ErrRateLimited):
		return "rate_limited"
	case errors.Is(err, commonerrors.ErrUpstreamRead):
		return "read_failed"
	case errors.Is(err, commonerrors.ErrDispatch):
		return "dispatch_failed"
	default:
		return "marker_failed"
	}
}
