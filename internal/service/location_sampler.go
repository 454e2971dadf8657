package service

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/trackify-app/trackify/internal/domain/location"
	"github.com/trackify-app/trackify/internal/domain/session"
	"github.com/trackify-app/trackify/internal/port/outbound"
)

// DefaultSampleInterval is the fixed cadence of the sampler.
const DefaultSampleInterval = 4 * time.Second

// SamplerConfig configures a LocationSampler.
type SamplerConfig struct {
	Interval     time.Duration
	HighAccuracy bool
}

// SamplerMetrics holds the sampler's Prometheus metrics.
type SamplerMetrics struct {
	Cycles    prometheus.Counter
	Uploads   *prometheus.CounterVec
	Denials   prometheus.Counter
	Redundant prometheus.Counter
	Active    prometheus.Gauge
}

// NewSamplerMetrics creates and registers the sampler metrics with reg.
func NewSamplerMetrics(reg prometheus.Registerer) *SamplerMetrics {
	return &SamplerMetrics{
		Cycles: promauto.With(reg).NewCounter(
			prometheus.CounterOpts{
				Namespace: "trackify",
				Subsystem: "sampler",
				Name:      "cycles_total",
				Help:      "Sampling cycles started",
			},
		),
		Uploads: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "trackify",
				Subsystem: "sampler",
				Name:      "uploads_total",
				Help:      "Location uploads by result",
			},
			[]string{"result"}, // result=ok/error/canceled/discarded
		),
		Denials: promauto.With(reg).NewCounter(
			prometheus.CounterOpts{
				Namespace: "trackify",
				Subsystem: "sampler",
				Name:      "position_denials_total",
				Help:      "Cycles skipped because no position was available",
			},
		),
		Redundant: promauto.With(reg).NewCounter(
			prometheus.CounterOpts{
				Namespace: "trackify",
				Subsystem: "sampler",
				Name:      "redundant_uploads_total",
				Help:      "Uploads whose position matched the previous one",
			},
		),
		Active: promauto.With(reg).NewGauge(
			prometheus.GaugeOpts{
				Namespace: "trackify",
				Subsystem: "sampler",
				Name:      "active",
				Help:      "1 while the sampler runs for a session",
			},
		),
	}
}

// SamplerSnapshot is what the self view displays.
type SamplerSnapshot struct {
	Active bool
	UserID string
	// Current is the last location acknowledged by the backend.
	Current *location.PositionSample
	// Notice is the persistent denial notice, empty while positions flow.
	Notice     string
	LastUpload time.Time
}

// activation is one run of the sampler for one session.
type activation struct {
	gen    uint64
	userID string
	cancel context.CancelFunc
	done   chan struct{}
}

// LocationSampler reports the device position on a fixed interval while an
// ordinary session is active. Cycles overlap freely; a slow cycle may land
// after a later one. Deactivation cancels every in-flight cycle of the
// activation and discards their late results.
type LocationSampler struct {
	positioner outbound.Positioner
	api        outbound.LocationAPI
	cfg        SamplerConfig
	metrics    *SamplerMetrics
	logger     *slog.Logger

	base   context.Context
	cycles sync.WaitGroup

	mu         sync.Mutex
	run        *activation
	generation uint64
	current    *location.PositionSample
	notice     string
	lastUpload time.Time
	lastPrint  uint64
	hasPrint   bool
}

// NewLocationSampler creates a sampler. Metrics may be nil.
func NewLocationSampler(positioner outbound.Positioner, api outbound.LocationAPI, cfg SamplerConfig, metrics *SamplerMetrics, logger *slog.Logger) *LocationSampler {
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultSampleInterval
	}
	return &LocationSampler{
		positioner: positioner,
		api:        api,
		cfg:        cfg,
		metrics:    metrics,
		logger:     logger,
		base:       context.Background(),
	}
}

// Attach follows holder: the sampler starts when an ordinary session is
// activated and stops when it is cleared. ctx bounds every activation.
// The returned function detaches and stops the sampler.
func (s *LocationSampler) Attach(ctx context.Context, holder *session.Holder) (detach func()) {
	s.mu.Lock()
	s.base = ctx
	s.mu.Unlock()

	unsubscribe := holder.Subscribe(func(ev session.Event) {
		switch ev.Kind {
		case session.Activated:
			s.Start(ev.Session)
		case session.Deactivated:
			s.Stop()
		}
	})
	if cur, ok := holder.Current(); ok {
		s.Start(cur)
	}

	return func() {
		unsubscribe()
		s.Stop()
	}
}

// Start activates the sampler for sess. Administrators are not sampled.
// Starting for the already active user is a no-op.
func (s *LocationSampler) Start(sess session.Session) {
	if sess.Role != session.RoleOrdinary {
		return
	}

	s.mu.Lock()
	if s.run != nil && s.run.userID == sess.UserID {
		s.mu.Unlock()
		return
	}
	prev := s.detachLocked()
	s.generation++
	ctx, cancel := context.WithCancel(s.base)
	run := &activation{
		gen:    s.generation,
		userID: sess.UserID,
		cancel: cancel,
		done:   make(chan struct{}),
	}
	s.run = run
	s.current = nil
	s.notice = ""
	s.lastUpload = time.Time{}
	s.hasPrint = false
	s.mu.Unlock()

	if prev != nil {
		<-prev.done
	}

	if s.metrics != nil {
		s.metrics.Active.Set(1)
	}
	s.logger.Info("location sampler started",
		"user_id", sess.UserID,
		"interval", s.cfg.Interval,
	)
	go s.loop(ctx, run)
}

// Stop deactivates the sampler and waits for its ticker to exit. In-flight
// cycles are canceled but not awaited; use Close to wait for them.
func (s *LocationSampler) Stop() {
	s.mu.Lock()
	prev := s.detachLocked()
	s.mu.Unlock()

	if prev == nil {
		return
	}
	<-prev.done
	if s.metrics != nil {
		s.metrics.Active.Set(0)
	}
	s.logger.Info("location sampler stopped", "user_id", prev.userID)
}

// Close stops the sampler and waits for every in-flight cycle to finish.
func (s *LocationSampler) Close() {
	s.Stop()
	s.cycles.Wait()
}

// detachLocked cancels the current activation and returns it.
func (s *LocationSampler) detachLocked() *activation {
	prev := s.run
	if prev == nil {
		return nil
	}
	prev.cancel()
	s.run = nil
	s.generation++
	return prev
}

// Snapshot returns what the self view shows.
func (s *LocationSampler) Snapshot() SamplerSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := SamplerSnapshot{
		Active:     s.run != nil,
		Notice:     s.notice,
		LastUpload: s.lastUpload,
	}
	if s.run != nil {
		snap.UserID = s.run.userID
	}
	if s.current != nil {
		c := *s.current
		snap.Current = &c
	}
	return snap
}

// loop runs one cycle immediately, then one per tick, until ctx ends. It
// never waits for a cycle to complete before starting the next.
func (s *LocationSampler) loop(ctx context.Context, run *activation) {
	defer close(run.done)

	s.launch(ctx, run.gen)

	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.launch(ctx, run.gen)
		}
	}
}

func (s *LocationSampler) launch(ctx context.Context, gen uint64) {
	s.cycles.Add(1)
	go func() {
		defer s.cycles.Done()
		s.cycle(ctx, gen)
	}()
}

// cycle takes one position and uploads it.
func (s *LocationSampler) cycle(ctx context.Context, gen uint64) {
	if s.metrics != nil {
		s.metrics.Cycles.Inc()
	}

	sample, err := s.positioner.CurrentPosition(ctx, location.Options{HighAccuracy: s.cfg.HighAccuracy})
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		s.logger.Warn("position unavailable, skipping upload", "error", err)
		if s.metrics != nil {
			s.metrics.Denials.Inc()
		}
		s.mu.Lock()
		if s.generation == gen {
			s.notice = location.DeniedNotice
		}
		s.mu.Unlock()
		return
	}

	if ctx.Err() != nil {
		return
	}

	fp := location.Fingerprint(sample)
	s.mu.Lock()
	redundant := s.generation == gen && s.hasPrint && s.lastPrint == fp
	if s.generation == gen {
		s.lastPrint = fp
		s.hasPrint = true
	}
	s.mu.Unlock()
	if redundant && s.metrics != nil {
		s.metrics.Redundant.Inc()
	}

	stored, err := s.api.UpdateLocation(ctx, location.UpdateFrom(sample))
	if err != nil {
		if errors.Is(err, context.Canceled) || ctx.Err() != nil {
			s.countUpload("canceled")
			return
		}
		s.countUpload("error")
		if errors.Is(err, session.ErrUnauthorized) {
			s.logger.Warn("location upload rejected, session may have expired", "error", err)
			return
		}
		s.logger.Warn("location upload failed", "error", err)
		return
	}

	s.mu.Lock()
	if s.generation != gen {
		s.mu.Unlock()
		s.countUpload("discarded")
		return
	}
	acked := *stored
	if acked.CapturedAt.IsZero() {
		acked.CapturedAt = sample.CapturedAt
	}
	s.current = &acked
	s.lastUpload = time.Now()
	s.mu.Unlock()

	s.countUpload("ok")
	s.logger.Debug("location uploaded",
		"latitude", acked.Latitude,
		"longitude", acked.Longitude,
		"accuracy", acked.Accuracy,
	)
}

func (s *LocationSampler) countUpload(result string) {
	if s.metrics != nil {
		s.metrics.Uploads.WithLabelValues(result).Inc()
	}
}
