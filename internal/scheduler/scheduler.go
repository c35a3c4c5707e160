package scheduler

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/bobby-s-dev/weather-refresh/internal/models"
	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// DefaultInterval is the fixed spacing between refresh ticks.
const DefaultInterval = 10 * time.Minute

var ErrAlreadyRunning = errors.New("refresh session already running")

type LocationSource interface {
	LastKnownPosition(ctx context.Context) (models.Coordinate, error)
}

type WeatherClient interface {
	FetchConditions(ctx context.Context, lat, lon float64) (*models.WeatherReading, error)
}

type Display interface {
	Update(reading models.WeatherReading)
}

// Dispatcher runs fn on the UI context. It reports false when fn was
// dropped.
type Dispatcher interface {
	Dispatch(fn func()) bool
}

// Session is the state of one refresh session. It is owned by the screen
// and handed to Start and Stop; at most one timer is armed per session.
type Session struct {
	ID       string
	Interval time.Duration

	mu        sync.Mutex
	running   bool
	timer     Timer
	gen       uint64
	inFlight  bool
	startedAt time.Time
	nextRun   time.Time
}

func NewSession(interval time.Duration) *Session {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Session{
		ID:       uuid.NewString(),
		Interval: interval,
	}
}

func (s *Session) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

func (s *Session) NextRun() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.nextRun
}

func (s *Session) StartedAt() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.startedAt
}

// current reports whether results produced under gen may still be shown.
func (s *Session) current(gen uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running && s.gen == gen
}

func (s *Session) finish(gen uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.gen == gen {
		s.inFlight = false
	}
}

type Stats struct {
	Ticks       uint64    `json:"ticks"`
	Skipped     uint64    `json:"skipped"`
	Unavailable uint64    `json:"location_unavailable"`
	Failures    uint64    `json:"fetch_failures"`
	Updates     uint64    `json:"display_updates"`
	Discarded   uint64    `json:"discarded"`
	LastTick    time.Time `json:"last_tick"`
}

type Scheduler struct {
	location LocationSource
	weather  WeatherClient
	display  Display
	ui       Dispatcher
	clock    Clock
	logger   *zap.Logger
	wg       sync.WaitGroup

	mu    sync.Mutex
	stats Stats
}

type Option func(*Scheduler)

func WithClock(c Clock) Option {
	return func(s *Scheduler) {
		s.clock = c
	}
}

func NewScheduler(location LocationSource, weather WeatherClient, display Display, ui Dispatcher, logger *zap.Logger, opts ...Option) *Scheduler {
	s := &Scheduler{
		location: location,
		weather:  weather,
		display:  display,
		ui:       ui,
		clock:    realClock{},
		logger:   logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start moves the session to running, fires the first tick immediately and
// arms a tick every session.Interval after it. ctx bounds the work of every
// tick of this run.
func (s *Scheduler) Start(ctx context.Context, session *Session) error {
	session.mu.Lock()
	if session.running {
		session.mu.Unlock()
		return ErrAlreadyRunning
	}
	session.running = true
	session.gen++
	session.inFlight = false
	gen := session.gen
	now := s.clock.Now()
	session.startedAt = now
	session.mu.Unlock()

	schedule := cron.Every(session.Interval)

	s.logger.Info("Refresh session started",
		zap.String("session", session.ID),
		zap.Duration("interval", session.Interval))

	s.fire(ctx, session, schedule, gen, now)
	return nil
}

// Stop cancels the pending tick. Work already in flight may finish, but its
// result is dropped. Stopping an idle session is a no-op.
func (s *Scheduler) Stop(session *Session) {
	session.mu.Lock()
	defer session.mu.Unlock()

	if !session.running {
		return
	}

	session.running = false
	session.gen++
	session.inFlight = false
	if session.timer != nil {
		session.timer.Stop()
		session.timer = nil
	}
	session.nextRun = time.Time{}

	s.logger.Info("Refresh session stopped", zap.String("session", session.ID))
}

// Wait blocks until every started tick has returned.
func (s *Scheduler) Wait() {
	s.wg.Wait()
}

func (s *Scheduler) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stats
}

func (s *Scheduler) count(f func(st *Stats)) {
	s.mu.Lock()
	f(&s.stats)
	s.mu.Unlock()
}

// fire runs the tick planned for the given time and arms the next one
// before any work starts.
func (s *Scheduler) fire(ctx context.Context, session *Session, schedule cron.Schedule, gen uint64, planned time.Time) {
	session.mu.Lock()
	if !session.running || session.gen != gen {
		session.mu.Unlock()
		return
	}

	// ConstantDelaySchedule drops the sub-second part of planned; add it
	// back so ticks stay exactly one interval apart.
	next := schedule.Next(planned).Add(time.Duration(planned.Nanosecond()))
	session.nextRun = next
	session.timer = s.clock.AfterFunc(next.Sub(s.clock.Now()), func() {
		s.fire(ctx, session, schedule, gen, next)
	})

	skip := session.inFlight
	if !skip {
		session.inFlight = true
		s.wg.Add(1)
	}
	session.mu.Unlock()

	if skip {
		s.count(func(st *Stats) { st.Skipped++ })
		s.logger.Debug("Skipping tick, previous refresh still in flight",
			zap.String("session", session.ID),
			zap.Time("next_run", next))
		return
	}

	s.count(func(st *Stats) {
		st.Ticks++
		st.LastTick = planned
	})
	s.logger.Debug("Scheduler tick",
		zap.String("session", session.ID),
		zap.Time("next_run", next))

	go s.runTick(ctx, session, gen)
}

func (s *Scheduler) runTick(ctx context.Context, session *Session, gen uint64) {
	defer s.wg.Done()
	defer session.finish(gen)

	startTime := s.clock.Now()

	if !session.current(gen) {
		return
	}

	coord, err := s.location.LastKnownPosition(ctx)
	if err != nil {
		s.count(func(st *Stats) { st.Unavailable++ })
		s.logger.Debug("No last known position, skipping refresh",
			zap.String("session", session.ID),
			zap.Error(err))
		return
	}

	if !session.current(gen) {
		s.logger.Debug("Session stopped before fetch", zap.String("session", session.ID))
		return
	}

	reading, err := s.weather.FetchConditions(ctx, coord.Latitude, coord.Longitude)
	if err != nil {
		s.count(func(st *Stats) { st.Failures++ })
		s.logger.Warn("Weather fetch failed",
			zap.String("session", session.ID),
			zap.Error(err),
			zap.Duration("duration", s.clock.Now().Sub(startTime)))
		return
	}

	value := *reading
	queued := s.ui.Dispatch(func() {
		if !session.current(gen) {
			s.count(func(st *Stats) { st.Discarded++ })
			s.logger.Debug("Discarding reading from stopped session", zap.String("session", session.ID))
			return
		}
		s.display.Update(value)
		s.count(func(st *Stats) { st.Updates++ })
	})
	if !queued {
		s.count(func(st *Stats) { st.Discarded++ })
		return
	}

	s.logger.Info("Refresh completed",
		zap.String("session", session.ID),
		zap.Duration("duration", s.clock.Now().Sub(startTime)))
}
