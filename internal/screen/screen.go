package screen

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/bobby-s-dev/weather-refresh/internal/models"
	"github.com/bobby-s-dev/weather-refresh/internal/scheduler"
	"github.com/bobby-s-dev/weather-refresh/internal/services"
	"go.uber.org/zap"
)

var ErrAlreadyCreated = errors.New("screen already created")

type State int

const (
	StateIdle State = iota
	StateAwaitingPermission
	StateRunning
	StateDenied
	StateDestroyed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateAwaitingPermission:
		return "awaiting_permission"
	case StateRunning:
		return "running"
	case StateDenied:
		return "denied"
	case StateDestroyed:
		return "destroyed"
	default:
		return "unknown"
	}
}

type Gate interface {
	CheckAndRequest(ctx context.Context, onResult func(models.PermissionStatus)) models.PermissionStatus
}

type Refresher interface {
	Start(ctx context.Context, session *scheduler.Session) error
	Stop(session *scheduler.Session)
}

type Notifier interface {
	Notice(msg string)
}

type Status struct {
	State     string    `json:"state"`
	SessionID string    `json:"session_id"`
	Running   bool      `json:"running"`
	Interval  string    `json:"interval"`
	NextRun   time.Time `json:"next_run,omitempty"`
}

// Screen owns the refresh session for one visible weather screen. The
// session starts only after the location grant and stops on Destroy.
type Screen struct {
	gate      Gate
	refresher Refresher
	notifier  Notifier
	ui        scheduler.Dispatcher
	session   *scheduler.Session
	logger    *zap.Logger

	mu     sync.Mutex
	state  State
	ctx    context.Context
	cancel context.CancelFunc
}

func New(gate Gate, refresher Refresher, notifier Notifier, ui scheduler.Dispatcher, session *scheduler.Session, logger *zap.Logger) *Screen {
	return &Screen{
		gate:      gate,
		refresher: refresher,
		notifier:  notifier,
		ui:        ui,
		session:   session,
		logger:    logger.With(zap.String("session", session.ID)),
	}
}

// Create runs the permission gate. If the grant is already held the session
// starts before Create returns; otherwise it starts when the user grants.
func (s *Screen) Create(ctx context.Context) error {
	s.mu.Lock()
	if s.state != StateIdle {
		s.mu.Unlock()
		return ErrAlreadyCreated
	}
	s.state = StateAwaitingPermission
	s.ctx, s.cancel = context.WithCancel(ctx)
	runCtx := s.ctx
	s.mu.Unlock()

	s.logger.Info("Screen created")

	if status := s.gate.CheckAndRequest(runCtx, s.onPermission); status == models.PermissionGranted {
		s.onPermission(status)
	}
	return nil
}

func (s *Screen) onPermission(status models.PermissionStatus) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateAwaitingPermission {
		s.logger.Debug("Ignoring permission result",
			zap.String("permission", status.String()),
			zap.String("state", s.state.String()))
		return
	}

	if status != models.PermissionGranted {
		s.state = StateDenied
		s.logger.Info("Refresh disabled, location permission refused")
		s.ui.Dispatch(func() {
			s.notifier.Notice(services.PermissionNotice)
		})
		return
	}

	if err := s.refresher.Start(s.ctx, s.session); err != nil {
		s.logger.Error("Failed to start refresh session", zap.Error(err))
		return
	}
	s.state = StateRunning
}

// Destroy stops the session. Calling it more than once is harmless, and a
// grant that arrives afterwards is ignored.
func (s *Screen) Destroy() {
	s.mu.Lock()
	prev := s.state
	if prev == StateDestroyed {
		s.mu.Unlock()
		return
	}
	s.state = StateDestroyed
	cancel := s.cancel
	s.mu.Unlock()

	if prev == StateRunning {
		s.refresher.Stop(s.session)
	}
	if cancel != nil {
		cancel()
	}

	s.logger.Info("Screen destroyed", zap.String("previous_state", prev.String()))
}

func (s *Screen) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Screen) Status() Status {
	s.mu.Lock()
	state := s.state
	s.mu.Unlock()

	return Status{
		State:     state.String(),
		SessionID: s.session.ID,
		Running:   s.session.Running(),
		Interval:  s.session.Interval.String(),
		NextRun:   s.session.NextRun(),
	}
}
