package services

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/bobby-s-dev/weather-refresh/internal/models"
	"go.uber.org/zap"
)

// ErrPermissionDenied means the user refused the location grant. The
// session never starts after it.
var ErrPermissionDenied = errors.New("location permission denied")

// PermissionNotice is shown once when the grant is refused.
const PermissionNotice = "Permission is Necessary"

// Capability reports whether the fine-location grant is currently held.
type Capability interface {
	Granted() bool
}

// Prompter asks the user for the fine-location grant.
type Prompter interface {
	Request(ctx context.Context) (bool, error)
}

// Grants is the process-wide fine-location capability.
type Grants struct {
	granted atomic.Bool
}

func NewGrants(granted bool) *Grants {
	g := &Grants{}
	g.granted.Store(granted)
	return g
}

func (g *Grants) Granted() bool { return g.granted.Load() }

func (g *Grants) Grant() { g.granted.Store(true) }

type PermissionGate struct {
	grants   *Grants
	prompter Prompter
	logger   *zap.Logger
	prompted atomic.Bool
}

func NewPermissionGate(grants *Grants, prompter Prompter, logger *zap.Logger) *PermissionGate {
	return &PermissionGate{
		grants:   grants,
		prompter: prompter,
		logger:   logger,
	}
}

// CheckAndRequest returns PermissionGranted when the grant is already held;
// onResult is not called in that case. Otherwise it returns
// PermissionUnknown and prompts once in the background, delivering the
// decision to onResult exactly once. A second call never prompts again.
func (g *PermissionGate) CheckAndRequest(ctx context.Context, onResult func(models.PermissionStatus)) models.PermissionStatus {
	if g.grants.Granted() {
		return models.PermissionGranted
	}

	if !g.prompted.CompareAndSwap(false, true) {
		g.logger.Warn("Location permission already requested this session")
		return models.PermissionUnknown
	}

	var once sync.Once
	deliver := func(status models.PermissionStatus) {
		once.Do(func() {
			if onResult != nil {
				onResult(status)
			}
		})
	}

	go func() {
		ok, err := g.prompter.Request(ctx)
		if err != nil {
			g.logger.Warn("Location permission prompt failed", zap.Error(err))
			deliver(models.PermissionDenied)
			return
		}
		if !ok {
			g.logger.Info("Location permission denied")
			deliver(models.PermissionDenied)
			return
		}

		g.grants.Grant()
		g.logger.Info("Location permission granted")
		deliver(models.PermissionGranted)
	}()

	return models.PermissionUnknown
}

// TerminalPrompter asks on a terminal. Anything but y or yes, including
// end of input, is a refusal.
type TerminalPrompter struct {
	in  io.Reader
	out io.Writer
}

func NewTerminalPrompter(in io.Reader, out io.Writer) *TerminalPrompter {
	return &TerminalPrompter{in: in, out: out}
}

func (p *TerminalPrompter) Request(ctx context.Context) (bool, error) {
	if _, err := fmt.Fprint(p.out, "Allow access to this device's location? [y/N] "); err != nil {
		return false, err
	}

	answer := make(chan string, 1)
	errs := make(chan error, 1)
	// The reader is not interruptible. If ctx ends first it stays blocked on
	// in until input arrives; with one prompt per process that leak is
	// accepted.
	go func() {
		line, err := bufio.NewReader(p.in).ReadString('\n')
		if err != nil && !(errors.Is(err, io.EOF) && line != "") {
			errs <- err
			return
		}
		answer <- line
	}()

	select {
	case <-ctx.Done():
		return false, ctx.Err()
	case err := <-errs:
		if errors.Is(err, io.EOF) {
			return false, nil
		}
		return false, err
	case line := <-answer:
		switch strings.ToLower(strings.TrimSpace(line)) {
		case "y", "yes":
			return true, nil
		default:
			return false, nil
		}
	}
}
