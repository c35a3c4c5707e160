package ui

import (
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/bobby-s-dev/weather-refresh/internal/models"
	"go.uber.org/zap/zaptest"
)

func TestLoopRunsTasksInOrderOnOneGoroutine(t *testing.T) {
	l := NewLoop(8, zaptest.NewLogger(t))
	defer l.Close()

	var (
		mu  sync.Mutex
		got []int
	)
	done := make(chan struct{})
	for i := 0; i < 5; i++ {
		i := i
		if !l.Dispatch(func() {
			mu.Lock()
			got = append(got, i)
			mu.Unlock()
			if i == 4 {
				close(done)
			}
		}) {
			t.Fatal("dispatch rejected on an open loop")
		}
	}

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("tasks did not run")
	}

	mu.Lock()
	defer mu.Unlock()
	for i, v := range got {
		if v != i {
			t.Fatalf("tasks ran out of order: %v", got)
		}
	}
}

func TestLoopSurvivesPanickingTask(t *testing.T) {
	l := NewLoop(1, zaptest.NewLogger(t))
	defer l.Close()

	l.Dispatch(func() { panic("boom") })

	ran := make(chan struct{})
	l.Dispatch(func() { close(ran) })
	select {
	case <-ran:
	case <-time.After(2 * time.Second):
		t.Fatal("loop stopped after a panic")
	}
}

func TestDispatchAfterCloseIsRejected(t *testing.T) {
	l := NewLoop(1, zaptest.NewLogger(t))
	l.Close()
	l.Close()

	if l.Dispatch(func() { t.Error("task ran after close") }) {
		t.Fatal("expected dispatch to be rejected after close")
	}
}

func TestTerminalRender(t *testing.T) {
	var out strings.Builder
	term := NewTerminal(&out, zaptest.NewLogger(t))

	term.Render(models.DisplayFields{
		Temperature: "22°C",
		Condition:   "clear sky",
		Details:     "Feels like 19°C",
		Rain:        "Heavy rain is expected. The low will be 15°C.",
	})
	term.Notice("Permission is Necessary")

	s := out.String()
	for _, want := range []string{"22°C\n", "clear sky\n", "Feels like 19°C\n", "The low will be 15°C.\n", "! Permission is Necessary\n"} {
		if !strings.Contains(s, want) {
			t.Errorf("output missing %q:\n%s", want, s)
		}
	}
}
