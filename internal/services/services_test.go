package services

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/bobby-s-dev/weather-refresh/internal/models"
	"github.com/bobby-s-dev/weather-refresh/internal/storage"
	"go.uber.org/zap/zaptest"
)

type recordingRenderer struct {
	mu     sync.Mutex
	frames []models.DisplayFields
}

func (r *recordingRenderer) Render(fields models.DisplayFields) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.frames = append(r.frames, fields)
}

func TestDisplayUpdateFormatsFields(t *testing.T) {
	renderer := &recordingRenderer{}
	d := NewDisplayState(renderer, zaptest.NewLogger(t))

	d.Update(models.WeatherReading{
		TemperatureC: 21.6,
		Description:  "clear sky",
		FeelsLikeC:   19.2,
		TempMinC:     15.0,
		TempMaxC:     23.4,
	})

	got := d.Snapshot()
	if got.Temperature != "22°C" {
		t.Errorf("temperature: got %q", got.Temperature)
	}
	if got.Condition != "clear sky" {
		t.Errorf("condition: got %q", got.Condition)
	}
	if got.Details != "Feels like 19°C" {
		t.Errorf("details: got %q", got.Details)
	}
	if got.Rain != "Heavy rain is expected. The low will be 15°C." {
		t.Errorf("rain: got %q", got.Rain)
	}
	if got.UpdatedAt.IsZero() {
		t.Error("expected updated_at to be set")
	}

	if len(renderer.frames) != 1 || renderer.frames[0].Temperature != "22°C" {
		t.Fatalf("expected one rendered frame, got %+v", renderer.frames)
	}
}

func TestDisplayRounding(t *testing.T) {
	cases := []struct {
		in   float64
		want string
	}{
		{21.5, "22°C"},
		{21.49, "21°C"},
		{-2.5, "-3°C"},
		{-0.4, "0°C"},
		{0, "0°C"},
	}

	d := NewDisplayState(nil, zaptest.NewLogger(t))
	for _, tc := range cases {
		d.Update(models.WeatherReading{TemperatureC: tc.in})
		if got, _ := d.Field(models.FieldTemperature); got != tc.want {
			t.Errorf("round(%v): expected %q, got %q", tc.in, tc.want, got)
		}
	}
}

func TestDisplayUnsetBeforeFirstUpdate(t *testing.T) {
	d := NewDisplayState(nil, zaptest.NewLogger(t))
	if _, ok := d.Field(models.FieldTemperature); ok {
		t.Fatal("expected temperature to be unset")
	}
}

type countingStore struct {
	storage.FixStore
	calls int
}

func (c *countingStore) LastFix(ctx context.Context) (models.Fix, error) {
	c.calls++
	return c.FixStore.LastFix(ctx)
}

func TestLocationSourceFailsClosedWithoutGrant(t *testing.T) {
	store := &countingStore{FixStore: storage.NewMemoryStore()}
	_ = store.SaveFix(context.Background(), models.Fix{Coordinate: models.Coordinate{Latitude: 1, Longitude: 2}})

	src := NewLocationSource(NewGrants(false), store, zaptest.NewLogger(t))
	if _, err := src.LastKnownPosition(context.Background()); !errors.Is(err, ErrLocationUnavailable) {
		t.Fatalf("expected ErrLocationUnavailable, got %v", err)
	}
	if store.calls != 0 {
		t.Fatalf("expected the store not to be read, got %d reads", store.calls)
	}
}

func TestLocationSourceNoFixIsUnavailable(t *testing.T) {
	src := NewLocationSource(NewGrants(true), storage.NewMemoryStore(), zaptest.NewLogger(t))
	_, err := src.LastKnownPosition(context.Background())
	if !errors.Is(err, ErrLocationUnavailable) {
		t.Fatalf("expected ErrLocationUnavailable, got %v", err)
	}
}

func TestLocationSourceReturnsLastFix(t *testing.T) {
	store := storage.NewMemoryStore()
	want := models.Coordinate{Latitude: 50.0755, Longitude: 14.4378}
	_ = store.SaveFix(context.Background(), models.Fix{Coordinate: want})

	src := NewLocationSource(NewGrants(true), store, zaptest.NewLogger(t))
	got, err := src.LastKnownPosition(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != want {
		t.Fatalf("expected %+v, got %+v", want, got)
	}
}

type stubPrompter struct {
	answer bool
	err    error
	calls  int
	mu     sync.Mutex
}

func (p *stubPrompter) Request(context.Context) (bool, error) {
	p.mu.Lock()
	p.calls++
	p.mu.Unlock()
	return p.answer, p.err
}

func awaitStatus(t *testing.T, ch <-chan models.PermissionStatus) models.PermissionStatus {
	t.Helper()
	select {
	case s := <-ch:
		return s
	case <-time.After(2 * time.Second):
		t.Fatal("permission result was never delivered")
		return models.PermissionUnknown
	}
}

func TestPermissionAlreadyGranted(t *testing.T) {
	prompter := &stubPrompter{}
	gate := NewPermissionGate(NewGrants(true), prompter, zaptest.NewLogger(t))

	status := gate.CheckAndRequest(context.Background(), func(models.PermissionStatus) {
		t.Error("callback must not run when already granted")
	})
	if status != models.PermissionGranted {
		t.Fatalf("expected granted, got %v", status)
	}
	if prompter.calls != 0 {
		t.Fatalf("expected no prompt, got %d", prompter.calls)
	}
}

func TestPermissionPromptOutcomes(t *testing.T) {
	cases := []struct {
		name     string
		prompter *stubPrompter
		want     models.PermissionStatus
		granted  bool
	}{
		{"granted", &stubPrompter{answer: true}, models.PermissionGranted, true},
		{"denied", &stubPrompter{answer: false}, models.PermissionDenied, false},
		{"prompt error", &stubPrompter{err: errors.New("no tty")}, models.PermissionDenied, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			grants := NewGrants(false)
			gate := NewPermissionGate(grants, tc.prompter, zaptest.NewLogger(t))

			results := make(chan models.PermissionStatus, 2)
			status := gate.CheckAndRequest(context.Background(), func(s models.PermissionStatus) { results <- s })
			if status != models.PermissionUnknown {
				t.Fatalf("expected unknown before the decision, got %v", status)
			}

			if got := awaitStatus(t, results); got != tc.want {
				t.Fatalf("expected %v, got %v", tc.want, got)
			}
			if grants.Granted() != tc.granted {
				t.Fatalf("expected granted=%v", tc.granted)
			}

			// A second request never prompts again.
			gate.CheckAndRequest(context.Background(), func(s models.PermissionStatus) { results <- s })
			select {
			case s := <-results:
				t.Fatalf("unexpected second delivery %v", s)
			case <-time.After(50 * time.Millisecond):
			}
			if tc.prompter.calls != 1 {
				t.Fatalf("expected one prompt, got %d", tc.prompter.calls)
			}
		})
	}
}

func TestTerminalPrompter(t *testing.T) {
	cases := map[string]bool{
		"y\n":   true,
		"YES\n": true,
		"n\n":   false,
		"\n":    false,
		"":      false,
		"maybe": false,
		" yes ": true,
	}

	for input, want := range cases {
		var out strings.Builder
		p := NewTerminalPrompter(strings.NewReader(input), &out)
		got, err := p.Request(context.Background())
		if err != nil {
			t.Fatalf("input %q: unexpected error %v", input, err)
		}
		if got != want {
			t.Errorf("input %q: expected %v, got %v", input, want, got)
		}
		if !strings.Contains(out.String(), "[y/N]") {
			t.Errorf("input %q: prompt not written", input)
		}
	}
}

func TestTerminalPrompterReturnsOnCancel(t *testing.T) {
	in, w := io.Pipe()
	t.Cleanup(func() { w.Close() })

	var out strings.Builder
	p := NewTerminalPrompter(in, &out)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	done := make(chan error, 1)
	go func() {
		granted, err := p.Request(ctx)
		if granted {
			err = errors.New("granted without an answer")
		}
		done <- err
	}()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("expected context.Canceled, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Request blocked on input after cancel")
	}
}
