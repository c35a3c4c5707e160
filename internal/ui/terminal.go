package ui

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/bobby-s-dev/weather-refresh/internal/models"
	"go.uber.org/zap"
)

// Terminal draws the four display fields as a block of text.
type Terminal struct {
	mu     sync.Mutex
	out    io.Writer
	logger *zap.Logger
}

func NewTerminal(out io.Writer, logger *zap.Logger) *Terminal {
	return &Terminal{out: out, logger: logger}
}

func (t *Terminal) Render(fields models.DisplayFields) {
	var b strings.Builder
	b.WriteString(strings.Repeat("-", 40) + "\n")
	fmt.Fprintf(&b, "%s\n", fields.Temperature)
	fmt.Fprintf(&b, "%s\n", fields.Condition)
	fmt.Fprintf(&b, "%s\n", fields.Details)
	fmt.Fprintf(&b, "%s\n", fields.Rain)

	t.write(b.String())
}

// Notice shows a transient one-line message.
func (t *Terminal) Notice(msg string) {
	t.write("! " + msg + "\n")
}

func (t *Terminal) write(s string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, err := io.WriteString(t.out, s); err != nil {
		t.logger.Warn("Terminal write failed", zap.Error(err))
	}
}
