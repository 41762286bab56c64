package notification

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"
)

// ConsoleProvider prints notifications to standard error. It exists for
// headless test runs and as a last-resort channel when no messaging backend
// is configured.
type ConsoleProvider struct {
	name    string
	enabled bool

	mu  sync.Mutex
	out io.Writer
}

// NewConsoleProvider creates a console provider writing to stderr.
func NewConsoleProvider(enabled bool) *ConsoleProvider {
	return &ConsoleProvider{
		name:    "console",
		enabled: enabled,
		out:     os.Stderr,
	}
}

func (p *ConsoleProvider) GetName() string      { return p.name }
func (p *ConsoleProvider) IsEnabled() bool      { return p.enabled }
func (p *ConsoleProvider) ValidateConfig() error { return nil }

// SetOutput redirects output, used by tests.
func (p *ConsoleProvider) SetOutput(w io.Writer) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.out = w
}

// Send writes a single line describing the notification.
func (p *ConsoleProvider) Send(_ context.Context, n *Notification) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	line := fmt.Sprintf("[%s] %s %s", n.Timestamp.Format("2006-01-02 15:04:05"), n.Kind, n.Message)
	if n.ImagePath != "" {
		line += " (" + n.ImagePath + ")"
	}
	_, err := fmt.Fprintln(p.out, line)
	return err
}
