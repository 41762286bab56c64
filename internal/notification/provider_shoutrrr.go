package notification

import (
	"context"
	"fmt"
	"io"
	"log"
	"slices"
	"time"

	shoutrrr "github.com/nicholas-fedor/shoutrrr"
	router "github.com/nicholas-fedor/shoutrrr/pkg/router"
	stypes "github.com/nicholas-fedor/shoutrrr/pkg/types"

	"github.com/petwatch/petwatch-go/internal/errors"
)

// ShoutrrrProvider delivers through nicholas-fedor/shoutrrr service URLs,
// covering dozens of messaging backends (ntfy, gotify, slack, email and so
// on) with a single sender.
type ShoutrrrProvider struct {
	name    string
	enabled bool
	urls    []string
	sender  *router.ServiceRouter
	timeout time.Duration
}

// NewShoutrrrProvider creates a shoutrrr provider for the given service URLs.
func NewShoutrrrProvider(enabled bool, urls []string, timeout time.Duration) *ShoutrrrProvider {
	return &ShoutrrrProvider{
		name:    "shoutrrr",
		enabled: enabled,
		urls:    slices.Clone(urls),
		timeout: timeout,
	}
}

func (p *ShoutrrrProvider) GetName() string { return p.name }
func (p *ShoutrrrProvider) IsEnabled() bool { return p.enabled }

// ValidateConfig builds the sender, which validates every service URL.
func (p *ShoutrrrProvider) ValidateConfig() error {
	if !p.enabled {
		return nil
	}
	if len(p.urls) == 0 {
		return fmt.Errorf("shoutrrr requires at least one service URL")
	}
	sender, err := shoutrrr.CreateSender(p.urls...)
	if err != nil {
		return fmt.Errorf("invalid shoutrrr URL: %w", err)
	}
	p.sender = sender
	if p.timeout > 0 {
		p.sender.Timeout = p.timeout
	}
	p.sender.SetLogger(log.New(io.Discard, "", 0))
	return nil
}

// Send pushes the notification text through every configured service URL.
func (p *ShoutrrrProvider) Send(ctx context.Context, n *Notification) error {
	if p.sender == nil {
		if err := p.ValidateConfig(); err != nil {
			return err
		}
	}
	_ = ctx // the router enforces its own timeout

	params := stypes.Params{}
	params.SetTitle("PetWatch")
	sendErrs := p.sender.Send(n.Message, &params)

	var errs []error
	for _, e := range sendErrs {
		if e != nil {
			errs = append(errs, e)
		}
	}
	if len(errs) > 0 {
		return errors.New(errors.Join(errs...)).
			Component("shoutrrr").
			Category(errors.CategoryDelivery).
			Build()
	}
	return nil
}
