// Package notify pushes session summaries to configured messaging
// services via shoutrrr URLs.
package notify

import (
	"context"
	"io"
	"log"
	"slices"
	"time"

	shoutrrr "github.com/nicholas-fedor/shoutrrr"
	router "github.com/nicholas-fedor/shoutrrr/pkg/router"
	stypes "github.com/nicholas-fedor/shoutrrr/pkg/types"

	"github.com/dkorir/faceattend-go/internal/conf"
	"github.com/dkorir/faceattend-go/internal/errors"
	"github.com/dkorir/faceattend-go/internal/logging"
)

const defaultSendTimeout = 10 * time.Second

// Sender delivers notification messages. A nil *Sender is a no-op so
// callers never need to branch on the notify setting.
type Sender struct {
	urls   []string
	router *router.ServiceRouter
}

// NewSender builds a Sender from settings. Returns nil when
// notifications are disabled or no URLs are configured.
func NewSender(settings *conf.NotifySettings) (*Sender, error) {
	if settings == nil || !settings.Enabled || len(settings.Urls) == 0 {
		return nil, nil
	}

	sender, err := shoutrrr.CreateSender(settings.Urls...)
	if err != nil {
		return nil, errors.New(err).
			Component("notify").
			Category(errors.CategoryNotification).
			Build()
	}
	sender.Timeout = defaultSendTimeout
	sender.SetLogger(log.New(io.Discard, "", 0))

	return &Sender{
		urls:   slices.Clone(settings.Urls),
		router: sender,
	}, nil
}

// Send delivers title and message to every configured URL. Per-service
// failures are aggregated into one error; partial delivery is logged,
// not fatal.
func (s *Sender) Send(ctx context.Context, title, message string) error {
	if s == nil {
		return nil
	}
	_ = ctx // the router applies its own per-service timeout

	params := stypes.Params{}
	if title != "" {
		params.SetTitle(title)
	}

	var failed int
	for _, err := range s.router.Send(message, &params) {
		if err != nil {
			failed++
			logging.ForService("notify").Warn("notification delivery failed", "error", err)
		}
	}
	if failed == len(s.urls) && failed > 0 {
		return errors.Newf("all %d notification deliveries failed", failed).
			Component("notify").
			Category(errors.CategoryNotification).
			Build()
	}
	return nil
}
