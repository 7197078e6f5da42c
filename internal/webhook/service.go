package webhook

import (
	"context"
	"log/slog"
	"time"

	"github.com/victornm/jackpot/internal/domain"
	"github.com/victornm/jackpot/internal/event"
)

const (
	EventInstalled   = "miniapp.installed"
	EventLaunched    = "miniapp.launched"
	EventUninstalled = "miniapp.uninstalled"

	ServiceName = "Farcaster Mini-App Webhook"
)

type Config struct {
	EventBus *event.Bus
	Now      func() time.Time
}

// Service receives lifecycle notifications about the mini-app from its host.
type Service struct {
	eb  *event.Bus
	now func() time.Time
}

func NewService(c Config) *Service {
	if c.Now == nil {
		c.Now = time.Now
	}

	return &Service{eb: c.EventBus, now: c.Now}
}

// Event is the notification body sent by the host. Only the fields used here are decoded.
type Event struct {
	Event string `json:"event"`
	FID   int64  `json:"fid"`
}

// Handle logs the notification and republishes it on the event bus. Unknown event types are accepted.
func (s *Service) Handle(ctx context.Context, e Event) error {
	slog.InfoContext(ctx, "webhook: received", "event", e.Event, "fid", e.FID)

	switch e.Event {
	case EventInstalled:
		slog.InfoContext(ctx, "webhook: mini-app installed", "fid", e.FID)
	case EventLaunched:
		slog.InfoContext(ctx, "webhook: mini-app launched", "fid", e.FID)
	case EventUninstalled:
		slog.InfoContext(ctx, "webhook: mini-app uninstalled", "fid", e.FID)
	default:
		slog.WarnContext(ctx, "webhook: unknown event type", "event", e.Event)
	}

	s.eb.Publish(ctx, domain.EventMiniApp{Type: e.Event, PlayerID: e.FID})

	return nil
}

type Health struct {
	Status    string    `json:"status"`
	Service   string    `json:"service"`
	Timestamp time.Time `json:"timestamp"`
}

func (s *Service) Health() Health {
	return Health{
		Status:    "ok",
		Service:   ServiceName,
		Timestamp: s.now().UTC(),
	}
}
