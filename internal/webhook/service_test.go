package webhook_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/victornm/jackpot/internal/domain"
	"github.com/victornm/jackpot/internal/event"
	"github.com/victornm/jackpot/internal/webhook"
)

func TestService_Handle(t *testing.T) {
	tests := map[string]webhook.Event{
		"installed":   {Event: webhook.EventInstalled, FID: 1},
		"launched":    {Event: webhook.EventLaunched, FID: 2},
		"uninstalled": {Event: webhook.EventUninstalled, FID: 3},
		"unknown":     {Event: "miniapp.renamed", FID: 4},
		"empty":       {},
	}

	for name, e := range tests {
		t.Run(name, func(t *testing.T) {
			var (
				mu  sync.Mutex
				got []domain.EventMiniApp
			)

			eb := event.NewBus()
			eb.Subscribe(domain.EventNameMiniApp, func(ctx context.Context, ev event.Event) error {
				mu.Lock()
				got = append(got, ev.(domain.EventMiniApp))
				mu.Unlock()
				return nil
			})

			s := webhook.NewService(webhook.Config{EventBus: eb})
			require.NoError(t, s.Handle(context.Background(), e))

			eb.Stop()
			assert.Equal(t, []domain.EventMiniApp{{Type: e.Event, PlayerID: e.FID}}, got)
		})
	}
}

func TestService_Health(t *testing.T) {
	at := time.Date(2025, 3, 1, 12, 0, 0, 0, time.FixedZone("ICT", 7*3600))
	s := webhook.NewService(webhook.Config{Now: func() time.Time { return at }})

	h := s.Health()
	assert.Equal(t, "ok", h.Status)
	assert.Equal(t, webhook.ServiceName, h.Service)
	assert.True(t, at.Equal(h.Timestamp))
	assert.Equal(t, time.UTC, h.Timestamp.Location())
}
