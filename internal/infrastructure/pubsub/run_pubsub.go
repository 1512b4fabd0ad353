package pubsub

import (
	"context"
	"slices"
	"sync"

	"shop-insights/internal/domain"
	"shop-insights/internal/ports"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const channelBuffer = 16

// RunChannel is one subscriber's stream of ingestion run events
type RunChannel struct {
	ID     string
	Filter RunFilter
	Events chan *domain.IngestionRun
	ctx    context.Context
	cancel context.CancelFunc
}

// RunFilter narrows the runs a subscriber receives. Zero values match everything.
type RunFilter struct {
	TenantID domain.TenantID
	Statuses []domain.RunStatus
}

func (f RunFilter) matches(run *domain.IngestionRun) bool {
	if f.TenantID != 0 && run.TenantID != f.TenantID {
		return false
	}
	if len(f.Statuses) > 0 && !slices.Contains(f.Statuses, run.Status) {
		return false
	}
	return true
}

// RunPubSub fans ingestion run events out to live subscribers such as dashboard event streams.
// Slow subscribers lose events rather than block ingestion.
type RunPubSub struct {
	mu       sync.RWMutex
	channels map[string]*RunChannel
	logger   zerolog.Logger
}

var _ ports.RunPublisher = (*RunPubSub)(nil)

// NewRunPubSub creates a new ingestion run pub/sub
func NewRunPubSub(logger zerolog.Logger) *RunPubSub {
	return &RunPubSub{
		channels: make(map[string]*RunChannel),
		logger:   logger,
	}
}

// Subscribe opens a channel that lives until ctx ends or Unsubscribe is called
func (ps *RunPubSub) Subscribe(ctx context.Context, filter RunFilter) *RunChannel {
	subCtx, cancel := context.WithCancel(ctx)

	channel := &RunChannel{
		ID:     uuid.NewString(),
		Filter: filter,
		Events: make(chan *domain.IngestionRun, channelBuffer),
		ctx:    subCtx,
		cancel: cancel,
	}

	ps.mu.Lock()
	ps.channels[channel.ID] = channel
	ps.mu.Unlock()

	ps.logger.Debug().
		Str("channelId", channel.ID).
		Uint("tenant", uint(filter.TenantID)).
		Msg("Run subscription created")

	go func() {
		<-subCtx.Done()
		ps.Unsubscribe(channel.ID)
	}()

	return channel
}

// Unsubscribe closes and removes a channel
func (ps *RunPubSub) Unsubscribe(channelID string) {
	ps.mu.Lock()
	defer ps.mu.Unlock()

	channel, exists := ps.channels[channelID]
	if !exists {
		return
	}

	close(channel.Events)
	channel.cancel()
	delete(ps.channels, channelID)

	ps.logger.Debug().Str("channelId", channelID).Msg("Run subscription removed")
}

// Publish delivers a run to every matching subscriber without blocking
func (ps *RunPubSub) Publish(run *domain.IngestionRun) {
	ps.mu.RLock()
	defer ps.mu.RUnlock()

	delivered := 0
	for _, channel := range ps.channels {
		if !channel.Filter.matches(run) {
			continue
		}
		select {
		case channel.Events <- run:
			delivered++
		case <-channel.ctx.Done():
		default:
			ps.logger.Warn().
				Str("channelId", channel.ID).
				Str("run", run.ID).
				Msg("Channel buffer full, dropping run event")
		}
	}

	if delivered > 0 {
		ps.logger.Debug().
			Str("run", run.ID).
			Str("status", string(run.Status)).
			Int("subscribers", delivered).
			Msg("Published run event")
	}
}

// Subscribers returns the number of open subscriptions
func (ps *RunPubSub) Subscribers() int {
	ps.mu.RLock()
	defer ps.mu.RUnlock()
	return len(ps.channels)
}
