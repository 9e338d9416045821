package realtime

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Loader produces the current snapshot of a feed's collection, already sorted
// the way subscribers expect it.
type Loader func(ctx context.Context) (interface{}, error)

// Broker connects domain writes to feed broadcasts. Services mark a feed
// dirty after every mutation; the broker coalesces bursts of marks, reloads
// the collection once, and broadcasts the fresh snapshot to subscribers.
type Broker struct {
	hub      *Hub
	log      zerolog.Logger
	debounce time.Duration

	mu      sync.Mutex
	loaders map[string]Loader
	dirty   map[string]struct{}
	wake    chan struct{}
}

// NewBroker creates a Broker. Call RegisterFeed for each feed, then Run.
func NewBroker(hub *Hub, log zerolog.Logger) *Broker {
	b := &Broker{
		hub:      hub,
		log:      log.With().Str("component", "realtime-broker").Logger(),
		debounce: 50 * time.Millisecond,
		loaders:  make(map[string]Loader),
		dirty:    make(map[string]struct{}),
		wake:     make(chan struct{}, 1),
	}
	hub.SetSubscribeHook(b.sendInitialSnapshots)
	return b
}

// RegisterFeed binds a feed name to its snapshot loader. Not safe to call
// after Run has started.
func (b *Broker) RegisterFeed(name string, loader Loader) {
	b.loaders[name] = loader
}

// Feeds returns the registered feed names.
func (b *Broker) Feeds() []string {
	names := make([]string, 0, len(b.loaders))
	for name := range b.loaders {
		names = append(names, name)
	}
	return names
}

// MarkDirty schedules a snapshot broadcast for the feed. Multiple marks
// before the broker wakes coalesce into one reload.
func (b *Broker) MarkDirty(feed string) {
	b.mu.Lock()
	b.dirty[feed] = struct{}{}
	b.mu.Unlock()

	select {
	case b.wake <- struct{}{}:
	default:
	}
}

// Run processes dirty marks until ctx is cancelled. Intended to run as a
// single goroutine started at server boot.
func (b *Broker) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-b.wake:
		}

		// Let a burst of writes settle before reloading.
		timer := time.NewTimer(b.debounce)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}

		b.mu.Lock()
		pending := b.dirty
		b.dirty = make(map[string]struct{})
		b.mu.Unlock()

		for feed := range pending {
			b.publish(ctx, feed)
		}
	}
}

func (b *Broker) publish(ctx context.Context, feed string) {
	if b.hub.FeedCount(feed) == 0 {
		return
	}
	event, ok := b.loadEvent(ctx, feed)
	if !ok {
		return
	}
	b.hub.Broadcast(event)
}

func (b *Broker) sendInitialSnapshots(client *Client, feeds []string) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	for _, feed := range feeds {
		event, ok := b.loadEvent(ctx, feed)
		if !ok {
			continue
		}
		b.hub.SendTo(client, event)
	}
}

func (b *Broker) loadEvent(ctx context.Context, feed string) (Event, bool) {
	loader, ok := b.loaders[feed]
	if !ok {
		return Event{}, false
	}

	snapshot, err := loader(ctx)
	if err != nil {
		b.log.Error().Err(err).Str("feed", feed).Msg("load snapshot")
		return Event{}, false
	}

	data, err := json.Marshal(snapshot)
	if err != nil {
		b.log.Error().Err(err).Str("feed", feed).Msg("marshal snapshot")
		return Event{}, false
	}

	return Event{
		Type:      "snapshot",
		Feed:      feed,
		Timestamp: time.Now().UTC(),
		Data:      data,
	}, true
}
