package docstore

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

const refreshTimeout = 10 * time.Second

// allCollections is the change event that refreshes every collection.
const allCollections = ""

type loadFunc func(ctx context.Context, collection string) (map[string]json.RawMessage, error)

// broker keeps per-collection versions and fans snapshots out to subscribers.
type broker struct {
	load loadFunc

	mu     sync.Mutex
	topics map[string]*topic
	closed bool
}

type topic struct {
	// mu serializes loads and deliveries so versions reach subscribers in commit order
	mu      sync.Mutex
	version uint64
	subs    map[*Subscription]struct{}
}

// Subscription is a live view of one collection.
// C carries the latest snapshot; a slow reader skips intermediate versions.
type Subscription struct {
	C <-chan Snapshot

	ch     chan Snapshot
	topic  *topic
	once   sync.Once
	stopFn func() bool
}

func newBroker(load loadFunc) *broker {
	return &broker{
		load:   load,
		topics: make(map[string]*topic),
	}
}

func (b *broker) topic(collection string) *topic {
	b.mu.Lock()
	defer b.mu.Unlock()

	t, ok := b.topics[collection]
	if !ok {
		t = &topic{subs: make(map[*Subscription]struct{})}
		b.topics[collection] = t
	}
	return t
}

func (b *broker) snapshot(ctx context.Context, collection string) (Snapshot, error) {
	t := b.topic(collection)
	t.mu.Lock()
	defer t.mu.Unlock()

	docs, err := b.load(ctx, collection)
	if err != nil {
		return Snapshot{}, fmt.Errorf("failed to load %s: %w", collection, err)
	}
	return Snapshot{Collection: collection, Version: t.version, Docs: docs}, nil
}

func (b *broker) subscribe(ctx context.Context, collection string) (*Subscription, error) {
	b.mu.Lock()
	closed := b.closed
	b.mu.Unlock()
	if closed {
		return nil, ErrClosed
	}

	t := b.topic(collection)
	t.mu.Lock()
	defer t.mu.Unlock()

	docs, err := b.load(ctx, collection)
	if err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", collection, err)
	}

	ch := make(chan Snapshot, 1)
	sub := &Subscription{C: ch, ch: ch, topic: t}
	ch <- Snapshot{Collection: collection, Version: t.version, Docs: docs}
	t.subs[sub] = struct{}{}

	sub.stopFn = context.AfterFunc(ctx, sub.Cancel)
	return sub, nil
}

// publish bumps the collection version and pushes a fresh snapshot to every
// subscriber. allCollections republishes every known collection.
func (b *broker) publish(collection string) {
	if collection == allCollections {
		b.mu.Lock()
		names := make([]string, 0, len(b.topics))
		for name := range b.topics {
			names = append(names, name)
		}
		b.mu.Unlock()

		for _, name := range names {
			b.publish(name)
		}
		return
	}

	t := b.topic(collection)
	t.mu.Lock()
	defer t.mu.Unlock()

	t.version++
	if len(t.subs) == 0 {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), refreshTimeout)
	defer cancel()

	docs, err := b.load(ctx, collection)
	if err != nil {
		slog.Error("docstore snapshot load failed", "collection", collection, "error", err)
		return
	}

	snap := Snapshot{Collection: collection, Version: t.version, Docs: docs}
	for sub := range t.subs {
		sub.offer(snap)
	}
}

func (b *broker) close() {
	b.mu.Lock()
	b.closed = true
	topics := make([]*topic, 0, len(b.topics))
	for _, t := range b.topics {
		topics = append(topics, t)
	}
	b.mu.Unlock()

	for _, t := range topics {
		t.mu.Lock()
		subs := make([]*Subscription, 0, len(t.subs))
		for sub := range t.subs {
			subs = append(subs, sub)
		}
		t.mu.Unlock()

		for _, sub := range subs {
			sub.Cancel()
		}
	}
}

// offer replaces any undelivered snapshot with snap. Called with topic.mu held.
func (s *Subscription) offer(snap Snapshot) {
	select {
	case s.ch <- snap:
		return
	default:
	}

	select {
	case <-s.ch:
	default:
	}
	s.ch <- snap
}

// Cancel stops delivery and closes C. Safe to call more than once.
func (s *Subscription) Cancel() {
	s.once.Do(func() {
		s.topic.mu.Lock()
		defer s.topic.mu.Unlock()

		if s.stopFn != nil {
			s.stopFn()
		}
		delete(s.topic.subs, s)
		close(s.ch)
	})
}
