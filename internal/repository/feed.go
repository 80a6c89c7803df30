package repository

import (
	"context"
	"sync"

	"github.com/speedystriders/tracker/internal/docstore"
)

// Update is one decoded, sorted collection snapshot.
type Update[T any] struct {
	Version uint64
	Items   []*T
}

// Feed streams decoded snapshots of a single store subscription.
type Feed[T any] struct {
	C <-chan Update[T]

	sub  *docstore.Subscription
	done chan struct{}
	once sync.Once
}

func (f *Feed[T]) Cancel() {
	f.once.Do(func() {
		close(f.done)
		f.sub.Cancel()
	})
}

func watch[T any](ctx context.Context, store docstore.Client, collection string, decode func(docstore.Snapshot) []*T) (*Feed[T], error) {
	sub, err := store.Subscribe(ctx, collection)
	if err != nil {
		return nil, err
	}

	out := make(chan Update[T], 1)
	feed := &Feed[T]{C: out, sub: sub, done: make(chan struct{})}

	go func() {
		defer close(out)
		for {
			select {
			case snap, ok := <-sub.C:
				if !ok {
					return
				}
				update := Update[T]{Version: snap.Version, Items: decode(snap)}
				select {
				case out <- update:
				case <-feed.done:
					return
				case <-ctx.Done():
					return
				}
			case <-feed.done:
				return
			}
		}
	}()

	return feed, nil
}
