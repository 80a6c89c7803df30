package docstore

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync/atomic"
)

type Store struct {
	backend  Backend
	notifier Notifier
	broker   *broker
	closed   atomic.Bool
}

// New wires a backend and a notifier into a store and starts listening for changes.
func New(backend Backend, notifier Notifier) *Store {
	s := &Store{
		backend:  backend,
		notifier: notifier,
	}
	s.broker = newBroker(backend.List)
	notifier.Start(s.broker.publish)
	return s
}

func (s *Store) NewKey() string {
	return newKey()
}

func (s *Store) Get(ctx context.Context, path string) (json.RawMessage, error) {
	if s.closed.Load() {
		return nil, ErrClosed
	}
	collection, key, err := SplitPath(path)
	if err != nil {
		return nil, err
	}

	value, err := s.backend.Get(ctx, collection, key)
	if err != nil {
		return nil, fmt.Errorf("failed to get %s: %w", path, err)
	}
	return value, nil
}

func (s *Store) Set(ctx context.Context, path string, value any) error {
	if s.closed.Load() {
		return ErrClosed
	}
	collection, key, err := SplitPath(path)
	if err != nil {
		return err
	}

	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", path, err)
	}

	err = s.backend.Put(ctx, collection, key, data)
	if err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}

	s.notify(ctx, collection)
	return nil
}

func (s *Store) Remove(ctx context.Context, path string) error {
	if s.closed.Load() {
		return ErrClosed
	}
	collection, key, err := SplitPath(path)
	if err != nil {
		return err
	}

	err = s.backend.Delete(ctx, collection, key)
	if err != nil {
		return fmt.Errorf("failed to remove %s: %w", path, err)
	}

	s.notify(ctx, collection)
	return nil
}

func (s *Store) Snapshot(ctx context.Context, collection string) (Snapshot, error) {
	if s.closed.Load() {
		return Snapshot{}, ErrClosed
	}
	err := validCollection(collection)
	if err != nil {
		return Snapshot{}, err
	}
	return s.broker.snapshot(ctx, collection)
}

// Subscribe delivers the current snapshot immediately and a new one after every
// committed write. The subscription ends when ctx is done or Cancel is called.
func (s *Store) Subscribe(ctx context.Context, collection string) (*Subscription, error) {
	if s.closed.Load() {
		return nil, ErrClosed
	}
	err := validCollection(collection)
	if err != nil {
		return nil, err
	}
	return s.broker.subscribe(ctx, collection)
}

func (s *Store) Close() error {
	if !s.closed.CompareAndSwap(false, true) {
		return nil
	}
	s.broker.close()

	nerr := s.notifier.Close()
	berr := s.backend.Close()
	if nerr != nil {
		return nerr
	}
	return berr
}

// notify never fails a committed write; a lost notification only delays subscribers.
func (s *Store) notify(ctx context.Context, collection string) {
	err := s.notifier.Notify(ctx, collection)
	if err != nil {
		slog.Warn("docstore notify failed", "collection", collection, "error", err)
	}
}
