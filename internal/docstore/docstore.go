// Package docstore is a small real-time document store. Documents are flat
// JSON objects addressed by "<collection>/<key>" paths. Subscribers receive
// the full collection after every committed write.
package docstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/google/uuid"
)

var (
	ErrInvalidPath = errors.New("invalid document path")
	ErrNotFound    = errors.New("document not found")
	ErrClosed      = errors.New("document store closed")
)

var collectionPattern = regexp.MustCompile(`^[a-z][a-z0-9_]*$`)

// Snapshot is the full content of one collection at a given version.
// Versions increase with every committed write to the collection.
type Snapshot struct {
	Collection string
	Version    uint64
	Docs       map[string]json.RawMessage
}

// Client is the store surface used by repositories.
type Client interface {
	NewKey() string
	Get(ctx context.Context, path string) (json.RawMessage, error)
	Set(ctx context.Context, path string, value any) error
	Remove(ctx context.Context, path string) error
	Snapshot(ctx context.Context, collection string) (Snapshot, error)
	Subscribe(ctx context.Context, collection string) (*Subscription, error)
}

// Backend persists raw document bytes.
type Backend interface {
	Get(ctx context.Context, collection, key string) (json.RawMessage, error)
	Put(ctx context.Context, collection, key string, value json.RawMessage) error
	Delete(ctx context.Context, collection, key string) error
	List(ctx context.Context, collection string) (map[string]json.RawMessage, error)
	Close() error
}

// Notifier propagates "collection changed" events, possibly across processes.
type Notifier interface {
	Notify(ctx context.Context, collection string) error
	Start(onChange func(collection string))
	Close() error
}

// Path joins a collection and key into a document path.
func Path(collection, key string) string {
	return collection + "/" + key
}

// SplitPath validates a document path and returns its collection and key.
func SplitPath(path string) (string, string, error) {
	collection, key, ok := strings.Cut(path, "/")
	if !ok || key == "" || strings.Contains(key, "/") {
		return "", "", fmt.Errorf("%w: %q", ErrInvalidPath, path)
	}
	if !collectionPattern.MatchString(collection) {
		return "", "", fmt.Errorf("%w: collection %q", ErrInvalidPath, collection)
	}
	return collection, key, nil
}

func validCollection(collection string) error {
	if !collectionPattern.MatchString(collection) {
		return fmt.Errorf("%w: collection %q", ErrInvalidPath, collection)
	}
	return nil
}

// newKey returns a time-ordered unique key.
func newKey() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}
