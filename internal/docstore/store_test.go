package docstore

import (
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/speedystriders/tracker/internal/db"
)

type testDoc struct {
	Name string `json:"name"`
}

func newSQLiteStore(t *testing.T) *Store {
	t.Helper()

	database, err := db.Init(db.DriverSQLite, filepath.Join(t.TempDir(), "store.db"))
	if err != nil {
		t.Fatalf("db.Init() error = %v", err)
	}
	t.Cleanup(func() { db.Close(database) })

	err = db.RunMigrations(database.DB, db.DriverSQLite)
	if err != nil {
		t.Fatalf("RunMigrations() error = %v", err)
	}

	store := New(NewSQLBackend(database), NewLocalNotifier())
	t.Cleanup(func() { store.Close() })
	return store
}

func newBadgerStore(t *testing.T) *Store {
	t.Helper()

	backend, err := OpenBadger("")
	if err != nil {
		t.Fatalf("OpenBadger() error = %v", err)
	}

	store := New(backend, NewLocalNotifier())
	t.Cleanup(func() { store.Close() })
	return store
}

func eachBackend(t *testing.T, fn func(t *testing.T, store *Store)) {
	t.Run("sql", func(t *testing.T) { fn(t, newSQLiteStore(t)) })
	t.Run("badger", func(t *testing.T) { fn(t, newBadgerStore(t)) })
}

func decodeDocs(t *testing.T, snap Snapshot) map[string]string {
	t.Helper()

	names := make(map[string]string, len(snap.Docs))
	for key, raw := range snap.Docs {
		var doc testDoc
		err := json.Unmarshal(raw, &doc)
		if err != nil {
			t.Fatalf("decode %s: %v", key, err)
		}
		names[key] = doc.Name
	}
	return names
}

func receive(t *testing.T, sub *Subscription) Snapshot {
	t.Helper()

	select {
	case snap, ok := <-sub.C:
		if !ok {
			t.Fatal("subscription closed")
		}
		return snap
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for snapshot")
	}
	return Snapshot{}
}

func TestSplitPath(t *testing.T) {
	tests := []struct {
		path       string
		collection string
		key        string
		wantErr    bool
	}{
		{path: "racers/abc", collection: "racers", key: "abc"},
		{path: "training_logs/k1", collection: "training_logs", key: "k1"},
		{path: "racers", wantErr: true},
		{path: "racers/", wantErr: true},
		{path: "racers/a/b", wantErr: true},
		{path: "Racers/a", wantErr: true},
		{path: "/a", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			collection, key, err := SplitPath(tt.path)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidPath) {
					t.Errorf("SplitPath(%q) error = %v, want ErrInvalidPath", tt.path, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("SplitPath(%q) error = %v", tt.path, err)
			}
			if collection != tt.collection || key != tt.key {
				t.Errorf("SplitPath(%q) = %q, %q", tt.path, collection, key)
			}
		})
	}
}

func TestNewKeyUnique(t *testing.T) {
	store := newBadgerStore(t)

	seen := make(map[string]bool)
	for range 1000 {
		key := store.NewKey()
		if seen[key] {
			t.Fatalf("duplicate key %s", key)
		}
		seen[key] = true
	}
}

func TestSetGetRemove(t *testing.T) {
	eachBackend(t, func(t *testing.T, store *Store) {
		ctx := context.Background()

		err := store.Set(ctx, "racers/a", testDoc{Name: "Mia"})
		if err != nil {
			t.Fatalf("Set() error = %v", err)
		}
		err = store.Set(ctx, "racers/b", testDoc{Name: "Leo"})
		if err != nil {
			t.Fatalf("Set() error = %v", err)
		}
		err = store.Set(ctx, "records/x", testDoc{Name: "other collection"})
		if err != nil {
			t.Fatalf("Set() error = %v", err)
		}

		raw, err := store.Get(ctx, "racers/a")
		if err != nil {
			t.Fatalf("Get() error = %v", err)
		}
		var doc testDoc
		json.Unmarshal(raw, &doc)
		if doc.Name != "Mia" {
			t.Errorf("Get() name = %q, want Mia", doc.Name)
		}

		// overwrite
		err = store.Set(ctx, "racers/a", testDoc{Name: "Mia Chen"})
		if err != nil {
			t.Fatalf("Set() overwrite error = %v", err)
		}

		snap, err := store.Snapshot(ctx, "racers")
		if err != nil {
			t.Fatalf("Snapshot() error = %v", err)
		}
		want := map[string]string{"a": "Mia Chen", "b": "Leo"}
		if diff := cmp.Diff(want, decodeDocs(t, snap)); diff != "" {
			t.Errorf("Snapshot() mismatch (-want +got):\n%s", diff)
		}

		err = store.Remove(ctx, "racers/a")
		if err != nil {
			t.Fatalf("Remove() error = %v", err)
		}
		err = store.Remove(ctx, "racers/missing")
		if err != nil {
			t.Fatalf("Remove() missing error = %v", err)
		}

		_, err = store.Get(ctx, "racers/a")
		if !errors.Is(err, ErrNotFound) {
			t.Errorf("Get() after remove error = %v, want ErrNotFound", err)
		}

		snap, err = store.Snapshot(ctx, "racers")
		if err != nil {
			t.Fatalf("Snapshot() error = %v", err)
		}
		if diff := cmp.Diff(map[string]string{"b": "Leo"}, decodeDocs(t, snap)); diff != "" {
			t.Errorf("Snapshot() after remove mismatch (-want +got):\n%s", diff)
		}
	})
}

func TestSubscribeDeliversCurrentAndUpdates(t *testing.T) {
	eachBackend(t, func(t *testing.T, store *Store) {
		ctx := context.Background()

		err := store.Set(ctx, "racers/a", testDoc{Name: "Mia"})
		if err != nil {
			t.Fatalf("Set() error = %v", err)
		}

		sub, err := store.Subscribe(ctx, "racers")
		if err != nil {
			t.Fatalf("Subscribe() error = %v", err)
		}
		defer sub.Cancel()

		first := receive(t, sub)
		if diff := cmp.Diff(map[string]string{"a": "Mia"}, decodeDocs(t, first)); diff != "" {
			t.Errorf("initial snapshot mismatch (-want +got):\n%s", diff)
		}

		err = store.Set(ctx, "racers/b", testDoc{Name: "Leo"})
		if err != nil {
			t.Fatalf("Set() error = %v", err)
		}

		second := receive(t, sub)
		if second.Version <= first.Version {
			t.Errorf("version did not advance: %d -> %d", first.Version, second.Version)
		}
		if len(second.Docs) != 2 {
			t.Errorf("second snapshot has %d docs, want 2", len(second.Docs))
		}

		// writes to other collections are not delivered
		err = store.Set(ctx, "records/r1", testDoc{Name: "x"})
		if err != nil {
			t.Fatalf("Set() error = %v", err)
		}
		select {
		case snap := <-sub.C:
			t.Errorf("unexpected snapshot for %s", snap.Collection)
		default:
		}
	})
}

func TestSubscribeLatestWins(t *testing.T) {
	store := newBadgerStore(t)
	ctx := context.Background()

	sub, err := store.Subscribe(ctx, "records")
	if err != nil {
		t.Fatalf("Subscribe() error = %v", err)
	}
	defer sub.Cancel()
	receive(t, sub)

	for i := range 5 {
		err := store.Set(ctx, Path("records", store.NewKey()), testDoc{Name: string(rune('a' + i))})
		if err != nil {
			t.Fatalf("Set() error = %v", err)
		}
	}

	// The reader was idle during five commits: only the newest snapshot is buffered.
	snap := receive(t, sub)
	if len(snap.Docs) != 5 {
		t.Errorf("latest snapshot has %d docs, want 5", len(snap.Docs))
	}
	select {
	case <-sub.C:
		t.Error("stale snapshot still buffered")
	default:
	}
}

func TestSubscriptionCancel(t *testing.T) {
	store := newBadgerStore(t)
	ctx, cancel := context.WithCancel(context.Background())

	sub, err := store.Subscribe(ctx, "racers")
	if err != nil {
		t.Fatalf("Subscribe() error = %v", err)
	}
	receive(t, sub)

	cancel()

	select {
	case _, ok := <-sub.C:
		if ok {
			t.Error("expected channel to be closed after context cancel")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("subscription not closed after context cancel")
	}

	// Cancel after close is a no-op and writes keep working.
	sub.Cancel()
	err = store.Set(context.Background(), "racers/a", testDoc{Name: "Mia"})
	if err != nil {
		t.Fatalf("Set() error = %v", err)
	}
}

func TestClosedStore(t *testing.T) {
	backend, err := OpenBadger("")
	if err != nil {
		t.Fatalf("OpenBadger() error = %v", err)
	}
	store := New(backend, NewLocalNotifier())

	sub, err := store.Subscribe(context.Background(), "racers")
	if err != nil {
		t.Fatalf("Subscribe() error = %v", err)
	}
	receive(t, sub)

	err = store.Close()
	if err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	if _, ok := <-sub.C; ok {
		t.Error("subscription still open after Close")
	}

	err = store.Set(context.Background(), "racers/a", testDoc{Name: "Mia"})
	if !errors.Is(err, ErrClosed) {
		t.Errorf("Set() after Close error = %v, want ErrClosed", err)
	}
}

func TestSetInvalidPath(t *testing.T) {
	store := newBadgerStore(t)

	err := store.Set(context.Background(), "racers", testDoc{})
	if !errors.Is(err, ErrInvalidPath) {
		t.Errorf("Set() error = %v, want ErrInvalidPath", err)
	}

	_, err = store.Subscribe(context.Background(), "../etc")
	if !errors.Is(err, ErrInvalidPath) {
		t.Errorf("Subscribe() error = %v, want ErrInvalidPath", err)
	}
}

func TestResyncRepublishesEveryCollection(t *testing.T) {
	store := newBadgerStore(t)
	ctx := context.Background()

	var subs []*Subscription
	for _, collection := range []string{"racers", "records"} {
		sub, err := store.Subscribe(ctx, collection)
		if err != nil {
			t.Fatalf("Subscribe(%s) error = %v", collection, err)
		}
		defer sub.Cancel()
		receive(t, sub)
		subs = append(subs, sub)
	}

	store.broker.publish(allCollections)

	for _, sub := range subs {
		snap := receive(t, sub)
		if snap.Version != 1 {
			t.Errorf("%s version = %d, want 1", snap.Collection, snap.Version)
		}
	}
}
