package docstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v3"
	"github.com/vmihailenco/msgpack/v5"
)

// BadgerBackend stores documents in an embedded badger database.
// Keys are document paths, values are msgpack envelopes.
type BadgerBackend struct {
	db *badger.DB
}

type envelope struct {
	Value     []byte `msgpack:"v"`
	UpdatedAt int64  `msgpack:"t"`
}

// OpenBadger opens (or creates) a badger database at dir.
// An empty dir keeps everything in memory.
func OpenBadger(dir string) (*BadgerBackend, error) {
	opts := badger.DefaultOptions(dir).WithLogger(nil)
	if dir == "" {
		opts = opts.WithInMemory(true)
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger: %w", err)
	}
	return &BadgerBackend{db: db}, nil
}

func (b *BadgerBackend) Get(ctx context.Context, collection, key string) (json.RawMessage, error) {
	var env envelope
	err := b.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(Path(collection, key)))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return msgpack.Unmarshal(val, &env)
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return json.RawMessage(env.Value), nil
}

func (b *BadgerBackend) Put(ctx context.Context, collection, key string, value json.RawMessage) error {
	data, err := msgpack.Marshal(envelope{Value: value, UpdatedAt: time.Now().UnixMilli()})
	if err != nil {
		return fmt.Errorf("failed to encode envelope: %w", err)
	}

	return b.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(Path(collection, key)), data)
	})
}

func (b *BadgerBackend) Delete(ctx context.Context, collection, key string) error {
	return b.db.Update(func(txn *badger.Txn) error {
		return txn.Delete([]byte(Path(collection, key)))
	})
}

func (b *BadgerBackend) List(ctx context.Context, collection string) (map[string]json.RawMessage, error) {
	docs := make(map[string]json.RawMessage)
	prefix := []byte(collection + "/")

	err := b.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			item := it.Item()
			key := string(item.Key()[len(prefix):])

			var env envelope
			err := item.Value(func(val []byte) error {
				return msgpack.Unmarshal(val, &env)
			})
			if err != nil {
				return fmt.Errorf("failed to decode %s: %w", item.Key(), err)
			}
			docs[key] = json.RawMessage(env.Value)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return docs, nil
}

func (b *BadgerBackend) Close() error {
	return b.db.Close()
}
