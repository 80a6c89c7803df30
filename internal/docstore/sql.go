package docstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"
)

// SQLBackend stores documents in the "documents" table.
// The table is created by the goose migrations in internal/db.
type SQLBackend struct {
	db *sqlx.DB
}

type documentRow struct {
	Key  string `db:"doc_key"`
	Body string `db:"body"`
}

func NewSQLBackend(db *sqlx.DB) *SQLBackend {
	return &SQLBackend{db: db}
}

func (b *SQLBackend) Get(ctx context.Context, collection, key string) (json.RawMessage, error) {
	var body string
	query := b.db.Rebind(`SELECT body FROM documents WHERE collection = ? AND doc_key = ?`)
	err := b.db.GetContext(ctx, &body, query, collection, key)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return json.RawMessage(body), nil
}

func (b *SQLBackend) Put(ctx context.Context, collection, key string, value json.RawMessage) error {
	query := b.db.Rebind(`
		INSERT INTO documents (collection, doc_key, body, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (collection, doc_key) DO UPDATE SET
			body = excluded.body,
			updated_at = excluded.updated_at`)
	_, err := b.db.ExecContext(ctx, query, collection, key, string(value), time.Now().UTC())
	return err
}

func (b *SQLBackend) Delete(ctx context.Context, collection, key string) error {
	query := b.db.Rebind(`DELETE FROM documents WHERE collection = ? AND doc_key = ?`)
	_, err := b.db.ExecContext(ctx, query, collection, key)
	return err
}

func (b *SQLBackend) List(ctx context.Context, collection string) (map[string]json.RawMessage, error) {
	var rows []documentRow
	query := b.db.Rebind(`SELECT doc_key, body FROM documents WHERE collection = ?`)
	err := b.db.SelectContext(ctx, &rows, query, collection)
	if err != nil {
		return nil, err
	}

	docs := make(map[string]json.RawMessage, len(rows))
	for _, row := range rows {
		docs[row.Key] = json.RawMessage(row.Body)
	}
	return docs, nil
}

// Close is a no-op; the *sqlx.DB is owned by the caller.
func (b *SQLBackend) Close() error {
	return nil
}
