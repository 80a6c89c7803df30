package docstore

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jmoiron/sqlx"
)

const (
	pgChannel        = "docstore"
	pgReconnectDelay = 2 * time.Second
	pgMaxReconnect   = 30 * time.Second
)

// PGNotifier fans change events out to every server instance sharing a
// Postgres database through LISTEN/NOTIFY.
type PGNotifier struct {
	db  *sqlx.DB
	dsn string

	// session holds one LISTEN connection; after waits between reconnects.
	session func(ctx context.Context, onChange func(string), resync bool, listening func()) error
	after   func(time.Duration) <-chan time.Time

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewPGNotifier(db *sqlx.DB, dsn string) *PGNotifier {
	n := &PGNotifier{db: db, dsn: dsn, after: time.After}
	n.session = n.listenOnce
	return n
}

func (n *PGNotifier) Notify(ctx context.Context, collection string) error {
	_, err := n.db.ExecContext(ctx, `SELECT pg_notify($1, $2)`, pgChannel, collection)
	return err
}

func (n *PGNotifier) Start(onChange func(collection string)) {
	ctx, cancel := context.WithCancel(context.Background())
	n.cancel = cancel

	n.wg.Add(1)
	go func() {
		defer n.wg.Done()
		n.listen(ctx, onChange)
	}()
}

// backoff doubles the reconnect delay up to max. Reset starts over at min.
type backoff struct {
	min  time.Duration
	max  time.Duration
	next time.Duration
}

func (b *backoff) Next() time.Duration {
	if b.next == 0 {
		b.next = b.min
	}
	d := b.next
	b.next = min(b.next*2, b.max)
	return d
}

func (b *backoff) Reset() {
	b.next = 0
}

func (n *PGNotifier) listen(ctx context.Context, onChange func(string)) {
	retry := backoff{min: pgReconnectDelay, max: pgMaxReconnect}
	for attempt := 0; ; attempt++ {
		err := n.session(ctx, onChange, attempt > 0, retry.Reset)
		if ctx.Err() != nil {
			return
		}
		delay := retry.Next()
		slog.Error("docstore listener disconnected", "error", err, "retry_in", delay)

		select {
		case <-ctx.Done():
			return
		case <-n.after(delay):
		}
	}
}

// listenOnce holds one LISTEN connection and calls listening once LISTEN is
// in place. After a reconnect every collection is refreshed since
// notifications sent while disconnected are lost.
func (n *PGNotifier) listenOnce(ctx context.Context, onChange func(string), resync bool, listening func()) error {
	conn, err := pgx.Connect(ctx, n.dsn)
	if err != nil {
		return err
	}
	defer conn.Close(context.Background())

	_, err = conn.Exec(ctx, "LISTEN "+pgChannel)
	if err != nil {
		return err
	}
	slog.Info("docstore listening for changes", "channel", pgChannel, "resync", resync)
	listening()
	if resync {
		onChange(allCollections)
	}

	for {
		notification, err := conn.WaitForNotification(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		}
		onChange(notification.Payload)
	}
}

func (n *PGNotifier) Close() error {
	if n.cancel != nil {
		n.cancel()
	}
	n.wg.Wait()
	return nil
}
