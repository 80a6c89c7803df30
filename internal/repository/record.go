package repository

import (
	"context"
	"errors"
	"sort"

	"github.com/speedystriders/tracker/internal/docstore"
	"github.com/speedystriders/tracker/internal/model"
)

const CollectionRecords = "records"

var (
	ErrRecordNotFound = errors.New("record not found")
)

type RecordRepository interface {
	Create(ctx context.Context, record *model.Record) error
	ByID(ctx context.Context, id string) (*model.Record, error)
	Records(ctx context.Context) ([]*model.Record, error)
	Delete(ctx context.Context, id string) error
	DeleteByRacer(ctx context.Context, racerID string) (int, error)
	Watch(ctx context.Context) (*Feed[model.Record], error)
}

type recordRepository struct {
	store docstore.Client
}

func NewRecordRepository(store docstore.Client) RecordRepository {
	return &recordRepository{store: store}
}

func (r *recordRepository) Create(ctx context.Context, record *model.Record) error {
	if record.ID == "" {
		record.ID = r.store.NewKey()
	}
	return r.store.Set(ctx, docstore.Path(CollectionRecords, record.ID), record)
}

func (r *recordRepository) ByID(ctx context.Context, id string) (*model.Record, error) {
	if id == "" {
		return nil, ErrRecordNotFound
	}

	raw, err := r.store.Get(ctx, docstore.Path(CollectionRecords, id))
	if errors.Is(err, docstore.ErrNotFound) || errors.Is(err, docstore.ErrInvalidPath) {
		return nil, ErrRecordNotFound
	}
	if err != nil {
		return nil, err
	}

	record, err := decodeDoc[model.Record](raw, recordShape)
	if err != nil {
		return nil, ErrRecordNotFound
	}
	return record, nil
}

// Records returns every well-formed record, newest first.
func (r *recordRepository) Records(ctx context.Context) ([]*model.Record, error) {
	snap, err := r.store.Snapshot(ctx, CollectionRecords)
	if err != nil {
		return nil, err
	}
	return decodeRecords(snap), nil
}

func (r *recordRepository) Delete(ctx context.Context, id string) error {
	return r.store.Remove(ctx, docstore.Path(CollectionRecords, id))
}

// DeleteByRacer removes the racer's records one by one, malformed ones included,
// and stops at the first failure.
func (r *recordRepository) DeleteByRacer(ctx context.Context, racerID string) (int, error) {
	return deleteByRacer(ctx, r.store, CollectionRecords, racerID)
}

func (r *recordRepository) Watch(ctx context.Context) (*Feed[model.Record], error) {
	return watch(ctx, r.store, CollectionRecords, decodeRecords)
}

func decodeRecords(snap docstore.Snapshot) []*model.Record {
	records := decodeSnapshot[model.Record](snap, recordShape)
	sort.Slice(records, func(i, j int) bool {
		if records[i].Timestamp != records[j].Timestamp {
			return records[i].Timestamp > records[j].Timestamp
		}
		return records[i].ID > records[j].ID
	})
	return records
}
