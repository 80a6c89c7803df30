package repository

import (
	"context"
	"errors"
	"sort"

	"github.com/speedystriders/tracker/internal/docstore"
	"github.com/speedystriders/tracker/internal/model"
)

const CollectionRacers = "racers"

var (
	ErrRacerNotFound = errors.New("racer not found")
)

type RacerRepository interface {
	Create(ctx context.Context, racer *model.Racer) error
	ByID(ctx context.Context, id string) (*model.Racer, error)
	Racers(ctx context.Context) ([]*model.Racer, error)
	Update(ctx context.Context, racer *model.Racer) error
	Delete(ctx context.Context, id string) error
	Watch(ctx context.Context) (*Feed[model.Racer], error)
}

type racerRepository struct {
	store docstore.Client
}

func NewRacerRepository(store docstore.Client) RacerRepository {
	return &racerRepository{store: store}
}

// Create assigns a fresh store key when racer.ID is empty.
func (r *racerRepository) Create(ctx context.Context, racer *model.Racer) error {
	if racer.ID == "" {
		racer.ID = r.store.NewKey()
	}
	return r.store.Set(ctx, docstore.Path(CollectionRacers, racer.ID), racer)
}

func (r *racerRepository) ByID(ctx context.Context, id string) (*model.Racer, error) {
	if id == "" {
		return nil, ErrRacerNotFound
	}

	raw, err := r.store.Get(ctx, docstore.Path(CollectionRacers, id))
	if errors.Is(err, docstore.ErrNotFound) || errors.Is(err, docstore.ErrInvalidPath) {
		return nil, ErrRacerNotFound
	}
	if err != nil {
		return nil, err
	}

	racer, err := decodeDoc[model.Racer](raw, racerShape)
	if err != nil {
		return nil, ErrRacerNotFound
	}
	return racer, nil
}

func (r *racerRepository) Racers(ctx context.Context) ([]*model.Racer, error) {
	snap, err := r.store.Snapshot(ctx, CollectionRacers)
	if err != nil {
		return nil, err
	}
	return decodeRacers(snap), nil
}

// Update overwrites the whole document; last write wins.
func (r *racerRepository) Update(ctx context.Context, racer *model.Racer) error {
	_, err := r.ByID(ctx, racer.ID)
	if err != nil {
		return err
	}
	return r.store.Set(ctx, docstore.Path(CollectionRacers, racer.ID), racer)
}

func (r *racerRepository) Delete(ctx context.Context, id string) error {
	return r.store.Remove(ctx, docstore.Path(CollectionRacers, id))
}

func (r *racerRepository) Watch(ctx context.Context) (*Feed[model.Racer], error) {
	return watch(ctx, r.store, CollectionRacers, decodeRacers)
}

// decodeRacers keeps insertion order: oldest first, ties by key.
func decodeRacers(snap docstore.Snapshot) []*model.Racer {
	racers := decodeSnapshot[model.Racer](snap, racerShape)
	sort.Slice(racers, func(i, j int) bool {
		if racers[i].CreatedAt != racers[j].CreatedAt {
			return racers[i].CreatedAt < racers[j].CreatedAt
		}
		return racers[i].ID < racers[j].ID
	})
	return racers
}
