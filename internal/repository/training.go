package repository

import (
	"context"
	"errors"
	"sort"

	"github.com/speedystriders/tracker/internal/docstore"
	"github.com/speedystriders/tracker/internal/model"
)

const CollectionTraining = "training_logs"

var (
	ErrTrainingNotFound = errors.New("training session not found")
)

type TrainingRepository interface {
	Create(ctx context.Context, session *model.TrainingSession) error
	ByID(ctx context.Context, id string) (*model.TrainingSession, error)
	Sessions(ctx context.Context) ([]*model.TrainingSession, error)
	Delete(ctx context.Context, id string) error
	DeleteByRacer(ctx context.Context, racerID string) (int, error)
	Watch(ctx context.Context) (*Feed[model.TrainingSession], error)
}

type trainingRepository struct {
	store docstore.Client
}

func NewTrainingRepository(store docstore.Client) TrainingRepository {
	return &trainingRepository{store: store}
}

func (r *trainingRepository) Create(ctx context.Context, session *model.TrainingSession) error {
	if session.ID == "" {
		session.ID = r.store.NewKey()
	}
	return r.store.Set(ctx, docstore.Path(CollectionTraining, session.ID), session)
}

func (r *trainingRepository) ByID(ctx context.Context, id string) (*model.TrainingSession, error) {
	if id == "" {
		return nil, ErrTrainingNotFound
	}

	raw, err := r.store.Get(ctx, docstore.Path(CollectionTraining, id))
	if errors.Is(err, docstore.ErrNotFound) || errors.Is(err, docstore.ErrInvalidPath) {
		return nil, ErrTrainingNotFound
	}
	if err != nil {
		return nil, err
	}

	session, err := decodeDoc[model.TrainingSession](raw, trainingShape)
	if err != nil {
		return nil, ErrTrainingNotFound
	}
	return session, nil
}

func (r *trainingRepository) Sessions(ctx context.Context) ([]*model.TrainingSession, error) {
	snap, err := r.store.Snapshot(ctx, CollectionTraining)
	if err != nil {
		return nil, err
	}
	return decodeSessions(snap), nil
}

func (r *trainingRepository) Delete(ctx context.Context, id string) error {
	return r.store.Remove(ctx, docstore.Path(CollectionTraining, id))
}

// DeleteByRacer removes the racer's sessions one by one, malformed ones
// included, and stops at the first failure.
func (r *trainingRepository) DeleteByRacer(ctx context.Context, racerID string) (int, error) {
	return deleteByRacer(ctx, r.store, CollectionTraining, racerID)
}

func (r *trainingRepository) Watch(ctx context.Context) (*Feed[model.TrainingSession], error) {
	return watch(ctx, r.store, CollectionTraining, decodeSessions)
}

func decodeSessions(snap docstore.Snapshot) []*model.TrainingSession {
	sessions := decodeSnapshot[model.TrainingSession](snap, trainingShape)
	sort.Slice(sessions, func(i, j int) bool {
		if sessions[i].Timestamp != sessions[j].Timestamp {
			return sessions[i].Timestamp > sessions[j].Timestamp
		}
		return sessions[i].ID > sessions[j].ID
	})
	return sessions
}
