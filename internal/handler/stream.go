package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/speedystriders/tracker/internal/ctxkeys"
	"github.com/speedystriders/tracker/internal/model"
	"github.com/speedystriders/tracker/internal/repository"
	"github.com/speedystriders/tracker/internal/service"
	"github.com/speedystriders/tracker/internal/session"
	"github.com/speedystriders/tracker/internal/visibility"
)

type StreamHandler struct {
	racerService    *service.RacerService
	recordService   *service.RecordService
	trainingService *service.TrainingService
}

func NewStreamHandler(racerService *service.RacerService, recordService *service.RecordService, trainingService *service.TrainingService) *StreamHandler {
	return &StreamHandler{
		racerService:    racerService,
		recordService:   recordService,
		trainingService: trainingService,
	}
}

type snapshotEvent struct {
	Collection    string `json:"collection"`
	Version       uint64 `json:"version"`
	RacersVersion uint64 `json:"racersVersion,omitempty"`
	Items         any    `json:"items"`
}

// Stream sends the snapshot of a collection on connect and after every
// change. Racers are sent whole; records and training are filtered with the
// owned set of the session at connect time.
func (h *StreamHandler) Stream(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	s := ctxkeys.Session(ctx)
	collection := r.PathValue("collection")

	switch collection {
	case "racers", "records", "training":
	default:
		writeError(w, http.StatusNotFound, "unknown_collection", "unknown collection")
		return
	}

	racerFeed, err := h.racerService.Watch(ctx)
	if err != nil {
		writeServiceError(w, r, err, "subscribe to racers")
		return
	}
	defer racerFeed.Cancel()

	var send func(*sseWriter) error
	switch collection {
	case "racers":
		send = func(sse *sseWriter) error {
			return streamRacers(ctx, sse, s, racerFeed)
		}
	case "records":
		feed, err := h.recordService.Watch(ctx)
		if err != nil {
			writeServiceError(w, r, err, "subscribe to records")
			return
		}
		defer feed.Cancel()

		memo := &visibility.Memo[*model.Record]{}
		send = func(sse *sseWriter) error {
			return streamItems(ctx, sse, s, collection, racerFeed, feed.C, memo.Filter)
		}
	case "training":
		feed, err := h.trainingService.Watch(ctx)
		if err != nil {
			writeServiceError(w, r, err, "subscribe to training sessions")
			return
		}
		defer feed.Cancel()

		memo := &visibility.Memo[*model.TrainingSession]{}
		send = func(sse *sseWriter) error {
			return streamItems(ctx, sse, s, collection, racerFeed, feed.C, memo.Filter)
		}
	}

	sse, err := newSSE(w)
	if err != nil {
		slog.Error("failed to start stream", "error", err, "collection", collection)
		return
	}

	err = send(sse)
	if err != nil && ctx.Err() == nil {
		slog.Debug("stream closed", "error", err, "collection", collection)
	}
}

func streamRacers(ctx context.Context, sse *sseWriter, s *session.Session, feed *repository.Feed[model.Racer]) error {
	keepAlive := time.NewTicker(sseKeepAlive)
	defer keepAlive.Stop()

	for {
		select {
		case update, ok := <-feed.C:
			if !ok {
				return nil
			}
			err := sse.Send("snapshot", snapshotEvent{
				Collection: "racers",
				Version:    update.Version,
				Items:      viewRacers(s, update.Items),
			})
			if err != nil {
				return err
			}
		case <-keepAlive.C:
			err := sse.Ping()
			if err != nil {
				return err
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

type filterFunc[T any] func(itemsVersion uint64, items []*T, racersVersion uint64, racers []*model.Racer, owned map[string]bool) []*T

// streamItems waits for the first snapshot of both feeds, then re-filters
// whenever either side changes.
func streamItems[T any](ctx context.Context, sse *sseWriter, s *session.Session, collection string, racerFeed *repository.Feed[model.Racer], items <-chan repository.Update[T], filter filterFunc[T]) error {
	keepAlive := time.NewTicker(sseKeepAlive)
	defer keepAlive.Stop()

	var (
		racers     repository.Update[model.Racer]
		current    repository.Update[T]
		haveRacers bool
		haveItems  bool
	)

	for {
		select {
		case update, ok := <-racerFeed.C:
			if !ok {
				return nil
			}
			racers, haveRacers = update, true
		case update, ok := <-items:
			if !ok {
				return nil
			}
			current, haveItems = update, true
		case <-keepAlive.C:
			err := sse.Ping()
			if err != nil {
				return err
			}
			continue
		case <-ctx.Done():
			return ctx.Err()
		}

		if !haveRacers || !haveItems {
			continue
		}

		visible := filter(current.Version, current.Items, racers.Version, racers.Items, ownedSet(s, racers.Items))
		err := sse.Send("snapshot", snapshotEvent{
			Collection:    collection,
			Version:       current.Version,
			RacersVersion: racers.Version,
			Items:         visible,
		})
		if err != nil {
			return err
		}
	}
}
