package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"slices"

	"github.com/speedystriders/tracker/internal/docstore"
)

type fieldKind int

const (
	kindID fieldKind = iota // non-empty string
	kindString
	kindNumber
)

// shape lists the fields a document needs to be usable.
type shape map[string]fieldKind

var (
	racerShape = shape{
		"id":   kindID,
		"name": kindString,
	}
	recordShape = shape{
		"id":          kindID,
		"racerId":     kindID,
		"timestamp":   kindNumber,
		"distance":    kindNumber,
		"timeSeconds": kindNumber,
	}
	trainingShape = shape{
		"id":              kindID,
		"racerId":         kindID,
		"timestamp":       kindNumber,
		"durationSeconds": kindNumber,
	}
)

// decodeSnapshot decodes every well-formed document of a snapshot.
// Malformed entries are dropped and only show up in debug logs.
func decodeSnapshot[T any](snap docstore.Snapshot, required shape) []*T {
	items := make([]*T, 0, len(snap.Docs))
	for key, raw := range snap.Docs {
		item, err := decodeDoc[T](raw, required)
		if err != nil {
			slog.Debug("discarding malformed document", "collection", snap.Collection, "key", key, "error", err)
			continue
		}
		items = append(items, item)
	}
	return items
}

func decodeDoc[T any](raw json.RawMessage, required shape) (*T, error) {
	var fields map[string]any
	err := json.Unmarshal(raw, &fields)
	if err != nil {
		return nil, err
	}

	for name, kind := range required {
		value, ok := fields[name]
		if !ok {
			return nil, fmt.Errorf("missing field %q", name)
		}

		switch kind {
		case kindID:
			s, isString := value.(string)
			ok = isString && s != ""
		case kindString:
			_, ok = value.(string)
		case kindNumber:
			_, ok = value.(float64)
		}
		if !ok {
			return nil, fmt.Errorf("field %q has wrong type %T", name, value)
		}
	}

	item := new(T)
	err = json.Unmarshal(raw, item)
	if err != nil {
		return nil, err
	}
	return item, nil
}

// deleteByRacer removes every document of collection whose racerId is
// racerID, including documents that fail the shape check. It stops at the
// first failure.
func deleteByRacer(ctx context.Context, store docstore.Client, collection, racerID string) (int, error) {
	snap, err := store.Snapshot(ctx, collection)
	if err != nil {
		return 0, err
	}

	keys := make([]string, 0)
	for key, raw := range snap.Docs {
		var owner struct {
			RacerID any `json:"racerId"`
		}
		if json.Unmarshal(raw, &owner) != nil {
			continue
		}
		if id, ok := owner.RacerID.(string); ok && id == racerID {
			keys = append(keys, key)
		}
	}
	slices.Sort(keys)

	deleted := 0
	for _, key := range keys {
		err = store.Remove(ctx, docstore.Path(collection, key))
		if err != nil {
			return deleted, err
		}
		deleted++
	}
	return deleted, nil
}
