// Package visibility decides which records and training sessions a browser
// session may see.
package visibility

import (
	"slices"
	"sync"

	"github.com/speedystriders/tracker/internal/model"
)

// Owned is anything attributed to a racer.
type Owned interface {
	OwnerID() string
}

// Filter keeps items whose racer exists and is public or owned locally.
// Items of unknown racers are dropped.
func Filter[T Owned](items []T, racers []*model.Racer, owned map[string]bool) []T {
	visible := make(map[string]bool, len(racers))
	for _, r := range racers {
		visible[r.ID] = r.IsPublic || owned[r.ID]
	}

	out := make([]T, 0, len(items))
	for _, item := range items {
		if visible[item.OwnerID()] {
			out = append(out, item)
		}
	}
	return out
}

// Memo caches the last Filter result keyed on both collection versions and
// the owned set.
type Memo[T Owned] struct {
	mu            sync.Mutex
	valid         bool
	itemsVersion  uint64
	racersVersion uint64
	owned         []string
	result        []T
}

func (m *Memo[T]) Filter(itemsVersion uint64, items []T, racersVersion uint64, racers []*model.Racer, owned map[string]bool) []T {
	key := ownedKey(owned)

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.valid && m.itemsVersion == itemsVersion && m.racersVersion == racersVersion && slices.Equal(m.owned, key) {
		return m.result
	}

	m.result = Filter(items, racers, owned)
	m.itemsVersion = itemsVersion
	m.racersVersion = racersVersion
	m.owned = key
	m.valid = true
	return m.result
}

func ownedKey(owned map[string]bool) []string {
	key := make([]string, 0, len(owned))
	for id, ok := range owned {
		if ok {
			key = append(key, id)
		}
	}
	slices.Sort(key)
	return key
}
