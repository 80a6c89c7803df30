package docstore

import (
	"context"
	"sync"
)

// LocalNotifier delivers change events inside the current process only.
// Notify runs the change callback synchronously, so subscribers have the new
// snapshot by the time a write returns.
type LocalNotifier struct {
	mu       sync.RWMutex
	onChange func(string)
}

func NewLocalNotifier() *LocalNotifier {
	return &LocalNotifier{}
}

func (n *LocalNotifier) Start(onChange func(collection string)) {
	n.mu.Lock()
	n.onChange = onChange
	n.mu.Unlock()
}

func (n *LocalNotifier) Notify(ctx context.Context, collection string) error {
	n.mu.RLock()
	fn := n.onChange
	n.mu.RUnlock()

	if fn != nil {
		fn(collection)
	}
	return nil
}

func (n *LocalNotifier) Close() error {
	n.mu.Lock()
	n.onChange = nil
	n.mu.Unlock()
	return nil
}
