package appointments

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/tthaschke-rgb/kalender/internal/service"
)

// keyedLocker is a table of mutexes created on demand and dropped once unused.
// A slot is a one-element channel so waiting can be abandoned on timeout.
type keyedLocker struct {
	mu    sync.Mutex
	slots map[string]*lockSlot
}

type lockSlot struct {
	ch   chan struct{}
	refs int
}

func newKeyedLocker() *keyedLocker {
	return &keyedLocker{slots: make(map[string]*lockSlot)}
}

// Acquire locks every key in sorted order. It returns service.ErrBusy if the locks are not
// all held within timeout, or the context error if ctx ends first. On failure nothing stays locked.
func (l *keyedLocker) Acquire(ctx context.Context, timeout time.Duration, keys ...string) (func(), error) {
	keys = sortedUnique(keys)

	waitCtx := ctx
	if timeout > 0 {
		var cancel context.CancelFunc
		waitCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	held := make([]string, 0, len(keys))
	for _, key := range keys {
		slot := l.ref(key)
		select {
		case slot.ch <- struct{}{}:
			held = append(held, key)
		case <-waitCtx.Done():
			l.unref(key)
			l.release(held)
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			return nil, service.ErrBusy
		}
	}

	var once sync.Once
	return func() {
		once.Do(func() { l.release(held) })
	}, nil
}

func (l *keyedLocker) ref(key string) *lockSlot {
	l.mu.Lock()
	defer l.mu.Unlock()
	slot, ok := l.slots[key]
	if !ok {
		slot = &lockSlot{ch: make(chan struct{}, 1)}
		l.slots[key] = slot
	}
	slot.refs++
	return slot
}

func (l *keyedLocker) unref(key string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	slot := l.slots[key]
	slot.refs--
	if slot.refs == 0 {
		delete(l.slots, key)
	}
}

func (l *keyedLocker) release(keys []string) {
	for i := len(keys) - 1; i >= 0; i-- {
		l.mu.Lock()
		slot := l.slots[keys[i]]
		l.mu.Unlock()
		<-slot.ch
		l.unref(keys[i])
	}
}

// size reports how many keys currently have holders or waiters.
func (l *keyedLocker) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.slots)
}

func sortedUnique(keys []string) []string {
	out := make([]string, 0, len(keys))
	seen := make(map[string]struct{}, len(keys))
	for _, k := range keys {
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
