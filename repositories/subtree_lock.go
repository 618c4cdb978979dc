package repositories

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// SubtreeKey names the lock guarding the tree under a top-level folder.
// rootFolderID 0 is the owner's root namespace.
func SubtreeKey(ownerID uint, rootFolderID uint) string {
	return fmt.Sprintf("subtree:%d:%d", ownerID, rootFolderID)
}

// NamespaceKey names the lock guarding a storage root. Owners whose names
// sanitize to the same root contend on it while claiming folder paths.
func NamespaceKey(root string) string {
	return "namespace:" + root
}

// normalizeKeys sorts and dedupes so that every caller acquires in the same order.
func normalizeKeys(keys []string) []string {
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

type keyLock struct {
	sem  chan struct{}
	refs int
}

// MemorySubtreeLocker is a per-process keyed mutex.
type MemorySubtreeLocker struct {
	mu    sync.Mutex
	locks map[string]*keyLock
}

func NewMemorySubtreeLocker() *MemorySubtreeLocker {
	return &MemorySubtreeLocker{locks: map[string]*keyLock{}}
}

func (l *MemorySubtreeLocker) Lock(ctx context.Context, keys ...string) (func(), error) {
	ordered := normalizeKeys(keys)
	held := make([]string, 0, len(ordered))
	for _, key := range ordered {
		if err := l.acquire(ctx, key); err != nil {
			l.releaseAll(held)
			return nil, fmt.Errorf("lock %s: %w", key, err)
		}
		held = append(held, key)
	}

	var once sync.Once
	return func() { once.Do(func() { l.releaseAll(held) }) }, nil
}

func (l *MemorySubtreeLocker) acquire(ctx context.Context, key string) error {
	l.mu.Lock()
	entry, ok := l.locks[key]
	if !ok {
		entry = &keyLock{sem: make(chan struct{}, 1)}
		l.locks[key] = entry
	}
	entry.refs++
	l.mu.Unlock()

	select {
	case entry.sem <- struct{}{}:
		return nil
	case <-ctx.Done():
		l.mu.Lock()
		l.drop(key, entry)
		l.mu.Unlock()
		return ctx.Err()
	}
}

func (l *MemorySubtreeLocker) releaseAll(keys []string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for i := len(keys) - 1; i >= 0; i-- {
		entry := l.locks[keys[i]]
		if entry == nil {
			continue
		}
		<-entry.sem
		l.drop(keys[i], entry)
	}
}

func (l *MemorySubtreeLocker) drop(key string, entry *keyLock) {
	entry.refs--
	if entry.refs == 0 {
		delete(l.locks, key)
	}
}
