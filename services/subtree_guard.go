package services

import (
	"context"
	"sort"
	"time"

	"filerepo/logger"
	"filerepo/repositories"
)

const maxLockAttempts = 3

// subtreeGuard runs structural mutations while holding the subtree locks they touch.
type subtreeGuard struct {
	locker repositories.SubtreeLocker
	wait   time.Duration
}

// run resolves the lock keys, takes them and resolves again. A concurrent move
// can change which subtree an item belongs to while we wait, so fn only runs
// once the keys held match the keys needed. keys may load state for fn; the
// call made while holding the locks is the one fn sees.
func (g subtreeGuard) run(ctx context.Context, keys func() ([]string, error), fn func() error) error {
	for attempt := 1; attempt <= maxLockAttempts; attempt++ {
		want, err := keys()
		if err != nil {
			return err
		}

		lockCtx, cancel := context.WithTimeout(ctx, g.wait)
		unlock, err := g.locker.Lock(lockCtx, want...)
		cancel()
		if err != nil {
			return errConflict("folder is busy, try again later", err)
		}

		got, err := keys()
		if err != nil {
			unlock()
			return err
		}
		if sameKeys(want, got) {
			defer unlock()
			return fn()
		}
		unlock()
		if logger.IsDebugEnabled() {
			logger.Debugf("subtree keys moved while waiting: attempt=%d want=%v got=%v", attempt, want, got)
		}
	}
	return errConflict("folder tree changed concurrently, try again", nil)
}

func sameKeys(a, b []string) bool {
	a = sortedUnique(a)
	b = sortedUnique(b)
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func sortedUnique(keys []string) []string {
	out := append([]string(nil), keys...)
	sort.Strings(out)
	n := 0
	for i, k := range out {
		if i == 0 || k != out[n-1] {
			out[n] = k
			n++
		}
	}
	return out[:n]
}
