package lock

import (
	"sync"
	"time"
)

var (
	lockMap sync.Map
)

const retryInterval = 20 * time.Millisecond

// WithDelay runs safeCode while holding the named in-process lock.
// It gives up without running safeCode when the lock is not free within wait.
func WithDelay(key string, wait time.Duration, safeCode func() error) (success bool, err error) {
	deadline := time.Now().Add(wait)
	for {
		if _, loaded := lockMap.LoadOrStore(key, true); !loaded {
			break
		}
		if time.Now().After(deadline) {
			return false, nil
		}
		time.Sleep(retryInterval)
	}
	defer lockMap.Delete(key)
	return true, safeCode()
}
