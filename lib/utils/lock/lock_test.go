package lock

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
)

func TestWithDelay(t *testing.T) {
	t.Run("runs and returns code error", func(t *testing.T) {
		success, err := WithDelay("k1", time.Second, func() error {
			return errors.New("boom")
		})
		require.True(t, success)
		require.EqualError(t, err, "boom")

		success, err = WithDelay("k1", time.Second, func() error { return nil })
		require.True(t, success)
		require.NoError(t, err)
	})
	t.Run("gives up when held", func(t *testing.T) {
		release := make(chan struct{})
		started := make(chan struct{})
		go func() {
			_, _ = WithDelay("k2", time.Second, func() error {
				close(started)
				<-release
				return nil
			})
		}()
		<-started
		success, err := WithDelay("k2", 50*time.Millisecond, func() error {
			t.Fatal("must not run")
			return nil
		})
		require.False(t, success)
		require.NoError(t, err)
		close(release)
	})
	t.Run("serializes same key", func(t *testing.T) {
		var inside int32
		var maxInside int32
		var ran int32
		wg := sync.WaitGroup{}
		for n := 0; n < 5; n++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				success, _ := WithDelay("k3", 5*time.Second, func() error {
					current := atomic.AddInt32(&inside, 1)
					if current > atomic.LoadInt32(&maxInside) {
						atomic.StoreInt32(&maxInside, current)
					}
					time.Sleep(5 * time.Millisecond)
					atomic.AddInt32(&inside, -1)
					return nil
				})
				if success {
					atomic.AddInt32(&ran, 1)
				}
			}()
		}
		wg.Wait()
		require.Equal(t, int32(5), atomic.LoadInt32(&ran))
		require.Equal(t, int32(1), atomic.LoadInt32(&maxInside))
	})
}
