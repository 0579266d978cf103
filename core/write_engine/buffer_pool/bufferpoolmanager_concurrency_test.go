package bufferpool

import (
	"encoding/binary"
	"runtime"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sasha-s/go-deadlock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	flushmanager "github.com/sushant-115/gojodb-bufferpool/core/write_engine/flush_manager"
	pagemanager "github.com/sushant-115/gojodb-bufferpool/core/write_engine/page_manager"
	"go.uber.org/zap"
)

// TestConcurrentIncrements runs goroutines that each hold at most one pin and
// bump a counter stored in the page. With more pages than frames the pool
// evicts constantly, so every increment has to survive write-back and reload.
func TestConcurrentIncrements(t *testing.T) {
	const (
		workers    = 8
		iterations = 300
		numPages   = 20
	)
	for _, policy := range []string{ReplacerLRU, ReplacerClock} {
		t.Run(policy, func(t *testing.T) {
			store := flushmanager.NewMemStore(testPageSize)
			_, err := store.AllocatePage(numPages)
			require.NoError(t, err)
			bpm, err := NewBufferPoolManager(store, Options{
				PoolSize: workers,
				PageSize: testPageSize,
				Replacer: policy,
				Logger:   zap.NewNop(),
			})
			require.NoError(t, err)

			var wg sync.WaitGroup
			errs := make(chan error, workers)
			for w := 0; w < workers; w++ {
				wg.Add(1)
				go func(w int) {
					defer wg.Done()
					for i := 0; i < iterations; i++ {
						pageID := pagemanager.PageID((w*7+i*3)%numPages + 1)
						err := bpm.WithPage(pageID, func(data []byte) (bool, error) {
							n := binary.LittleEndian.Uint64(data)
							binary.LittleEndian.PutUint64(data, n+1)
							return true, nil
						})
						if err != nil {
							errs <- err
							return
						}
					}
				}(w)
			}
			wg.Wait()
			close(errs)
			for err := range errs {
				require.NoError(t, err)
			}

			require.NoError(t, bpm.FlushAllPages())
			var total uint64
			buf := make([]byte, testPageSize)
			for id := pagemanager.PageID(1); id <= numPages; id++ {
				require.NoError(t, store.ReadPage(id, buf))
				total += binary.LittleEndian.Uint64(buf)
			}
			assert.Equal(t, uint64(workers*iterations), total)
			assert.Equal(t, workers, bpm.CountUnpinnedFrames())

			pins, _ := bpm.GetStats()
			assert.Equal(t, int64(workers*iterations), pins)
			requirePoolInvariants(t, bpm)
		})
	}
}

// slowStore delays page i/o so the pool latch is held long enough for other
// goroutines to queue on it.
type slowStore struct {
	*flushmanager.MemStore
	delay time.Duration
}

func (s *slowStore) ReadPage(pageID pagemanager.PageID, pageData []byte) error {
	time.Sleep(s.delay)
	return s.MemStore.ReadPage(pageID, pageData)
}

func (s *slowStore) WritePage(pageID pagemanager.PageID, pageData []byte) error {
	time.Sleep(s.delay)
	return s.MemStore.WritePage(pageID, pageData)
}

// TestContendedLatch_SlowStore keeps several goroutines waiting on the latch
// while misses do slow i/o under it, with and without lock checking.
func TestContendedLatch_SlowStore(t *testing.T) {
	prevProcs := runtime.GOMAXPROCS(4)
	t.Cleanup(func() { runtime.GOMAXPROCS(prevProcs) })

	const (
		workers    = 4
		iterations = 15
		numPages   = 12
	)
	for _, detect := range []bool{false, true} {
		name := "plain latch"
		if detect {
			name = "deadlock checked latch"
		}
		t.Run(name, func(t *testing.T) {
			var reported atomic.Bool
			prevHook := deadlock.Opts.OnPotentialDeadlock
			deadlock.Opts.OnPotentialDeadlock = func() { reported.Store(true) }
			t.Cleanup(func() { deadlock.Opts.OnPotentialDeadlock = prevHook })

			store := &slowStore{MemStore: flushmanager.NewMemStore(testPageSize), delay: 2 * time.Millisecond}
			_, err := store.AllocatePage(numPages)
			require.NoError(t, err)
			bpm, err := NewBufferPoolManager(store, Options{
				PoolSize:        workers,
				PageSize:        testPageSize,
				DetectDeadlocks: detect,
				Logger:          zap.NewNop(),
			})
			require.NoError(t, err)

			done := make(chan struct{})
			observerDone := make(chan struct{})
			go func() {
				defer close(observerDone)
				for {
					select {
					case <-done:
						return
					default:
						_ = bpm.CountUnpinnedFrames()
						_ = bpm.Stats()
					}
				}
			}()

			var wg sync.WaitGroup
			errs := make(chan error, workers)
			for w := 0; w < workers; w++ {
				wg.Add(1)
				go func(w int) {
					defer wg.Done()
					for i := 0; i < iterations; i++ {
						pageID := pagemanager.PageID((w*5+i)%numPages + 1)
						err := bpm.WithPage(pageID, func(data []byte) (bool, error) {
							data[0]++
							return true, nil
						})
						if err != nil {
							errs <- err
							return
						}
					}
				}(w)
			}
			wg.Wait()
			close(done)
			<-observerDone
			close(errs)
			for err := range errs {
				require.NoError(t, err)
			}

			assert.False(t, reported.Load(), "lock checker flagged ordinary contention")
			assert.Equal(t, workers, bpm.CountUnpinnedFrames())
			requirePoolInvariants(t, bpm)
			require.NoError(t, bpm.Close())
		})
	}
}
