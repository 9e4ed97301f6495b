package service

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const (
	// Interval for cleaning up stale mutexes
	lockCleanupInterval = 10 * time.Minute

	// How long a mutex must be unused before cleanup
	lockStaleThreshold = 10 * time.Minute
)

// MedicLocker hands out one mutex per medic so that the conflict check and
// the write of a booking run without interleaving inside this process.
// The database transaction takes the matching lock across processes.
type MedicLocker struct {
	log   *logrus.Logger
	locks sync.Map // map[uuid.UUID]*mutexWithTimestamp

	staleAfter time.Duration

	stopChan chan struct{}
	wg       sync.WaitGroup
	stopped  atomic.Bool
}

// mutexWithTimestamp tracks mutex usage for cleanup
type mutexWithTimestamp struct {
	mu       sync.Mutex
	lastUsed atomic.Int64 // Unix nanoseconds
}

// NewMedicLocker starts the background cleanup goroutine. Call Stop during shutdown.
func NewMedicLocker(log *logrus.Logger) *MedicLocker {
	return newMedicLocker(log, lockCleanupInterval, lockStaleThreshold)
}

func newMedicLocker(log *logrus.Logger, interval, staleAfter time.Duration) *MedicLocker {
	l := &MedicLocker{
		log:        log,
		staleAfter: staleAfter,
		stopChan:   make(chan struct{}),
	}

	l.wg.Add(1)
	go l.cleanupLoop(interval)

	return l
}

// Lock blocks until the medic's mutex is held and returns its release func.
func (l *MedicLocker) Lock(medicID uuid.UUID) func() {
	mt := l.mutexFor(medicID)
	for !l.acquire(medicID, mt) {
		mt = l.mutexFor(medicID)
	}
	return func() {
		mt.lastUsed.Store(time.Now().UnixNano())
		mt.mu.Unlock()
	}
}

// Stop is safe to call multiple times.
func (l *MedicLocker) Stop() {
	if l.stopped.CompareAndSwap(false, true) {
		close(l.stopChan)
		l.wg.Wait()
		l.log.Info("MedicLocker stopped")
	}
}

func (l *MedicLocker) mutexFor(medicID uuid.UUID) *mutexWithTimestamp {
	now := time.Now().UnixNano()
	fresh := &mutexWithTimestamp{}
	fresh.lastUsed.Store(now)

	mt, _ := l.locks.LoadOrStore(medicID, fresh)
	result := mt.(*mutexWithTimestamp)
	result.lastUsed.Store(now)
	return result
}

// acquire locks mt and reports whether it is still the medic's mutex.
// Cleanup only deletes entries it holds, so once mt is locked and still
// mapped it cannot be replaced. A mutex dropped before the lock was taken
// is released and the caller must load the current one.
func (l *MedicLocker) acquire(medicID uuid.UUID, mt *mutexWithTimestamp) bool {
	mt.mu.Lock()
	if current, ok := l.locks.Load(medicID); ok && current == mt {
		return true
	}
	mt.mu.Unlock()
	return false
}

func (l *MedicLocker) cleanupLoop(interval time.Duration) {
	defer l.wg.Done()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-l.stopChan:
			return
		case <-ticker.C:
			l.cleanupStale()
		}
	}
}

// cleanupStale drops mutexes nobody holds and nobody used recently. The
// lastUsed check happens under the lock so a concurrent Lock call that already
// loaded the mutex keeps it alive.
func (l *MedicLocker) cleanupStale() int {
	cutoff := time.Now().Add(-l.staleAfter).UnixNano()
	var cleaned int

	l.locks.Range(func(key, value any) bool {
		mt := value.(*mutexWithTimestamp)
		if mt.mu.TryLock() {
			if mt.lastUsed.Load() < cutoff {
				l.locks.Delete(key)
				cleaned++
			}
			mt.mu.Unlock()
		}
		return true
	})

	if cleaned > 0 {
		l.log.Debugf("Cleaned up %d stale medic locks", cleaned)
	}
	return cleaned
}

func (l *MedicLocker) size() int {
	n := 0
	l.locks.Range(func(any, any) bool {
		n++
		return true
	})
	return n
}
