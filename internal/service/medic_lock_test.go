package service

import (
	"io"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
)

func quietLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

func TestMedicLocker_SerializesSameMedic(t *testing.T) {
	l := NewMedicLocker(quietLogger())
	t.Cleanup(l.Stop)

	medicID := uuid.New()
	var inside, maxInside int
	var mu sync.Mutex
	var wg sync.WaitGroup

	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := l.Lock(medicID)
			defer unlock()

			mu.Lock()
			inside++
			if inside > maxInside {
				maxInside = inside
			}
			mu.Unlock()

			time.Sleep(time.Millisecond)

			mu.Lock()
			inside--
			mu.Unlock()
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, maxInside)
}

func TestMedicLocker_DifferentMedicsDoNotBlock(t *testing.T) {
	l := NewMedicLocker(quietLogger())
	t.Cleanup(l.Stop)

	unlockA := l.Lock(uuid.New())
	defer unlockA()

	done := make(chan struct{})
	go func() {
		unlockB := l.Lock(uuid.New())
		unlockB()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("lock for a different medic blocked")
	}
}

func TestMedicLocker_CleanupStale(t *testing.T) {
	l := newMedicLocker(quietLogger(), time.Hour, time.Millisecond)
	t.Cleanup(l.Stop)

	unlockIdle := l.Lock(uuid.New())
	unlockIdle()
	unlockHeld := l.Lock(uuid.New())
	defer unlockHeld()

	time.Sleep(5 * time.Millisecond)

	assert.Equal(t, 1, l.cleanupStale())
	assert.Equal(t, 1, l.size())
}

func TestMedicLocker_StopTwice(t *testing.T) {
	l := NewMedicLocker(quietLogger())
	l.Stop()
	assert.NotPanics(t, l.Stop)
}

func TestMedicLocker_DroppedMutexIsNotAcquired(t *testing.T) {
	l := newMedicLocker(quietLogger(), time.Hour, time.Hour)
	t.Cleanup(l.Stop)

	medicID := uuid.New()
	stale := l.mutexFor(medicID)
	// Cleanup removed the entry after stale was loaded.
	l.locks.Delete(medicID)

	unlock := l.Lock(medicID)
	assert.False(t, l.acquire(medicID, stale))
	assert.True(t, stale.mu.TryLock(), "a rejected mutex must be released")
	stale.mu.Unlock()

	done := make(chan struct{})
	go func() {
		l.Lock(medicID)()
		close(done)
	}()

	select {
	case <-done:
		t.Fatal("second caller entered while the medic was locked")
	case <-time.After(20 * time.Millisecond):
	}

	unlock()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("second caller never acquired the lock")
	}
}

func TestMedicLocker_NewEntryIsNotStale(t *testing.T) {
	l := newMedicLocker(quietLogger(), time.Hour, time.Minute)
	t.Cleanup(l.Stop)

	l.mutexFor(uuid.New())
	assert.Zero(t, l.cleanupStale())
	assert.Equal(t, 1, l.size())
}
