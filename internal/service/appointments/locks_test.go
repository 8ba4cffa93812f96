package appointments

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/tthaschke-rgb/kalender/internal/service"
)

func TestKeyedLocker_TimesOutWithErrBusy(t *testing.T) {
	l := newKeyedLocker()
	release, err := l.Acquire(context.Background(), time.Second, "a")
	if err != nil {
		t.Fatalf("Acquire error: %v", err)
	}
	defer release()

	_, err = l.Acquire(context.Background(), 20*time.Millisecond, "a")
	if !errors.Is(err, service.ErrBusy) {
		t.Fatalf("err = %v, want ErrBusy", err)
	}
}

func TestKeyedLocker_DifferentKeysDoNotBlock(t *testing.T) {
	l := newKeyedLocker()
	releaseA, err := l.Acquire(context.Background(), time.Second, "a")
	if err != nil {
		t.Fatalf("Acquire a error: %v", err)
	}
	defer releaseA()

	releaseB, err := l.Acquire(context.Background(), 20*time.Millisecond, "b")
	if err != nil {
		t.Fatalf("Acquire b error: %v", err)
	}
	releaseB()
}

func TestKeyedLocker_ContextCancelReturnsContextError(t *testing.T) {
	l := newKeyedLocker()
	release, err := l.Acquire(context.Background(), time.Second, "a")
	if err != nil {
		t.Fatalf("Acquire error: %v", err)
	}
	defer release()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = l.Acquire(ctx, time.Second, "a")
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
}

func TestKeyedLocker_FailedMultiKeyAcquireReleasesHeldKeys(t *testing.T) {
	l := newKeyedLocker()
	releaseB, err := l.Acquire(context.Background(), time.Second, "b")
	if err != nil {
		t.Fatalf("Acquire error: %v", err)
	}

	if _, err := l.Acquire(context.Background(), 20*time.Millisecond, "b", "a"); !errors.Is(err, service.ErrBusy) {
		t.Fatalf("err = %v, want ErrBusy", err)
	}

	// "a" was taken before "b" blocked and must have been released again.
	releaseA, err := l.Acquire(context.Background(), 20*time.Millisecond, "a")
	if err != nil {
		t.Fatalf("Acquire a after failed multi-key acquire: %v", err)
	}
	releaseA()
	releaseB()

	if n := l.size(); n != 0 {
		t.Fatalf("size = %d, want 0 after all releases", n)
	}
}

func TestKeyedLocker_SerializesSameKey(t *testing.T) {
	l := newKeyedLocker()
	var inside, maxInside int32
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			release, err := l.Acquire(context.Background(), 5*time.Second, "k", "k")
			if err != nil {
				t.Errorf("Acquire error: %v", err)
				return
			}
			n := atomic.AddInt32(&inside, 1)
			for {
				m := atomic.LoadInt32(&maxInside)
				if n <= m || atomic.CompareAndSwapInt32(&maxInside, m, n) {
					break
				}
			}
			time.Sleep(time.Millisecond)
			atomic.AddInt32(&inside, -1)
			release()
			release()
		}()
	}
	wg.Wait()

	if maxInside != 1 {
		t.Fatalf("max concurrent holders = %d, want 1", maxInside)
	}
	if n := l.size(); n != 0 {
		t.Fatalf("size = %d, want 0", n)
	}
}
