package syncutil

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

func TestKeyedMutexLockRelease(t *testing.T) {
	m := NewKeyedMutex()

	release, err := m.Lock(context.Background(), "wallet")
	if err != nil {
		t.Fatalf("Lock: %v", err)
	}
	release()

	// Releasing must leave the key lockable again.
	release, err = m.Lock(context.Background(), "wallet")
	if err != nil {
		t.Fatalf("second Lock: %v", err)
	}
	release()
}

func TestKeyedMutexSerializesSameKey(t *testing.T) {
	m := NewKeyedMutex()
	ctx := context.Background()

	var counter int
	var wg sync.WaitGroup
	const n = 50

	wg.Add(n)
	for i := 0; i < n; i++ {
		go func() {
			defer wg.Done()
			release, err := m.Lock(ctx, "wallet")
			if err != nil {
				t.Errorf("Lock: %v", err)
				return
			}
			counter++
			release()
		}()
	}
	wg.Wait()

	if counter != n {
		t.Fatalf("counter = %d, want %d", counter, n)
	}
}

func TestKeyedMutexIndependentKeys(t *testing.T) {
	m := NewKeyedMutex()
	ctx := context.Background()

	release1, err := m.Lock(ctx, "/wallets/a")
	if err != nil {
		t.Fatalf("Lock a: %v", err)
	}
	defer release1()

	// A different key must not be blocked by the held lock.
	ctx2, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()
	release2, err := m.Lock(ctx2, "/wallets/b")
	if err != nil {
		t.Fatalf("Lock b blocked by unrelated key: %v", err)
	}
	release2()
}

func TestKeyedMutexCancelledWhileWaiting(t *testing.T) {
	m := NewKeyedMutex()

	release, err := m.Lock(context.Background(), "wallet")
	if err != nil {
		t.Fatalf("Lock: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	if _, err := m.Lock(ctx, "wallet"); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("err = %v, want DeadlineExceeded", err)
	}

	// The held lock survives the failed acquisition.
	release()
	release, err = m.Lock(context.Background(), "wallet")
	if err != nil {
		t.Fatalf("Lock after release: %v", err)
	}
	release()
}

func TestKeyedMutexReleaseUnblocksWaiter(t *testing.T) {
	m := NewKeyedMutex()
	ctx := context.Background()

	release, err := m.Lock(ctx, "wallet")
	if err != nil {
		t.Fatalf("Lock: %v", err)
	}

	acquired := make(chan struct{})
	go func() {
		r, err := m.Lock(ctx, "wallet")
		if err != nil {
			return
		}
		close(acquired)
		r()
	}()

	select {
	case <-acquired:
		t.Fatal("waiter acquired the lock while it was held")
	case <-time.After(20 * time.Millisecond):
	}

	release()

	select {
	case <-acquired:
	case <-time.After(time.Second):
		t.Fatal("waiter never acquired the lock after release")
	}
}
