package booking

import (
	"context"
	"sync"
	"testing"
	"time"
)

func TestKeyedMutexExcludes(t *testing.T) {
	km := NewKeyedMutex()

	release, err := km.Acquire(context.Background(), "k", time.Second)
	if err != nil {
		t.Fatalf("first acquire: %v", err)
	}

	// The key is held: a second acquire with a short wait times out.
	if _, err := km.Acquire(context.Background(), "k", 20*time.Millisecond); err != ErrGateTimeout {
		t.Fatalf("held key: err = %v, want ErrGateTimeout", err)
	}
	// A different key is independent.
	other, err := km.Acquire(context.Background(), "other", 20*time.Millisecond)
	if err != nil {
		t.Fatalf("independent key: %v", err)
	}
	other()

	release()

	// Released: acquirable again.
	again, err := km.Acquire(context.Background(), "k", 20*time.Millisecond)
	if err != nil {
		t.Fatalf("after release: %v", err)
	}
	again()
}

func TestKeyedMutexContextCancel(t *testing.T) {
	km := NewKeyedMutex()
	release, err := km.Acquire(context.Background(), "k", time.Second)
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}
	defer release()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := km.Acquire(ctx, "k", time.Minute)
		done <- err
	}()
	cancel()

	select {
	case err := <-done:
		if err != context.Canceled {
			t.Fatalf("err = %v, want context.Canceled", err)
		}
	case <-time.After(time.Second):
		t.Fatal("acquire did not observe cancellation")
	}
}

func TestKeyedMutexSerializesCriticalSection(t *testing.T) {
	km := NewKeyedMutex()

	var inSection, maxInSection int
	var mu sync.Mutex
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			release, err := km.Acquire(context.Background(), "slot", 5*time.Second)
			if err != nil {
				t.Errorf("acquire: %v", err)
				return
			}
			mu.Lock()
			inSection++
			if inSection > maxInSection {
				maxInSection = inSection
			}
			mu.Unlock()

			time.Sleep(time.Millisecond)

			mu.Lock()
			inSection--
			mu.Unlock()
			release()
		}()
	}
	wg.Wait()

	if maxInSection != 1 {
		t.Fatalf("max holders = %d, want 1", maxInSection)
	}
}

func TestKeyedMutexCleansUpIdleKeys(t *testing.T) {
	km := NewKeyedMutex()
	release, err := km.Acquire(context.Background(), "k", time.Second)
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}
	release()

	km.mu.Lock()
	n := len(km.slots)
	km.mu.Unlock()
	if n != 0 {
		t.Fatalf("slots map retains %d idle entries", n)
	}
}
