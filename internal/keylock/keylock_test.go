package keylock

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLockSerializesSameKey(t *testing.T) {
	l := New()
	unlock := l.Lock(7)

	acquired := make(chan struct{})
	go func() {
		release := l.Lock(7)
		close(acquired)
		release()
	}()

	select {
	case <-acquired:
		t.Fatalf("second lock acquired while first held")
	case <-time.After(50 * time.Millisecond):
	}
	unlock()
	select {
	case <-acquired:
	case <-time.After(time.Second):
		t.Fatalf("second lock never acquired")
	}
}

func TestDifferentKeysDoNotBlock(t *testing.T) {
	l := New()
	unlock := l.Lock(1)
	defer unlock()
	done := make(chan struct{})
	go func() {
		l.Lock(2)()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("independent key blocked")
	}
}

func TestIdleKeysAreRemoved(t *testing.T) {
	l := New()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(key int) {
			defer wg.Done()
			l.Lock(key % 5)()
		}(i)
	}
	wg.Wait()
	require.Equal(t, 0, l.size())
}
