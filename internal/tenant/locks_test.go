package tenant

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKeyedMutexSerializesSameKey(t *testing.T) {
	km := NewKeyedMutex()

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		running int
		maxSeen int
	)

	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()

			unlock := km.Lock("tenant_a")
			defer unlock()

			mu.Lock()
			running++
			if running > maxSeen {
				maxSeen = running
			}
			mu.Unlock()

			mu.Lock()
			running--
			mu.Unlock()
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, maxSeen)
}

func TestKeyedMutexIndependentKeys(t *testing.T) {
	km := NewKeyedMutex()

	unlockA := km.Lock("tenant_a")
	defer unlockA()

	done := make(chan struct{})
	go func() {
		unlockB := km.Lock("tenant_b")
		unlockB()
		close(done)
	}()

	<-done
}
