package ledger

import (
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestPairKey(t *testing.T) {
	locationID := uuid.New()
	medicineID := uuid.New()

	key := PairKey(locationID, medicineID)

	assert.Equal(t, locationID.String()+"/"+medicineID.String(), key)
	assert.NotEqual(t, key, PairKey(medicineID, locationID))
}

func TestKeyedMutex_Lock(t *testing.T) {
	t.Run("serializes access to the same key", func(t *testing.T) {
		km := NewKeyedMutex()
		const workers = 50
		counter := 0

		var wg sync.WaitGroup
		wg.Add(workers)
		for i := 0; i < workers; i++ {
			go func() {
				defer wg.Done()
				unlock := km.Lock("shared-key")
				defer unlock()
				counter++
			}()
		}
		wg.Wait()

		assert.Equal(t, workers, counter)
	})

	t.Run("different keys do not block each other", func(t *testing.T) {
		km := NewKeyedMutex()
		unlockA := km.Lock("key-a")

		done := make(chan struct{})
		go func() {
			unlockB := km.Lock("key-b")
			unlockB()
			close(done)
		}()

		<-done
		unlockA()
	})

	t.Run("releases the key for reuse", func(t *testing.T) {
		km := NewKeyedMutex()

		unlock := km.Lock("key")
		unlock()
		unlock = km.Lock("key")
		unlock()
	})
}

func TestKeyedMutex_LockAll(t *testing.T) {
	t.Run("acquires and releases every key", func(t *testing.T) {
		km := NewKeyedMutex()

		unlock := km.LockAll([]string{"b", "a", "c"})
		unlock()

		for _, key := range []string{"a", "b", "c"} {
			u := km.Lock(key)
			u()
		}
	})

	t.Run("duplicate keys do not deadlock", func(t *testing.T) {
		km := NewKeyedMutex()

		unlock := km.LockAll([]string{"a", "a", "b", "a"})
		unlock()
	})

	t.Run("overlapping sets lock in a consistent order", func(t *testing.T) {
		km := NewKeyedMutex()
		var wg sync.WaitGroup
		wg.Add(2)

		go func() {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				unlock := km.LockAll([]string{"x", "y"})
				unlock()
			}
		}()
		go func() {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				unlock := km.LockAll([]string{"y", "x"})
				unlock()
			}
		}()

		wg.Wait()
	})
}
