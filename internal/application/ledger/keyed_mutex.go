package ledger

import (
	"sort"
	"sync"

	"github.com/google/uuid"
)

// KeyedMutex serializes operations per key. The ledger uses one key per
// (location, medicine) pair so that concurrent reservations, credits and
// adjustments on the same stock line cannot interleave, while operations on
// different pairs proceed fully in parallel.
type KeyedMutex struct {
	mu    sync.Mutex
	locks map[string]*keyLock
}

type keyLock struct {
	mu   sync.Mutex
	refs int
}

// NewKeyedMutex creates a new keyed mutex
func NewKeyedMutex() *KeyedMutex {
	return &KeyedMutex{
		locks: make(map[string]*keyLock),
	}
}

// PairKey builds the lock key for a (location, medicine) pair
func PairKey(locationID, medicineID uuid.UUID) string {
	return locationID.String() + "/" + medicineID.String()
}

// Lock acquires the mutex for the given key and returns the unlock function
func (k *KeyedMutex) Lock(key string) func() {
	k.mu.Lock()
	l, ok := k.locks[key]
	if !ok {
		l = &keyLock{}
		k.locks[key] = l
	}
	l.refs++
	k.mu.Unlock()

	l.mu.Lock()

	return func() {
		l.mu.Unlock()
		k.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(k.locks, key)
		}
		k.mu.Unlock()
	}
}

// LockAll acquires every key in a deterministic order and returns a single
// unlock function. Ordering the keys prevents deadlock when two callers lock
// overlapping pair sets.
func (k *KeyedMutex) LockAll(keys []string) func() {
	sorted := make([]string, len(keys))
	copy(sorted, keys)
	sort.Strings(sorted)

	unlocks := make([]func(), 0, len(sorted))
	var last string
	for i, key := range sorted {
		if i > 0 && key == last {
			continue // duplicate key, already held
		}
		last = key
		unlocks = append(unlocks, k.Lock(key))
	}

	return func() {
		for i := len(unlocks) - 1; i >= 0; i-- {
			unlocks[i]()
		}
	}
}
