package vcsgraph

import "sync"

// Interner assigns dense integer ids to keys in first-seen order.
// Loaders use it to number commits as they are walked.
type Interner[K comparable] struct {
	keyToID map[K]int
	idToKey []K
	lock    sync.RWMutex
}

// NewInterner creates an empty Interner.
func NewInterner[K comparable]() *Interner[K] {
	return &Interner[K]{
		keyToID: make(map[K]int),
	}
}

// Intern returns the id for key, assigning the next free id on first sight.
func (in *Interner[K]) Intern(key K) int {
	in.lock.RLock()
	id, exists := in.keyToID[key]
	in.lock.RUnlock()

	if exists {
		return id
	}

	in.lock.Lock()
	defer in.lock.Unlock()

	// Double check.
	if existing, found := in.keyToID[key]; found {
		return existing
	}

	id = len(in.idToKey)
	in.idToKey = append(in.idToKey, key)
	in.keyToID[key] = id

	return id
}

// Lookup returns the id of key without interning it.
func (in *Interner[K]) Lookup(key K) (int, bool) {
	in.lock.RLock()
	defer in.lock.RUnlock()

	id, ok := in.keyToID[key]

	return id, ok
}

// Resolve returns the key for id and whether the id is known.
func (in *Interner[K]) Resolve(id int) (K, bool) {
	in.lock.RLock()
	defer in.lock.RUnlock()

	if id < 0 || id >= len(in.idToKey) {
		var zero K

		return zero, false
	}

	return in.idToKey[id], true
}

// Len returns the number of interned keys.
func (in *Interner[K]) Len() int {
	in.lock.RLock()
	defer in.lock.RUnlock()

	return len(in.idToKey)
}
