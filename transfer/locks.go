package transfer

import "sync"

// LockRegistry is an explicit de-duplication lock set keyed by wallet
// address, used to prevent concurrent balance-refresh operations. It is
// owned by the long-lived Scanner instance; Acquire and Release are its
// only mutation surface.
type LockRegistry struct {
	mu   sync.Mutex
	held map[string]bool
}

// NewLockRegistry creates an empty registry
func NewLockRegistry() *LockRegistry {
	return &LockRegistry{held: make(map[string]bool)}
}

// Acquire takes the lock for key. Returns false if it is already held.
func (r *LockRegistry) Acquire(key string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.held[key] {
		return false
	}
	r.held[key] = true
	return true
}

// Release frees the lock for key. Releasing an unheld key is a no-op.
func (r *LockRegistry) Release(key string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.held, key)
}
