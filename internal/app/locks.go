package app

import "sync"

// tenantLocks serializes provisioning runs per tenant within this process.
// Acquire is non-blocking: a second caller for the same tenant is told the
// run is already in flight instead of queueing behind it. Cross-process
// races are caught by the tenants table's optimistic version column.
type tenantLocks struct {
	mu     sync.Mutex
	locked map[string]bool
}

func newTenantLocks() *tenantLocks {
	return &tenantLocks{locked: make(map[string]bool)}
}

// acquire takes the lock for a tenant id. It returns a release func and
// false when another run already holds it.
func (l *tenantLocks) acquire(id string) (func(), bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.locked[id] {
		return nil, false
	}
	l.locked[id] = true

	return func() {
		l.mu.Lock()
		delete(l.locked, id)
		l.mu.Unlock()
	}, true
}
