package internal

import (
	"context"
	"sync"
)

// ConnectionManager serializes connection setup for a client. Once an
// initialization succeeds later calls return immediately; a failed attempt
// leaves the manager uninitialized so the next call tries again.
type ConnectionManager struct {
	mu   sync.Mutex
	done bool
	err  error
}

// NewConnectionManager creates a new ConnectionManager instance ready for use.
func NewConnectionManager() *ConnectionManager {
	return &ConnectionManager{}
}

// Initialize runs fn unless a previous call already succeeded. Concurrent
// callers wait for the attempt in flight and then either share its success
// or make their own attempt.
func (cm *ConnectionManager) Initialize(ctx context.Context, fn func(context.Context) error) error {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	if cm.done {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	cm.err = fn(ctx)
	cm.done = cm.err == nil
	return cm.err
}

// Error returns the error from the last initialization attempt, if any.
func (cm *ConnectionManager) Error() error {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	return cm.err
}

// IsInitialized reports whether an initialization has succeeded.
func (cm *ConnectionManager) IsInitialized() bool {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	return cm.done
}

// Reset forgets a successful initialization.
func (cm *ConnectionManager) Reset() {
	cm.mu.Lock()
	cm.done = false
	cm.err = nil
	cm.mu.Unlock()
}
