package core

import "time"

// Guard serializes access to a shared record. It is a one-slot semaphore:
// Acquire blocks until the slot is free, AcquireTimeout gives up after d so
// the caller can skip its critical section and retry on the next cycle.
type Guard struct {
	sem chan struct{}
}

func NewGuard() *Guard {
	return &Guard{sem: make(chan struct{}, 1)}
}

// Acquire takes the guard, blocking until it is available.
func (g *Guard) Acquire() {
	g.sem <- struct{}{}
}

// AcquireTimeout takes the guard, waiting at most d. Returns false if the
// guard could not be taken in time.
func (g *Guard) AcquireTimeout(d time.Duration) bool {
	select {
	case g.sem <- struct{}{}:
		return true
	case <-time.After(d):
		return false
	}
}

// Release frees the guard for the next holder.
func (g *Guard) Release() {
	<-g.sem
}
