package orchestrator

import (
	"context"
	"time"
)

// beginProvision reserves a queue slot and then the single in-flight
// provisioning slot for host. Returns a release func to be deferred.
func (o *Orchestrator) beginProvision(ctx context.Context, host string) (func(), error) {
	o.mu.Lock()
	g := o.gateLocked(host)
	o.mu.Unlock()

	// Fast path: respect an already-canceled context
	if err := ctx.Err(); err != nil {
		return func() {}, err
	}

	// Try to reserve a queue slot with timeout
	timer := time.NewTimer(o.maxWait)
	defer timer.Stop()
	select {
	case g.queueCh <- struct{}{}:
		// reserved queue slot
	case <-ctx.Done():
		return func() {}, ctx.Err()
	case <-timer.C:
		return func() {}, tooBusyError{host: host}
	}

	// Wait to acquire the single in-flight slot
	acquired := false
	defer func() {
		if !acquired {
			<-g.queueCh
		}
	}()
	// Check for cancellation again before blocking on the provision slot
	if err := ctx.Err(); err != nil {
		return func() {}, err
	}
	timer2 := time.NewTimer(o.maxWait)
	defer timer2.Stop()
	select {
	case g.provCh <- struct{}{}:
		acquired = true
		return func() { <-g.provCh; <-g.queueCh }, nil
	case <-ctx.Done():
		return func() {}, ctx.Err()
	case <-timer2.C:
		return func() {}, tooBusyError{host: host}
	}
}
