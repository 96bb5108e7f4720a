// Package fanout runs a bounded number of sub-fetches concurrently.
package fanout

import (
	"context"
	"sync"
)

// DefaultLimit is the default number of tasks allowed in flight.
const DefaultLimit = 4

// Group runs tasks on goroutines, at most limit at a time. The zero value is
// not usable; create groups with New.
type Group struct {
	sem chan struct{}
	wg  sync.WaitGroup
}

// New creates a group. A limit below 1 means DefaultLimit.
func New(limit int) *Group {
	if limit < 1 {
		limit = DefaultLimit
	}
	return &Group{sem: make(chan struct{}, limit)}
}

// Go blocks until a slot is free, then runs fn on a new goroutine with ctx.
// It returns false without running fn when ctx is done before a slot is
// acquired; once cancellation is observed no further task starts.
func (g *Group) Go(ctx context.Context, fn func(ctx context.Context)) bool {
	if ctx.Err() != nil {
		return false
	}

	select {
	case g.sem <- struct{}{}:
	case <-ctx.Done():
		return false
	}

	// the slot may have been granted in the same instant ctx was cancelled
	if ctx.Err() != nil {
		<-g.sem
		return false
	}

	g.wg.Add(1)
	go func() {
		defer g.wg.Done()
		defer func() { <-g.sem }()
		fn(ctx)
	}()
	return true
}

// Wait blocks until every started task has returned.
func (g *Group) Wait() {
	g.wg.Wait()
}

// Limit returns the maximum number of tasks in flight.
func (g *Group) Limit() int {
	return cap(g.sem)
}
