// Package workerpool bounds how many CPU-heavy jobs (bcrypt, token signing)
// run at once so they do not starve request dispatch.
package workerpool

import (
	"context"
	"runtime"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
)

// Pool admits at most Size jobs concurrently.
type Pool struct {
	sem  *semaphore.Weighted
	size int
}

// New returns a pool with size slots; size <= 0 means GOMAXPROCS.
func New(size int) *Pool {
	if size <= 0 {
		size = runtime.GOMAXPROCS(0)
	}
	return &Pool{sem: semaphore.NewWeighted(int64(size)), size: size}
}

func (p *Pool) Size() int { return p.size }

// Do runs fn on the calling goroutine once a slot is free. It returns
// ctx.Err() if the context ends while waiting.
func (p *Pool) Do(ctx context.Context, fn func() error) error {
	if err := p.sem.Acquire(ctx, 1); err != nil {
		return err
	}
	defer p.sem.Release(1)
	return fn()
}

// Run is Do for jobs that produce a value.
func Run[T any](ctx context.Context, p *Pool, fn func() (T, error)) (T, error) {
	var out T
	err := p.Do(ctx, func() error {
		var err error
		out, err = fn()
		return err
	})
	return out, err
}

// Map applies fn to every item through the pool and returns the results in
// input order. The first error cancels the remaining jobs.
func Map[In, Out any](ctx context.Context, p *Pool, items []In, fn func(context.Context, In) (Out, error)) ([]Out, error) {
	out := make([]Out, len(items))
	g, gctx := errgroup.WithContext(ctx)
	for i, item := range items {
		g.Go(func() error {
			return p.Do(gctx, func() error {
				if err := gctx.Err(); err != nil {
					return err
				}
				v, err := fn(gctx, item)
				if err != nil {
					return err
				}
				out[i] = v
				return nil
			})
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}
