package collab

import (
	"context"

	"golang.org/x/sync/semaphore"
)

// Pool bounds how many blocking store and sink calls run at once.
type Pool struct {
	sem *semaphore.Weighted
}

func NewPool(size int) *Pool {
	if size < 1 {
		size = 1
	}
	return &Pool{sem: semaphore.NewWeighted(int64(size))}
}

// Do waits for a free slot and runs fn. ctx only bounds the wait; fn gets a
// context that is not cancelled with ctx so started work runs to completion.
func (p *Pool) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	if err := p.sem.Acquire(ctx, 1); err != nil {
		return err
	}
	defer p.sem.Release(1)
	return fn(context.WithoutCancel(ctx))
}
