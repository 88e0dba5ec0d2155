package bot

import (
	"context"
	"sync"

	"arc-onboarding/internal/logger"
	"arc-onboarding/internal/onboarding"
)

// Inbound is one event addressed to an applicant.
type Inbound struct {
	UserID    int64
	ChatID    int64
	FirstName string
	Event     onboarding.Event
}

// Dispatcher runs events of the same applicant one at a time in arrival order. Each
// applicant with queued work gets its own goroutine, so applicants never wait on each other.
type Dispatcher struct {
	ctx    context.Context
	handle func(context.Context, Inbound)

	mu     sync.Mutex
	queues map[int64][]Inbound
	closed bool
	wg     sync.WaitGroup
}

func NewDispatcher(ctx context.Context, handle func(context.Context, Inbound)) *Dispatcher {
	return &Dispatcher{
		ctx:    ctx,
		handle: handle,
		queues: make(map[int64][]Inbound),
	}
}

// Submit queues in behind earlier events of the same applicant. It reports false once
// the dispatcher is closed.
func (d *Dispatcher) Submit(in Inbound) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return false
	}
	queue, active := d.queues[in.UserID]
	d.queues[in.UserID] = append(queue, in)
	if !active {
		d.wg.Add(1)
		go d.drain(in.UserID)
	}
	return true
}

func (d *Dispatcher) drain(userID int64) {
	defer d.wg.Done()
	for {
		d.mu.Lock()
		queue := d.queues[userID]
		if len(queue) == 0 {
			delete(d.queues, userID)
			d.mu.Unlock()
			return
		}
		next := queue[0]
		d.queues[userID] = queue[1:]
		d.mu.Unlock()

		d.run(next)
	}
}

func (d *Dispatcher) run(in Inbound) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error().Interface("panic", r).Int64("applicant", in.UserID).Msg("event handler panicked")
		}
	}()
	d.handle(d.ctx, in)
}

// Close stops accepting events and waits for queued ones to finish.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	d.closed = true
	d.mu.Unlock()
	d.wg.Wait()
}
