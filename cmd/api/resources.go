package main

import (
	"context"
	"sync"

	"github.com/rs/zerolog"
)

// closer releases one external resource during shutdown.
type closer struct {
	name string
	fn   func(ctx context.Context) error
}

// resources collects closers as connections are opened. closeAll releases
// them in reverse order of acquisition and only runs once.
type resources struct {
	mu      sync.Mutex
	closers []closer
	closed  bool
	log     zerolog.Logger
}

func newResources(log zerolog.Logger) *resources {
	return &resources{log: log}
}

func (r *resources) add(name string, fn func(ctx context.Context) error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closers = append(r.closers, closer{name: name, fn: fn})
}

func (r *resources) closeAll() {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	r.closed = true
	closers := r.closers
	r.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	for i := len(closers) - 1; i >= 0; i-- {
		if err := closers[i].fn(ctx); err != nil {
			r.log.Error().Err(err).Str("resource", closers[i].name).Msg("close failed")
		}
	}
}

// workers runs background loops on a shared context. stop cancels it and
// returns once every loop has returned.
type workers struct {
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func newWorkers() *workers {
	ctx, cancel := context.WithCancel(context.Background())
	return &workers{ctx: ctx, cancel: cancel}
}

func (w *workers) run(fn func(ctx context.Context)) {
	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		fn(w.ctx)
	}()
}

func (w *workers) stop() {
	w.cancel()
	w.wg.Wait()
}
