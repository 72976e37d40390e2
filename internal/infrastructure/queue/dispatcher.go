package queue

import (
	"context"
	"errors"
	"hash/fnv"
	"strconv"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/dipto-roy/courier-service-sub002/internal/pkg/metrics"
)

const (
	defaultWorkers = 8
	channelBuffer  = 256
)

// ErrQueueFull is returned by TryEnqueue callers when the target worker has no room.
var ErrQueueFull = errors.New("dispatcher queue full")

// Handler processes one item. Errors are logged by the worker.
type Handler[T any] func(ctx context.Context, item T) error

// Dispatcher routes items to a fixed set of workers using consistent hashing
// on a key, so items sharing a key are handled one at a time and in order.
type Dispatcher[T any] struct {
	name    string
	key     func(T) string
	handle  Handler[T]
	workers []chan T
	wg      sync.WaitGroup
	log     zerolog.Logger
}

// NewDispatcher creates a Dispatcher with numWorkers sharded workers.
// If numWorkers <= 0, defaultWorkers is used.
func NewDispatcher[T any](name string, numWorkers int, key func(T) string, handle Handler[T], log zerolog.Logger) *Dispatcher[T] {
	if numWorkers <= 0 {
		numWorkers = defaultWorkers
	}
	d := &Dispatcher[T]{
		name:    name,
		key:     key,
		handle:  handle,
		workers: make([]chan T, numWorkers),
		log:     log.With().Str("dispatcher", name).Logger(),
	}
	for i := range d.workers {
		d.workers[i] = make(chan T, channelBuffer)
	}
	return d
}

// Start launches all worker goroutines. Workers stop when ctx is cancelled.
func (d *Dispatcher[T]) Start(ctx context.Context) {
	for i, ch := range d.workers {
		d.wg.Add(1)
		go d.runWorker(ctx, i, ch)
	}
}

// Wait blocks until every worker has returned.
func (d *Dispatcher[T]) Wait() {
	d.wg.Wait()
}

// Enqueue hands item to the worker responsible for its key, blocking while
// that worker's buffer is full.
func (d *Dispatcher[T]) Enqueue(ctx context.Context, item T) error {
	idx := d.shardIndex(d.key(item))
	select {
	case d.workers[idx] <- item:
		d.depth(idx).Inc()
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// TryEnqueue is Enqueue without blocking. It reports false when the worker
// buffer is full.
func (d *Dispatcher[T]) TryEnqueue(item T) bool {
	idx := d.shardIndex(d.key(item))
	select {
	case d.workers[idx] <- item:
		d.depth(idx).Inc()
		return true
	default:
		return false
	}
}

// EnqueueBatch enqueues items in order, preserving per-key ordering.
func (d *Dispatcher[T]) EnqueueBatch(ctx context.Context, items []T) error {
	for _, item := range items {
		if err := d.Enqueue(ctx, item); err != nil {
			return err
		}
	}
	return nil
}

// shardIndex maps a key deterministically to a worker index.
func (d *Dispatcher[T]) shardIndex(key string) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(key))
	return int(h.Sum32() % uint32(len(d.workers)))
}

func (d *Dispatcher[T]) depth(idx int) prometheus.Gauge {
	return metrics.DispatchQueueDepth.WithLabelValues(d.name, strconv.Itoa(idx))
}

func (d *Dispatcher[T]) runWorker(ctx context.Context, id int, ch <-chan T) {
	defer d.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case item, ok := <-ch:
			if !ok {
				return
			}
			d.depth(id).Dec()
			if err := d.handle(ctx, item); err != nil {
				d.log.Error().Err(err).
					Str("key", d.key(item)).
					Int("worker_id", id).
					Msg("dispatch handler failed")
			}
		}
	}
}
