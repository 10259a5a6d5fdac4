package queue

import (
	"context"
	"hash/fnv"
	"strconv"
	"sync"

	"github.com/rs/zerolog"

	"github.com/99minutos/auth-api/internal/core/domain"
	"github.com/99minutos/auth-api/internal/pkg/metrics"
)

const (
	defaultWorkers = 4
	channelBuffer  = 256
)

// Handler processes one auth event.
type Handler interface {
	Handle(ctx context.Context, event domain.AuthEvent) error
}

// Dispatcher routes auth events to a fixed set of workers using hashing on the
// username, so events for one account are handled in order.
type Dispatcher struct {
	workers []chan domain.AuthEvent
	handler Handler
	log     zerolog.Logger

	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup
}

// NewDispatcher creates a Dispatcher with numWorkers sharded workers.
// If numWorkers <= 0, defaultWorkers is used.
func NewDispatcher(numWorkers int, handler Handler, log zerolog.Logger) *Dispatcher {
	if numWorkers <= 0 {
		numWorkers = defaultWorkers
	}
	d := &Dispatcher{
		workers: make([]chan domain.AuthEvent, numWorkers),
		handler: handler,
		log:     log.With().Str("component", "audit_dispatcher").Logger(),
	}
	for i := range d.workers {
		d.workers[i] = make(chan domain.AuthEvent, channelBuffer)
	}
	return d
}

// Start launches all worker goroutines. Workers exit when ctx is cancelled or
// after Close once their buffers are drained.
func (d *Dispatcher) Start(ctx context.Context) {
	for i, ch := range d.workers {
		d.wg.Add(1)
		go d.runWorker(ctx, i, ch)
	}
}

// Publish hands event to the worker responsible for its username. It never
// blocks: when that worker's buffer is full, or the dispatcher is closed, the
// event is dropped.
func (d *Dispatcher) Publish(event domain.AuthEvent) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.closed {
		metrics.AuditEventsDroppedTotal.Inc()
		return
	}

	idx := d.shardIndex(event.Username)
	select {
	case d.workers[idx] <- event:
		metrics.AuditQueueDepth.WithLabelValues(strconv.Itoa(idx)).Set(float64(len(d.workers[idx])))
	default:
		metrics.AuditEventsDroppedTotal.Inc()
		d.log.Warn().
			Str("event", string(event.Type)).
			Int("worker_id", idx).
			Msg("audit buffer full, event dropped")
	}
}

// Close stops accepting events and waits for the workers to drain their
// buffers. It is safe to call more than once.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	if !d.closed {
		d.closed = true
		for _, ch := range d.workers {
			close(ch)
		}
	}
	d.mu.Unlock()
	d.wg.Wait()
}

// shardIndex maps a username deterministically to a worker index.
func (d *Dispatcher) shardIndex(username string) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(username))
	return int(h.Sum32() % uint32(len(d.workers)))
}

func (d *Dispatcher) runWorker(ctx context.Context, id int, ch <-chan domain.AuthEvent) {
	defer d.wg.Done()
	depth := metrics.AuditQueueDepth.WithLabelValues(strconv.Itoa(id))

	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-ch:
			if !ok {
				return
			}
			depth.Set(float64(len(ch)))
			if err := d.handler.Handle(ctx, event); err != nil {
				d.log.Error().Err(err).
					Str("event", string(event.Type)).
					Str("username", event.Username).
					Int("worker_id", id).
					Msg("audit event processing failed")
			}
		}
	}
}
