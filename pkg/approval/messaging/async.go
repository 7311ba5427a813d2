package messaging

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/bibbank/approval/pkg/approval"
)

var (
	// ErrQueueFull is returned when the publish buffer has no room left.
	ErrQueueFull = errors.New("messaging: publish queue full")
	// ErrClosed is returned by Publish after Close.
	ErrClosed = errors.New("messaging: publisher closed")
)

// AsyncPublisher decouples request handling from broker latency: Publish
// only enqueues, and a single worker forwards events to the wrapped
// publisher with its own deadline.
type AsyncPublisher struct {
	next    approval.EventPublisher
	queue   chan approval.PredictionCompleted
	timeout time.Duration
	logger  *slog.Logger

	mu     sync.RWMutex
	closed bool
	done   chan struct{}
}

// NewAsyncPublisher starts the forwarding worker.
func NewAsyncPublisher(next approval.EventPublisher, buffer int, timeout time.Duration, logger *slog.Logger) *AsyncPublisher {
	p := &AsyncPublisher{
		next:    next,
		queue:   make(chan approval.PredictionCompleted, buffer),
		timeout: timeout,
		logger:  logger,
		done:    make(chan struct{}),
	}
	go p.run()
	return p
}

// Publish enqueues events without blocking. Events that do not fit are
// dropped and reported with ErrQueueFull.
func (p *AsyncPublisher) Publish(_ context.Context, evts ...approval.PredictionCompleted) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return ErrClosed
	}

	for _, evt := range evts {
		select {
		case p.queue <- evt:
		default:
			return ErrQueueFull
		}
	}
	return nil
}

// Close stops accepting events and waits for the queue to drain or ctx to end.
func (p *AsyncPublisher) Close(ctx context.Context) error {
	p.mu.Lock()
	if !p.closed {
		p.closed = true
		close(p.queue)
	}
	p.mu.Unlock()

	select {
	case <-p.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *AsyncPublisher) run() {
	defer close(p.done)
	for evt := range p.queue {
		ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
		if err := p.next.Publish(ctx, evt); err != nil {
			p.logger.Warn("failed to forward prediction event",
				"prediction_id", evt.PredictionID,
				"error", err,
			)
		}
		cancel()
	}
}
