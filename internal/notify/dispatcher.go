package notify

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rookgm/grocerycart/internal/logger"
	"go.uber.org/zap"
)

const (
	defaultQueueSize = 1024
	defaultWorkers   = 4
	defaultBackoff   = 200 * time.Millisecond
	sendTimeout      = 10 * time.Second
)

// ErrQueueFull is returned by Notify when the message was dropped.
var ErrQueueFull = errors.New("notification queue is full")

// Dispatcher delivers messages through a channel. Notify is fire-and-forget
// and is served by a worker pool, Deliver sends synchronously with retries.
type Dispatcher struct {
	channel Channel
	queue   chan Message
	backoff time.Duration
}

// NewDispatcher creates new Dispatcher instance
func NewDispatcher(channel Channel, queueSize int) *Dispatcher {
	if queueSize <= 0 {
		queueSize = defaultQueueSize
	}
	return &Dispatcher{
		channel: channel,
		queue:   make(chan Message, queueSize),
		backoff: defaultBackoff,
	}
}

// Notify enqueues msg for a single delivery attempt. It never blocks.
func (d *Dispatcher) Notify(msg Message) error {
	select {
	case d.queue <- msg:
		return nil
	default:
		logger.Log.Warn("notification queue full, drop message",
			zap.String("to", msg.To), zap.String("subject", msg.Subject))
		return ErrQueueFull
	}
}

// Deliver sends msg, making up to attempts tries with exponential backoff between them.
func (d *Dispatcher) Deliver(ctx context.Context, msg Message, attempts int) error {
	if attempts < 1 {
		attempts = 1
	}

	delay := d.backoff
	var err error
	for i := 1; i <= attempts; i++ {
		if err = d.send(ctx, msg); err == nil {
			return nil
		}
		logger.Log.Warn("notification attempt failed",
			zap.String("to", msg.To), zap.Int("attempt", i), zap.Error(err))

		if i == attempts {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
		delay *= 2
	}

	return fmt.Errorf("deliver after %d attempts: %w", attempts, err)
}

func (d *Dispatcher) send(ctx context.Context, msg Message) error {
	ctx, cancel := context.WithTimeout(ctx, sendTimeout)
	defer cancel()
	return d.channel.Send(ctx, msg)
}

// Start runs workers that drain the queue. The returned function stops them
// after the queued messages are sent or ctx is done.
func (d *Dispatcher) Start(workers int) func(context.Context) error {
	if workers <= 0 {
		workers = defaultWorkers
	}

	stopCh := make(chan struct{})
	var wg sync.WaitGroup

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case msg := <-d.queue:
					d.deliverOnce(msg)
				case <-stopCh:
					// drain what is left
					for {
						select {
						case msg := <-d.queue:
							d.deliverOnce(msg)
						default:
							return
						}
					}
				}
			}
		}()
	}

	return func(ctx context.Context) error {
		close(stopCh)

		done := make(chan struct{})
		go func() {
			wg.Wait()
			close(done)
		}()

		select {
		case <-done:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (d *Dispatcher) deliverOnce(msg Message) {
	if err := d.send(context.Background(), msg); err != nil {
		logger.Log.Error("notification failed",
			zap.String("to", msg.To), zap.String("subject", msg.Subject), zap.Error(err))
	}
}

// QueueLen returns the number of queued messages.
func (d *Dispatcher) QueueLen() int { return len(d.queue) }
