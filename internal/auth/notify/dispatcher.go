package notify

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/aussiebroadwan/inkwell/pkg/slogx"
)

const (
	DefaultQueueSize   = 256
	DefaultSendTimeout = 15 * time.Second
)

// Dispatcher renders account emails and hands them to a single background
// worker. Enqueueing never blocks the request path: when the queue is full
// the message is dropped with a warning.
type Dispatcher struct {
	Renderer    *Renderer
	Sender      Sender
	Logger      *slog.Logger
	SendTimeout time.Duration

	queue    chan Message
	stopOnce sync.Once
	stopCh   chan struct{}
	doneCh   chan struct{}
}

// NewDispatcher creates a dispatcher with a queue of queueSize messages.
// If queueSize is 0 or negative, DefaultQueueSize is used.
func NewDispatcher(renderer *Renderer, sender Sender, logger *slog.Logger, queueSize int) *Dispatcher {
	if queueSize <= 0 {
		queueSize = DefaultQueueSize
	}
	return &Dispatcher{
		Renderer:    renderer,
		Sender:      sender,
		Logger:      logger,
		SendTimeout: DefaultSendTimeout,
		queue:       make(chan Message, queueSize),
		stopCh:      make(chan struct{}),
		doneCh:      make(chan struct{}),
	}
}

// Start launches the delivery worker.
func (d *Dispatcher) Start() {
	go d.run()
	d.Logger.Info("notification dispatcher started", "queue_size", cap(d.queue))
}

// Stop delivers whatever is already queued and then stops the worker.
// It gives up waiting when ctx is done.
func (d *Dispatcher) Stop(ctx context.Context) error {
	d.stopOnce.Do(func() { close(d.stopCh) })
	select {
	case <-d.doneCh:
		d.Logger.Info("notification dispatcher stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (d *Dispatcher) NotifyPasswordReset(ctx context.Context, email, token string) {
	d.enqueue(ctx, func() (Message, error) { return d.Renderer.PasswordReset(email, token) })
}

func (d *Dispatcher) NotifyWelcome(ctx context.Context, email, username string) {
	d.enqueue(ctx, func() (Message, error) { return d.Renderer.Welcome(email, username) })
}

func (d *Dispatcher) NotifyEmailVerification(ctx context.Context, email, token string) {
	d.enqueue(ctx, func() (Message, error) { return d.Renderer.EmailVerification(email, token) })
}

func (d *Dispatcher) enqueue(ctx context.Context, render func() (Message, error)) {
	logger := slogx.FromContext(ctx)

	msg, err := render()
	if err != nil {
		logger.Error("failed to render email", slogx.Err(err))
		return
	}

	select {
	case <-d.stopCh:
		logger.Warn("notification dispatcher stopped, dropping email", "kind", msg.Kind)
		return
	default:
	}

	select {
	case d.queue <- msg:
	default:
		logger.Warn("notification queue full, dropping email", "kind", msg.Kind)
	}
}

func (d *Dispatcher) run() {
	defer close(d.doneCh)

	for {
		select {
		case msg := <-d.queue:
			d.deliver(msg)
		case <-d.stopCh:
			// Drain what was accepted before the stop.
			for {
				select {
				case msg := <-d.queue:
					d.deliver(msg)
				default:
					return
				}
			}
		}
	}
}

func (d *Dispatcher) deliver(msg Message) {
	timeout := d.SendTimeout
	if timeout <= 0 {
		timeout = DefaultSendTimeout
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := d.Sender.Send(ctx, msg); err != nil {
		d.Logger.Error("failed to send email", "kind", msg.Kind, slogx.Err(err))
		return
	}
	d.Logger.Debug("email sent", "kind", msg.Kind)
}
