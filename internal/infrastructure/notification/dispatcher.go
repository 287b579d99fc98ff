package notification

import (
	"context"
	"sync"
	"time"

	"giveora.backend/pkg/logger"
	"giveora.backend/pkg/metrics"
	"go.uber.org/zap"
)

// DispatcherConfig sizes the worker pool
type DispatcherConfig struct {
	Workers     int
	QueueSize   int
	MaxAttempts int
	RetryDelay  time.Duration
}

type job struct {
	ctx context.Context
	msg Message
}

// Dispatcher renders and sends notifications on a pool of workers.
// Delivery failures are logged and counted, never returned to the caller.
type Dispatcher struct {
	sender   Sender
	renderer *Renderer
	cfg      DispatcherConfig

	queue  chan job
	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup
	cancel context.CancelFunc
}

// NewDispatcher creates a dispatcher. Call Start before Enqueue.
func NewDispatcher(sender Sender, renderer *Renderer, cfg DispatcherConfig) *Dispatcher {
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 64
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 1
	}
	return &Dispatcher{
		sender:   sender,
		renderer: renderer,
		cfg:      cfg,
		queue:    make(chan job, cfg.QueueSize),
	}
}

// Start launches the workers. Cancelling ctx aborts pending retries.
func (d *Dispatcher) Start(ctx context.Context) {
	runCtx, cancel := context.WithCancel(ctx)
	d.cancel = cancel

	for i := 0; i < d.cfg.Workers; i++ {
		d.wg.Add(1)
		go d.worker(runCtx, i)
	}
	logger.Info(ctx, "Notification dispatcher started",
		zap.Int("workers", d.cfg.Workers),
		zap.Int("queue_size", d.cfg.QueueSize),
	)
}

// Enqueue queues msg without blocking
func (d *Dispatcher) Enqueue(ctx context.Context, msg Message) error {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		return ErrDispatcherStopped
	}

	select {
	case d.queue <- job{ctx: context.WithoutCancel(ctx), msg: msg}:
		metrics.NotificationQueueDepth.Set(float64(len(d.queue)))
		return nil
	default:
		metrics.Notifications.WithLabelValues(string(msg.Template), "dropped").Inc()
		logger.Warn(ctx, "Notification queue full",
			zap.String("template", string(msg.Template)),
			zap.String("to", logger.MaskEmail(msg.To)),
		)
		return ErrQueueFull
	}
}

// Stop refuses new messages and waits for the workers. Queued messages get
// one send attempt each; pending retries are abandoned.
func (d *Dispatcher) Stop() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.closed = true
	close(d.queue)
	d.mu.Unlock()

	if d.cancel != nil {
		d.cancel()
	}
	d.wg.Wait()
}

func (d *Dispatcher) worker(ctx context.Context, id int) {
	defer d.wg.Done()
	for j := range d.queue {
		metrics.NotificationQueueDepth.Set(float64(len(d.queue)))
		d.deliver(ctx, j, id)
	}
}

func (d *Dispatcher) deliver(runCtx context.Context, j job, workerID int) {
	template := string(j.msg.Template)
	log := logger.WithContext(j.ctx).With(
		zap.Int("worker", workerID),
		zap.String("template", template),
		zap.String("to", logger.MaskEmail(j.msg.To)),
	)

	email, err := d.renderer.Render(j.msg)
	if err != nil {
		metrics.Notifications.WithLabelValues(template, "failed").Inc()
		log.Error("Failed to render notification", zap.Error(err))
		return
	}

	for attempt := 1; attempt <= d.cfg.MaxAttempts; attempt++ {
		err = d.sender.Send(j.ctx, email)
		if err == nil {
			metrics.Notifications.WithLabelValues(template, "sent").Inc()
			log.Debug("Notification sent", zap.Int("attempt", attempt))
			return
		}

		log.Warn("Notification send failed", zap.Int("attempt", attempt), zap.Error(err))
		if attempt == d.cfg.MaxAttempts {
			break
		}
		metrics.Notifications.WithLabelValues(template, "retry").Inc()

		select {
		case <-runCtx.Done():
			metrics.Notifications.WithLabelValues(template, "failed").Inc()
			log.Error("Notification abandoned on shutdown", zap.Error(err))
			return
		case <-time.After(time.Duration(attempt) * d.cfg.RetryDelay):
		}
	}

	metrics.Notifications.WithLabelValues(template, "failed").Inc()
	log.Error("Notification delivery failed", zap.Int("attempts", d.cfg.MaxAttempts), zap.Error(err))
}
