package notify

import (
	"context"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/Kunal-1304/Android-device-monitoring/internal/logger"
	"github.com/Kunal-1304/Android-device-monitoring/internal/metrics"
	"github.com/Kunal-1304/Android-device-monitoring/internal/models"
)

// Dispatcher decouples alert delivery from the ingest path: ingest
// enqueues events without blocking, a small worker pool drains the
// queue and calls the sink. A slow or hung sink therefore never stalls
// ingestion. Alerts are delivered as soon as a worker picks them up,
// with no artificial delay.
type Dispatcher struct {
	sink        Sink
	queue       chan models.AlertEvent
	workers     int
	sendTimeout time.Duration

	wg     sync.WaitGroup
	ctx    context.Context
	cancel context.CancelFunc

	// Metrics
	sent    atomic.Uint64
	failed  atomic.Uint64
	dropped atomic.Uint64
}

// Config holds dispatcher configuration
type Config struct {
	Sink        Sink
	Workers     int
	QueueSize   int
	SendTimeout time.Duration
}

// NewDispatcher creates a dispatcher with its own bounded queue.
func NewDispatcher(cfg Config) *Dispatcher {
	if cfg.Workers <= 0 {
		cfg.Workers = 2
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 256
	}
	if cfg.SendTimeout <= 0 {
		cfg.SendTimeout = 5 * time.Second
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Dispatcher{
		sink:        cfg.Sink,
		queue:       make(chan models.AlertEvent, cfg.QueueSize),
		workers:     cfg.Workers,
		sendTimeout: cfg.SendTimeout,
		ctx:         ctx,
		cancel:      cancel,
	}
}

// Start begins draining the queue
func (d *Dispatcher) Start() {
	log := logger.WithComponent("dispatcher")
	log.Info().
		Int("workers", d.workers).
		Int("queue_size", cap(d.queue)).
		Msg("starting notification dispatcher")

	for i := 0; i < d.workers; i++ {
		d.wg.Add(1)
		go d.worker(i)
	}
}

// Stop drains in-flight deliveries and stops all workers. Cancellation
// does not propagate into sends already handed to the sink.
func (d *Dispatcher) Stop() {
	log := logger.WithComponent("dispatcher")
	log.Info().Msg("stopping notification dispatcher")
	d.cancel()
	d.wg.Wait()
	log.Info().Msg("notification dispatcher stopped")
}

// Enqueue hands an alert to the dispatcher without blocking. When the
// queue is full the alert is dropped and counted; the recorded alert in
// the store is unaffected.
func (d *Dispatcher) Enqueue(e models.AlertEvent) {
	select {
	case d.queue <- e:
		metrics.NotifyQueueSize.Set(float64(len(d.queue)))
	default:
		d.dropped.Add(1)
		metrics.NotifyDroppedTotal.Inc()
		log := logger.WithComponent("dispatcher")
		log.Warn().
			Str("device_id", e.DeviceID).
			Str("rule", e.Rule).
			Msg("notify queue full, alert dropped")
	}
}

// worker delivers alerts from the queue
func (d *Dispatcher) worker(id int) {
	defer d.wg.Done()

	log := logger.WithComponent("dispatcher").With().Int("worker_id", id).Logger()

	// Panic recovery
	defer func() {
		if r := recover(); r != nil {
			stack := debug.Stack()
			log.Error().
				Interface("panic", r).
				Bytes("stack", stack).
				Msg("dispatcher worker panic recovered")
			metrics.PanicsRecovered.WithLabelValues("dispatcher").Inc()
		}
	}()

	for {
		select {
		case <-d.ctx.Done():
			// Flush whatever is already queued before exiting
			for {
				select {
				case e := <-d.queue:
					d.deliver(log, e)
				default:
					return
				}
			}

		case e := <-d.queue:
			d.deliver(log, e)
			metrics.NotifyQueueSize.Set(float64(len(d.queue)))
		}
	}
}

// deliver sends one alert, swallowing failures. A failed delivery never
// rolls back the recorded alert and is never retried here.
func (d *Dispatcher) deliver(log zerolog.Logger, e models.AlertEvent) {
	ctx, cancel := context.WithTimeout(context.Background(), d.sendTimeout)
	defer cancel()

	err := d.sink.Send(ctx, e.DeviceID, FormatMessage(e))
	if err != nil {
		d.failed.Add(1)
		metrics.NotifyFailedTotal.Inc()
		log.Error().
			Err(err).
			Str("device_id", e.DeviceID).
			Str("rule", e.Rule).
			Msg("notification delivery failed")
		return
	}

	d.sent.Add(1)
	metrics.NotifySentTotal.Inc()
	log.Debug().
		Str("device_id", e.DeviceID).
		Str("rule", e.Rule).
		Msg("notification delivered")
}

// Stats returns dispatcher statistics
func (d *Dispatcher) Stats() Stats {
	return Stats{
		Sent:    d.sent.Load(),
		Failed:  d.failed.Load(),
		Dropped: d.dropped.Load(),
	}
}

// Stats holds dispatcher counters
type Stats struct {
	Sent    uint64
	Failed  uint64
	Dropped uint64
}
