package monitor

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Kunal-1304/Android-device-monitoring/internal/api"
	"github.com/Kunal-1304/Android-device-monitoring/internal/config"
	"github.com/Kunal-1304/Android-device-monitoring/internal/ingest"
	"github.com/Kunal-1304/Android-device-monitoring/internal/logger"
	"github.com/Kunal-1304/Android-device-monitoring/internal/middleware"
	"github.com/Kunal-1304/Android-device-monitoring/internal/notify"
	"github.com/Kunal-1304/Android-device-monitoring/internal/rules"
	"github.com/Kunal-1304/Android-device-monitoring/internal/state"
)

// Monitor is the high-level coordinator: it wires the store, rule
// evaluator, notification dispatcher, ingest listener, and query API,
// and runs them until the context is cancelled.
type Monitor struct {
	cfg        *config.Config
	store      *state.Store
	sink       notify.Sink
	dispatcher *notify.Dispatcher
	ingest     *ingest.Server
	httpServer *http.Server
	wg         sync.WaitGroup
}

// New constructs a Monitor with the given config.
func New(cfg *config.Config) *Monitor {
	return &Monitor{
		cfg:   cfg,
		store: state.New(cfg.Thresholds, cfg.AlertLogCap),
	}
}

// Store exposes the shared state store, mainly for tests.
func (m *Monitor) Store() *state.Store {
	return m.store
}

// IngestAddr returns the bound ingest address once Run has started.
func (m *Monitor) IngestAddr() string {
	if m.ingest == nil || m.ingest.Addr() == nil {
		return ""
	}
	return m.ingest.Addr().String()
}

// Run starts background goroutines and blocks until context cancelled.
func (m *Monitor) Run(ctx context.Context) error {
	log := logger.WithComponent("monitor")
	log.Info().Msg("monitor starting")

	if err := m.initSink(); err != nil {
		log.Error().Err(err).Msg("failed to initialize notification sink")
		return fmt.Errorf("failed to initialize notification sink: %w", err)
	}
	defer m.sink.Close()

	m.initDispatcher()
	m.dispatcher.Start()
	defer m.dispatcher.Stop()

	if err := m.initIngest(); err != nil {
		log.Error().Err(err).Msg("failed to initialize ingest server")
		return fmt.Errorf("failed to initialize ingest server: %w", err)
	}

	m.initHTTPServer()

	ingestCtx, stopIngest := context.WithCancel(context.Background())
	defer stopIngest()

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		log.Info().Str("addr", m.cfg.IngestAddr).Msg("starting ingest server")
		if err := m.ingest.Serve(ingestCtx); err != nil {
			log.Error().Err(err).Msg("ingest server error")
		}
	}()

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		log.Info().Str("addr", m.cfg.APIAddr).Msg("starting HTTP server")
		if err := m.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("HTTP server error")
		}
	}()

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		m.reportStats(ctx)
	}()

	<-ctx.Done()
	log.Info().Msg("shutdown signal received")

	return m.shutdown(stopIngest)
}

// initSink picks the notification sink: Kafka when brokers are
// configured, otherwise the structured log.
func (m *Monitor) initSink() error {
	log := logger.WithComponent("monitor")

	if m.cfg.Notify.KafkaBrokers == "" {
		m.sink = notify.NewLogSink()
		log.Info().Msg("notification sink: log")
		return nil
	}

	brokers := strings.Split(m.cfg.Notify.KafkaBrokers, ",")
	sink, err := notify.NewKafkaSink(brokers, m.cfg.Notify.KafkaTopic)
	if err != nil {
		return err
	}
	m.sink = sink
	log.Info().
		Strs("brokers", brokers).
		Str("topic", m.cfg.Notify.KafkaTopic).
		Msg("notification sink: kafka")
	return nil
}

// initDispatcher initializes the notification dispatcher
func (m *Monitor) initDispatcher() {
	m.dispatcher = notify.NewDispatcher(notify.Config{
		Sink:        m.sink,
		Workers:     m.cfg.Notify.Workers,
		QueueSize:   m.cfg.Notify.QueueSize,
		SendTimeout: m.cfg.Notify.SendTimeout,
	})
}

// initIngest initializes and binds the ingest server
func (m *Monitor) initIngest() error {
	m.ingest = ingest.NewServer(ingest.Config{
		Store:       m.store,
		Evaluator:   rules.NewEvaluator(rules.DefaultRules()),
		Dispatcher:  m.dispatcher,
		ReadTimeout: m.cfg.ReadTimeout,
		MaxConns:    m.cfg.MaxConns,
		MaxPayload:  m.cfg.MaxPayloadBytes,
	})
	return m.ingest.Listen(m.cfg.IngestAddr)
}

// initHTTPServer initializes the query API server
func (m *Monitor) initHTTPServer() {
	handler := api.NewHandler(m.store)

	mux := http.NewServeMux()
	mux.HandleFunc("/data", handler.Data)
	mux.HandleFunc("/logs", handler.Logs)
	mux.HandleFunc("/limits", handler.Limits)
	mux.HandleFunc("/health", handler.Health)
	mux.HandleFunc("/stats", m.statsHandler)
	mux.Handle("/metrics", promhttp.Handler())

	m.httpServer = &http.Server{
		Addr: m.cfg.APIAddr,
		Handler: middleware.Chain(
			mux,
			middleware.Recovery,
			middleware.Logging,
		),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
}

// shutdown performs graceful shutdown
func (m *Monitor) shutdown(stopIngest context.CancelFunc) error {
	log := logger.WithComponent("monitor")
	log.Info().Msg("initiating graceful shutdown")

	// 1. Stop accepting new HTTP requests
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	log.Info().Msg("stopping HTTP server")
	if err := m.httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown error")
	}

	// 2. Close the ingest listener and wait for in-flight payloads
	log.Info().Msg("stopping ingest server")
	stopIngest()

	// 3. Drain the notification queue (with timeout)
	done := make(chan struct{})
	go func() {
		m.dispatcher.Stop()
		close(done)
	}()

	select {
	case <-done:
		log.Info().Msg("dispatcher stopped gracefully")
	case <-time.After(15 * time.Second):
		log.Warn().Msg("dispatcher shutdown timeout - forcing exit")
	}

	m.wg.Wait()

	log.Info().Msg("monitor stopped gracefully")
	return nil
}

// reportStats periodically logs statistics
func (m *Monitor) reportStats(ctx context.Context) {
	log := logger.WithComponent("monitor")
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			stats := m.dispatcher.Stats()
			log.Info().
				Uint64("notify_sent", stats.Sent).
				Uint64("notify_failed", stats.Failed).
				Uint64("notify_dropped", stats.Dropped).
				Int("devices", len(m.store.Registry())).
				Int("alerts_retained", m.store.AlertCount()).
				Msg("stats")
		}
	}
}

// statsHandler returns current statistics
func (m *Monitor) statsHandler(w http.ResponseWriter, r *http.Request) {
	stats := m.dispatcher.Stats()

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, `{
		"notify": {
			"sent": %d,
			"failed": %d,
			"dropped": %d
		},
		"state": {
			"devices": %d,
			"alerts_retained": %d
		}
	}`,
		stats.Sent,
		stats.Failed,
		stats.Dropped,
		len(m.store.Registry()),
		m.store.AlertCount(),
	)
}
