package ingest

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"
	"runtime/debug"
	"sync"
	"time"

	"github.com/Kunal-1304/Android-device-monitoring/internal/logger"
	"github.com/Kunal-1304/Android-device-monitoring/internal/metrics"
	"github.com/Kunal-1304/Android-device-monitoring/internal/models"
	"github.com/Kunal-1304/Android-device-monitoring/internal/notify"
	"github.com/Kunal-1304/Android-device-monitoring/internal/rules"
	"github.com/Kunal-1304/Android-device-monitoring/internal/state"
)

// Server accepts device connections and runs each payload through the
// parse → record → evaluate → notify pipeline. One connection carries
// exactly one JSON payload and is closed after processing regardless of
// outcome. A failure on one connection never reaches the accept loop or
// another connection.
type Server struct {
	store      *state.Store
	evaluator  *rules.Evaluator
	dispatcher *notify.Dispatcher

	readTimeout time.Duration
	maxPayload  int

	// Limits concurrent payload processing; acquired by each handler
	// goroutine so the accept loop itself never waits on a worker.
	sem chan struct{}

	listener net.Listener
	wg       sync.WaitGroup
}

// Config holds ingest server configuration
type Config struct {
	Store       *state.Store
	Evaluator   *rules.Evaluator
	Dispatcher  *notify.Dispatcher
	ReadTimeout time.Duration
	MaxConns    int
	MaxPayload  int
}

// NewServer creates an ingest server. It does not listen yet.
func NewServer(cfg Config) *Server {
	if cfg.ReadTimeout <= 0 {
		cfg.ReadTimeout = 10 * time.Second
	}
	if cfg.MaxConns <= 0 {
		cfg.MaxConns = 64
	}
	if cfg.MaxPayload <= 0 {
		cfg.MaxPayload = 64 * 1024
	}

	return &Server{
		store:       cfg.Store,
		evaluator:   cfg.Evaluator,
		dispatcher:  cfg.Dispatcher,
		readTimeout: cfg.ReadTimeout,
		maxPayload:  cfg.MaxPayload,
		sem:         make(chan struct{}, cfg.MaxConns),
	}
}

// Listen binds the TCP listener on addr.
func (s *Server) Listen(addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	s.listener = ln
	log := logger.WithComponent("ingest")
	log.Info().
		Str("addr", ln.Addr().String()).
		Msg("ingest listener bound")
	return nil
}

// Addr returns the bound listener address, useful when listening on
// an ephemeral port.
func (s *Server) Addr() net.Addr {
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Serve runs the accept loop until the context is cancelled or the
// listener is closed. Accept errors are logged and the loop continues;
// only listener closure stops it.
func (s *Server) Serve(ctx context.Context) error {
	log := logger.WithComponent("ingest")

	go func() {
		<-ctx.Done()
		s.listener.Close()
	}()

	for {
		conn, err := s.listener.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				break
			}
			log.Warn().Err(err).Msg("accept failed")
			continue
		}

		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.sem <- struct{}{}
			defer func() { <-s.sem }()
			s.handleConn(conn)
		}()
	}

	s.wg.Wait()
	log.Info().Msg("ingest server stopped")
	return nil
}

// handleConn processes a single device connection end to end. Any
// panic or error stays inside this call.
func (s *Server) handleConn(conn net.Conn) {
	defer conn.Close()

	metrics.IngestInFlight.Inc()
	defer metrics.IngestInFlight.Dec()

	remote := conn.RemoteAddr().String()
	log := logger.WithComponent("ingest").With().Str("remote_addr", remote).Logger()

	defer func() {
		if r := recover(); r != nil {
			log.Error().
				Interface("panic", r).
				Bytes("stack", debug.Stack()).
				Msg("connection handler panic recovered")
			metrics.PanicsRecovered.WithLabelValues("ingest").Inc()
		}
	}()

	conn.SetReadDeadline(time.Now().Add(s.readTimeout))

	payload, err := readPayload(conn, s.maxPayload)
	if err != nil {
		log.Warn().Err(err).Msg("failed to read payload")
		metrics.IngestConnectionsTotal.WithLabelValues("read_error").Inc()
		return
	}
	metrics.IngestPayloadBytes.Observe(float64(len(payload)))

	// JSON null decodes into a nil map without error; only an object is
	// an acceptable top-level shape.
	var groups map[string]interface{}
	if err := json.Unmarshal(payload, &groups); err != nil || groups == nil {
		log.Warn().Err(err).Msg("bad payload, dropping")
		metrics.IngestConnectionsTotal.WithLabelValues("decode_error").Inc()
		return
	}

	deviceID := deviceIdentity(groups, remote)
	snap := &models.Snapshot{
		DeviceID:   deviceID,
		Groups:     groups,
		IngestedAt: time.Now().UTC(),
	}

	s.store.RecordSnapshot(deviceID, snap)

	// Evaluate against the thresholds current right now; a concurrent
	// update applies to the next payload, not this one.
	events := s.evaluator.Evaluate(snap, s.store.Thresholds())
	s.store.AppendAlerts(events)

	dlog := logger.WithDevice(deviceID)
	for _, e := range events {
		metrics.AlertsTriggeredTotal.WithLabelValues(e.Rule).Inc()
		dlog.Warn().
			Str("rule", e.Rule).
			Float64("value", e.Value).
			Msg("alert triggered")
		s.dispatcher.Enqueue(e)
	}

	metrics.IngestConnectionsTotal.WithLabelValues("processed").Inc()
	dlog.Info().
		Str("remote_addr", remote).
		Int("groups", len(groups)).
		Int("alerts", len(events)).
		Msg("snapshot recorded")
}

// readPayload reads until newline or until the peer closes its write
// side. Devices terminate payloads with a newline by convention, but
// its absence is tolerated.
func readPayload(conn net.Conn, max int) ([]byte, error) {
	r := bufio.NewReader(io.LimitReader(conn, int64(max)))
	data, err := r.ReadBytes('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, err
	}
	if len(data) == 0 {
		return nil, io.ErrUnexpectedEOF
	}
	return data, nil
}

// deviceIdentity picks the device-supplied id, falling back to the
// originating host so payloads without an id still land under a stable
// key across report cycles.
func deviceIdentity(groups map[string]interface{}, remote string) string {
	if id, ok := groups["device_id"].(string); ok && id != "" {
		return id
	}
	host, _, err := net.SplitHostPort(remote)
	if err != nil {
		host = remote
	}
	return "device-" + host
}
