// Package server hosts the engine behind a TCP listener speaking the
// length-prefixed protocol in internal/textproto, plus a periodic status
// reporter and a Prometheus /metrics endpoint. The connection-handling
// shape — a Config, a sync.Map of live connections, a WaitGroup drained on
// Stop, a metrics ticker run under its own cancelable context — is modeled
// on the pack's FinKV network/server.Server, rewired from its commented-out
// netpoll event loop onto net.Listener/net.Conn and onto this store's own
// command set instead of a Redis-shaped one.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/hashicorp/go-hclog"

	"github.com/kvwal/kvwal"
)

// Config controls the TCP listener and the periodic status reporter.
type Config struct {
	Addr           string
	MaxConnections int
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	ReportInterval time.Duration
	Logger         hclog.Logger
}

// DefaultConfig matches spec §6.3's listen_addr default plus reasonable
// network timeouts the spec itself is silent on.
func DefaultConfig() Config {
	return Config{
		Addr:           ":7799",
		MaxConnections: 1000,
		ReadTimeout:    30 * time.Second,
		WriteTimeout:   30 * time.Second,
		ReportInterval: 10 * time.Second,
	}
}

// Server binds Config to a running *kvwal.Engine and a listener.
type Server struct {
	cfg    Config
	engine *kvwal.Engine
	log    hclog.Logger

	listener net.Listener

	conns   sync.Map // net.Conn -> struct{}
	connWg  sync.WaitGroup
	connCnt int64

	metrics *Metrics

	ctx    context.Context
	cancel context.CancelFunc

	closeMu sync.Mutex
	closed  bool
}

// New wires a Server around an already-open Engine. The Engine's lifecycle
// (Open/Close) is the caller's responsibility; Server never closes it.
func New(cfg Config, engine *kvwal.Engine) *Server {
	if cfg.Logger == nil {
		cfg.Logger = hclog.NewNullLogger()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Server{
		cfg:     cfg,
		engine:  engine,
		log:     cfg.Logger,
		metrics: NewMetrics(),
		ctx:     ctx,
		cancel:  cancel,
	}
}

// ListenAndServe binds cfg.Addr and serves connections until Stop is
// called. It blocks until the listener is closed.
func (s *Server) ListenAndServe() error {
	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return fmt.Errorf("server: listen %s: %w", s.cfg.Addr, err)
	}
	s.listener = ln
	s.log.Info("listening", "addr", s.cfg.Addr)

	go s.reportLoop()

	for {
		conn, err := ln.Accept()
		if err != nil {
			select {
			case <-s.ctx.Done():
				return nil
			default:
				if errors.Is(err, net.ErrClosed) {
					return nil
				}
				s.log.Error("accept failed", "error", err)
				continue
			}
		}
		s.handleNewConn(conn)
	}
}

func (s *Server) handleNewConn(conn net.Conn) {
	if s.activeConns() >= s.cfg.MaxConnections {
		s.log.Warn("rejecting connection, max_connections reached", "remote", conn.RemoteAddr())
		conn.Close()
		return
	}

	s.conns.Store(conn, struct{}{})
	s.connWg.Add(1)
	s.metrics.ConnectionsOpened.Inc()

	go func() {
		defer func() {
			conn.Close()
			s.conns.Delete(conn)
			s.connWg.Done()
		}()
		handleConnection(s.ctx, conn, s.engine, s.cfg, s.metrics, s.log)
	}()
}

func (s *Server) activeConns() int {
	n := 0
	s.conns.Range(func(_, _ any) bool { n++; return true })
	return n
}

// MetricsHandle exposes the Server's Metrics for wiring into ServeMetrics.
func (s *Server) MetricsHandle() *Metrics {
	return s.metrics
}

// Stop closes the listener, cancels in-flight handling, and waits for every
// connection goroutine to exit.
func (s *Server) Stop() error {
	s.closeMu.Lock()
	if s.closed {
		s.closeMu.Unlock()
		return nil
	}
	s.closed = true
	s.closeMu.Unlock()

	s.cancel()
	var err error
	if s.listener != nil {
		err = s.listener.Close()
	}
	s.conns.Range(func(key, _ any) bool {
		key.(net.Conn).Close()
		return true
	})
	s.connWg.Wait()
	return err
}

func (s *Server) reportLoop() {
	if s.cfg.ReportInterval <= 0 {
		return
	}
	ticker := time.NewTicker(s.cfg.ReportInterval)
	defer ticker.Stop()
	for {
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
			s.report()
		}
	}
}

func (s *Server) report() {
	stats, err := s.engine.Stats()
	if err != nil {
		s.log.Warn("status report: stats unavailable", "error", err)
		return
	}
	s.metrics.Items.Set(float64(stats.Items))
	s.metrics.WalSizeBytes.Set(float64(stats.WalSizeBytes))
	s.metrics.LoadFactor.Set(stats.LoadFactor)
	s.metrics.ActiveConnections.Set(float64(s.activeConns()))

	s.log.Info("status",
		"items", stats.Items,
		"shards", stats.Shards,
		"load_factor", stats.LoadFactor,
		"wal_size_bytes", stats.WalSizeBytes,
		"connections", s.activeConns(),
	)
}
