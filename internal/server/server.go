package server

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/muurk/normanctl/internal/coordinator"
	"github.com/muurk/normanctl/internal/gateway"
	"github.com/muurk/normanctl/internal/logging"
)

const shutdownTimeout = 10 * time.Second

// Controller is the coordinator surface the API uses.
type Controller interface {
	Snapshot() coordinator.Snapshot
	Subscribe(fn func(coordinator.Snapshot)) (cancel func())
	DeviceCover(id gateway.ID) (coordinator.DeviceCover, bool)
	DeviceCovers() []coordinator.DeviceCover
	RoomCover(id gateway.ID) coordinator.RoomCover
	RoomCovers() []coordinator.RoomCover
	Presets() []coordinator.Preset

	SetDevicePosition(ctx context.Context, id gateway.ID, open int) (gateway.PositionCommand, error)
	SetRoomPosition(ctx context.Context, id gateway.ID, open int) (gateway.PositionCommand, error)
	OpenDevice(ctx context.Context, id gateway.ID) (gateway.PositionCommand, error)
	CloseDevice(ctx context.Context, id gateway.ID) (gateway.PositionCommand, error)
	OpenRoom(ctx context.Context, id gateway.ID) (gateway.PositionCommand, error)
	CloseRoom(ctx context.Context, id gateway.ID) (gateway.PositionCommand, error)
	ApplyRoomPreset(ctx context.Context, id gateway.ID, name string) (gateway.PositionCommand, error)
}

// Config holds the server configuration
type Config struct {
	Addr     string
	CertPath string // HTTPS when both CertPath and KeyPath are set
	KeyPath  string
}

// Server serves the bridge's HTTP API, metrics and live WebSocket feed.
type Server struct {
	config    *Config
	ctrl      Controller
	tlsConfig *tls.Config
	hub       *Hub
	http      *http.Server
	listener  net.Listener
	unsub     func()
}

// New creates a Server. registry may be nil to disable /metrics.
func New(config *Config, ctrl Controller, registry *prometheus.Registry) (*Server, error) {
	s := &Server{
		config: config,
		ctrl:   ctrl,
		hub:    NewHub(),
	}

	if config.CertPath != "" && config.KeyPath != "" {
		tlsConfig, err := NewTLSConfig(config.CertPath, config.KeyPath)
		if err != nil {
			return nil, fmt.Errorf("failed to create TLS config: %w", err)
		}
		s.tlsConfig = tlsConfig
	}

	s.http = &http.Server{
		Addr:              config.Addr,
		Handler:           s.Handler(registry),
		TLSConfig:         s.tlsConfig,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s, nil
}

// Handler returns the routed API.
func (s *Server) Handler(registry *prometheus.Registry) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /api/state", s.handleState)
	mux.HandleFunc("GET /api/windows/{id}", s.handleWindow)
	mux.HandleFunc("GET /api/rooms/{id}", s.handleRoom)
	mux.HandleFunc("POST /api/windows/{id}/position", s.handleWindowPosition)
	mux.HandleFunc("POST /api/rooms/{id}/position", s.handleRoomPosition)
	mux.HandleFunc("GET /ws", s.handleWebSocket)
	if registry != nil {
		mux.Handle("GET /metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	}
	return logRequests(mux)
}

// Start starts the server and blocks until ctx is done, a shutdown signal
// arrives or the listener fails.
func (s *Server) Start(ctx context.Context) error {
	listener, err := net.Listen("tcp", s.config.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.config.Addr, err)
	}
	if s.tlsConfig != nil {
		listener = tls.NewListener(listener, s.tlsConfig)
		logging.Info("Serving HTTPS", tlsFields(s.config.CertPath, s.tlsConfig)...)
	}
	s.listener = listener

	s.unsub = s.ctrl.Subscribe(s.hub.BroadcastSnapshot(s.ctrl))

	logging.Info("Bridge API listening",
		zap.String("addr", listener.Addr().String()),
		zap.Bool("tls", s.tlsConfig != nil),
	)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	errChan := make(chan error, 1)
	go func() {
		errChan <- s.http.Serve(listener)
	}()

	select {
	case <-sigChan:
		logging.Info("Shutdown signal received, stopping server...")
	case <-ctx.Done():
	case err := <-errChan:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return s.Shutdown(shutdownCtx)
}

// Addr returns the bound address once Start has begun listening.
func (s *Server) Addr() string {
	if s.listener == nil {
		return s.config.Addr
	}
	return s.listener.Addr().String()
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	logging.Info("Shutting down server...")

	if s.unsub != nil {
		s.unsub()
	}
	s.hub.CloseAll()

	if err := s.http.Shutdown(ctx); err != nil {
		logging.Warn("Shutdown timeout, forcing close", zap.Error(err))
		_ = s.http.Close()
	}

	logging.Sync()
	return nil
}

// GetActiveConnections returns the number of connected WebSocket clients
func (s *Server) GetActiveConnections() int {
	return s.hub.Len()
}
