package server

import (
	"context"
	"net"
	"net/http"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"

	"github.com/zeusync/posebridge/internal/core/observability/log"
	"github.com/zeusync/posebridge/internal/core/registry"
	"github.com/zeusync/posebridge/internal/core/tick"
	"github.com/zeusync/posebridge/internal/core/transform"
)

// EntitySource is the read side of the entity registry.
type EntitySource interface {
	List() []registry.TrackedEntity
	Get(id uint64) (registry.TrackedEntity, error)
	Count() int
}

// BoneTargets is the write side of the bone interpolation engine.
type BoneTargets interface {
	SetTargets(id uint64, bones transform.BoneMap) error
	Clear(id uint64)
	Tracked() int
}

// Server is the bridge's network surface: request routes plus the stream
// broadcaster.
type Server struct {
	entities EntitySource
	bones    BoneTargets
	backend  registry.PoseBackend
	exec     tick.Executor

	broadcaster *Broadcaster
	httpServer  *http.Server
	boundAddr   atomic.Pointer[string]

	// Server state
	running int32 // atomic bool
	closed  int32 // atomic bool

	config        Config
	defaultMethod BoneMethod
	logger        log.Log
}

// Config holds server configuration
type Config struct {
	Host    string `json:"host" yaml:"host" env:"POSEBRIDGE_HOST"`
	Port    int    `json:"port" yaml:"port" env:"POSEBRIDGE_PORT"`
	Version string `json:"version" yaml:"version"`

	// Pose backend round trips through the tick context give up after this.
	RequestTimeout time.Duration `json:"requestTimeout" yaml:"requestTimeout" env:"POSEBRIDGE_REQUEST_TIMEOUT"`
	MaxBodyBytes   int64         `json:"maxBodyBytes" yaml:"maxBodyBytes" env:"POSEBRIDGE_MAX_BODY_BYTES"`

	// Stream settings
	StreamInterval     time.Duration `json:"streamInterval" yaml:"streamInterval" env:"POSEBRIDGE_STREAM_INTERVAL"`
	StreamWriteTimeout time.Duration `json:"streamWriteTimeout" yaml:"streamWriteTimeout" env:"POSEBRIDGE_STREAM_WRITE_TIMEOUT"`

	// DefaultBoneMethod applies when a bones request has no method parameter.
	DefaultBoneMethod string `json:"defaultBoneMethod" yaml:"defaultBoneMethod" env:"POSEBRIDGE_DEFAULT_BONE_METHOD"`
}

// DefaultServerConfig returns default server configuration
func DefaultServerConfig() Config {
	return Config{
		Host:               "127.0.0.1",
		Port:               8765,
		Version:            "1.0.0",
		RequestTimeout:     250 * time.Millisecond,
		MaxBodyBytes:       1024 * 1024, // 1MB
		StreamInterval:     33 * time.Millisecond,
		StreamWriteTimeout: time.Second,
		DefaultBoneMethod:  string(BoneMethodPose),
	}
}

// Addr is the configured listen address.
func (c Config) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// NewServer creates the bridge API. An invalid default bone method falls back to pose.
func NewServer(config Config, entities EntitySource, bones BoneTargets, backend registry.PoseBackend, exec tick.Executor, logger log.Log) *Server {
	defaults := DefaultServerConfig()
	if config.RequestTimeout <= 0 {
		config.RequestTimeout = defaults.RequestTimeout
	}
	if config.MaxBodyBytes <= 0 {
		config.MaxBodyBytes = defaults.MaxBodyBytes
	}
	if config.StreamInterval <= 0 {
		config.StreamInterval = defaults.StreamInterval
	}
	if config.StreamWriteTimeout <= 0 {
		config.StreamWriteTimeout = defaults.StreamWriteTimeout
	}
	method, err := ParseBoneMethod(config.DefaultBoneMethod)
	if err != nil {
		method = BoneMethodPose
	}
	if exec == nil {
		exec = tick.Direct{}
	}

	logger = logger.With(log.String("component", "server"))

	s := &Server{
		entities:      entities,
		bones:         bones,
		backend:       backend,
		exec:          exec,
		config:        config,
		defaultMethod: method,
		logger:        logger,
	}
	s.broadcaster = NewBroadcaster(entities, config.StreamInterval, config.StreamWriteTimeout, logger)
	s.httpServer = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	s.logger.Info("Server created",
		log.String("listen_addr", config.Addr()),
		log.String("default_bone_method", string(method)))

	return s
}

// Start binds the listener and serves in the background. A bind failure
// leaves the server stopped.
func (s *Server) Start(_ context.Context) error {
	if atomic.LoadInt32(&s.closed) == 1 {
		return ErrServerClosed
	}

	if !atomic.CompareAndSwapInt32(&s.running, 0, 1) {
		return ErrServerAlreadyRunning
	}

	listener, err := net.Listen("tcp", s.config.Addr())
	if err != nil {
		atomic.StoreInt32(&s.running, 0)
		s.logger.Error("Failed to create listener", log.Error(err))
		return errors.Wrap(ErrListenerFailed, err.Error())
	}
	addr := listener.Addr().String()
	s.boundAddr.Store(&addr)

	s.logger.Info("Server listening", log.String("addr", addr))

	go func() {
		if err := s.httpServer.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("HTTP server stopped unexpectedly", log.Error(err))
		}
	}()

	return nil
}

// Addr returns the bound address, or the configured one before Start.
func (s *Server) Addr() string {
	if addr := s.boundAddr.Load(); addr != nil {
		return *addr
	}
	return s.config.Addr()
}

// Running reports whether the listener is serving.
func (s *Server) Running() bool {
	return atomic.LoadInt32(&s.running) == 1
}

// Stop ends every stream and shuts the HTTP server down. A stopped server
// cannot be started again.
func (s *Server) Stop(ctx context.Context) error {
	if !atomic.CompareAndSwapInt32(&s.running, 1, 0) {
		return ErrServerNotRunning
	}
	atomic.StoreInt32(&s.closed, 1)

	s.logger.Info("Stopping server")

	// streams are hijacked connections, Shutdown does not see them
	s.broadcaster.Close()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		return errors.Wrap(err, "shutdown http server")
	}

	s.logger.Info("Server stopped")
	return nil
}

// Close stops the server if needed and prevents restarts.
func (s *Server) Close() error {
	if atomic.LoadInt32(&s.running) == 1 {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return s.Stop(ctx)
	}
	if !atomic.CompareAndSwapInt32(&s.closed, 0, 1) {
		return nil // Already closed
	}
	s.broadcaster.Close()
	return nil
}

// Stats contains server statistics
type Stats struct {
	Characters  int
	BoneTargets int
	Subscribers int
	Running     bool
}

func (s *Server) GetStats() Stats {
	return Stats{
		Characters:  s.entities.Count(),
		BoneTargets: s.bones.Tracked(),
		Subscribers: s.broadcaster.Count(),
		Running:     s.Running(),
	}
}
