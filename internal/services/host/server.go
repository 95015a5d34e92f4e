// Package host serves the micro-frontend host shell.
package host

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	platformgrpc "github.com/louisbranch/mfhost/internal/platform/grpc"
	"github.com/louisbranch/mfhost/internal/platform/timeouts"
	"github.com/louisbranch/mfhost/internal/services/host/platform/httpx"
	"github.com/louisbranch/mfhost/internal/services/host/platform/observability"
	"github.com/louisbranch/mfhost/internal/services/host/registry"
	"github.com/louisbranch/mfhost/internal/services/host/remote"
	"github.com/louisbranch/mfhost/internal/services/host/remotehealth"
	"github.com/louisbranch/mfhost/internal/services/host/shell"
	hoststatic "github.com/louisbranch/mfhost/internal/services/host/static"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc/health"
)

// HTMXVersion is the htmx release the host shell is built against. Remotes
// sharing htmx must declare the same major version.
const HTMXVersion = "2.0.4"

// Config defines startup inputs for the host service.
type Config struct {
	HTTPAddr string
	// GRPCAddr enables the gRPC health service when set.
	GRPCAddr   string
	PublicPath string
	HTMXSrc    string
	// Remotes maps module keys to "scope@entryURL" references.
	Remotes           map[registry.ModuleKey]string
	RemoteTimeout     time.Duration
	RemoteEntryTTL    time.Duration
	HealthInterval    time.Duration
	SanitizeFragments bool
	HTTPClient        *http.Client
	Logger            *log.Logger
}

// Server hosts the shell HTTP surface, the remote health monitor and the
// optional gRPC health listener.
type Server struct {
	httpAddr   string
	httpServer *http.Server
	monitor    *remotehealth.Monitor
	grpcHealth *platformgrpc.HealthServer
	shell      *shell.Handler
	logger     *log.Logger
}

type components struct {
	handler http.Handler
	monitor *remotehealth.Monitor
	health  *health.Server
	shell   *shell.Handler
}

// NewHandler builds the root handler without starting health checks.
func NewHandler(cfg Config) (http.Handler, error) {
	c, err := compose(cfg)
	if err != nil {
		return nil, err
	}
	return c.handler, nil
}

func compose(cfg Config) (components, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = log.Default()
	}
	remotes := make(map[registry.ModuleKey]remote.Reference, len(cfg.Remotes))
	for key, raw := range cfg.Remotes {
		ref, err := remote.ParseReference(raw)
		if err != nil {
			return components{}, fmt.Errorf("remote %s: %w", key, err)
		}
		remotes[key] = ref
	}
	client, err := remote.NewClient(remote.Config{
		Remotes:    remotes,
		HTTPClient: cfg.HTTPClient,
		Timeout:    cfg.RemoteTimeout,
		EntryTTL:   cfg.RemoteEntryTTL,
		Shared:     map[string]string{"htmx": HTMXVersion},
		Sanitize:   cfg.SanitizeFragments,
		Logger:     logger,
	})
	if err != nil {
		return components{}, fmt.Errorf("build remote client: %w", err)
	}
	reg, err := registry.Default(client)
	if err != nil {
		return components{}, fmt.Errorf("build module registry: %w", err)
	}
	for _, key := range reg.Keys() {
		if _, ok := remotes[key]; !ok {
			return components{}, fmt.Errorf("module %s has no remote configured", key)
		}
	}

	healthServer := health.NewServer()
	monitor, err := remotehealth.New(reg.Keys(), client,
		remotehealth.WithInterval(cfg.HealthInterval),
		remotehealth.WithHealthServer(healthServer),
		remotehealth.WithLogger(logger),
	)
	if err != nil {
		return components{}, fmt.Errorf("build remote health monitor: %w", err)
	}

	shellHandler, err := shell.New(shell.Config{
		Registry: reg,
		BasePath: cfg.PublicPath,
		HTMXSrc:  cfg.HTMXSrc,
		Logger:   logger,
	})
	if err != nil {
		return components{}, fmt.Errorf("build shell handler: %w", err)
	}

	mux := http.NewServeMux()
	mux.Handle("GET /static/", http.StripPrefix("/static/", http.FileServer(http.FS(hoststatic.FS))))
	mux.Handle("GET /healthz", monitor)
	shellHandler.Register(mux)

	handler := httpx.Chain(mux,
		httpx.RecoverPanic(),
		httpx.RequestID(),
		observability.RequestLogger(logger),
		httpx.StripBasePath(cfg.PublicPath),
	)
	return components{handler: handler, monitor: monitor, health: healthServer, shell: shellHandler}, nil
}

// NewServer validates config and constructs a host server.
func NewServer(_ context.Context, cfg Config) (*Server, error) {
	httpAddr := strings.TrimSpace(cfg.HTTPAddr)
	if httpAddr == "" {
		return nil, errors.New("http address is required")
	}
	c, err := compose(cfg)
	if err != nil {
		return nil, fmt.Errorf("compose host handler: %w", err)
	}
	logger := cfg.Logger
	if logger == nil {
		logger = log.Default()
	}
	server := &Server{
		httpAddr: httpAddr,
		httpServer: &http.Server{
			Addr:              httpAddr,
			Handler:           c.handler,
			ReadHeaderTimeout: timeouts.ReadHeader,
		},
		monitor: c.monitor,
		shell:   c.shell,
		logger:  logger,
	}
	if grpcAddr := strings.TrimSpace(cfg.GRPCAddr); grpcAddr != "" {
		grpcHealth, err := platformgrpc.ListenHealth(grpcAddr, c.health)
		if err != nil {
			return nil, err
		}
		server.grpcHealth = grpcHealth
	}
	return server, nil
}

// ListenAndServe serves HTTP traffic until context cancellation or server stop.
func (s *Server) ListenAndServe(ctx context.Context) error {
	if s == nil {
		return errors.New("host server is nil")
	}
	if ctx == nil {
		return errors.New("context is required")
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		defer cancel()
		s.logger.Printf("host listening on %s", s.httpAddr)
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serve host http: %w", err)
		}
		return nil
	})
	group.Go(func() error {
		<-groupCtx.Done()
		shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), timeouts.Shutdown)
		defer cancelShutdown()
		defer s.shell.Close()
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown host http server: %w", err)
		}
		return nil
	})
	group.Go(func() error {
		return s.monitor.Run(groupCtx)
	})
	if s.grpcHealth != nil {
		group.Go(func() error {
			defer cancel()
			s.logger.Printf("gRPC health listening on %s", s.grpcHealth.Addr())
			return s.grpcHealth.Serve()
		})
		group.Go(func() error {
			<-groupCtx.Done()
			s.grpcHealth.Stop()
			return nil
		})
	}
	return group.Wait()
}

// GRPCAddr returns the bound gRPC health address, or "" when disabled.
func (s *Server) GRPCAddr() string {
	if s == nil || s.grpcHealth == nil {
		return ""
	}
	return s.grpcHealth.Addr()
}

// Close closes open server resources.
func (s *Server) Close() {
	if s == nil {
		return
	}
	if s.grpcHealth != nil {
		s.grpcHealth.Stop()
	}
	if s.httpServer != nil {
		_ = s.httpServer.Close()
	}
	s.shell.Close()
}
