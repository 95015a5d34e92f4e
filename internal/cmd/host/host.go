// Package host parses host command flags and composes the shell server.
package host

import (
	"context"
	"flag"
	"fmt"
	"log"
	"time"

	entrypoint "github.com/louisbranch/mfhost/internal/platform/cmd"
	hostservice "github.com/louisbranch/mfhost/internal/services/host"
	"github.com/louisbranch/mfhost/internal/services/host/registry"
)

// Config holds host command configuration.
type Config struct {
	HTTPAddr          string        `env:"HTTP_ADDR"          envDefault:"localhost:3000"`
	GRPCAddr          string        `env:"GRPC_ADDR"`
	PublicPath        string        `env:"PUBLIC_PATH"        envDefault:"/"`
	RemoteModuleOne   string        `env:"REMOTE_MODULE_ONE"  envDefault:"module_one@http://localhost:3001/remoteEntry.json"`
	RemoteModuleTwo   string        `env:"REMOTE_MODULE_TWO"  envDefault:"module_two@http://localhost:3002/remoteEntry.json"`
	RemoteTimeout     time.Duration `env:"REMOTE_TIMEOUT"     envDefault:"5s"`
	RemoteEntryTTL    time.Duration `env:"REMOTE_ENTRY_TTL"   envDefault:"30s"`
	HealthInterval    time.Duration `env:"HEALTH_INTERVAL"    envDefault:"15s"`
	SanitizeFragments bool          `env:"SANITIZE_FRAGMENTS" envDefault:"true"`
	HTMXSrc           string        `env:"HTMX_SRC"           envDefault:"https://unpkg.com/htmx.org@2.0.4"`
}

// ParseConfig parses environment and flags into a Config.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var cfg Config
	if err := entrypoint.ParseConfig(&cfg); err != nil {
		return Config{}, err
	}

	fs.StringVar(&cfg.HTTPAddr, "http-addr", cfg.HTTPAddr, "host HTTP listen address")
	fs.StringVar(&cfg.GRPCAddr, "grpc-addr", cfg.GRPCAddr, "gRPC health listen address (empty disables)")
	fs.StringVar(&cfg.PublicPath, "public-path", cfg.PublicPath, "public base path the shell is mounted under")
	fs.StringVar(&cfg.RemoteModuleOne, "remote-module-one", cfg.RemoteModuleOne, "module-one remote as scope@entryURL")
	fs.StringVar(&cfg.RemoteModuleTwo, "remote-module-two", cfg.RemoteModuleTwo, "module-two remote as scope@entryURL")
	fs.DurationVar(&cfg.RemoteTimeout, "remote-timeout", cfg.RemoteTimeout, "per-request timeout for remote fetches")
	fs.DurationVar(&cfg.RemoteEntryTTL, "remote-entry-ttl", cfg.RemoteEntryTTL, "how long a fetched remote entry is reused")
	fs.DurationVar(&cfg.HealthInterval, "health-interval", cfg.HealthInterval, "interval between remote health checks")
	fs.BoolVar(&cfg.SanitizeFragments, "sanitize-fragments", cfg.SanitizeFragments, "sanitize remote HTML fragments")
	fs.StringVar(&cfg.HTMXSrc, "htmx-src", cfg.HTMXSrc, "htmx script URL")
	if err := entrypoint.ParseArgs(fs, args); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (cfg Config) serviceConfig() hostservice.Config {
	return hostservice.Config{
		HTTPAddr:   cfg.HTTPAddr,
		GRPCAddr:   cfg.GRPCAddr,
		PublicPath: cfg.PublicPath,
		HTMXSrc:    cfg.HTMXSrc,
		Remotes: map[registry.ModuleKey]string{
			registry.ModuleOne: cfg.RemoteModuleOne,
			registry.ModuleTwo: cfg.RemoteModuleTwo,
		},
		RemoteTimeout:     cfg.RemoteTimeout,
		RemoteEntryTTL:    cfg.RemoteEntryTTL,
		HealthInterval:    cfg.HealthInterval,
		SanitizeFragments: cfg.SanitizeFragments,
		Logger:            log.Default(),
	}
}

// Run builds the host server and serves until ctx is cancelled.
func Run(ctx context.Context, cfg Config) error {
	return entrypoint.RunWithTelemetry(ctx, entrypoint.ServiceHost, func(ctx context.Context) error {
		server, err := hostservice.NewServer(ctx, cfg.serviceConfig())
		if err != nil {
			return fmt.Errorf("init host server: %w", err)
		}
		defer server.Close()

		if err := server.ListenAndServe(ctx); err != nil {
			return fmt.Errorf("serve host: %w", err)
		}
		return nil
	})
}
