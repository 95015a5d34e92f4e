// Package healthcheck queries the host gRPC health service, for container
// liveness checks and deploy scripts.
package healthcheck

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"strings"
	"time"

	entrypoint "github.com/louisbranch/mfhost/internal/platform/cmd"
	platformgrpc "github.com/louisbranch/mfhost/internal/platform/grpc"
)

// Config holds configuration for a health check.
type Config struct {
	Addr    string        `env:"GRPC_ADDR" envDefault:"localhost:3090"`
	Service string        `env:"HEALTHCHECK_SERVICE"`
	Timeout time.Duration `env:"HEALTHCHECK_TIMEOUT" envDefault:"5s"`
	Verbose bool
}

// ParseConfig parses environment and flags into a Config.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var cfg Config
	if err := entrypoint.ParseConfig(&cfg); err != nil {
		return Config{}, err
	}
	fs.StringVar(&cfg.Addr, "addr", cfg.Addr, "host gRPC health address")
	fs.StringVar(&cfg.Service, "service", cfg.Service, "health service name; a module key or empty for the host")
	fs.DurationVar(&cfg.Timeout, "timeout", cfg.Timeout, "how long to wait for SERVING")
	fs.BoolVar(&cfg.Verbose, "v", false, "log each check attempt")
	if err := entrypoint.ParseArgs(fs, args); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Run waits until the service reports SERVING and writes a summary to out.
func Run(ctx context.Context, cfg Config, out io.Writer) error {
	addr := strings.TrimSpace(cfg.Addr)
	if addr == "" {
		return errors.New("addr is required")
	}
	if cfg.Timeout <= 0 {
		return errors.New("timeout must be greater than zero")
	}
	if out == nil {
		return errors.New("output is required")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := context.WithTimeout(ctx, cfg.Timeout)
	defer cancel()

	var logf func(string, ...any)
	if cfg.Verbose {
		logf = func(format string, args ...any) {
			fmt.Fprintf(out, format+"\n", args...)
		}
	}
	if err := platformgrpc.CheckHealth(ctx, addr, cfg.Service, logf); err != nil {
		return err
	}
	service := cfg.Service
	if service == "" {
		service = "host"
	}
	_, err := fmt.Fprintf(out, "%s SERVING at %s\n", service, addr)
	return err
}
