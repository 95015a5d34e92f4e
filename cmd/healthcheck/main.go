package main

import (
	"context"
	"flag"
	"os"

	"github.com/louisbranch/mfhost/internal/platform/config"
	"github.com/louisbranch/mfhost/internal/tools/healthcheck"
)

func main() {
	cfg, err := healthcheck.ParseConfig(flag.CommandLine, os.Args[1:])
	if err != nil {
		config.Exitf("parse flags: %v", err)
	}
	if err := healthcheck.Run(context.Background(), cfg, os.Stdout); err != nil {
		config.Exitf("health check: %v", err)
	}
}
