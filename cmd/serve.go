package cmd

import (
	"context"
	"os"

	"github.com/illarion/pbetool/internal/server"
)

// Serve runs the HTTP encryption service until ctx is cancelled
func Serve(ctx context.Context, host string, port int) {
	cfg := LoadConfig()
	if host != "" {
		cfg.Server.Host = host
	}
	if port != 0 {
		cfg.Server.Port = port
	}
	if err := cfg.Validate(); err != nil {
		HandleError(err)
	}

	log, err := server.NewLogger(os.Stderr, cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		HandleError(err)
	}

	if err := server.New(cfg, log).Run(ctx); err != nil {
		HandleError(err)
	}
}
