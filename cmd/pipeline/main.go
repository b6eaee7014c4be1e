// Command pipeline runs the trap-count and weather seasonal analysis batch:
// it reshapes the raw trap grid, joins trap metadata, fetches and normalizes
// station weather, and writes the merged analysis table. The run report is
// printed as JSON on stdout.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/berrylab/swd-weather-etl/internal/adapter/archive"
	httpadapter "github.com/berrylab/swd-weather-etl/internal/adapter/http"
	"github.com/berrylab/swd-weather-etl/internal/config"
	"github.com/berrylab/swd-weather-etl/internal/observability"
	"github.com/berrylab/swd-weather-etl/internal/pipeline"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg.LogLevel, cfg.LogFormat)
	metrics := observability.NewMetrics()

	client := archive.NewClient(cfg.BaseURL, cfg.FetchTimeout, logger)
	p := pipeline.New(cfg, client, logger, metrics)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// The metrics listener is optional; a plain batch run needs no ports.
	var srv *httpadapter.Server
	if cfg.MetricsAddr != "" {
		srv = httpadapter.NewServer(cfg.MetricsAddr, p, p, logger)
		go func() {
			if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("http server error", "error", err)
			}
		}()
	}

	report, runErr := p.Run(ctx)
	if report != nil {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(report); err != nil {
			logger.Error("encode report", "error", err)
		}
	}
	if runErr != nil {
		logger.Error("pipeline run failed", "error", runErr)
	}

	// With a listener up, stay around so the report and metrics stay
	// scrapeable until the operator stops the process.
	if srv != nil && runErr == nil {
		<-ctx.Done()
	}
	stop()

	if srv != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("http server shutdown error", "error", err)
		}
	}

	if runErr != nil {
		os.Exit(1)
	}
}
