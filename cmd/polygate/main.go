// Command polygate serves one polystore backend over HTTP.
//
// Objects live under /v1/: GET reads a file, PUT writes one, DELETE
// removes one, and HEAD returns its metadata as headers. A path with a
// trailing slash addresses a directory: GET lists it as JSON, PUT
// creates it. /healthz reports whether the backend is reachable and
// /metrics exposes prometheus counters for every storage operation.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/polystore/polystore"
	"github.com/polystore/polystore/layers"
	_ "github.com/polystore/polystore/services/all"
)

var version = "dev"

func main() {
	root := &cobra.Command{
		Use:     "polygate",
		Short:   "HTTP gateway for a polystore backend",
		Version: version,
		RunE:    run,

		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.Flags().StringP("config", "c", "polygate.yaml", "configuration file")

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "polygate:", err)
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, args []string) error {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := LoadConfig(path)
	if err != nil {
		return err
	}

	logger := newLogger(cfg.Log)
	registry := prometheus.NewRegistry()
	op, err := buildOperator(cfg, logger, registry)
	if err != nil {
		return err
	}

	srv := newServer(cfg, op, logger, registry)
	httpServer := &http.Server{
		Addr:         cfg.Listen,
		Handler:      srv.handler(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info().
			Str("listen", cfg.Listen).
			Str("scheme", cfg.Backend.Scheme).
			Str("version", version).
			Msg("gateway listening")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	select {
	case err := <-errCh:
		op.Close()
		return err
	case sig := <-sigCh:
		logger.Info().Str("signal", sig.String()).Msg("shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		op.Close()
		return err
	}
	return op.Close()
}

// buildOperator constructs the backend operator with logging and, when
// enabled, metrics layered on.
func buildOperator(cfg *Config, logger zerolog.Logger, registry *prometheus.Registry) (*polystore.Operator, error) {
	op, err := polystore.NewOperator(cfg.Backend.Scheme, cfg.Backend.Options)
	if err != nil {
		return nil, err
	}
	applied := []polystore.Layer{layers.Logging(logger)}
	if cfg.Metrics.Enabled {
		applied = append(applied, layers.Metrics(registry))
	}
	return op.Layer(applied...), nil
}

func newLogger(cfg LogConfig) zerolog.Logger {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}
	if cfg.Pretty {
		out := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
		return zerolog.New(out).Level(level).With().Timestamp().Logger()
	}
	return zerolog.New(os.Stderr).Level(level).With().Timestamp().Logger()
}
