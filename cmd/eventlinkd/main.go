// Command eventlinkd runs one eventlink node: it subscribes to both event
// channels, keeps post counters current, compensates failed mutations, and
// serves the inspection API.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/randalmurphal/eventlink/pkg/eventlink"
	"github.com/randalmurphal/eventlink/pkg/eventlink/config"
	"github.com/randalmurphal/eventlink/pkg/eventlink/exchange"
	"github.com/randalmurphal/eventlink/pkg/eventlink/observability"
)

const shutdownTimeout = 10 * time.Second

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "eventlinkd: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	configPath := flag.String("config", "", "path to a YAML or JSON settings file")
	envPrefix := flag.String("env-prefix", "EVENTLINK", "prefix for environment overrides")
	answerValidation := flag.Bool("answer-validation", true, "answer post validation requests from the counter store")
	flag.Parse()

	// A missing .env is fine.
	_ = godotenv.Load()

	settings, err := config.Load(*configPath, *envPrefix)
	if err != nil {
		return fmt.Errorf("load settings: %w", err)
	}

	logger := observability.NewLogger(os.Stderr, observability.LogSettings{
		Level:     settings.Logging.Level,
		Format:    settings.Logging.Format,
		AddSource: settings.Logging.AddSource,
	})
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	counters, err := eventlink.OpenCounterStore(settings.Counters)
	if err != nil {
		return fmt.Errorf("open counter store: %w", err)
	}
	defer counters.Close()

	opts := []eventlink.Option{
		eventlink.WithLogger(logger),
		eventlink.WithCounterStore(counters),
	}
	if *answerValidation {
		opts = append(opts, eventlink.WithProviders(exchange.WithPosts(exchange.StorePosts{Store: counters})))
	}

	rt, err := eventlink.New(ctx, settings, opts...)
	if err != nil {
		return err
	}
	defer func() {
		if err := rt.Close(); err != nil {
			logger.Error("close runtime", slog.String("error", err.Error()))
		}
	}()

	if err := rt.Start(ctx); err != nil {
		return err
	}

	if !settings.HTTP.Enabled {
		<-ctx.Done()
		logger.Info("shutting down")
		return nil
	}

	srv := &http.Server{
		Addr:              settings.HTTP.Addr,
		Handler:           rt.HTTPHandler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	serveErr := make(chan error, 1)
	go func() {
		logger.Info("http api listening", slog.String("addr", settings.HTTP.Addr))
		serveErr <- srv.ListenAndServe()
	}()

	select {
	case err := <-serveErr:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http shutdown: %w", err)
	}
	return nil
}
