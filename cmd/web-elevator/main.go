package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"elevator-dispatch/pkg/config"
	"elevator-dispatch/pkg/elevator"
	"elevator-dispatch/pkg/logger"
	"elevator-dispatch/pkg/server"
)

func main() {
	cfg, err := config.Load(".env")
	if err != nil {
		log := logger.New(os.Stderr, zerolog.InfoLevel)
		log.Fatal().Err(err).Msg("Failed to load config")
	}
	log := logger.New(nil, logger.Level(cfg.Debug))

	if err := run(cfg, log); err != nil {
		log.Fatal().Err(err).Msg("Elevator server stopped")
	}
}

func run(cfg config.Config, log zerolog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// The id sequence belongs to this process, not to the elevator package.
	ids := elevator.NewSequence()
	d, err := elevator.New(cfg.Elevator(), elevator.WithLogger(log), elevator.WithIDSource(ids))
	if err != nil {
		return err
	}

	srv := server.New(d, log)
	go srv.Broadcast(ctx)

	if interval := cfg.TickInterval(); interval > 0 {
		go func() {
			if err := d.Run(ctx, interval); err != nil && !errors.Is(err, context.Canceled) {
				log.Error().Err(err).Msg("Dispatcher run error")
			}
		}()
	} else {
		log.Info().Msg("Manual stepping: POST /tick to advance")
	}

	httpServer := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", httpServer.Addr).Msg("Starting elevator web server")
		log.Info().Msg("Open http://localhost:" + cfg.Port + " in your browser")
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	log.Info().Msg("Shutting down")
	return httpServer.Shutdown(shutdownCtx)
}
