package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/levenlabs/go-lflag"
	"github.com/raterudder/solaradvisor/pkg/log"
	"github.com/raterudder/solaradvisor/pkg/publish"
	"github.com/raterudder/solaradvisor/pkg/recommend"
	"github.com/raterudder/solaradvisor/pkg/server"
	"github.com/raterudder/solaradvisor/pkg/storage"
	"github.com/raterudder/solaradvisor/pkg/weather"
)

func main() {
	// init packages
	w := weather.Configured()
	svc := recommend.Configured(w)
	s := storage.Configured()
	mqtt := publish.Configured()

	// init server, publishing is a no-op until mqtt connects
	srv := server.Configured(svc, s, mqtt)

	// parse flags
	lflag.Configure()

	// lflag automatically sets llog's level, but we need to set the slog level
	level, err := log.LevelFromLLog()
	if err != nil {
		panic(err)
	}
	log.SetDefaultLogLevel(level)
	slog.SetDefault(log.Ctx(context.Background()))
	slog.Debug("logger configured", slog.String("level", level.String()))

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// If initialization inside lflag.Do failed, we wouldn't be here (panic).
	defer func() {
		if err := s.Close(); err != nil {
			log.Ctx(ctx).ErrorContext(ctx, "failed to close storage", "error", err)
		}
	}()

	if mqtt.Enabled() {
		if err := mqtt.Connect(ctx); err != nil {
			log.Ctx(ctx).ErrorContext(ctx, "failed to connect to mqtt", "error", err)
			os.Exit(1)
		}
		defer func() {
			if err := mqtt.Close(context.Background()); err != nil {
				log.Ctx(ctx).WarnContext(ctx, "failed to disconnect from mqtt", "error", err)
			}
		}()
	}

	// Run will block until context is canceled or error happens
	if err := srv.Run(ctx); err != nil {
		log.Ctx(ctx).ErrorContext(ctx, "server failed", "error", err)
		os.Exit(1)
	}
	log.Ctx(ctx).InfoContext(ctx, "server exited cleanly")
}
