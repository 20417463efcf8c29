// Command advise prints AC current recommendations for the homes of an INI
// roster.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/levenlabs/go-lflag"
	"github.com/raterudder/solaradvisor/pkg/log"
	"github.com/raterudder/solaradvisor/pkg/publish"
	"github.com/raterudder/solaradvisor/pkg/recommend"
	"github.com/raterudder/solaradvisor/pkg/weather"
)

func main() {
	rosterPath := lflag.String("roster", "homes.ini", "INI file with one section per home")
	windowName := lflag.String("window", "next", "Forecast slots to print per home (next, tomorrow, dayahead, all)")
	installer := lflag.Bool("installer", false, "Print one day-ahead installer recommendation per home instead")
	doPublish := lflag.Bool("publish", false, "Publish the first recommendation of every home to MQTT")

	// init packages
	w := weather.Configured()
	svc := recommend.Configured(w)
	mqtt := publish.Configured()

	// parse flags
	lflag.Configure()

	level, err := log.LevelFromLLog()
	if err != nil {
		panic(err)
	}
	log.SetDefaultLogLevel(level)
	slog.SetDefault(log.Ctx(context.Background()))

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	window, err := recommend.ParseWindow(*windowName)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	homes, err := loadRoster(*rosterPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	exitCode := 0
	rows, err := advise(ctx, svc, homes, window, *installer)
	render(os.Stdout, rows)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		exitCode = 1
	}

	if *doPublish && !mqtt.Enabled() {
		log.Ctx(ctx).WarnContext(ctx, "-publish needs -mqtt-url, nothing published")
	} else if *doPublish && len(rows) > 0 {
		if err := mqtt.Connect(ctx); err != nil {
			log.Ctx(ctx).ErrorContext(ctx, "failed to connect to mqtt", slog.Any("error", err))
			os.Exit(1)
		}
		published := map[string]bool{}
		for _, row := range rows {
			if published[row.Location] {
				continue
			}
			published[row.Location] = true
			if err := mqtt.Publish(ctx, row.Location, row.Recommendation); err != nil {
				log.Ctx(ctx).WarnContext(ctx, "failed to publish", slog.String("location", row.Location), slog.Any("error", err))
			}
		}
		if err := mqtt.Close(ctx); err != nil {
			log.Ctx(ctx).WarnContext(ctx, "failed to disconnect from mqtt", slog.Any("error", err))
		}
	}
	cancel()
	os.Exit(exitCode)
}
