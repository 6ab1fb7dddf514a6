// Command spinwatch follows one roulette table and prints every result and
// connectivity change to stdout.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dmitrymomot/spinstream/core/config"
	"github.com/dmitrymomot/spinstream/core/logger"
	"github.com/dmitrymomot/spinstream/core/stream"
	"github.com/dmitrymomot/spinstream/pkg/feed"
)

type watchConfig struct {
	LogLevel string `env:"LOG_LEVEL" envDefault:"warn"`
	// ShowHeartbeats also prints keep-alive frames.
	ShowHeartbeats bool `env:"SPINWATCH_SHOW_HEARTBEATS" envDefault:"false"`
}

func main() {
	var (
		wc  watchConfig
		cfg feed.Config
	)
	config.MustLoad(&wc)
	config.MustLoad(&cfg)
	if len(os.Args) > 1 {
		cfg.Channel = os.Args[1]
	}

	log := logger.New(
		logger.WithDevelopment("spinwatch"),
		logger.WithLevelName(wc.LogLevel),
		logger.WithOutput(os.Stderr),
	)

	if err := run(cfg, wc, log); err != nil {
		log.Error("spinwatch stopped", logger.Error(err))
		os.Exit(1)
	}
}

func run(cfg feed.Config, wc watchConfig, log *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client, err := feed.NewClient(cfg, feed.WithLogger(log))
	if err != nil {
		return err
	}
	defer client.Close()

	client.OnStatus(func(s feed.Status) {
		line := fmt.Sprintf("%s  [%s] %s", s.At.Format(time.TimeOnly), s.State, s.Method)
		if s.Attempt > 0 {
			line += fmt.Sprintf(" attempt=%d", s.Attempt)
		}
		if s.Err != nil {
			line += " err=" + s.Err.Error()
		}
		fmt.Fprintln(os.Stderr, line)
	})

	kinds := []stream.Kind{stream.KindConnected, stream.KindUpdate}
	if wc.ShowHeartbeats {
		kinds = append(kinds, stream.KindHeartbeat)
	}
	if _, err := client.Subscribe(cfg.Channel, printEvent, feed.WithKinds(kinds...)); err != nil {
		return err
	}

	if err := client.Connect(ctx); err != nil {
		return err
	}
	<-ctx.Done()
	return nil
}

func printEvent(ev stream.Event) error {
	ts := ev.ReceivedAt.Format(time.TimeOnly)
	switch {
	case ev.Kind == stream.KindConnected:
		fmt.Printf("%s  %s connected: %s\n", ts, ev.Channel, ev.Payload)
	case ev.Kind == stream.KindHeartbeat:
		fmt.Printf("%s  %s heartbeat\n", ts, ev.Channel)
	case ev.IsSnapshot():
		fmt.Printf("%s  %s last: %s\n", ts, ev.Channel, ev.Payload)
	default:
		fmt.Printf("%s  %s #%d %s\n", ts, ev.Channel, ev.Sequence, ev.Payload)
	}
	return nil
}
