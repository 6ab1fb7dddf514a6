// Command spinstream serves live roulette results to viewers over SSE,
// WebSocket and snapshot polling.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	goredis "github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/dmitrymomot/spinstream/core/broadcast"
	"github.com/dmitrymomot/spinstream/core/config"
	"github.com/dmitrymomot/spinstream/core/health"
	"github.com/dmitrymomot/spinstream/core/logger"
	"github.com/dmitrymomot/spinstream/core/server"
	"github.com/dmitrymomot/spinstream/core/streamapi"
	"github.com/dmitrymomot/spinstream/integration/database/mongo"
	"github.com/dmitrymomot/spinstream/integration/database/redis"
	"github.com/dmitrymomot/spinstream/integration/ingest"
)

type appConfig struct {
	Env      string `env:"APP_ENV" envDefault:"development"`
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`

	IngestEnabled   bool  `env:"INGEST_ENABLED" envDefault:"false"`
	SnapshotSeeding bool  `env:"MONGODB_ENABLED" envDefault:"false"`
	PublishEnabled  bool  `env:"PUBLISH_ENDPOINT_ENABLED" envDefault:"true"`
	MaxPayloadSize  int64 `env:"PUBLISH_MAX_PAYLOAD_SIZE" envDefault:"65536"`
}

func main() {
	var app appConfig
	config.MustLoad(&app)

	log := logger.New(
		logger.WithEnvironment(app.Env, "spinstream"),
		logger.WithLevelName(app.LogLevel),
	)
	slog.SetDefault(log)

	if err := run(app, log); err != nil {
		log.Error("spinstream stopped", logger.Error(err))
		os.Exit(1)
	}
}

func run(app appConfig, log *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var (
		srvCfg server.Config
		bcCfg  broadcast.Config
	)
	if err := config.Load(&srvCfg); err != nil {
		return err
	}
	if err := config.Load(&bcCfg); err != nil {
		return err
	}

	promReg := prometheus.NewRegistry()
	promReg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	regOpts := []broadcast.Option{
		broadcast.WithConfig(bcCfg),
		broadcast.WithLogger(log),
		broadcast.WithMetrics(broadcast.NewMetrics(promReg)),
	}
	var checks []health.Check

	if app.SnapshotSeeding {
		var mcfg mongo.Config
		if err := config.Load(&mcfg); err != nil {
			return err
		}
		client, err := mongo.Connect(ctx, mcfg)
		if err != nil {
			return err
		}
		defer func() {
			dctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = client.Disconnect(dctx)
		}()

		store, err := mongo.NewSnapshotStore(client.Database(mcfg.Database).Collection(mcfg.HistoryCollection))
		if err != nil {
			return err
		}
		regOpts = append(regOpts, broadcast.WithSnapshotSource(store))
		checks = append(checks, health.Check{Name: "mongodb", Fn: mongo.Healthcheck(client)})
		log.Info("snapshot seeding enabled", slog.String("collection", mcfg.HistoryCollection))
	}

	reg := broadcast.NewRegistry(regOpts...)
	svc, err := broadcast.NewService(reg)
	if err != nil {
		return err
	}

	var relay *ingest.Relay
	if app.IngestEnabled {
		var (
			rcfg redis.Config
			icfg ingest.Config
		)
		if err := config.Load(&rcfg); err != nil {
			return err
		}
		if err := config.Load(&icfg); err != nil {
			return err
		}
		var client *goredis.Client
		client, err = redis.Connect(ctx, rcfg)
		if err != nil {
			return err
		}
		defer client.Close()

		relay, err = ingest.New(client, svc, icfg, ingest.WithLogger(log))
		if err != nil {
			return err
		}
		checks = append(checks, health.Check{Name: "redis", Fn: redis.Healthcheck(client)})
	}

	apiOpts := []streamapi.Option{
		streamapi.WithLogger(log),
		streamapi.WithReadinessChecks(checks...),
		streamapi.WithMetricsHandler(promhttp.HandlerFor(promReg, promhttp.HandlerOpts{})),
		streamapi.WithMaxPayloadSize(app.MaxPayloadSize),
	}
	if !app.PublishEnabled {
		apiOpts = append(apiOpts, streamapi.WithoutPublish())
	}
	api := streamapi.New(svc, apiOpts...)

	srv, err := server.NewFromConfig(srvCfg, server.WithLogger(log))
	if err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(srv.Run(gctx, api.Handler()))
	g.Go(reg.Run(gctx))
	if relay != nil {
		g.Go(relay.Run(gctx))
	}

	log.Info("spinstream starting", slog.String("addr", srvCfg.Addr))
	return g.Wait()
}
