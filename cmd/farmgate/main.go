// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

// Package main contains the farmgate main function to start the gateway.
package main

import (
	"context"
	"fmt"
	"log"
	"net/url"
	"os"
	"time"

	"github.com/absmach/farmgate/controllers"
	ctrlapi "github.com/absmach/farmgate/controllers/api"
	ctrlcache "github.com/absmach/farmgate/controllers/cache"
	"github.com/absmach/farmgate/controllers/middleware"
	ctrlpg "github.com/absmach/farmgate/controllers/postgres"
	redisclient "github.com/absmach/farmgate/internal/clients/redis"
	"github.com/absmach/farmgate/internal/env"
	fglog "github.com/absmach/farmgate/logger"
	"github.com/absmach/farmgate/peripherals"
	periphpg "github.com/absmach/farmgate/peripherals/postgres"
	"github.com/absmach/farmgate/pkg/authn/jwt"
	"github.com/absmach/farmgate/pkg/jaeger"
	"github.com/absmach/farmgate/pkg/messaging/nats"
	msgtracing "github.com/absmach/farmgate/pkg/messaging/tracing"
	"github.com/absmach/farmgate/pkg/postgres"
	"github.com/absmach/farmgate/pkg/prometheus"
	"github.com/absmach/farmgate/pkg/server"
	httpserver "github.com/absmach/farmgate/pkg/server/http"
	"github.com/absmach/farmgate/pkg/ulid"
	"github.com/absmach/farmgate/pkg/uuid"
	"github.com/absmach/farmgate/tasks"
	taskspg "github.com/absmach/farmgate/tasks/postgres"
	"github.com/absmach/farmgate/telemetry"
	telpg "github.com/absmach/farmgate/telemetry/postgres"
	"github.com/absmach/farmgate/ws"
	wsapi "github.com/absmach/farmgate/ws/api"
	"golang.org/x/sync/errgroup"
)

const (
	svcName        = "farmgate"
	envPrefixDB    = "FG_DB_"
	envPrefixHTTP  = "FG_HTTP_"
	envPrefixWS    = "FG_WS_"
	defDB          = "farmgate"
	defSvcHTTPPort = "9010"
	defSvcWSPort   = "9011"
)

type config struct {
	LogLevel     string        `env:"FG_LOG_LEVEL"          envDefault:"info"`
	InstanceID   string        `env:"FG_INSTANCE_ID"        envDefault:""`
	JWTSecret    string        `env:"FG_JWT_SECRET"         envDefault:"secret"`
	CacheURL     string        `env:"FG_CACHE_URL"          envDefault:"redis://localhost:6379/0"`
	CacheKeyTTL  time.Duration `env:"FG_CACHE_KEY_TTL"      envDefault:"10m"`
	BrokerURL    string        `env:"FG_BROKER_URL"         envDefault:"nats://localhost:4222"`
	BrokerPrefix string        `env:"FG_BROKER_PREFIX"      envDefault:"telemetry"`
	JaegerURL    url.URL       `env:"FG_JAEGER_URL"         envDefault:"http://localhost:4318/v1/traces"`
	TraceRatio   float64       `env:"FG_JAEGER_TRACE_RATIO" envDefault:"1.0"`
}

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	g, ctx := errgroup.WithContext(ctx)

	cfg := config{}
	if err := env.Parse(&cfg); err != nil {
		log.Fatalf("failed to load %s configuration : %s", svcName, err)
	}

	logger, err := fglog.New(os.Stdout, cfg.LogLevel)
	if err != nil {
		log.Fatalf("failed to init logger: %s", err.Error())
	}

	var exitCode int
	defer fglog.ExitWithError(&exitCode)

	if cfg.InstanceID == "" {
		if cfg.InstanceID, err = uuid.New().ID(); err != nil {
			logger.Error(fmt.Sprintf("failed to generate instanceID: %s", err))
			exitCode = 1
			return
		}
	}

	tp, err := jaeger.NewProvider(ctx, svcName, &cfg.JaegerURL, cfg.InstanceID, cfg.TraceRatio)
	if err != nil {
		logger.Error(fmt.Sprintf("failed to init Jaeger: %s", err))
		exitCode = 1
		return
	}
	defer func() {
		if err := tp.Shutdown(ctx); err != nil {
			logger.Error(fmt.Sprintf("error shutting down tracer provider: %v", err))
		}
	}()
	tracer := tp.Tracer(svcName)

	dbConfig := postgres.Config{Name: defDB}
	if err := env.Parse(&dbConfig, env.Options{Prefix: envPrefixDB}); err != nil {
		logger.Error(fmt.Sprintf("failed to load %s database configuration : %s", svcName, err))
		exitCode = 1
		return
	}
	migrations := postgres.Migrations(
		*ctrlpg.Migration(),
		*taskspg.Migration(),
		*periphpg.Migration(),
		*telpg.Migration(),
	)
	db, err := postgres.Setup(dbConfig, migrations)
	if err != nil {
		logger.Error(err.Error())
		exitCode = 1
		return
	}
	defer db.Close()
	database := postgres.NewDatabase(db, dbConfig, tracer)

	cacheClient, err := redisclient.Connect(ctx, cfg.CacheURL)
	if err != nil {
		logger.Error(err.Error())
		exitCode = 1
		return
	}
	defer cacheClient.Close()

	pub, err := nats.NewPublisher(ctx, cfg.BrokerURL, logger, nats.Prefix(cfg.BrokerPrefix))
	if err != nil {
		logger.Error(fmt.Sprintf("failed to connect to message broker: %s", err))
		exitCode = 1
		return
	}
	defer pub.Close()
	pub = msgtracing.New(tracer, pub)

	idp := uuid.New()
	prepo := periphpg.NewRepository(database)
	tsvc := tasks.NewService(taskspg.NewRepository(database), idp)
	psvc := peripherals.NewService(prepo, idp)
	tel := telemetry.NewService(telpg.NewRepository(database), prepo, pub)

	registry := ws.NewRegistry(logger)
	dispatcher := ws.NewDispatcher(registry)

	csvc := controllers.NewService(ctrlpg.NewRepository(database), ctrlcache.NewCache(cacheClient, cfg.CacheKeyTTL), tsvc, psvc, tel, dispatcher, idp)
	csvc = middleware.NewLoggingMiddleware(logger, csvc)
	counter, latency := prometheus.MakeMetrics("controllers", "api")
	csvc = middleware.NewMetricsMiddleware(counter, latency, csvc)
	csvc = middleware.NewTracingMiddleware(tracer, csvc)

	wsvc := ws.New(registry, tsvc, psvc, tel, postgres.NewTransactor(database), logger)
	wsvc = wsapi.LoggingMiddleware(wsvc, logger)
	counter, latency = prometheus.MakeMetrics("ws", "handler")
	connections := prometheus.MakeGauge("ws", "handler", "connections", "Number of connected controllers.")
	wsvc = wsapi.MetricsMiddleware(wsvc, counter, latency, connections)

	httpServerConfig := server.Config{Port: defSvcHTTPPort}
	if err := env.Parse(&httpServerConfig, env.Options{Prefix: envPrefixHTTP}); err != nil {
		logger.Error(fmt.Sprintf("failed to load %s HTTP server configuration : %s", svcName, err))
		exitCode = 1
		return
	}
	tokens := jwt.New([]byte(cfg.JWTSecret))
	hs := httpserver.New(ctx, cancel, svcName, httpServerConfig, ctrlapi.MakeHandler(csvc, tokens, ulid.New(), logger, svcName, cfg.InstanceID), logger)

	wsServerConfig := server.Config{Port: defSvcWSPort}
	if err := env.Parse(&wsServerConfig, env.Options{Prefix: envPrefixWS}); err != nil {
		logger.Error(fmt.Sprintf("failed to load %s WebSocket server configuration : %s", svcName, err))
		exitCode = 1
		return
	}
	wss := httpserver.New(ctx, cancel, svcName+"-ws", wsServerConfig, wsapi.MakeHandler(wsvc, csvc, logger, svcName, cfg.InstanceID), logger)

	g.Go(func() error {
		return hs.Start()
	})
	g.Go(func() error {
		return wss.Start()
	})

	g.Go(func() error {
		return server.StopSignalHandler(ctx, cancel, logger, svcName, hs, wss)
	})

	if err := g.Wait(); err != nil {
		logger.Error(fmt.Sprintf("%s service terminated: %s", svcName, err))
	}
}
