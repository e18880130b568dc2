// Entry point: loads config, wires stores, engine and ingest sources, and
// runs until interrupted.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"roadindexer/internal/api"
	"roadindexer/internal/config"
	"roadindexer/internal/devices"
	"roadindexer/internal/engine"
	"roadindexer/internal/ingest"
	"roadindexer/internal/logging"
	"roadindexer/internal/measurements"
	"roadindexer/internal/model"
	"roadindexer/internal/storage"
)

const version = "0.3.0"

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	logFormat := flag.String("log-format", "json", "log output format: json or text")
	flag.Parse()

	var cfgMgr *config.Manager
	path := config.ResolvePath(*configPath)
	if _, err := os.Stat(path); os.IsNotExist(err) {
		cfgMgr = config.NewStaticManager(config.DefaultConfig())
	} else {
		m, err := config.NewManager(path)
		if err != nil {
			fmt.Fprintf(os.Stderr, "load config: %v\n", err)
			os.Exit(1)
		}
		cfgMgr = m
	}
	cfg := cfgMgr.Get()
	logger := logging.NewLogger(cfg.LogLevel, *logFormat)
	if cfgMgr.Path() == "" {
		logger.Info("no config file found, using defaults", "path", path)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var store storage.Store
	if cfg.Storage.Enabled {
		st, err := storage.NewStore(cfg.Storage)
		if err != nil {
			logger.Error("storage init failed", "err", err)
			os.Exit(1)
		}
		initCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		err = st.Init(initCtx)
		cancel()
		if err != nil {
			logger.Error("storage schema init failed", "err", err)
			os.Exit(1)
		}
		defer st.Close()
		store = st
		logger.Info("storage enabled", "driver", cfg.Storage.Driver)
	}

	measurementsStore := measurements.NewStore(cfg.Measurements.StoreLimit)
	devicesStore := devices.NewStore(cfg.Devices.StoreLimit)
	eng := engine.NewEngine(cfg, logger, measurementsStore, devicesStore, store)

	samples := make(chan model.Sample, cfg.Ingest.ChannelBuffer)
	eng.Start(ctx, samples)

	ingest.StartREST(ctx, cfgMgr, eng, logger)
	ingest.StartTCPStream(ctx, cfgMgr, samples, logger)
	ingest.StartKafka(ctx, cfgMgr, samples, logger)
	api.Start(ctx, cfgMgr, measurementsStore, devicesStore, eng, logger, version)

	go cfgMgr.Watch(3*time.Second,
		func(c *config.Config) {
			eng.UpdateConfig(c)
			logger.Info("config reloaded")
		},
		func(err error) {
			logger.Warn("config reload failed", "err", err)
		},
		ctx.Done(),
	)

	logger.Info("roadindexer started", "version", version)
	<-ctx.Done()
	logger.Info("shutting down")
}
