package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/blocktune/blocktune/internal/classifier"
	"github.com/blocktune/blocktune/internal/collector"
	"github.com/blocktune/blocktune/internal/config"
	"github.com/blocktune/blocktune/internal/loaders"
	"github.com/blocktune/blocktune/internal/metrics"
	"github.com/blocktune/blocktune/internal/policy"
	"github.com/blocktune/blocktune/pkg/logutil"
	"github.com/blocktune/blocktune/pkg/types"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	logutil.InitLogger()

	logger := logutil.GetLogger()
	defer logger.Sync()

	go func() {
		sigch := make(chan os.Signal, 1)
		signal.Notify(sigch, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigch
		logger.Info("Received signal, shutting down", zap.String("signal", sig.String()))
		cancel()
	}()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("Invalid configuration", zap.Error(err))
	}

	source, err := loaders.NewEventSource(types.LoaderBlocktrace, cfg.BPFObjectPath)
	if err != nil {
		logger.Fatal("Error loading block tracer", zap.Error(err))
	}
	defer source.Close()
	logger.Info("Loaded tracer", zap.String("loader", types.LoaderBlocktrace))

	client, err := classifier.New(cfg)
	if err != nil {
		logger.Fatal("Error creating classifier client", zap.Error(err))
	}
	defer client.Close()
	logger.Info("Classifier client created", zap.String("transport", cfg.Transport))

	applier := policy.NewApplier(cfg.Device, cfg.SysfsRoot)

	reg := prometheus.NewRegistry()
	mc := metrics.New(reg)
	if cfg.MetricsAddr != "" {
		go metrics.Serve(ctx, cfg.MetricsAddr, reg)
	}

	loop := collector.NewControlLoop(source, client, applier, mc, cfg.Device, cfg.Window())
	if err := loop.Run(ctx); err != nil {
		logger.Error("Error running control loop", zap.Error(err))
		return
	}
	logger.Info("Collector finished running")
}
