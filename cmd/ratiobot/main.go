package main

import (
	"context"
	"errors"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"

	"ratiobot/internal/application/usecase/ratio"
	"ratiobot/internal/infrastructure/config"
	"ratiobot/internal/infrastructure/logger"
	"ratiobot/internal/infrastructure/svc"
)

func main() {
	configPath := flag.String("config", "configs/config.toml", "path to config.toml")
	verbose := flag.Bool("v", false, "debug logging")
	dryRun := flag.Bool("dry-run", false, "print notifications instead of sending them")
	threshold := flag.Float64("threshold", 0, "ratio divergence threshold, e.g. 0.01 for 1%")
	historyHours := flag.Int("history-hours", 0, "rolling history window for charts")
	reportEvery := flag.Int("report-every-min", 0, "report cadence in minutes")
	flag.Parse()

	logger.Setup("info")

	cfg, found, err := config.LoadOrDefault(*configPath)
	if err != nil {
		log.Fatal().Err(err).Str("config", *configPath).Msg("load config failed")
	}
	if !found {
		log.Warn().Str("config", *configPath).Msg("config not found, using defaults")
	}

	if *verbose {
		cfg.App.LogLevel = "debug"
	}
	if *dryRun {
		cfg.App.DryRun = true
	}
	if *threshold > 0 {
		cfg.Ratio.Threshold = *threshold
	}
	if *historyHours > 0 {
		cfg.App.HistoryHours = *historyHours
	}
	if *reportEvery > 0 {
		cfg.App.ReportEveryMin = *reportEvery
	}
	if err := config.Validate(cfg); err != nil {
		log.Fatal().Err(err).Msg("invalid flags")
	}
	logger.Setup(cfg.App.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sc, err := svc.New(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("service context initialization failed")
	}
	defer sc.Close()
	sc.StartMetrics()

	engine := sc.BuildEngine()
	snap, err := sc.StateStore.Load(ctx)
	if err != nil {
		log.Fatal().Err(err).Str("file", sc.StateStore.Path()).Msg("load ratio state failed")
	}
	if snap == nil {
		log.Info().Str("file", sc.StateStore.Path()).Msg("no saved state, cold start")
	}
	engine.Restore(snap)

	service := ratio.NewService(sc.BuildRatioServiceDeps(engine))

	log.Info().
		Str("config", *configPath).
		Strs("products", sc.Pair.Products()).
		Float64("threshold", cfg.Ratio.Threshold).
		Int("history_hours", cfg.App.HistoryHours).
		Int("report_every_min", cfg.App.ReportEveryMin).
		Bool("dry_run", cfg.App.DryRun).
		Msg("ratiobot started")

	err = service.Run(ctx)
	switch {
	case errors.Is(err, context.Canceled):
		log.Info().Msg("ratiobot stopped")
	case errors.Is(err, ratio.ErrFeedClosed):
		log.Error().Err(err).Msg("ratio service exited")
	case err != nil:
		// 启动时无法连接行情源
		sc.Close()
		log.Fatal().Err(err).Msg("ratio service failed")
	}
}
