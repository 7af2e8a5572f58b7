package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"ratiobot/internal/application/usecase/alert"
	"ratiobot/internal/infrastructure/config"
	"ratiobot/internal/infrastructure/logger"
	"ratiobot/internal/infrastructure/svc"
)

func usage() {
	out := flag.CommandLine.Output()
	fmt.Fprintf(out, "Usage: %s [flags] <product> <high> <low> [step=%s]\n", os.Args[0], alert.DefaultStep)
	fmt.Fprintln(out, "  '*' disables a bound, e.g. ETH-EUR 3200 2850 20 or FET-USD .95 '*'")
	flag.PrintDefaults()
}

func main() {
	configPath := flag.String("config", "configs/config.toml", "path to config.toml")
	dryRun := flag.Bool("dry-run", false, "print notifications instead of sending them")
	interval := flag.Duration("interval", alert.DefaultInterval, "polling interval")
	flag.Usage = usage
	flag.Parse()

	logger.Setup("info")
	if flag.NArg() < 3 {
		usage()
		os.Exit(2)
	}

	high, err := alert.ParseBound(flag.Arg(1))
	if err != nil {
		log.Fatal().Err(err).Msg("wrong high threshold")
	}
	low, err := alert.ParseBound(flag.Arg(2))
	if err != nil {
		log.Fatal().Err(err).Msg("wrong low threshold")
	}
	bounds := alert.Bounds{High: high, Low: low}
	if flag.NArg() > 3 {
		if bounds.Step, err = decimal.NewFromString(flag.Arg(3)); err != nil {
			log.Fatal().Err(err).Msg("wrong threshold step")
		}
		log.Info().Str("step", bounds.Step.String()).Msg("threshold step")
	}

	cfg, _, err := config.LoadOrDefault(*configPath)
	if err != nil {
		log.Fatal().Err(err).Str("config", *configPath).Msg("load config failed")
	}
	if *dryRun {
		cfg.App.DryRun = true
	}
	logger.Setup(cfg.App.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sc, err := svc.New(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("service context initialization failed")
	}
	defer sc.Close()

	s, err := alert.NewService(alert.ServiceDeps{Market: sc.Market, Notifier: sc.Notifier}, flag.Arg(0), bounds, *interval)
	if err != nil {
		sc.Close()
		log.Fatal().Err(err).Msg("alert setup failed")
	}
	log.Info().Str("product", flag.Arg(0)).Dur("interval", *interval).Msg("alert started")
	if err := s.Run(ctx); err != nil {
		log.Error().Err(err).Msg("alert exited")
	}
}
