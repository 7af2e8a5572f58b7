package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/rs/zerolog/log"

	"ratiobot/internal/application/usecase/analyze"
	"ratiobot/internal/infrastructure/config"
	"ratiobot/internal/infrastructure/logger"
	"ratiobot/internal/infrastructure/svc"
)

func usage() {
	fmt.Fprintf(flag.CommandLine.Output(), "Usage: %s [flags] <product> [days=%d] [ma=%d] [threshold=%.2f]\n",
		os.Args[0], analyze.DefaultDays, analyze.DefaultMA, analyze.DefaultThreshold)
	flag.PrintDefaults()
}

func main() {
	configPath := flag.String("config", "configs/config.toml", "path to config.toml")
	verbose := flag.Bool("v", false, "debug logging")
	dryRun := flag.Bool("dry-run", false, "print notifications instead of sending them")
	initial := flag.Float64("initial", 100, "initial amount for the back simulation")
	dir := flag.String("dir", "", "chart output directory (default app.chart_dir)")
	flag.Usage = usage
	flag.Parse()

	logger.Setup("info")
	if flag.NArg() < 1 {
		usage()
		os.Exit(2)
	}

	p := analyze.Params{Product: flag.Arg(0), Initial: *initial}
	var err error
	if flag.NArg() > 1 {
		if p.Days, err = strconv.Atoi(flag.Arg(1)); err != nil {
			log.Fatal().Err(err).Msg("invalid days")
		}
	}
	if flag.NArg() > 2 {
		if p.MADays, err = strconv.Atoi(flag.Arg(2)); err != nil {
			log.Fatal().Err(err).Msg("invalid ma")
		}
	}
	if flag.NArg() > 3 {
		if p.Threshold, err = strconv.ParseFloat(flag.Arg(3), 64); err != nil {
			log.Fatal().Err(err).Msg("invalid threshold")
		}
	}

	cfg, _, err := config.LoadOrDefault(*configPath)
	if err != nil {
		log.Fatal().Err(err).Str("config", *configPath).Msg("load config failed")
	}
	if *verbose {
		cfg.App.LogLevel = "debug"
	}
	if *dryRun {
		cfg.App.DryRun = true
	}
	logger.Setup(cfg.App.LogLevel)
	p.Dir = cfg.App.ChartDir
	if *dir != "" {
		p.Dir = *dir
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sc, err := svc.New(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("service context initialization failed")
	}
	defer sc.Close()

	a, err := analyze.NewService(sc.BuildAnalyzeServiceDeps()).Run(ctx, p)
	if err != nil {
		sc.Close()
		log.Fatal().Err(err).Str("product", p.Product).Msg("analysis failed")
	}
	fmt.Println(analyze.Summary(a))
}
