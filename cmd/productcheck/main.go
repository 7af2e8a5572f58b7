package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"

	"ratiobot/internal/application/usecase/products"
	"ratiobot/internal/infrastructure/config"
	"ratiobot/internal/infrastructure/logger"
	"ratiobot/internal/infrastructure/svc"
)

func main() {
	configPath := flag.String("config", "configs/config.toml", "path to config.toml")
	dryRun := flag.Bool("dry-run", false, "print notifications instead of sending them")
	flag.Parse()

	logger.Setup("info")
	cfg, _, err := config.LoadOrDefault(*configPath)
	if err != nil {
		log.Fatal().Err(err).Str("config", *configPath).Msg("load config failed")
	}
	if *dryRun {
		cfg.App.DryRun = true
	}
	// 产品目录保存在 sqlite
	cfg.SQLite.Enabled = true
	logger.Setup(cfg.App.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sc, err := svc.New(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("service context initialization failed")
	}
	defer sc.Close()

	catalog, err := sc.ProductCatalog()
	if err != nil {
		sc.Close()
		log.Fatal().Err(err).Msg("product catalogue unavailable")
	}
	s, err := products.NewService(products.ServiceDeps{Market: sc.Market, Catalog: catalog, Notifier: sc.Notifier})
	if err != nil {
		sc.Close()
		log.Fatal().Err(err).Msg("product check setup failed")
	}

	res, err := s.Check(ctx)
	if err != nil {
		sc.Close()
		log.Fatal().Err(err).Msg("product check failed")
	}
	log.Info().
		Int("new", len(res.New)).
		Int("changed", len(res.Changed)).
		Bool("updated", res.Updated).
		Bool("initial", res.Initial).
		Msg("product check done")
}
