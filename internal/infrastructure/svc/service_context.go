package svc

import (
	"context"
	"fmt"
	"time"

	redisclient "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"ratiobot/internal/application/port"
	"ratiobot/internal/application/usecase/analyze"
	"ratiobot/internal/application/usecase/ratio"
	"ratiobot/internal/domain"
	"ratiobot/internal/infrastructure/config"
	"ratiobot/internal/infrastructure/exchange/coinbase"
	"ratiobot/internal/infrastructure/metrics"
	"ratiobot/internal/infrastructure/notify/telegram"
	"ratiobot/internal/infrastructure/storage/composite"
	"ratiobot/internal/infrastructure/storage/jsonfile"
	pgrepo "ratiobot/internal/infrastructure/storage/postgres"
	redisrepo "ratiobot/internal/infrastructure/storage/redis"
	sqliterepo "ratiobot/internal/infrastructure/storage/sqlite"
	"ratiobot/internal/interfaces/chart"
	"ratiobot/internal/interfaces/console"
)

type ServiceContext struct {
	Ctx    context.Context
	Config *config.Config
	Pair   domain.RatioPair

	// 基础设施层
	Feed       *coinbase.MatchFeed
	Market     *coinbase.RESTClient
	Metrics    *metrics.Recorder
	StateStore *jsonfile.StateStore
	Charts     *chart.Renderer

	redisClient *redisclient.Client
	redisRepo   *redisrepo.Repo
	sqliteRepo  *sqliterepo.Repo
	pgRepo      *pgrepo.Repo
	journal     *composite.Repo

	// 输出端口
	Notifier port.Notifier

	// 资源管理
	closerChain []func() error
}

// New 创建并初始化 ServiceContext，所有依赖只在这里构建一次
func New(ctx context.Context, cfg *config.Config) (*ServiceContext, error) {
	pair := domain.NewRatioPair(cfg.Ratio.AssetA, cfg.Ratio.AssetB, cfg.Ratio.Quote)
	rec := metrics.New()

	sc := &ServiceContext{
		Ctx:    ctx,
		Config: cfg,
		Pair:   pair,
		Feed: coinbase.NewMatchFeed(coinbase.MatchFeedConfig{
			WSURL:       cfg.Coinbase.WsURL,
			Keepalive:   time.Duration(cfg.Coinbase.KeepaliveSec) * time.Second,
			DialRetries: cfg.Coinbase.DialRetries,
			Recorder:    rec,
		}),
		Market:      coinbase.NewRESTClient(cfg.Coinbase.RestURL),
		Metrics:     rec,
		Charts:      chart.New(),
		closerChain: make([]func() error, 0),
	}

	if err := sc.initializeComponents(); err != nil {
		_ = sc.Close()
		return nil, err
	}
	return sc, nil
}

func (sc *ServiceContext) initializeComponents() error {
	notifier, err := buildNotifier(sc.Config)
	if err != nil {
		return err
	}
	sc.Notifier = notifier

	store, err := jsonfile.NewStateStore(sc.Config.Ratio.StateFile, sc.Pair)
	if err != nil {
		return fmt.Errorf("state store: %w", err)
	}
	sc.StateStore = store

	if err := sc.initializeStorage(); err != nil {
		return fmt.Errorf("%w: %w", ErrStorageInitFailed, err)
	}

	log.Info().
		Strs("products", sc.Pair.Products()).
		Bool("dry_run", sc.Config.App.DryRun).
		Int("journals", sc.journal.Len()).
		Msg("✓ All components initialized")
	return nil
}

// buildNotifier dry-run 或未启用 Telegram 时输出到控制台
func buildNotifier(cfg *config.Config) (port.Notifier, error) {
	if cfg.App.DryRun || !cfg.Telegram.Enabled {
		log.Warn().Msg("notifications go to console (dry-run or telegram disabled)")
		return console.NewSink(), nil
	}
	c, err := telegram.New(cfg.Telegram.APIURL, cfg.Telegram.Token, cfg.Telegram.ChatID)
	if err != nil {
		return nil, fmt.Errorf("telegram: %w", err)
	}
	return c, nil
}

// initializeStorage 初始化信号日志 (SQLite / Redis / Postgres)
func (sc *ServiceContext) initializeStorage() error {
	if sc.Config.SQLite.Enabled {
		if err := sc.initSQLite(); err != nil {
			return fmt.Errorf("sqlite initialization failed: %w", err)
		}
	}
	if sc.Config.Redis.Enabled {
		if err := sc.initRedis(); err != nil {
			return fmt.Errorf("redis initialization failed: %w", err)
		}
	}
	if sc.Config.Postgres.Enabled {
		if err := sc.initPostgres(); err != nil {
			return fmt.Errorf("postgres initialization failed: %w", err)
		}
	}

	var journals []port.Journal
	if sc.sqliteRepo != nil {
		journals = append(journals, sc.sqliteRepo)
	}
	if sc.redisRepo != nil {
		journals = append(journals, sc.redisRepo)
	}
	if sc.pgRepo != nil {
		journals = append(journals, sc.pgRepo)
	}
	sc.journal = composite.New(journals...)
	return nil
}

func (sc *ServiceContext) initRedis() error {
	rdb := redisclient.NewClient(&redisclient.Options{
		Addr:     sc.Config.Redis.Addr,
		Password: sc.Config.Redis.Password,
		DB:       sc.Config.Redis.DB,
	})

	ctx, cancel := context.WithTimeout(sc.Ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return fmt.Errorf("redis ping failed: %w", err)
	}

	sc.redisClient = rdb
	sc.redisRepo = redisrepo.New(
		rdb,
		sc.Config.Redis.Prefix,
		time.Duration(sc.Config.Redis.TTLSeconds)*time.Second,
		sc.Config.Redis.SignalStream,
		sc.Config.Redis.SignalChannel,
	)
	sc.closerChain = append(sc.closerChain, func() error {
		log.Info().Msg("closing redis connection")
		return rdb.Close()
	})

	log.Info().
		Str("addr", sc.Config.Redis.Addr).
		Int("db", sc.Config.Redis.DB).
		Msg("✓ Redis initialized")
	return nil
}

func (sc *ServiceContext) initSQLite() error {
	repo, err := sqliterepo.New(sc.Config.SQLite.Path)
	if err != nil {
		return fmt.Errorf("sqlite repo creation failed: %w", err)
	}
	sc.sqliteRepo = repo
	sc.closerChain = append(sc.closerChain, func() error {
		log.Info().Msg("closing sqlite connection")
		return repo.Close()
	})

	log.Info().Str("path", sc.Config.SQLite.Path).Msg("✓ SQLite initialized")
	return nil
}

func (sc *ServiceContext) initPostgres() error {
	repo, err := pgrepo.New(sc.Config.Postgres.DSN)
	if err != nil {
		return err
	}
	sc.pgRepo = repo
	sc.closerChain = append(sc.closerChain, func() error {
		log.Info().Msg("closing postgres connection")
		return repo.Close()
	})

	log.Info().Msg("✓ Postgres initialized")
	return nil
}

// Journal 所有已启用的信号日志；都未启用时为 nil
func (sc *ServiceContext) Journal() port.Journal {
	if sc.journal == nil || sc.journal.Len() == 0 {
		return nil
	}
	return sc.journal
}

// ProductCatalog 产品目录保存在 sqlite
func (sc *ServiceContext) ProductCatalog() (port.ProductCatalog, error) {
	if sc.sqliteRepo == nil {
		return nil, ErrCatalogUnavailable
	}
	return sc.sqliteRepo, nil
}

// BuildEngine 组装比率信号引擎
func (sc *ServiceContext) BuildEngine() *ratio.Engine {
	return ratio.NewEngine(ratio.EngineDeps{
		Pair:      sc.Pair,
		Threshold: decimal.NewFromFloat(sc.Config.Ratio.Threshold),
		UnitEUR:   decimal.NewFromFloat(sc.Config.Ratio.UnitEUR),
		Store:     sc.StateStore,
		Journal:   sc.Journal(),
		Notifier:  sc.Notifier,
		Recorder:  sc.Metrics,
	})
}

// BuildRatioServiceDeps 实时服务的依赖：接收循环 + 报告任务
func (sc *ServiceContext) BuildRatioServiceDeps(engine *ratio.Engine) ratio.ServiceDeps {
	return ratio.ServiceDeps{
		Feed:          sc.Feed,
		Engine:        engine,
		HistoryWindow: time.Duration(sc.Config.App.HistoryHours) * time.Hour,
		ReportEvery:   time.Duration(sc.Config.App.ReportEveryMin) * time.Minute,
		Reporter: ratio.NewReporter(ratio.ReporterDeps{
			Charts:   sc.Charts,
			Notifier: sc.Notifier,
			Journal:  sc.Journal(),
			Dir:      sc.Config.App.ChartDir,
		}),
	}
}

// BuildAnalyzeServiceDeps 日线分析的依赖
func (sc *ServiceContext) BuildAnalyzeServiceDeps() analyze.ServiceDeps {
	return analyze.ServiceDeps{
		Market:   sc.Market,
		Charts:   sc.Charts,
		Notifier: sc.Notifier,
	}
}

// StartMetrics 启用时在后台暴露 /metrics
func (sc *ServiceContext) StartMetrics() {
	if !sc.Config.Metrics.Enabled {
		return
	}
	go func() {
		if err := sc.Metrics.Serve(sc.Ctx, sc.Config.Metrics.Addr); err != nil {
			log.Error().Err(err).Str("addr", sc.Config.Metrics.Addr).Msg("metrics server failed")
		}
	}()
}

// Close 按相反顺序关闭所有资源
func (sc *ServiceContext) Close() error {
	for i := len(sc.closerChain) - 1; i >= 0; i-- {
		if err := sc.closerChain[i](); err != nil {
			log.Error().Err(err).Msg("error closing resource")
		}
	}
	sc.closerChain = nil
	return nil
}
