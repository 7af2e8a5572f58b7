package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"ratiobot/internal/application/usecase/wallet"
	"ratiobot/internal/infrastructure/config"
	"ratiobot/internal/infrastructure/logger"
	"ratiobot/internal/infrastructure/svc"
)

// transferFlag 可重复："2022-04-22:ETH-EUR:BTC-EUR:99.98"
type transferFlag []manualTransfer

type manualTransfer struct {
	date     time.Time
	from, to string
	eur      decimal.Decimal
}

func (f *transferFlag) String() string { return fmt.Sprintf("%d transfers", len(*f)) }

func (f *transferFlag) Set(v string) error {
	parts := strings.Split(v, ":")
	if len(parts) != 4 {
		return fmt.Errorf("want date:from:to:eur, got %q", v)
	}
	d, err := time.Parse(time.DateOnly, parts[0])
	if err != nil {
		return err
	}
	eur, err := decimal.NewFromString(parts[3])
	if err != nil {
		return err
	}
	*f = append(*f, manualTransfer{date: d, from: strings.ToUpper(parts[1]), to: strings.ToUpper(parts[2]), eur: eur})
	return nil
}

func main() {
	configPath := flag.String("config", "configs/config.toml", "path to config.toml")
	dryRun := flag.Bool("dry-run", false, "print notifications instead of sending them")
	historyFrom := flag.String("history-from", "2017-05-01", "first day of daily candles")
	startDate := flag.String("start", "2022-01-01", "date the initial holdings are set")
	amountA := flag.String("amount-a", "0.03683716", "initial holding of asset A")
	amountB := flag.String("amount-b", "0.79380042", "initial holding of asset B")
	unit := flag.Float64("unit", 0, "EUR per threshold step (default ratio.unit_eur)")
	threshold := flag.Float64("threshold", 0, "ratio threshold (default ratio.threshold)")
	maxTransfer := flag.Float64("max", 0, "cap per transfer in EUR, 0 for none")
	out := flag.String("out", "wallet_simulation.xlsx", "xlsx output path")
	var transfers transferFlag
	flag.Var(&transfers, "transfer", "manual transfer date:from:to:eur (repeatable)")
	flag.Parse()

	logger.Setup("info")
	cfg, _, err := config.LoadOrDefault(*configPath)
	if err != nil {
		log.Fatal().Err(err).Str("config", *configPath).Msg("load config failed")
	}
	if *dryRun {
		cfg.App.DryRun = true
	}
	if *unit <= 0 {
		*unit = cfg.Ratio.UnitEUR
	}
	if *threshold <= 0 {
		*threshold = cfg.Ratio.Threshold
	}
	logger.Setup(cfg.App.LogLevel)

	from, err := time.Parse(time.DateOnly, *historyFrom)
	if err != nil {
		log.Fatal().Err(err).Msg("invalid -history-from")
	}
	start, err := time.Parse(time.DateOnly, *startDate)
	if err != nil {
		log.Fatal().Err(err).Msg("invalid -start")
	}
	amtA, err := decimal.NewFromString(*amountA)
	if err != nil {
		log.Fatal().Err(err).Msg("invalid -amount-a")
	}
	amtB, err := decimal.NewFromString(*amountB)
	if err != nil {
		log.Fatal().Err(err).Msg("invalid -amount-b")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sc, err := svc.New(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("service context initialization failed")
	}
	defer sc.Close()

	if err := run(ctx, sc, from, start, amtA, amtB, transfers, wallet.SimulateOptions{
		MarketA:     sc.Pair.ProductA().ID(),
		MarketB:     sc.Pair.ProductB().ID(),
		Unit:        decimal.NewFromFloat(*unit),
		Threshold:   decimal.NewFromFloat(*threshold),
		MaxTransfer: decimal.NewFromFloat(*maxTransfer),
	}, *out); err != nil {
		sc.Close()
		log.Fatal().Err(err).Msg("wallet simulation failed")
	}
}

func run(ctx context.Context, sc *svc.ServiceContext, from, start time.Time, amtA, amtB decimal.Decimal,
	transfers transferFlag, opts wallet.SimulateOptions, out string) error {
	today := time.Now().UTC().Truncate(24 * time.Hour)
	candlesA, err := sc.Market.GetCandles(ctx, opts.MarketA, from, today, 24*time.Hour)
	if err != nil {
		return err
	}
	candlesB, err := sc.Market.GetCandles(ctx, opts.MarketB, from, today, 24*time.Hour)
	if err != nil {
		return err
	}

	// 不转账、手动转账、模拟调仓三种情况分别建表
	build := func() (*wallet.Ledger, error) {
		l := wallet.NewLedger(opts.MarketA, candlesA)
		if err := l.AddMarket(opts.MarketB, candlesB); err != nil {
			return nil, err
		}
		if err := l.SetAsset(start, opts.MarketA, amtA); err != nil {
			return nil, err
		}
		if err := l.SetAsset(start, opts.MarketB, amtB); err != nil {
			return nil, err
		}
		return l, nil
	}

	base, err := build()
	if err != nil {
		return err
	}
	startValue, err := base.TotalValue(start)
	if err != nil {
		return err
	}
	noTransfer := base.FinalValue()

	manual, err := build()
	if err != nil {
		return err
	}
	for _, t := range transfers {
		if err := manual.Transfer(t.date, t.from, t.to, t.eur); err != nil {
			return fmt.Errorf("transfer on %s: %w", t.date.Format(time.DateOnly), err)
		}
	}
	withTransfers := manual.FinalValue()

	sim, err := build()
	if err != nil {
		return err
	}
	opts.Start = start
	res, err := sim.Simulate(opts)
	if err != nil {
		return err
	}
	if res.Message != "" {
		if err := sc.Notifier.SendText(ctx, res.Message); err != nil {
			log.Error().Err(err).Msg("send simulation message failed")
		}
	}
	simulated := sim.FinalValue()

	if err := sim.ExportXLSX(out); err != nil {
		return err
	}

	fmt.Printf("%s value         : EUR %s\n", start.Format(time.DateOnly), startValue.StringFixed(2))
	fmt.Printf("Today's value with no transfer : EUR %s\n", noTransfer.StringFixed(2))
	fmt.Printf("Today's value with simulation  : EUR %s (%d transfers)\n", simulated.StringFixed(2), len(res.Transfers))
	fmt.Printf("Gain with simulation           : %s%%\n", gain(simulated, noTransfer))
	if len(transfers) > 0 {
		fmt.Printf("Today's value with transfers   : EUR %s\n", withTransfers.StringFixed(2))
		fmt.Printf("Gain with transfers            : %s%%\n", gain(withTransfers, noTransfer))
	}
	log.Info().Str("file", out).Msg("ledger exported")
	return nil
}

func gain(v, base decimal.Decimal) string {
	if base.IsZero() {
		return "n/a"
	}
	return v.Sub(base).Div(base).Mul(decimal.NewFromInt(100)).StringFixed(1)
}
