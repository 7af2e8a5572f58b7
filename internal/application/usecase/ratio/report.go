package ratio

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog/log"

	"ratiobot/internal/application/port"
	"ratiobot/internal/domain"
)

type ReporterDeps struct {
	Charts   port.ReportCharts
	Notifier port.Notifier
	Journal  port.Journal // optional
	Dir      string
}

// Reporter 渲染实时图表并发送；所有阻塞 I/O 都在接收循环之外
type Reporter struct {
	deps ReporterDeps
}

func NewReporter(deps ReporterDeps) *Reporter {
	if deps.Dir == "" {
		deps.Dir = "."
	}
	return &Reporter{deps: deps}
}

func (r *Reporter) Publish(ctx context.Context, rep domain.Report) error {
	if r.deps.Journal != nil {
		if err := r.deps.Journal.InsertSnapshot(ctx, rep.Time.UnixMilli(), Summary(rep.Pair, rep.State)); err != nil {
			log.Error().Err(err).Msg("journal report snapshot failed")
		}
	}
	if len(rep.Ratios) == 0 {
		log.Debug().Msg("no ratio history yet, charts skipped")
		return nil
	}
	if r.deps.Charts == nil || r.deps.Notifier == nil {
		return nil
	}

	if err := os.MkdirAll(r.deps.Dir, 0o755); err != nil {
		return fmt.Errorf("create chart dir: %w", err)
	}
	name := rep.Pair.A + "-" + rep.Pair.B
	quotePath := filepath.Join(r.deps.Dir, name+"-realtime-quotes.png")
	ratioPath := filepath.Join(r.deps.Dir, name+"-realtime-ratio.png")

	if err := r.deps.Charts.QuoteChart(quotePath, rep); err != nil {
		return fmt.Errorf("render quote chart: %w", err)
	}
	if err := r.deps.Charts.RatioChart(ratioPath, rep); err != nil {
		return fmt.Errorf("render ratio chart: %w", err)
	}

	var errs []error
	for _, p := range []string{quotePath, ratioPath} {
		if err := r.deps.Notifier.SendImage(ctx, p); err != nil {
			errs = append(errs, fmt.Errorf("send %s: %w", filepath.Base(p), err))
		}
	}
	return errors.Join(errs...)
}
