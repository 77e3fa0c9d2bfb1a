package engine

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"rialwatch/internal/alerting"
	"rialwatch/internal/fetcher"
	"rialwatch/internal/metrics"
)

var dec100 = decimal.NewFromInt(100)

// Engine owns the last-alerted baseline and turns the stream of raw quotes
// into a sparse stream of alerts. It is not safe for concurrent use; the
// poller drives it from a single goroutine.
type Engine struct {
	fetcher   fetcher.QuoteFetcher
	notifier  alerting.Notifier
	threshold decimal.Decimal
	metrics   *metrics.Metrics
	logger    zerolog.Logger

	lastAlerted *int64
}

// New constructs the alert engine.
func New(f fetcher.QuoteFetcher, n alerting.Notifier, thresholdPct float64, m *metrics.Metrics, logger zerolog.Logger) *Engine {
	return &Engine{
		fetcher:   f,
		notifier:  n,
		threshold: decimal.NewFromFloat(thresholdPct),
		metrics:   m,
		logger:    logger.With().Str("component", "engine").Logger(),
	}
}

// LastAlertedPrice 返回当前基准价;尚无基准时第二个返回值为 false。
func (e *Engine) LastAlertedPrice() (int64, bool) {
	if e.lastAlerted == nil {
		return 0, false
	}
	return *e.lastAlerted, true
}

// Tick performs one fetch-decide cycle and returns the delay override the
// poller should honor before the next tick; zero means the normal interval.
func (e *Engine) Tick(ctx context.Context) time.Duration {
	e.metrics.Ticks.Inc()

	out := e.fetcher.Fetch(ctx)
	switch out.Status {
	case fetcher.StatusRateLimited:
		if out.Backoff > 0 {
			e.metrics.RateLimitPauses.Inc()
			e.logger.Warn().Dur("backoff", out.Backoff).Msg("rate limited, overriding poll interval")
			return out.Backoff
		}
		e.logger.Warn().Msg("rate limit signal without backoff, skipping tick")
		return 0
	case fetcher.StatusFailure:
		e.metrics.FetchFailures.Inc()
		e.logger.Warn().Msg("no quote this tick")
		return 0
	}

	e.observe(ctx, out.Quote)
	return 0
}

// observe applies one successful quote to the baseline state machine. The
// baseline moves only on the first observation or on a threshold crossing;
// below-threshold quotes are discarded so deviation is always measured
// against the last alerted price.
func (e *Engine) observe(ctx context.Context, q fetcher.Quote) {
	if e.lastAlerted == nil {
		e.send(ctx, alerting.Alert{Latest: q.Latest, BestBuy: q.BestBuy, BestSell: q.BestSell, Baseline: true})
		price := q.Latest
		e.lastAlerted = &price
		e.logger.Info().Int64("baseline", q.Latest).Msg("baseline established")
		return
	}

	baseline := *e.lastAlerted
	if baseline == 0 {
		e.logger.Warn().Int64("latest", q.Latest).Msg("zero baseline, skipping deviation check")
		return
	}

	pct := deviationPct(baseline, q.Latest)
	if pct.Abs().LessThan(e.threshold) {
		e.logger.Debug().
			Int64("latest", q.Latest).
			Str("change_pct", pct.StringFixed(3)).
			Str("threshold_pct", e.threshold.String()).
			Msg("below threshold, baseline unchanged")
		return
	}

	e.send(ctx, alerting.Alert{Latest: q.Latest, BestBuy: q.BestBuy, BestSell: q.BestSell, ChangePct: pct})
	price := q.Latest
	e.lastAlerted = &price
	e.logger.Info().
		Int64("baseline", q.Latest).
		Str("change_pct", pct.StringFixed(3)).
		Msg("alert fired, baseline re-armed")
}

// send delivers one alert; delivery failures never stop the loop and never
// roll back the baseline.
func (e *Engine) send(ctx context.Context, alert alerting.Alert) {
	if err := e.notifier.Notify(ctx, alert); err != nil {
		e.metrics.SendFailures.Inc()
		e.logger.Error().Err(err).Msg("failed to dispatch alert")
		return
	}
	e.metrics.AlertsSent.Inc()
}

// deviationPct 计算相对基准的百分比偏差。
func deviationPct(baseline, latest int64) decimal.Decimal {
	return decimal.NewFromInt(latest - baseline).
		Div(decimal.NewFromInt(baseline)).
		Mul(dec100)
}
