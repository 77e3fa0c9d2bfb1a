package app

import (
	"context"
	"errors"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"rialwatch/internal/alerting"
	"rialwatch/internal/config"
	"rialwatch/internal/engine"
	"rialwatch/internal/fetcher"
	"rialwatch/internal/healthz"
	"rialwatch/internal/metrics"
	"rialwatch/internal/poller"
)

// App aggregates configuration and shared dependencies for the CLI commands.
type App struct {
	Config *config.Config
	Logger zerolog.Logger
}

// NewApp constructs a new application handle.
func NewApp(cfg *config.Config, logger zerolog.Logger) *App {
	return &App{Config: cfg, Logger: logger.With().Str("component", "app").Logger()}
}

func (a *App) newFetcher() fetcher.QuoteFetcher {
	return fetcher.NewNobitex(fetcher.NobitexOptions{
		BaseURL:        a.Config.Market.BaseURL,
		FallbackURL:    a.Config.Market.FallbackURL,
		SrcCurrency:    a.Config.Market.SrcCurrency,
		DstCurrency:    a.Config.Market.DstCurrency,
		Timeout:        a.Config.Market.RequestTimeout,
		UserAgent:      a.Config.Market.UserAgent,
		DefaultBackoff: a.Config.Market.DefaultBackoff,
	}, a.Logger)
}

func (a *App) newNotifier() (alerting.Notifier, error) {
	dest, err := alerting.ParseDestination(a.Config.Telegram.Destination)
	if err != nil {
		return nil, err
	}
	return alerting.NewTelegramNotifier(a.Config.Telegram.BotToken, dest, a.Config.Telegram.APIEndpoint, a.Logger)
}

// Run executes the long-running watch service until a termination signal.
func (a *App) Run(ctx context.Context) error {
	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	notifier, err := a.newNotifier()
	if err != nil {
		return err
	}

	m := metrics.New(prometheus.DefaultRegisterer)
	eng := engine.New(a.newFetcher(), notifier, a.Config.Watch.ThresholdPct, m, a.Logger)

	if port := a.Config.Health.Port; port > 0 {
		hs := healthz.New(port, a.Logger)
		go func() {
			if err := hs.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				a.Logger.Error().Err(err).Msg("health server terminated")
			}
		}()
	} else {
		a.Logger.Warn().Msg("health.port not configured; liveness endpoint disabled")
	}

	p := poller.New(poller.Options{
		Interval:     a.Config.Watch.Interval,
		StartupDelay: a.Config.Watch.StartupDelay,
	}, a.Logger)

	a.Logger.Info().
		Str("pair", a.Config.Market.SrcCurrency+"-"+a.Config.Market.DstCurrency).
		Dur("interval", a.Config.Watch.Interval).
		Float64("threshold_pct", a.Config.Watch.ThresholdPct).
		Msg("starting price watch")

	err = p.Run(ctx, eng.Tick)
	if err != nil && !errors.Is(err, context.Canceled) {
		a.Logger.Error().Err(err).Msg("watch loop terminated with error")
		return err
	}

	a.Logger.Info().Msg("price watch stopped")
	return nil
}
