package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"

	"rialwatch/internal/alerting"
	"rialwatch/internal/logging"
)

// Config materialises application configuration.
type Config struct {
	App      AppConfig      `mapstructure:"app"`
	Logging  logging.Config `mapstructure:"logging"`
	Telegram TelegramConfig `mapstructure:"telegram"`
	Market   MarketConfig   `mapstructure:"market"`
	Watch    WatchConfig    `mapstructure:"watch"`
	Health   HealthConfig   `mapstructure:"health"`
}

// AppConfig general metadata.
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Environment string `mapstructure:"environment"`
}

// TelegramConfig 描述告警投递参数。Destination 接受 @频道名 或数字 chat id。
type TelegramConfig struct {
	BotToken    string `mapstructure:"bot_token"`
	Destination string `mapstructure:"destination"`
	APIEndpoint string `mapstructure:"api_endpoint"`
}

// MarketConfig covers market-data connectivity.
type MarketConfig struct {
	BaseURL        string        `mapstructure:"base_url"`
	FallbackURL    string        `mapstructure:"fallback_url"`
	SrcCurrency    string        `mapstructure:"src_currency"`
	DstCurrency    string        `mapstructure:"dst_currency"`
	UserAgent      string        `mapstructure:"user_agent"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
	DefaultBackoff time.Duration `mapstructure:"default_backoff"`
}

// WatchConfig governs polling cadence and the alert threshold.
type WatchConfig struct {
	Interval     time.Duration `mapstructure:"interval"`
	ThresholdPct float64       `mapstructure:"threshold_pct"`
	StartupDelay time.Duration `mapstructure:"startup_delay"`
}

// HealthConfig sets up the liveness responder. Port 0 disables it.
type HealthConfig struct {
	Port int `mapstructure:"port"`
}

// Load builds configuration from file, environment, and defaults.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("RIALWATCH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)
	bindAliases(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	if err := readConfig(v); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg, decodeHook()); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func readConfig(v *viper.Viper) error {
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return nil
		}
		return fmt.Errorf("read config: %w", err)
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "rialwatch")
	v.SetDefault("app.environment", "development")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")

	v.SetDefault("telegram.bot_token", "")
	v.SetDefault("telegram.destination", "")
	v.SetDefault("telegram.api_endpoint", "")

	v.SetDefault("market.base_url", "https://apiv2.nobitex.ir")
	v.SetDefault("market.fallback_url", "https://api.nobitex.ir")
	v.SetDefault("market.src_currency", "usdt")
	v.SetDefault("market.dst_currency", "rls")
	v.SetDefault("market.user_agent", "TraderBot/1.0")
	v.SetDefault("market.request_timeout", "10s")
	v.SetDefault("market.default_backoff", "60s")

	v.SetDefault("watch.interval", "30s")
	v.SetDefault("watch.threshold_pct", 0.2)
	v.SetDefault("watch.startup_delay", "0s")

	v.SetDefault("health.port", 0)
}

// bindAliases maps the bare env vars injected by the hosting platform onto
// their config keys.
func bindAliases(v *viper.Viper) {
	_ = v.BindEnv("telegram.bot_token", "RIALWATCH_TELEGRAM_BOT_TOKEN", "BOT_TOKEN")
	_ = v.BindEnv("telegram.destination", "RIALWATCH_TELEGRAM_DESTINATION", "CHANNEL_USERNAME")
	_ = v.BindEnv("health.port", "RIALWATCH_HEALTH_PORT", "PORT")
}

func decodeHook() viper.DecoderConfigOption {
	return func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "mapstructure"
		dc.DecodeHook = mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		)
	}
}

// Validate performs basic sanity checks on the configuration values.
// Failures here are the only fatal error class; everything past startup is
// recovered per tick.
func (c *Config) Validate() error {
	if c.Watch.Interval <= 0 {
		return fmt.Errorf("watch.interval must be greater than zero")
	}
	if c.Watch.ThresholdPct < 0 {
		return fmt.Errorf("watch.threshold_pct cannot be negative")
	}
	if c.Market.SrcCurrency == "" || c.Market.DstCurrency == "" {
		return fmt.Errorf("market.src_currency 与 market.dst_currency 必须配置")
	}
	if c.Telegram.BotToken == "" {
		return fmt.Errorf("telegram.bot_token 必须配置")
	}
	if c.Telegram.Destination == "" {
		return fmt.Errorf("telegram.destination 必须配置")
	}
	if _, err := alerting.ParseDestination(c.Telegram.Destination); err != nil {
		return fmt.Errorf("telegram.destination: %w", err)
	}
	return nil
}
