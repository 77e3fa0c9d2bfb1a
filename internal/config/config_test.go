package config

import (
	"strings"
	"testing"
	"time"
)

func validConfig() *Config {
	cfg := &Config{}
	cfg.Market.SrcCurrency = "usdt"
	cfg.Market.DstCurrency = "rls"
	cfg.Watch.Interval = 30 * time.Second
	cfg.Watch.ThresholdPct = 0.2
	cfg.Telegram.BotToken = "token"
	cfg.Telegram.Destination = "@mychannel"
	return cfg
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("BOT_TOKEN", "token")
	t.Setenv("CHANNEL_USERNAME", "@mychannel")
	t.Setenv("PORT", "8080")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("加载默认配置失败: %v", err)
	}

	if cfg.Watch.Interval != 30*time.Second {
		t.Fatalf("默认轮询间隔应为 30s, 实际 %s", cfg.Watch.Interval)
	}
	if cfg.Watch.ThresholdPct != 0.2 {
		t.Fatalf("默认阈值应为 0.2, 实际 %v", cfg.Watch.ThresholdPct)
	}
	if cfg.Market.BaseURL != "https://apiv2.nobitex.ir" {
		t.Fatalf("默认 base_url 不正确: %s", cfg.Market.BaseURL)
	}
	if cfg.Market.RequestTimeout != 10*time.Second {
		t.Fatalf("默认请求超时应为 10s, 实际 %s", cfg.Market.RequestTimeout)
	}
	if cfg.Market.DefaultBackoff != 60*time.Second {
		t.Fatalf("默认 backoff 应为 60s, 实际 %s", cfg.Market.DefaultBackoff)
	}
	if cfg.Telegram.BotToken != "token" || cfg.Telegram.Destination != "@mychannel" {
		t.Fatalf("环境变量别名未生效: %+v", cfg.Telegram)
	}
	if cfg.Health.Port != 8080 {
		t.Fatalf("PORT 别名未生效: %d", cfg.Health.Port)
	}
}

func TestLoadMissingCredentials(t *testing.T) {
	if _, err := Load(""); err == nil {
		t.Fatal("缺少 bot_token 时 Load 应失败")
	}
}

func TestValidate(t *testing.T) {
	if err := validConfig().Validate(); err != nil {
		t.Fatalf("合法配置不应报错: %v", err)
	}

	cfg := validConfig()
	cfg.Telegram.BotToken = ""
	if err := cfg.Validate(); err == nil {
		t.Fatal("缺少 bot_token 应报错")
	}

	cfg = validConfig()
	cfg.Telegram.Destination = ""
	if err := cfg.Validate(); err == nil {
		t.Fatal("缺少 destination 应报错")
	}

	cfg = validConfig()
	cfg.Telegram.Destination = "mychannel"
	err := cfg.Validate()
	if err == nil {
		t.Fatal("非法 destination 应报错")
	}
	if !strings.Contains(err.Error(), "destination") {
		t.Fatalf("错误信息应指向 destination: %v", err)
	}

	cfg = validConfig()
	cfg.Telegram.Destination = "-1001234567890"
	if err := cfg.Validate(); err != nil {
		t.Fatalf("数字 chat id 应合法: %v", err)
	}

	cfg = validConfig()
	cfg.Watch.Interval = 0
	if err := cfg.Validate(); err == nil {
		t.Fatal("interval=0 应报错")
	}

	cfg = validConfig()
	cfg.Watch.ThresholdPct = -1
	if err := cfg.Validate(); err == nil {
		t.Fatal("负阈值应报错")
	}
}
