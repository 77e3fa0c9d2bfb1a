package alerting

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// Alert 封装一次告警的内容。
type Alert struct {
	Latest    int64
	BestBuy   int64
	BestSell  int64
	ChangePct decimal.Decimal
	// Baseline marks the first observed quote; there is no prior price to
	// compare against, so ChangePct is meaningless.
	Baseline bool
}

// Notifier 定义告警输送接口。
type Notifier interface {
	Notify(ctx context.Context, alert Alert) error
}

// Destination 标识 Telegram 接收端:频道用户名或数字 chat id,二选一。
type Destination struct {
	ChatID          int64
	ChannelUsername string
}

// ParseDestination accepts either a "@handle" channel username or a numeric
// chat identifier (possibly negative, for supergroups).
func ParseDestination(raw string) (Destination, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Destination{}, fmt.Errorf("destination is empty")
	}
	if strings.HasPrefix(raw, "@") {
		return Destination{ChannelUsername: raw}, nil
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return Destination{}, fmt.Errorf("destination %q is neither a @handle nor a chat id", raw)
	}
	return Destination{ChatID: id}, nil
}

// TelegramNotifier 通过 Telegram Bot API 推送消息。
type TelegramNotifier struct {
	bot    *tgbotapi.BotAPI
	dest   Destination
	logger zerolog.Logger
}

// NewTelegramNotifier 构造 Telegram 告警器。endpoint 为空时使用官方 API。
func NewTelegramNotifier(token string, dest Destination, endpoint string, logger zerolog.Logger) (*TelegramNotifier, error) {
	var (
		bot *tgbotapi.BotAPI
		err error
	)
	if endpoint != "" {
		bot, err = tgbotapi.NewBotAPIWithAPIEndpoint(token, endpoint)
	} else {
		bot, err = tgbotapi.NewBotAPI(token)
	}
	if err != nil {
		return nil, fmt.Errorf("create telegram bot: %w", err)
	}

	return &TelegramNotifier{
		bot:    bot,
		dest:   dest,
		logger: logger.With().Str("component", "alert_telegram").Logger(),
	}, nil
}

// Notify 调用 sendMessage 推送告警文本。
func (n *TelegramNotifier) Notify(ctx context.Context, alert Alert) error {
	msg := tgbotapi.MessageConfig{
		BaseChat: tgbotapi.BaseChat{
			ChatID:          n.dest.ChatID,
			ChannelUsername: n.dest.ChannelUsername,
		},
		Text:                  RenderMessage(alert),
		ParseMode:             tgbotapi.ModeHTML,
		DisableWebPagePreview: true,
	}

	if _, err := n.bot.Send(msg); err != nil {
		return fmt.Errorf("send telegram message: %w", err)
	}

	n.logger.Info().
		Int64("latest", alert.Latest).
		Str("change_pct", alert.ChangePct.StringFixed(3)).
		Msg("告警已发送 (Telegram)")
	return nil
}

// RenderMessage 渲染 HTML 子集格式的告警文本。
func RenderMessage(a Alert) string {
	builder := strings.Builder{}
	builder.WriteString(fmt.Sprintf("%s USDT/Rial — Latest: <code>%d</code>\n", directionMarker(a), a.Latest))
	builder.WriteString(fmt.Sprintf("🛒 Buy: <code>%d</code> | 💰 Sell: <code>%d</code>\n", a.BestBuy, a.BestSell))
	if !a.Baseline {
		builder.WriteString(fmt.Sprintf("Δ <code>%s%%</code>\n", formatPct(a.ChangePct)))
	}
	builder.WriteString("──────────────")
	return builder.String()
}

func directionMarker(a Alert) string {
	if a.Baseline {
		return "💵"
	}
	switch a.ChangePct.Sign() {
	case 1:
		return "📈"
	case -1:
		return "📉"
	default:
		return "💵"
	}
}

func formatPct(d decimal.Decimal) string {
	s := d.StringFixed(3)
	if d.Sign() > 0 {
		s = "+" + s
	}
	return s
}

var _ Notifier = (*TelegramNotifier)(nil)
