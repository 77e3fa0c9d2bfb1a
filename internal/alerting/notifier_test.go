package alerting

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

func testLogger() zerolog.Logger {
	return zerolog.Nop()
}

func TestParseDestination(t *testing.T) {
	dest, err := ParseDestination("@mychannel")
	if err != nil {
		t.Fatalf("@handle 应解析成功: %v", err)
	}
	if dest.ChannelUsername != "@mychannel" || dest.ChatID != 0 {
		t.Fatalf("应解析为频道用户名: %+v", dest)
	}

	dest, err = ParseDestination("-1001234567890")
	if err != nil {
		t.Fatalf("数字 chat id 应解析成功: %v", err)
	}
	if dest.ChatID != -1001234567890 || dest.ChannelUsername != "" {
		t.Fatalf("应解析为数字 chat id: %+v", dest)
	}

	if _, err := ParseDestination("mychannel"); err == nil {
		t.Fatal("既非 @handle 也非数字时应报错")
	}
	if _, err := ParseDestination(""); err == nil {
		t.Fatal("空目标应报错")
	}
}

func TestRenderMessageDirection(t *testing.T) {
	up := RenderMessage(Alert{Latest: 1002500, BestBuy: 1002000, BestSell: 1003000, ChangePct: decimal.NewFromFloat(0.25)})
	if !strings.HasPrefix(up, "📈") {
		t.Fatalf("上涨应使用 📈: %q", up)
	}
	if !strings.Contains(up, "<code>1002500</code>") {
		t.Fatalf("应包含最新价: %q", up)
	}
	if !strings.Contains(up, "+0.250%") {
		t.Fatalf("涨幅应带正号: %q", up)
	}

	down := RenderMessage(Alert{Latest: 997500, ChangePct: decimal.NewFromFloat(-0.25)})
	if !strings.HasPrefix(down, "📉") {
		t.Fatalf("下跌应使用 📉: %q", down)
	}
	if !strings.Contains(down, "-0.250%") {
		t.Fatalf("跌幅应带负号: %q", down)
	}

	baseline := RenderMessage(Alert{Latest: 1000000, Baseline: true})
	if !strings.HasPrefix(baseline, "💵") {
		t.Fatalf("基准消息应使用 💵: %q", baseline)
	}
	if strings.Contains(baseline, "Δ") {
		t.Fatalf("基准消息不应包含涨跌幅: %q", baseline)
	}
}

// fakeBotServer emulates just enough of the Bot API for the client library:
// getMe during construction, then sendMessage.
func fakeBotServer(t *testing.T, sendStatus int, sendBody map[string]any, captured *map[string]string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.HasSuffix(r.URL.Path, "getMe"):
			_ = json.NewEncoder(w).Encode(map[string]any{
				"ok": true,
				"result": map[string]any{
					"id": 1, "is_bot": true, "first_name": "rialwatch", "user_name": "rialwatch_bot",
				},
			})
		case strings.HasSuffix(r.URL.Path, "sendMessage"):
			if err := r.ParseForm(); err != nil {
				t.Fatalf("解析请求体失败: %v", err)
			}
			if captured != nil {
				for k, vs := range r.PostForm {
					(*captured)[k] = vs[0]
				}
			}
			w.WriteHeader(sendStatus)
			_ = json.NewEncoder(w).Encode(sendBody)
		default:
			t.Fatalf("未预期的路径: %s", r.URL.Path)
		}
	}))
}

func TestTelegramNotifierSend(t *testing.T) {
	received := make(map[string]string)
	srv := fakeBotServer(t, http.StatusOK, map[string]any{
		"ok":     true,
		"result": map[string]any{"message_id": 1},
	}, &received)
	defer srv.Close()

	notifier, err := NewTelegramNotifier("token", Destination{ChannelUsername: "@mychannel"}, srv.URL+"/bot%s/%s", testLogger())
	if err != nil {
		t.Fatalf("构造 notifier 失败: %v", err)
	}

	alert := Alert{Latest: 1002500, BestBuy: 1002000, BestSell: 1003000, ChangePct: decimal.NewFromFloat(0.25)}
	if err := notifier.Notify(context.Background(), alert); err != nil {
		t.Fatalf("Notify 应成功: %v", err)
	}

	if received["chat_id"] != "@mychannel" {
		t.Fatalf("chat_id 不正确: %#v", received)
	}
	if received["parse_mode"] != "HTML" {
		t.Fatalf("parse_mode 应为 HTML: %#v", received)
	}
	if received["disable_web_page_preview"] != "true" {
		t.Fatalf("应禁用链接预览: %#v", received)
	}
	if received["text"] == "" {
		t.Fatal("text 应非空")
	}
}

func TestTelegramNotifierSendError(t *testing.T) {
	srv := fakeBotServer(t, http.StatusBadRequest, map[string]any{
		"ok": false, "error_code": 400, "description": "Bad Request: chat not found",
	}, nil)
	defer srv.Close()

	notifier, err := NewTelegramNotifier("token", Destination{ChatID: 42}, srv.URL+"/bot%s/%s", testLogger())
	if err != nil {
		t.Fatalf("构造 notifier 失败: %v", err)
	}

	if err := notifier.Notify(context.Background(), Alert{Latest: 1}); err == nil {
		t.Fatal("ok=false 应报错")
	}
}
