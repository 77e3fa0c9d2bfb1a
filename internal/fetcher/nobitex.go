package fetcher

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

const statsPath = "/market/stats"

var errPairMissing = errors.New("pair missing from stats envelope")

// NobitexOptions parameterise the market-stats fetcher.
type NobitexOptions struct {
	BaseURL        string
	FallbackURL    string
	SrcCurrency    string
	DstCurrency    string
	Timeout        time.Duration
	UserAgent      string
	DefaultBackoff time.Duration
}

// Nobitex fetches the pair quote from the Nobitex market-stats API. It
// absorbs every upstream inconsistency (HTTP 429 vs body-level failure,
// numeric-as-string prices) into a three-way Outcome so callers never touch
// transport or parsing concerns.
type Nobitex struct {
	opts        NobitexOptions
	logger      zerolog.Logger
	client      *http.Client
	baseURL     string
	fallbackURL string
	pairKey     string
}

// NewNobitex constructs a market-stats fetcher.
func NewNobitex(opts NobitexOptions, logger zerolog.Logger) *Nobitex {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if opts.DefaultBackoff <= 0 {
		opts.DefaultBackoff = 60 * time.Second
	}
	if opts.SrcCurrency == "" {
		opts.SrcCurrency = "usdt"
	}
	if opts.DstCurrency == "" {
		opts.DstCurrency = "rls"
	}

	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://apiv2.nobitex.ir"
	}

	return &Nobitex{
		opts:        opts,
		logger:      logger.With().Str("component", "market_fetcher").Logger(),
		client:      &http.Client{Timeout: timeout},
		baseURL:     baseURL,
		fallbackURL: strings.TrimRight(opts.FallbackURL, "/"),
		pairKey:     opts.SrcCurrency + "-" + opts.DstCurrency,
	}
}

// Fetch issues at most one primary GET plus one POST fallback and maps the
// response onto an Outcome. It never returns an error: rate-limit signals
// become RateLimited, everything else that goes wrong becomes Failure.
func (n *Nobitex) Fetch(ctx context.Context) Outcome {
	out, err := n.attempt(ctx, http.MethodGet, n.baseURL)
	if err == nil {
		return out
	}

	if errors.Is(err, errPairMissing) && n.fallbackURL != "" {
		n.logger.Warn().Str("pair", n.pairKey).Msg("pair missing from primary response, trying fallback")
		out, err = n.attempt(ctx, http.MethodPost, n.fallbackURL)
		if err == nil {
			return out
		}
	}

	n.logger.Error().Err(err).Str("pair", n.pairKey).Msg("fetch failed")
	return Failure()
}

// attempt issues one request against base. A returned error means "no data";
// rate-limit signals come back as a RateLimited outcome, not an error.
func (n *Nobitex) attempt(ctx context.Context, method, base string) (Outcome, error) {
	endpoint := base + statsPath
	params := url.Values{
		"srcCurrency": {n.opts.SrcCurrency},
		"dstCurrency": {n.opts.DstCurrency},
	}

	var (
		req *http.Request
		err error
	)
	if method == http.MethodPost {
		req, err = http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(params.Encode()))
		if req != nil {
			req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		}
	} else {
		req, err = http.NewRequestWithContext(ctx, http.MethodGet, endpoint+"?"+params.Encode(), nil)
	}
	if err != nil {
		return Outcome{}, fmt.Errorf("create stats request: %w", err)
	}

	if ua := strings.TrimSpace(n.opts.UserAgent); ua != "" {
		req.Header.Set("User-Agent", ua)
	} else {
		req.Header.Set("User-Agent", "TraderBot/1.0")
	}
	req.Header.Set("Cache-Control", "no-cache")
	req.Header.Set("Pragma", "no-cache")

	resp, err := n.client.Do(req)
	if err != nil {
		return Outcome{}, err
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return Outcome{}, err
	}

	if resp.StatusCode == http.StatusTooManyRequests {
		backoff := n.opts.DefaultBackoff
		if hint, ok := parseBackoff(payload); ok {
			backoff = hint
		}
		n.logger.Warn().Dur("backoff", backoff).Msg("upstream rate limited the request")
		return RateLimited(backoff), nil
	}
	if resp.StatusCode != http.StatusOK {
		return Outcome{}, fmt.Errorf("market api status %d: %s", resp.StatusCode, strings.TrimSpace(string(payload)))
	}

	var env statsEnvelope
	if err := json.Unmarshal(payload, &env); err != nil {
		return Outcome{}, fmt.Errorf("decode stats envelope: %w", err)
	}

	if env.Status != "" && env.Status != "ok" {
		backoff := time.Duration(env.BackOff) * time.Second
		n.logger.Warn().Str("status", env.Status).Int64("backoff_sec", env.BackOff).Msg("upstream reported non-ok status")
		return RateLimited(backoff), nil
	}

	stats, found := env.Stats[n.pairKey]
	if !found {
		return Outcome{}, errPairMissing
	}

	quote, err := stats.quote()
	if err != nil {
		return Outcome{}, fmt.Errorf("parse %s stats: %w", n.pairKey, err)
	}
	return Success(quote), nil
}

type statsEnvelope struct {
	Status  string               `json:"status"`
	BackOff int64                `json:"backOff"`
	Stats   map[string]pairStats `json:"stats"`
}

type pairStats struct {
	Latest   priceField `json:"latest"`
	BestBuy  priceField `json:"bestBuy"`
	BestSell priceField `json:"bestSell"`
}

func (p pairStats) quote() (Quote, error) {
	latest, err := truncatePrice(string(p.Latest))
	if err != nil {
		return Quote{}, fmt.Errorf("latest: %w", err)
	}
	bestBuy, err := truncatePrice(string(p.BestBuy))
	if err != nil {
		return Quote{}, fmt.Errorf("bestBuy: %w", err)
	}
	bestSell, err := truncatePrice(string(p.BestSell))
	if err != nil {
		return Quote{}, fmt.Errorf("bestSell: %w", err)
	}
	return Quote{Latest: latest, BestBuy: bestBuy, BestSell: bestSell}, nil
}

// priceField accepts both numeric and quoted-numeric JSON values.
type priceField string

func (p *priceField) UnmarshalJSON(data []byte) error {
	s := strings.TrimSpace(string(data))
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		s = s[1 : len(s)-1]
	}
	*p = priceField(s)
	return nil
}

// truncatePrice parses a decimal-capable numeric string and truncates it
// toward zero. Upstream sends values like "1157100.0000000000".
func truncatePrice(raw string) (int64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" || raw == "null" {
		return 0, errors.New("price field empty")
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return 0, err
	}
	if d.IsNegative() {
		return 0, fmt.Errorf("price %s is negative", raw)
	}
	return d.IntPart(), nil
}

func parseBackoff(payload []byte) (time.Duration, bool) {
	var hint struct {
		BackOff int64 `json:"backOff"`
	}
	if err := json.Unmarshal(payload, &hint); err != nil || hint.BackOff <= 0 {
		return 0, false
	}
	return time.Duration(hint.BackOff) * time.Second, true
}

var _ QuoteFetcher = (*Nobitex)(nil)
