// Package oracle calls the external decision model and turns its reply into
// a trade signal. The model is an opaque collaborator: one HTTP call with a
// timeout, a JSON-shaped answer, and anything malformed means "no signal",
// never a crash.
package oracle

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/shopspring/decimal"
	"github.com/tidwall/gjson"

	"github.com/netoalmanca/crypto-trader/internal/logger"
)

// ErrNoSignal marks an oracle reply that could not be used: transport
// failure, malformed JSON, schema violation. Callers skip and move on.
var ErrNoSignal = errors.New("no usable signal")

type Config struct {
	BaseURL string
	APIKey  string
	Model   string
	Timeout time.Duration
}

func (c Config) withDefaults() Config {
	if c.BaseURL == "" {
		c.BaseURL = "https://generativelanguage.googleapis.com"
	}
	if c.Model == "" {
		c.Model = "gemini-2.0-flash"
	}
	if c.Timeout <= 0 {
		c.Timeout = 30 * time.Second
	}
	return c
}

// Decision is the parsed trade signal.
type Decision struct {
	Decision      string
	Confidence    decimal.Decimal
	StopLoss      decimal.NullDecimal
	TakeProfit    decimal.NullDecimal
	Justification string
	Raw           json.RawMessage
}

// IndicatorInput is one point of technical history handed to the model.
type IndicatorInput struct {
	RSI           float64
	MACDLine      float64
	MACDSignal    float64
	BollingerHigh float64
	BollingerLow  float64
	ATR           float64
}

// Request carries everything the model sees for one decision.
type Request struct {
	AssetSymbol      string
	QuoteCurrency    string
	CurrentPrice     decimal.Decimal
	HeldQuantity     decimal.Decimal
	AverageCost      decimal.Decimal
	Indicators       []IndicatorInput
	SentimentSummary string
}

type Client struct {
	cfg  Config
	http *resty.Client
}

func NewClient(cfg Config) (*Client, error) {
	final := cfg.withDefaults()
	if final.APIKey == "" {
		return nil, fmt.Errorf("oracle: api key not configured")
	}
	return &Client{
		cfg:  final,
		http: resty.New().SetBaseURL(final.BaseURL).SetTimeout(final.Timeout),
	}, nil
}

// Decide asks the model for one trade decision. Any unusable reply returns
// ErrNoSignal with the cause attached.
func (c *Client) Decide(ctx context.Context, req Request) (*Decision, error) {
	payload := map[string]any{
		"contents": []map[string]any{
			{"parts": []map[string]any{{"text": buildPrompt(req)}}},
		},
	}
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParam("key", c.cfg.APIKey).
		SetHeader("Content-Type", "application/json").
		SetBody(payload).
		Post(fmt.Sprintf("/v1/models/%s:generateContent", c.cfg.Model))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNoSignal, err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("%w: oracle returned HTTP %d", ErrNoSignal, resp.StatusCode())
	}

	text := gjson.GetBytes(resp.Body(), "candidates.0.content.parts.0.text").String()
	dec, err := ParseDecision(text)
	if err != nil {
		logger.Warnf("oracle: discarding reply for %s: %v", req.AssetSymbol, err)
		return nil, err
	}
	return dec, nil
}
