package oracle

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDecisionFencedReply(t *testing.T) {
	text := "Based on the data:\n```json\n" +
		`{"decision": "BUY", "confidence_score": 0.82, "stop_loss_price": 48000.5, "take_profit_price": null, "justification": "RSI oversold with bullish MACD cross"}` +
		"\n```"
	dec, err := ParseDecision(text)
	require.NoError(t, err)
	assert.Equal(t, "BUY", dec.Decision)
	assert.True(t, dec.Confidence.Equal(decimal.NewFromFloat(0.82)))
	assert.True(t, dec.StopLoss.Valid)
	assert.True(t, dec.StopLoss.Decimal.Equal(decimal.NewFromFloat(48000.5)))
	assert.False(t, dec.TakeProfit.Valid)
	assert.NotEmpty(t, dec.Justification)
}

func TestParseDecisionRejectsMalformed(t *testing.T) {
	cases := []string{
		"",
		"the model rambled and returned no JSON",
		`{"decision": "PANIC", "confidence_score": 0.5, "justification": "x"}`,
		`{"decision": "BUY", "confidence_score": 1.7, "justification": "x"}`,
		`{"decision": "BUY"}`,
		`{"decision": "BUY", "confidence_score": "high", "justification": "x"}`,
	}
	for _, text := range cases {
		_, err := ParseDecision(text)
		assert.Error(t, err, "input: %q", text)
		assert.True(t, errors.Is(err, ErrNoSignal), "input: %q", text)
	}
}

func TestParseDecisionHold(t *testing.T) {
	dec, err := ParseDecision(`{"decision": "HOLD", "confidence_score": 0.3, "justification": "mixed signals"}`)
	require.NoError(t, err)
	assert.Equal(t, "HOLD", dec.Decision)
}
