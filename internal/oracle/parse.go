package oracle

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"github.com/shopspring/decimal"

	"github.com/netoalmanca/crypto-trader/internal/pkg/jsonutil"
)

// decisionSchema is the contract the model reply must satisfy before any
// field of it is trusted.
const decisionSchema = `{
	"type": "object",
	"required": ["decision", "confidence_score", "justification"],
	"properties": {
		"decision": {"type": "string", "enum": ["BUY", "SELL", "HOLD"]},
		"confidence_score": {"type": "number", "minimum": 0, "maximum": 1},
		"stop_loss_price": {"type": ["number", "null"]},
		"take_profit_price": {"type": ["number", "null"]},
		"justification": {"type": "string"}
	}
}`

var compiledSchema = jsonschema.MustCompileString("trade_signal.json", decisionSchema)

type decisionPayload struct {
	Decision      string           `json:"decision"`
	Confidence    decimal.Decimal  `json:"confidence_score"`
	StopLoss      *decimal.Decimal `json:"stop_loss_price"`
	TakeProfit    *decimal.Decimal `json:"take_profit_price"`
	Justification string           `json:"justification"`
}

// ParseDecision extracts, validates and decodes a model reply. The reply
// may wrap the JSON in markdown fences or surrounding prose.
func ParseDecision(text string) (*Decision, error) {
	raw, ok := jsonutil.ExtractJSON(text)
	if !ok {
		return nil, fmt.Errorf("%w: no JSON in reply", ErrNoSignal)
	}

	var generic any
	if err := json.Unmarshal([]byte(raw), &generic); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNoSignal, err)
	}
	if err := compiledSchema.Validate(generic); err != nil {
		return nil, fmt.Errorf("%w: schema: %v", ErrNoSignal, err)
	}

	var payload decisionPayload
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNoSignal, err)
	}

	dec := &Decision{
		Decision:      strings.ToUpper(strings.TrimSpace(payload.Decision)),
		Confidence:    payload.Confidence,
		Justification: payload.Justification,
		Raw:           json.RawMessage(raw),
	}
	if payload.StopLoss != nil {
		dec.StopLoss = decimal.NullDecimal{Decimal: *payload.StopLoss, Valid: true}
	}
	if payload.TakeProfit != nil {
		dec.TakeProfit = decimal.NullDecimal{Decimal: *payload.TakeProfit, Valid: true}
	}
	return dec, nil
}
