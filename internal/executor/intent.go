package executor

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/netoalmanca/crypto-trader/internal/exchange"
	storemodel "github.com/netoalmanca/crypto-trader/internal/store/model"
)

// IntentKind says how a trade intent is denominated. Exactly one sizing
// interpretation applies per intent; there are no optional-field soups.
type IntentKind int

const (
	// IntentQuantity sizes the order by base-asset quantity.
	IntentQuantity IntentKind = iota
	// IntentQuoteAmount sizes the order by quote-currency notional.
	IntentQuoteAmount
	// IntentRiskFraction sizes the order from the account's risk
	// fractions against live balance or holding; used by the agent path.
	IntentRiskFraction
)

func (k IntentKind) String() string {
	switch k {
	case IntentQuantity:
		return "quantity"
	case IntentQuoteAmount:
		return "quote_amount"
	case IntentRiskFraction:
		return "risk_fraction"
	default:
		return "unknown"
	}
}

// TradeIntent is an abstract trade request before it has been resolved
// against exchange rules and account state.
type TradeIntent struct {
	Kind        IntentKind
	Side        exchange.Side
	AssetSymbol string

	// Amount is the base quantity for IntentQuantity and the quote
	// notional for IntentQuoteAmount; unused for IntentRiskFraction.
	Amount decimal.Decimal

	// LimitPrice turns the order into a limit order when positive.
	LimitPrice decimal.Decimal

	// SignalID back-references the oracle signal that caused this intent;
	// nil for manual trades.
	SignalID *int64
}

func QuantityIntent(side exchange.Side, asset string, qty decimal.Decimal) TradeIntent {
	return TradeIntent{Kind: IntentQuantity, Side: side, AssetSymbol: asset, Amount: qty}
}

func QuoteAmountIntent(side exchange.Side, asset string, amount decimal.Decimal) TradeIntent {
	return TradeIntent{Kind: IntentQuoteAmount, Side: side, AssetSymbol: asset, Amount: amount}
}

func RiskFractionIntent(side exchange.Side, asset string) TradeIntent {
	return TradeIntent{Kind: IntentRiskFraction, Side: side, AssetSymbol: asset}
}

func (i TradeIntent) validate() error {
	if i.AssetSymbol == "" {
		return fmt.Errorf("intent: asset symbol is required")
	}
	if i.Side != exchange.SideBuy && i.Side != exchange.SideSell {
		return fmt.Errorf("intent: side must be BUY or SELL")
	}
	if i.Kind != IntentRiskFraction && i.Amount.Sign() <= 0 {
		return fmt.Errorf("intent: amount must be positive for %s sizing", i.Kind)
	}
	return nil
}

// ExecutionConfig carries the settings an execution depends on, read fresh
// from the account at execution time rather than from ambient globals, so
// tests stay deterministic and stale risk parameters never apply.
type ExecutionConfig struct {
	Testnet             bool
	QuoteCurrency       string
	BuyRiskFraction     decimal.Decimal
	SellRiskFraction    decimal.Decimal
	ConfidenceThreshold decimal.Decimal
}

// ConfigFor derives the execution config from current account settings.
func ConfigFor(acct storemodel.AccountModel) ExecutionConfig {
	return ExecutionConfig{
		Testnet:             acct.Testnet,
		QuoteCurrency:       acct.QuoteCurrency,
		BuyRiskFraction:     acct.BuyRiskFraction,
		SellRiskFraction:    acct.SellRiskFraction,
		ConfidenceThreshold: acct.ConfidenceThreshold,
	}
}
