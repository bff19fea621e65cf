// Package exchange defines the single boundary to the remote trading venue.
// The rest of the system only sees this contract; the Binance implementation
// lives in the binance subpackage.
package exchange

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

type Side string

const (
	SideBuy  Side = "BUY"
	SideSell Side = "SELL"
)

// TradingRule carries the per-symbol order constraints enforced by the
// exchange. Rules change server-side, so callers must fetch them fresh
// before every order instead of caching them.
type TradingRule struct {
	Symbol      string
	StepSize    decimal.Decimal
	MinQuantity decimal.Decimal
	TickSize    decimal.Decimal
	MinNotional decimal.Decimal
}

// Fill is one matched portion of an order. A single order may produce
// several fills at different prices; the trade id is assigned by the
// exchange and is the natural dedup key for bookkeeping.
type Fill struct {
	TradeID  int64
	OrderID  int64
	Price    decimal.Decimal
	Quantity decimal.Decimal
	Fee      decimal.Decimal
	FeeAsset string
	Time     time.Time
	IsBuyer  bool
}

// OrderResult is the exchange's acknowledgement of a placed order. Fills may
// be empty for an order that was accepted but has not matched yet.
type OrderResult struct {
	OrderID       int64
	ClientOrderID string
	Symbol        string
	Side          Side
	TransactTime  time.Time
	Fills         []Fill
}

// MarketOrderRequest sizes a market order either by base quantity or by
// quote notional. Exactly one of Quantity/QuoteAmount must be positive.
type MarketOrderRequest struct {
	Symbol      string
	Side        Side
	Quantity    decimal.Decimal
	QuoteAmount decimal.Decimal
}

type LimitOrderRequest struct {
	Symbol   string
	Side     Side
	Quantity decimal.Decimal
	Price    decimal.Decimal
}

// Gateway is the sole boundary to the remote exchange. Every call is a
// blocking network round-trip and must honor the context deadline.
type Gateway interface {
	// TradingRules fetches the live order constraints for a symbol.
	TradingRules(ctx context.Context, symbol string) (TradingRule, error)

	// Balances returns free balances per asset symbol; only strictly
	// positive balances are included.
	Balances(ctx context.Context) (map[string]decimal.Decimal, error)

	// TradeHistory returns one page of account fills for a symbol starting
	// at fromID. An unknown trading pair or an empty history yields an
	// empty slice, not an error.
	TradeHistory(ctx context.Context, symbol string, fromID int64) ([]Fill, error)

	// PlaceMarketOrder submits a market order sized by quantity or quote
	// notional.
	PlaceMarketOrder(ctx context.Context, req MarketOrderRequest) (OrderResult, error)

	PlaceLimitOrder(ctx context.Context, req LimitOrderRequest) (OrderResult, error)

	CancelOrder(ctx context.Context, symbol string, orderID int64) error

	// BestBid returns the top-of-book bid price for a symbol.
	BestBid(ctx context.Context, symbol string) (decimal.Decimal, error)
}

// Candle is one kline of public market data, used by the indicator job.
type Candle struct {
	OpenTime time.Time
	High     float64
	Low      float64
	Close    float64
	Volume   float64
}

// PriceSource is the narrow read-only contract the price feed needs; the
// keyless public client satisfies it.
type PriceSource interface {
	TickerPrice(ctx context.Context, symbol string) (decimal.Decimal, error)
}

// KlineSource supplies candles for indicator computation.
type KlineSource interface {
	Klines(ctx context.Context, symbol, interval string, limit int) ([]Candle, error)
}

// historyPageSize is the page size used by TradeHistoryAll; a page shorter
// than this signals exhaustion.
const historyPageSize = 1000

// TradeHistoryAll drains the paginated trade history for a symbol, advancing
// the cursor past the last exchange-assigned trade id of each page.
func TradeHistoryAll(ctx context.Context, gw Gateway, symbol string) ([]Fill, error) {
	var (
		all    []Fill
		fromID int64
	)
	for {
		page, err := gw.TradeHistory(ctx, symbol, fromID)
		if err != nil {
			return nil, err
		}
		all = append(all, page...)
		if len(page) < historyPageSize {
			return all, nil
		}
		fromID = page[len(page)-1].TradeID + 1
	}
}
