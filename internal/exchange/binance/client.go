// Package binance implements exchange.Gateway on top of the go-binance SDK
// against the Binance spot API (mainnet or testnet per account settings).
package binance

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/adshao/go-binance/v2"
	"github.com/adshao/go-binance/v2/common"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/netoalmanca/crypto-trader/internal/exchange"
	"github.com/netoalmanca/crypto-trader/internal/logger"
	"github.com/netoalmanca/crypto-trader/internal/quant"
)

const tradePageLimit = 1000

// Client wraps a go-binance spot client as an exchange.Gateway. The
// exchange server time offset is queried once at construction so signed
// requests stay valid under clock skew.
type Client struct {
	cfg    Config
	client *binance.Client
}

var _ exchange.Gateway = (*Client)(nil)

func New(ctx context.Context, cfg Config) (*Client, error) {
	final := cfg.withDefaults()
	cli := binance.NewClient(final.APIKey, final.APISecret)
	cli.BaseURL = strings.TrimSpace(final.BaseURL)
	cli.HTTPClient = &http.Client{Timeout: final.HTTPTimeout}

	// One clock sync per gateway session; the offset is applied to every
	// signed request issued afterwards.
	offset, err := cli.NewSetServerTimeService().Do(ctx)
	if err != nil {
		return nil, mapError(err)
	}
	logger.Debugf("binance: server time offset=%dms testnet=%v", offset, final.Testnet)

	return &Client{cfg: final, client: cli}, nil
}

// NewPublic builds a keyless client for unauthenticated market data
// (tickers, klines, depth). Signed endpoints will fail on it.
func NewPublic(cfg Config) *Client {
	final := cfg.withDefaults()
	cli := binance.NewClient("", "")
	cli.BaseURL = strings.TrimSpace(final.BaseURL)
	cli.HTTPClient = &http.Client{Timeout: final.HTTPTimeout}
	return &Client{cfg: final, client: cli}
}

func (c *Client) TradingRules(ctx context.Context, symbol string) (exchange.TradingRule, error) {
	info, err := c.client.NewExchangeInfoService().Symbols(symbol).Do(ctx)
	if err != nil {
		return exchange.TradingRule{}, mapError(err)
	}
	for _, s := range info.Symbols {
		if s.Symbol != symbol {
			continue
		}
		rule := exchange.TradingRule{Symbol: symbol}
		if f := s.LotSizeFilter(); f != nil {
			rule.StepSize = parseDecimal(f.StepSize)
			rule.MinQuantity = parseDecimal(f.MinQuantity)
		}
		if f := s.PriceFilter(); f != nil {
			rule.TickSize = parseDecimal(f.TickSize)
		}
		if f := s.NotionalFilter(); f != nil {
			rule.MinNotional = parseDecimal(f.MinNotional)
		}
		return rule, nil
	}
	return exchange.TradingRule{}, fmt.Errorf("%w: %s", exchange.ErrUnknownSymbol, symbol)
}

func (c *Client) Balances(ctx context.Context) (map[string]decimal.Decimal, error) {
	acct, err := c.client.NewGetAccountService().Do(ctx)
	if err != nil {
		return nil, mapError(err)
	}
	out := make(map[string]decimal.Decimal, len(acct.Balances))
	for _, b := range acct.Balances {
		free := parseDecimal(b.Free)
		if free.Sign() > 0 {
			out[b.Asset] = free
		}
	}
	return out, nil
}

func (c *Client) TradeHistory(ctx context.Context, symbol string, fromID int64) ([]exchange.Fill, error) {
	svc := c.client.NewListTradesService().Symbol(symbol).Limit(tradePageLimit)
	if fromID > 0 {
		svc = svc.FromID(fromID)
	}
	trades, err := svc.Do(ctx)
	if err != nil {
		// A pair never traded on this account comes back as an invalid
		// symbol; that is an empty history, not a failure.
		if errors.Is(mapError(err), exchange.ErrUnknownSymbol) {
			return nil, nil
		}
		return nil, mapError(err)
	}
	out := make([]exchange.Fill, 0, len(trades))
	for _, t := range trades {
		if t == nil {
			continue
		}
		out = append(out, exchange.Fill{
			TradeID:  t.ID,
			OrderID:  t.OrderID,
			Price:    parseDecimal(t.Price),
			Quantity: parseDecimal(t.Quantity),
			Fee:      parseDecimal(t.Commission),
			FeeAsset: t.CommissionAsset,
			Time:     time.UnixMilli(t.Time).UTC(),
			IsBuyer:  t.IsBuyer,
		})
	}
	return out, nil
}

func (c *Client) PlaceMarketOrder(ctx context.Context, req exchange.MarketOrderRequest) (exchange.OrderResult, error) {
	if req.Quantity.Sign() > 0 == (req.QuoteAmount.Sign() > 0) {
		return exchange.OrderResult{}, fmt.Errorf("market order for %s: exactly one of quantity or quote amount must be set", req.Symbol)
	}
	svc := c.client.NewCreateOrderService().
		Symbol(req.Symbol).
		Side(sideType(req.Side)).
		Type(binance.OrderTypeMarket).
		NewClientOrderID(newClientOrderID())
	if req.Quantity.Sign() > 0 {
		svc = svc.Quantity(quant.FormatAmount(req.Quantity))
	} else {
		svc = svc.QuoteOrderQty(quant.FormatAmount(req.QuoteAmount))
	}
	resp, err := svc.Do(ctx)
	if err != nil {
		return exchange.OrderResult{}, mapOrderError(req.Symbol, err)
	}
	return orderResult(resp), nil
}

func (c *Client) PlaceLimitOrder(ctx context.Context, req exchange.LimitOrderRequest) (exchange.OrderResult, error) {
	resp, err := c.client.NewCreateOrderService().
		Symbol(req.Symbol).
		Side(sideType(req.Side)).
		Type(binance.OrderTypeLimit).
		TimeInForce(binance.TimeInForceTypeGTC).
		Quantity(quant.FormatAmount(req.Quantity)).
		Price(quant.FormatAmount(req.Price)).
		NewClientOrderID(newClientOrderID()).
		Do(ctx)
	if err != nil {
		return exchange.OrderResult{}, mapOrderError(req.Symbol, err)
	}
	return orderResult(resp), nil
}

func (c *Client) CancelOrder(ctx context.Context, symbol string, orderID int64) error {
	_, err := c.client.NewCancelOrderService().Symbol(symbol).OrderID(orderID).Do(ctx)
	if err != nil {
		return mapOrderError(symbol, err)
	}
	return nil
}

func (c *Client) BestBid(ctx context.Context, symbol string) (decimal.Decimal, error) {
	depth, err := c.client.NewDepthService().Symbol(symbol).Limit(5).Do(ctx)
	if err != nil {
		return decimal.Zero, mapError(err)
	}
	if len(depth.Bids) == 0 {
		return decimal.Zero, fmt.Errorf("empty order book for %s", symbol)
	}
	return parseDecimal(depth.Bids[0].Price), nil
}

// TickerPrice returns the last traded price for a symbol. Used by the price
// feed job; not part of the Gateway contract.
func (c *Client) TickerPrice(ctx context.Context, symbol string) (decimal.Decimal, error) {
	prices, err := c.client.NewListPricesService().Symbol(symbol).Do(ctx)
	if err != nil {
		return decimal.Zero, mapError(err)
	}
	if len(prices) == 0 || prices[0] == nil {
		return decimal.Zero, fmt.Errorf("%w: %s", exchange.ErrUnknownSymbol, symbol)
	}
	return parseDecimal(prices[0].Price), nil
}

// Klines fetches candles for indicator computation.
func (c *Client) Klines(ctx context.Context, symbol, interval string, limit int) ([]exchange.Candle, error) {
	kls, err := c.client.NewKlinesService().Symbol(symbol).Interval(interval).Limit(limit).Do(ctx)
	if err != nil {
		return nil, mapError(err)
	}
	out := make([]exchange.Candle, 0, len(kls))
	for _, k := range kls {
		if k == nil {
			continue
		}
		out = append(out, exchange.Candle{
			OpenTime: time.UnixMilli(k.OpenTime).UTC(),
			High:     parseFloat(k.High),
			Low:      parseFloat(k.Low),
			Close:    parseFloat(k.Close),
			Volume:   parseFloat(k.Volume),
		})
	}
	return out, nil
}

func orderResult(resp *binance.CreateOrderResponse) exchange.OrderResult {
	res := exchange.OrderResult{
		OrderID:       resp.OrderID,
		ClientOrderID: resp.ClientOrderID,
		Symbol:        resp.Symbol,
		Side:          exchange.Side(resp.Side),
		TransactTime:  time.UnixMilli(resp.TransactTime).UTC(),
	}
	for _, f := range resp.Fills {
		if f == nil {
			continue
		}
		res.Fills = append(res.Fills, exchange.Fill{
			TradeID:  f.TradeID,
			OrderID:  resp.OrderID,
			Price:    parseDecimal(f.Price),
			Quantity: parseDecimal(f.Quantity),
			Fee:      parseDecimal(f.Commission),
			FeeAsset: f.CommissionAsset,
			Time:     res.TransactTime,
			IsBuyer:  res.Side == exchange.SideBuy,
		})
	}
	return res
}

func sideType(s exchange.Side) binance.SideType {
	if s == exchange.SideSell {
		return binance.SideTypeSell
	}
	return binance.SideTypeBuy
}

func newClientOrderID() string {
	return "ct-" + uuid.NewString()[:20]
}

func parseDecimal(s string) decimal.Decimal {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return decimal.Zero
	}
	return d
}

func parseFloat(s string) float64 {
	f, _ := parseDecimal(s).Float64()
	return f
}

// Binance error codes that indicate the symbol itself is invalid.
const codeInvalidSymbol = -1121

// Codes that mean the order violated exchange rules not caught locally;
// these are terminal and point at a sizing bug upstream.
var rejectionCodes = map[int64]bool{
	-1013: true, // filter failure (LOT_SIZE, MIN_NOTIONAL, PRICE_FILTER)
	-1111: true, // precision over the maximum for this asset
	-2010: true, // new order rejected (insufficient balance etc.)
}

func mapError(err error) error {
	if err == nil {
		return nil
	}
	var apiErr *common.APIError
	if errors.As(err, &apiErr) {
		if apiErr.Code == codeInvalidSymbol {
			return fmt.Errorf("%w: %s", exchange.ErrUnknownSymbol, apiErr.Message)
		}
		if apiErr.Code == -1003 || apiErr.Code == -1001 {
			return fmt.Errorf("%w: %s", exchange.ErrUnavailable, apiErr.Message)
		}
		return err
	}
	// Anything that never produced an API error is transport-level.
	return fmt.Errorf("%w: %v", exchange.ErrUnavailable, err)
}

func mapOrderError(symbol string, err error) error {
	var apiErr *common.APIError
	if errors.As(err, &apiErr) && rejectionCodes[apiErr.Code] {
		return &exchange.RejectionError{Symbol: symbol, Reason: apiErr.Message}
	}
	return mapError(err)
}
