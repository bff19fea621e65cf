// Package executor turns an abstract trade intent into exactly one
// committed ledger outcome: resolve against exchange rules and account
// state, validate locally, submit, record each fill once, reconcile.
package executor

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/shopspring/decimal"

	"github.com/netoalmanca/crypto-trader/internal/exchange"
	"github.com/netoalmanca/crypto-trader/internal/logger"
	"github.com/netoalmanca/crypto-trader/internal/portfolio"
	"github.com/netoalmanca/crypto-trader/internal/quant"
	"github.com/netoalmanca/crypto-trader/internal/store/auditlog"
	"github.com/netoalmanca/crypto-trader/internal/store/gormstore"
	storemodel "github.com/netoalmanca/crypto-trader/internal/store/model"
)

// Validation failures caught before any order reaches the network. They are
// terminal for the request and never retried.
var (
	ErrBelowMinimum        = errors.New("below exchange minimum")
	ErrBelowMinNotional    = errors.New("notional below exchange minimum")
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrSignalStale         = errors.New("signal already executed")
	ErrLowConfidence       = errors.New("confidence below account threshold")
)

// Result reports where the state machine ended and what was executed.
type Result struct {
	State            State
	OrderID          int64
	FillCount        int
	ExecutedQuantity decimal.Decimal
	AveragePrice     decimal.Decimal

	// Unfilled is set when the exchange accepted the order but returned no
	// fills; nothing was recorded and the order may fill later.
	Unfilled bool

	// EstimatedQuantity is set for sell-to-receive-quote intents: the
	// quantity was derived from a point-in-time best bid and realized
	// proceeds may differ from the requested amount.
	EstimatedQuantity bool
}

// Submitted reports whether an order reached the exchange. Re-running an
// execution past this point places a second order.
func (r *Result) Submitted() bool {
	return r.State != StateRejected && r.State >= StateSubmitted
}

type Executor struct {
	store *gormstore.Store
	recon *portfolio.Reconciler
	audit *auditlog.Store
	gw    exchange.Gateway
}

// New builds an executor bound to one account's gateway. audit may be nil.
func New(store *gormstore.Store, recon *portfolio.Reconciler, audit *auditlog.Store, gw exchange.Gateway) *Executor {
	return &Executor{store: store, recon: recon, audit: audit, gw: gw}
}

// Execute runs the full state machine for one intent. The returned Result
// is non-nil whenever a terminal state was reached, including rejections.
func (e *Executor) Execute(ctx context.Context, acct storemodel.AccountModel, cfg ExecutionConfig, intent TradeIntent) (*Result, error) {
	res := &Result{State: StateRequested}
	if err := intent.validate(); err != nil {
		res.State = StateRejected
		return res, err
	}
	asset, err := e.store.Asset(ctx, intent.AssetSymbol)
	if err != nil {
		res.State = StateRejected
		return res, fmt.Errorf("resolve asset %s: %w", intent.AssetSymbol, err)
	}
	symbol := asset.Pair()

	rules, err := e.gw.TradingRules(ctx, symbol)
	if err != nil {
		res.State = StateRejected
		e.writeAudit(ctx, acct.ID, symbol, intent, res, err)
		return res, err
	}
	res.State = StateRulesFetched

	order, err := e.size(ctx, acct, cfg, intent, symbol, rules, res)
	if err != nil {
		res.State = StateRejected
		e.writeAudit(ctx, acct.ID, symbol, intent, res, err)
		return res, err
	}
	res.State = StateSized

	result, err := e.submit(ctx, intent, order)
	if err != nil {
		res.State = StateRejected
		e.writeAudit(ctx, acct.ID, symbol, intent, res, err)
		return res, err
	}
	res.State = StateSubmitted
	res.OrderID = result.OrderID

	if len(result.Fills) == 0 {
		// Accepted but unfilled: legitimate for limit orders and possible
		// for market orders under the testnet matching engine. Nothing to
		// record; a later sync picks the fills up by trade id.
		res.Unfilled = true
		logger.Warnf("executor: order %d on %s accepted with no fills yet", result.OrderID, symbol)
		e.writeAudit(ctx, acct.ID, symbol, intent, res, nil)
		return res, nil
	}
	res.State = StateFilled

	if err := e.recordFills(ctx, acct.ID, asset.Symbol, intent, result, res); err != nil {
		// Fills partially recorded; the ledger upsert key makes the next
		// sync or retry converge instead of double-counting.
		e.writeAudit(ctx, acct.ID, symbol, intent, res, err)
		return res, err
	}
	res.State = StateRecorded

	// The signal is consumed the moment its fills are in the ledger. Marking
	// it only after reconcile would leave it pending across a transient
	// reconcile failure, and the next sweep would place the order again.
	if intent.SignalID != nil {
		if err := e.store.MarkSignalExecuted(ctx, *intent.SignalID); err != nil {
			e.writeAudit(ctx, acct.ID, symbol, intent, res, err)
			return res, fmt.Errorf("mark signal %d executed: %w", *intent.SignalID, err)
		}
	}

	if err := e.recon.Reconcile(ctx, acct.ID, e.gw); err != nil {
		e.writeAudit(ctx, acct.ID, symbol, intent, res, err)
		return res, err
	}
	res.State = StateReconciled
	e.writeAudit(ctx, acct.ID, symbol, intent, res, nil)
	logger.Infof("executor: %s %s qty=%s avg=%s fills=%d account=%d",
		intent.Side, symbol, res.ExecutedQuantity, res.AveragePrice, res.FillCount, acct.ID)
	return res, nil
}

// ExecuteSignal acts on one oracle signal using the account's risk sizing.
// Already-executed signals and signals under the account's confidence
// threshold are skipped, which keeps signal processing idempotent.
func (e *Executor) ExecuteSignal(ctx context.Context, acct storemodel.AccountModel, cfg ExecutionConfig, sig storemodel.TradeSignalModel) (*Result, error) {
	if sig.Executed {
		return nil, ErrSignalStale
	}
	if sig.Confidence.LessThan(cfg.ConfidenceThreshold) {
		return nil, ErrLowConfidence
	}
	var side exchange.Side
	switch sig.Decision {
	case "BUY":
		side = exchange.SideBuy
	case "SELL":
		side = exchange.SideSell
	default:
		// HOLD carries no trade.
		return nil, nil
	}
	intent := RiskFractionIntent(side, sig.AssetSymbol)
	intent.SignalID = &sig.ID
	return e.Execute(ctx, acct, cfg, intent)
}

// sizedOrder is an intent resolved into concrete exchange parameters.
type sizedOrder struct {
	symbol      string
	side        exchange.Side
	quantity    decimal.Decimal
	quoteAmount decimal.Decimal
	limitPrice  decimal.Decimal
}

func (e *Executor) size(ctx context.Context, acct storemodel.AccountModel, cfg ExecutionConfig, intent TradeIntent, symbol string, rules exchange.TradingRule, res *Result) (sizedOrder, error) {
	order := sizedOrder{symbol: symbol, side: intent.Side}

	switch {
	case intent.Side == exchange.SideBuy && intent.Kind == IntentQuantity:
		qty, err := e.quantize(intent.Amount, rules)
		if err != nil {
			return order, err
		}
		order.quantity = qty

	case intent.Side == exchange.SideBuy && intent.Kind == IntentQuoteAmount:
		// Quote-denominated buys are sized by the exchange; only the
		// notional floor is checked locally.
		if rules.MinNotional.Sign() > 0 && intent.Amount.LessThan(rules.MinNotional) {
			return order, fmt.Errorf("%w: notional %s < %s on %s", ErrBelowMinNotional, intent.Amount, rules.MinNotional, symbol)
		}
		order.quoteAmount = intent.Amount

	case intent.Side == exchange.SideBuy && intent.Kind == IntentRiskFraction:
		balances, err := e.gw.Balances(ctx)
		if err != nil {
			return order, err
		}
		free := balances[cfg.QuoteCurrency]
		amount := free.Mul(cfg.BuyRiskFraction)
		if rules.MinNotional.Sign() > 0 && amount.LessThan(rules.MinNotional) {
			return order, fmt.Errorf("%w: risk-sized notional %s < %s on %s", ErrBelowMinNotional, amount, rules.MinNotional, symbol)
		}
		order.quoteAmount = amount.Truncate(8)

	case intent.Side == exchange.SideSell:
		qty, err := e.resolveSellQuantity(ctx, acct, cfg, intent, symbol, res)
		if err != nil {
			return order, err
		}
		qty, err = e.quantize(qty, rules)
		if err != nil {
			return order, err
		}
		order.quantity = qty

	default:
		return order, fmt.Errorf("unsupported intent %s/%s", intent.Side, intent.Kind)
	}

	order.limitPrice = intent.LimitPrice
	if order.limitPrice.Sign() > 0 {
		order.limitPrice = quant.QuantizePrice(order.limitPrice, rules.TickSize)
		if order.quantity.Sign() <= 0 {
			return order, fmt.Errorf("limit orders must be quantity-denominated on %s", symbol)
		}
	}
	return order, nil
}

// resolveSellQuantity turns a sell intent into a target base quantity and
// verifies the account actually holds it before anything hits the network.
func (e *Executor) resolveSellQuantity(ctx context.Context, acct storemodel.AccountModel, cfg ExecutionConfig, intent TradeIntent, symbol string, res *Result) (decimal.Decimal, error) {
	holding, err := e.store.HoldingFor(ctx, acct.ID, intent.AssetSymbol)
	if err != nil {
		return decimal.Zero, err
	}
	held := decimal.Zero
	if holding != nil {
		held = holding.Quantity
	}

	var target decimal.Decimal
	switch intent.Kind {
	case IntentQuantity:
		target = intent.Amount
	case IntentQuoteAmount:
		// Estimate from the current best bid. Realized proceeds can
		// differ from the requested amount on a moving market; the
		// result flags this instead of hiding it.
		bid, err := e.gw.BestBid(ctx, symbol)
		if err != nil {
			return decimal.Zero, err
		}
		if bid.Sign() <= 0 {
			return decimal.Zero, fmt.Errorf("no usable bid for %s", symbol)
		}
		target = intent.Amount.DivRound(bid, 8)
		res.EstimatedQuantity = true
	case IntentRiskFraction:
		target = held.Mul(cfg.SellRiskFraction)
	}

	if target.Sign() <= 0 {
		return decimal.Zero, fmt.Errorf("%w: resolved sell quantity is zero on %s", ErrBelowMinimum, symbol)
	}
	if held.LessThan(target) {
		return decimal.Zero, fmt.Errorf("%w: hold %s %s, need %s", ErrInsufficientBalance, held, intent.AssetSymbol, target)
	}
	return target, nil
}

func (e *Executor) quantize(raw decimal.Decimal, rules exchange.TradingRule) (decimal.Decimal, error) {
	qty := quant.QuantizeQuantity(raw, rules.StepSize)
	if qty.Sign() <= 0 {
		return decimal.Zero, fmt.Errorf("%w: quantity %s floors to zero with step %s", ErrBelowMinimum, raw, rules.StepSize)
	}
	if rules.MinQuantity.Sign() > 0 && qty.LessThan(rules.MinQuantity) {
		return decimal.Zero, fmt.Errorf("%w: quantity %s < %s", ErrBelowMinimum, qty, rules.MinQuantity)
	}
	return qty, nil
}

func (e *Executor) submit(ctx context.Context, intent TradeIntent, order sizedOrder) (exchange.OrderResult, error) {
	if order.limitPrice.Sign() > 0 {
		return e.gw.PlaceLimitOrder(ctx, exchange.LimitOrderRequest{
			Symbol:   order.symbol,
			Side:     order.side,
			Quantity: order.quantity,
			Price:    order.limitPrice,
		})
	}
	return e.gw.PlaceMarketOrder(ctx, exchange.MarketOrderRequest{
		Symbol:      order.symbol,
		Side:        order.side,
		Quantity:    order.quantity,
		QuoteAmount: order.quoteAmount,
	})
}

// recordFills writes one ledger entry per fill, keyed by the exchange trade
// id. Recording the same fill twice updates in place rather than inserting.
func (e *Executor) recordFills(ctx context.Context, accountID int64, assetSymbol string, intent TradeIntent, result exchange.OrderResult, res *Result) error {
	totalQty := decimal.Zero
	totalQuote := decimal.Zero
	for _, fill := range result.Fills {
		tradeID := strconv.FormatInt(fill.TradeID, 10)
		tx := storemodel.TransactionModel{
			AccountID:     accountID,
			AssetSymbol:   assetSymbol,
			Side:          string(result.Side),
			Quantity:      fill.Quantity,
			PricePerUnit:  fill.Price,
			Fees:          fill.Fee,
			FeeAsset:      fill.FeeAsset,
			TradeTimeUnix: result.TransactTime.Unix(),
			ExternalID:    &tradeID,
			OrderID:       strconv.FormatInt(result.OrderID, 10),
			SignalID:      intent.SignalID,
		}
		if err := e.store.RecordTransaction(ctx, &tx); err != nil {
			return fmt.Errorf("record fill %s: %w", tradeID, err)
		}
		res.FillCount++
		totalQty = totalQty.Add(fill.Quantity)
		totalQuote = totalQuote.Add(fill.Quantity.Mul(fill.Price))
	}
	res.ExecutedQuantity = totalQty
	if totalQty.Sign() > 0 {
		res.AveragePrice = totalQuote.DivRound(totalQty, 8)
	}
	return nil
}

func (e *Executor) writeAudit(ctx context.Context, accountID int64, symbol string, intent TradeIntent, res *Result, cause error) {
	if e.audit == nil {
		return
	}
	detail := ""
	if cause != nil {
		detail = cause.Error()
	}
	orderID := ""
	if res.OrderID != 0 {
		orderID = strconv.FormatInt(res.OrderID, 10)
	}
	entry := auditlog.Entry{
		AccountID: accountID,
		Symbol:    symbol,
		Side:      string(intent.Side),
		Intent:    intent.Kind.String(),
		State:     res.State.String(),
		OrderID:   orderID,
		Detail:    detail,
	}
	if err := e.audit.Append(ctx, entry); err != nil {
		logger.Warnf("executor: audit append failed: %v", err)
	}
}
