package executor

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/netoalmanca/crypto-trader/internal/exchange"
	"github.com/netoalmanca/crypto-trader/internal/portfolio"
	"github.com/netoalmanca/crypto-trader/internal/store/gormstore"
	storemodel "github.com/netoalmanca/crypto-trader/internal/store/model"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

// fakeGateway is a scripted exchange. It counts order placements so tests can
// assert that locally rejected intents never reach the network.
type fakeGateway struct {
	rules       exchange.TradingRule
	balances    map[string]decimal.Decimal
	balancesErr error
	bestBid     decimal.Decimal

	orderResult exchange.OrderResult
	orderErr    error

	marketCalls int
	limitCalls  int
	lastMarket  exchange.MarketOrderRequest
}

func (f *fakeGateway) TradingRules(ctx context.Context, symbol string) (exchange.TradingRule, error) {
	return f.rules, nil
}

func (f *fakeGateway) Balances(ctx context.Context) (map[string]decimal.Decimal, error) {
	if f.balancesErr != nil {
		return nil, f.balancesErr
	}
	out := make(map[string]decimal.Decimal, len(f.balances))
	for k, v := range f.balances {
		out[k] = v
	}
	return out, nil
}

func (f *fakeGateway) TradeHistory(ctx context.Context, symbol string, fromID int64) ([]exchange.Fill, error) {
	return nil, nil
}

func (f *fakeGateway) PlaceMarketOrder(ctx context.Context, req exchange.MarketOrderRequest) (exchange.OrderResult, error) {
	f.marketCalls++
	f.lastMarket = req
	if f.orderErr != nil {
		return exchange.OrderResult{}, f.orderErr
	}
	return f.orderResult, nil
}

func (f *fakeGateway) PlaceLimitOrder(ctx context.Context, req exchange.LimitOrderRequest) (exchange.OrderResult, error) {
	f.limitCalls++
	if f.orderErr != nil {
		return exchange.OrderResult{}, f.orderErr
	}
	return f.orderResult, nil
}

func (f *fakeGateway) CancelOrder(ctx context.Context, symbol string, orderID int64) error {
	return nil
}

func (f *fakeGateway) BestBid(ctx context.Context, symbol string) (decimal.Decimal, error) {
	return f.bestBid, nil
}

type testEnv struct {
	store *gormstore.Store
	gw    *fakeGateway
	exec  *Executor
	acct  storemodel.AccountModel
	cfg   ExecutionConfig
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	st, err := gormstore.NewMemory()
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	ctx := context.Background()
	require.NoError(t, st.UpsertAsset(ctx, &storemodel.AssetModel{
		Symbol:        "BTC",
		Name:          "Bitcoin",
		QuoteCurrency: "USDT",
		CurrentPrice:  dec("25000"),
	}))
	acct := storemodel.AccountModel{
		Name:                "test",
		QuoteCurrency:       "USDT",
		BuyRiskFraction:     dec("0.1"),
		SellRiskFraction:    dec("0.5"),
		ConfidenceThreshold: dec("0.7"),
	}
	require.NoError(t, st.CreateAccount(ctx, &acct))

	gw := &fakeGateway{
		rules: exchange.TradingRule{
			Symbol:      "BTCUSDT",
			StepSize:    dec("0.001"),
			MinQuantity: dec("0.001"),
			TickSize:    dec("0.01"),
			MinNotional: dec("10"),
		},
		balances: map[string]decimal.Decimal{"USDT": dec("1000")},
		bestBid:  dec("25000"),
	}
	return &testEnv{
		store: st,
		gw:    gw,
		exec:  New(st, portfolio.NewReconciler(st), nil, gw),
		acct:  acct,
		cfg:   ConfigFor(acct),
	}
}

func filledOrder(qty, price string) exchange.OrderResult {
	return exchange.OrderResult{
		OrderID:      42,
		Symbol:       "BTCUSDT",
		Side:         exchange.SideBuy,
		TransactTime: time.Now().UTC(),
		Fills: []exchange.Fill{{
			TradeID:  1001,
			OrderID:  42,
			Price:    dec(price),
			Quantity: dec(qty),
			Fee:      dec("0.01"),
			FeeAsset: "USDT",
			IsBuyer:  true,
		}},
	}
}

func TestExecuteBuyQuantityFloorsAndRecords(t *testing.T) {
	env := newTestEnv(t)
	env.gw.orderResult = filledOrder("0.005", "25000")
	env.gw.balances["BTC"] = dec("0.005")

	res, err := env.exec.Execute(context.Background(), env.acct, env.cfg,
		QuantityIntent(exchange.SideBuy, "BTC", dec("0.0054321")))
	require.NoError(t, err)
	assert.Equal(t, StateReconciled, res.State)
	assert.Equal(t, 1, env.gw.marketCalls)
	assert.True(t, env.gw.lastMarket.Quantity.Equal(dec("0.005")),
		"submitted quantity %s should be floored to the lot step", env.gw.lastMarket.Quantity)

	txs, err := env.store.ListTransactions(context.Background(), env.acct.ID, 10)
	require.NoError(t, err)
	require.Len(t, txs, 1)
	assert.True(t, txs[0].TotalValue.Equal(dec("125")), "total %s", txs[0].TotalValue)

	holding, err := env.store.HoldingFor(context.Background(), env.acct.ID, "BTC")
	require.NoError(t, err)
	require.NotNil(t, holding)
	assert.True(t, holding.Quantity.Equal(dec("0.005")))
	assert.True(t, holding.AverageCost.Equal(dec("25000")))
}

func TestExecuteRejectsDustWithoutSubmitting(t *testing.T) {
	env := newTestEnv(t)

	res, err := env.exec.Execute(context.Background(), env.acct, env.cfg,
		QuantityIntent(exchange.SideBuy, "BTC", dec("0.0004")))
	require.ErrorIs(t, err, ErrBelowMinimum)
	assert.Equal(t, StateRejected, res.State)
	assert.Zero(t, env.gw.marketCalls, "rejected intents must not reach the exchange")
	assert.Zero(t, env.gw.limitCalls)

	txs, err := env.store.ListTransactions(context.Background(), env.acct.ID, 10)
	require.NoError(t, err)
	assert.Empty(t, txs)
}

func TestExecuteRejectsBelowMinNotional(t *testing.T) {
	env := newTestEnv(t)

	res, err := env.exec.Execute(context.Background(), env.acct, env.cfg,
		QuoteAmountIntent(exchange.SideBuy, "BTC", dec("5")))
	require.ErrorIs(t, err, ErrBelowMinNotional)
	assert.Equal(t, StateRejected, res.State)
	assert.Zero(t, env.gw.marketCalls)
}

func TestExecuteSellRequiresSufficientHoldings(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.exec.Execute(context.Background(), env.acct, env.cfg,
		QuantityIntent(exchange.SideSell, "BTC", dec("0.01")))
	require.ErrorIs(t, err, ErrInsufficientBalance)
	assert.Zero(t, env.gw.marketCalls)
}

func TestExecuteSellByQuoteAmountEstimatesQuantity(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	require.NoError(t, env.store.ReplaceHoldings(ctx, env.acct.ID, []storemodel.HoldingModel{{
		AccountID:   env.acct.ID,
		AssetSymbol: "BTC",
		Quantity:    dec("1"),
		AverageCost: dec("20000"),
	}}))
	sellFill := filledOrder("0.002", "25000")
	sellFill.Side = exchange.SideSell
	env.gw.orderResult = sellFill
	env.gw.balances["BTC"] = dec("0.998")

	res, err := env.exec.Execute(ctx, env.acct, env.cfg,
		QuoteAmountIntent(exchange.SideSell, "BTC", dec("50")))
	require.NoError(t, err)
	assert.True(t, res.EstimatedQuantity, "quote-denominated sells are estimates")
	// 50 USDT at bid 25000 is 0.002 BTC.
	assert.True(t, env.gw.lastMarket.Quantity.Equal(dec("0.002")),
		"got %s", env.gw.lastMarket.Quantity)
}

func TestExecuteSellByQuoteAmountRejectsWhenUnderHeld(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	require.NoError(t, env.store.ReplaceHoldings(ctx, env.acct.ID, []storemodel.HoldingModel{{
		AccountID:   env.acct.ID,
		AssetSymbol: "BTC",
		Quantity:    dec("0.001"),
		AverageCost: dec("20000"),
	}}))
	env.gw.bestBid = dec("50000")

	// 100 USDT at bid 50000 needs 0.002 BTC, twice what is held.
	_, err := env.exec.Execute(ctx, env.acct, env.cfg,
		QuoteAmountIntent(exchange.SideSell, "BTC", dec("100")))
	require.ErrorIs(t, err, ErrInsufficientBalance)
	assert.Zero(t, env.gw.marketCalls, "no order may be placed for an unheld quantity")
}

func TestExecuteRecordsOneLedgerEntryPerFill(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.gw.orderResult = exchange.OrderResult{
		OrderID:      42,
		Symbol:       "BTCUSDT",
		Side:         exchange.SideBuy,
		TransactTime: time.Now().UTC(),
		Fills: []exchange.Fill{
			{TradeID: 2001, Price: dec("50000"), Quantity: dec("0.01"), FeeAsset: "USDT", IsBuyer: true},
			{TradeID: 2002, Price: dec("50010"), Quantity: dec("0.02"), FeeAsset: "USDT", IsBuyer: true},
		},
	}
	env.gw.balances["BTC"] = dec("0.03")

	res, err := env.exec.Execute(ctx, env.acct, env.cfg,
		QuantityIntent(exchange.SideBuy, "BTC", dec("0.03")))
	require.NoError(t, err)
	assert.Equal(t, 2, res.FillCount)
	assert.True(t, res.ExecutedQuantity.Equal(dec("0.03")))

	txs, err := env.store.ListTransactions(ctx, env.acct.ID, 10)
	require.NoError(t, err)
	require.Len(t, txs, 2, "one entry per trade id, never a blended row")
	for _, tx := range txs {
		assert.True(t, tx.TotalValue.Equal(tx.Quantity.Mul(tx.PricePerUnit)),
			"entry %s: total %s != qty*price", *tx.ExternalID, tx.TotalValue)
	}
}

func TestExecuteUnfilledOrderRecordsNothing(t *testing.T) {
	env := newTestEnv(t)
	env.gw.orderResult = exchange.OrderResult{OrderID: 7, Symbol: "BTCUSDT", Side: exchange.SideBuy}

	sig := storemodel.TradeSignalModel{
		AccountID:   env.acct.ID,
		AssetSymbol: "BTC",
		Decision:    "BUY",
		Confidence:  dec("0.9"),
	}
	require.NoError(t, env.store.CreateSignal(context.Background(), &sig))

	res, err := env.exec.ExecuteSignal(context.Background(), env.acct, env.cfg, sig)
	require.NoError(t, err)
	assert.True(t, res.Unfilled)
	assert.Equal(t, StateSubmitted, res.State)

	txs, err := env.store.ListTransactions(context.Background(), env.acct.ID, 10)
	require.NoError(t, err)
	assert.Empty(t, txs)

	// The signal stays pending so a later sweep can pick up the fills.
	got, err := env.store.Signal(context.Background(), sig.ID)
	require.NoError(t, err)
	assert.False(t, got.Executed)
}

func TestExecuteSignalSkipsStaleAndLowConfidence(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.exec.ExecuteSignal(ctx, env.acct, env.cfg, storemodel.TradeSignalModel{
		AssetSymbol: "BTC", Decision: "BUY", Confidence: dec("0.9"), Executed: true,
	})
	require.ErrorIs(t, err, ErrSignalStale)

	_, err = env.exec.ExecuteSignal(ctx, env.acct, env.cfg, storemodel.TradeSignalModel{
		AssetSymbol: "BTC", Decision: "BUY", Confidence: dec("0.5"),
	})
	require.ErrorIs(t, err, ErrLowConfidence)

	res, err := env.exec.ExecuteSignal(ctx, env.acct, env.cfg, storemodel.TradeSignalModel{
		AssetSymbol: "BTC", Decision: "HOLD", Confidence: dec("0.9"),
	})
	require.NoError(t, err)
	assert.Nil(t, res)
	assert.Zero(t, env.gw.marketCalls)
}

func TestExecuteSignalMarksExecutedAndIsIdempotent(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.gw.orderResult = filledOrder("0.004", "25000")
	env.gw.balances["BTC"] = dec("0.004")

	sig := storemodel.TradeSignalModel{
		AccountID:   env.acct.ID,
		AssetSymbol: "BTC",
		Decision:    "BUY",
		Confidence:  dec("0.9"),
	}
	require.NoError(t, env.store.CreateSignal(ctx, &sig))

	res, err := env.exec.ExecuteSignal(ctx, env.acct, env.cfg, sig)
	require.NoError(t, err)
	assert.Equal(t, StateReconciled, res.State)

	got, err := env.store.Signal(ctx, sig.ID)
	require.NoError(t, err)
	assert.True(t, got.Executed)

	_, err = env.exec.ExecuteSignal(ctx, env.acct, env.cfg, *got)
	require.ErrorIs(t, err, ErrSignalStale)
	assert.Equal(t, 1, env.gw.marketCalls, "a processed signal must not trade twice")
}

func TestExecuteSignalReconcileFailureStillConsumesSignal(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	require.NoError(t, env.store.ReplaceHoldings(ctx, env.acct.ID, []storemodel.HoldingModel{{
		AccountID:   env.acct.ID,
		AssetSymbol: "BTC",
		Quantity:    dec("0.01"),
		AverageCost: dec("20000"),
	}}))
	env.gw.orderResult = filledOrder("0.005", "25000")
	env.gw.balancesErr = exchange.ErrUnavailable

	sig := storemodel.TradeSignalModel{
		AccountID:   env.acct.ID,
		AssetSymbol: "BTC",
		Decision:    "SELL",
		Confidence:  dec("0.9"),
	}
	require.NoError(t, env.store.CreateSignal(ctx, &sig))

	res, err := env.exec.ExecuteSignal(ctx, env.acct, env.cfg, sig)
	require.ErrorIs(t, err, exchange.ErrUnavailable)
	assert.Equal(t, StateRecorded, res.State)
	assert.True(t, res.Submitted())
	assert.Equal(t, 1, env.gw.marketCalls)

	got, err := env.store.Signal(ctx, sig.ID)
	require.NoError(t, err)
	assert.True(t, got.Executed, "recorded fills consume the signal even when reconcile fails")

	_, err = env.exec.ExecuteSignal(ctx, env.acct, env.cfg, *got)
	require.ErrorIs(t, err, ErrSignalStale)
	assert.Equal(t, 1, env.gw.marketCalls)
}

func TestRecordFillsIsIdempotentByTradeID(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.gw.orderResult = filledOrder("0.005", "25000")
	env.gw.balances["BTC"] = dec("0.005")

	intent := QuantityIntent(exchange.SideBuy, "BTC", dec("0.005"))
	_, err := env.exec.Execute(ctx, env.acct, env.cfg, intent)
	require.NoError(t, err)
	// Same order again: the exchange replays the same trade id.
	_, err = env.exec.Execute(ctx, env.acct, env.cfg, intent)
	require.NoError(t, err)

	txs, err := env.store.ListTransactions(ctx, env.acct.ID, 10)
	require.NoError(t, err)
	assert.Len(t, txs, 1, "replayed fills must update in place, not duplicate")
}
