package portfolio

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/netoalmanca/crypto-trader/internal/exchange"
	"github.com/netoalmanca/crypto-trader/internal/store/gormstore"
	storemodel "github.com/netoalmanca/crypto-trader/internal/store/model"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

type fakeGateway struct {
	balances    map[string]decimal.Decimal
	balancesErr error
	fills       map[string][]exchange.Fill
}

func (f *fakeGateway) TradingRules(ctx context.Context, symbol string) (exchange.TradingRule, error) {
	return exchange.TradingRule{Symbol: symbol}, nil
}

func (f *fakeGateway) Balances(ctx context.Context) (map[string]decimal.Decimal, error) {
	if f.balancesErr != nil {
		return nil, f.balancesErr
	}
	return f.balances, nil
}

func (f *fakeGateway) TradeHistory(ctx context.Context, symbol string, fromID int64) ([]exchange.Fill, error) {
	var page []exchange.Fill
	for _, fill := range f.fills[symbol] {
		if fill.TradeID >= fromID {
			page = append(page, fill)
		}
	}
	return page, nil
}

func (f *fakeGateway) PlaceMarketOrder(ctx context.Context, req exchange.MarketOrderRequest) (exchange.OrderResult, error) {
	return exchange.OrderResult{}, errors.New("not implemented")
}

func (f *fakeGateway) PlaceLimitOrder(ctx context.Context, req exchange.LimitOrderRequest) (exchange.OrderResult, error) {
	return exchange.OrderResult{}, errors.New("not implemented")
}

func (f *fakeGateway) CancelOrder(ctx context.Context, symbol string, orderID int64) error {
	return nil
}

func (f *fakeGateway) BestBid(ctx context.Context, symbol string) (decimal.Decimal, error) {
	return decimal.Zero, errors.New("not implemented")
}

func newStore(t *testing.T) (*gormstore.Store, storemodel.AccountModel) {
	t.Helper()
	st, err := gormstore.NewMemory()
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	ctx := context.Background()
	for _, a := range []storemodel.AssetModel{
		{Symbol: "BTC", Name: "Bitcoin", QuoteCurrency: "USDT", CurrentPrice: dec("25000")},
		{Symbol: "ETH", Name: "Ethereum", QuoteCurrency: "USDT", CurrentPrice: dec("1800")},
	} {
		require.NoError(t, st.UpsertAsset(ctx, &a))
	}
	acct := storemodel.AccountModel{Name: "test", QuoteCurrency: "USDT"}
	require.NoError(t, st.CreateAccount(ctx, &acct))
	return st, acct
}

func recordBuy(t *testing.T, st *gormstore.Store, accountID int64, symbol, qty, price string, tradeID string) {
	t.Helper()
	require.NoError(t, st.RecordTransaction(context.Background(), &storemodel.TransactionModel{
		AccountID:     accountID,
		AssetSymbol:   symbol,
		Side:          "BUY",
		Quantity:      dec(qty),
		PricePerUnit:  dec(price),
		TradeTimeUnix: time.Now().Unix(),
		ExternalID:    &tradeID,
	}))
}

func TestReconcileExchangeBalanceWins(t *testing.T) {
	st, acct := newStore(t)
	ctx := context.Background()

	// Ledger says 1 BTC was bought, but part of it was withdrawn: the
	// exchange only reports 0.4. The holding must show 0.4, with the cost
	// basis still derived from the recorded buy.
	recordBuy(t, st, acct.ID, "BTC", "1", "20000", "t1")
	gw := &fakeGateway{balances: map[string]decimal.Decimal{"BTC": dec("0.4")}}

	require.NoError(t, NewReconciler(st).Reconcile(ctx, acct.ID, gw))

	holding, err := st.HoldingFor(ctx, acct.ID, "BTC")
	require.NoError(t, err)
	require.NotNil(t, holding)
	assert.True(t, holding.Quantity.Equal(dec("0.4")), "quantity %s", holding.Quantity)
	assert.True(t, holding.AverageCost.Equal(dec("20000")))
}

func TestReconcileCostBasisFromBuyHistoryOnly(t *testing.T) {
	st, acct := newStore(t)
	ctx := context.Background()

	// Two buys at different prices plus a sell. The sell must not move the
	// average cost: (1*20000 + 1*30000) / 2 = 25000.
	recordBuy(t, st, acct.ID, "BTC", "1", "20000", "t1")
	recordBuy(t, st, acct.ID, "BTC", "1", "30000", "t2")
	sellID := "t3"
	require.NoError(t, st.RecordTransaction(ctx, &storemodel.TransactionModel{
		AccountID:    acct.ID,
		AssetSymbol:  "BTC",
		Side:         "SELL",
		Quantity:     dec("1.5"),
		PricePerUnit: dec("40000"),
		ExternalID:   &sellID,
	}))
	gw := &fakeGateway{balances: map[string]decimal.Decimal{"BTC": dec("0.5")}}

	require.NoError(t, NewReconciler(st).Reconcile(ctx, acct.ID, gw))

	holding, err := st.HoldingFor(ctx, acct.ID, "BTC")
	require.NoError(t, err)
	require.NotNil(t, holding)
	assert.True(t, holding.AverageCost.Equal(dec("25000")), "avg cost %s", holding.AverageCost)
}

func TestReconcileNoBuyHistoryYieldsZeroCost(t *testing.T) {
	st, acct := newStore(t)
	ctx := context.Background()

	// Deposited from an external wallet: balance exists, no buys recorded.
	gw := &fakeGateway{balances: map[string]decimal.Decimal{"ETH": dec("3")}}
	require.NoError(t, NewReconciler(st).Reconcile(ctx, acct.ID, gw))

	holding, err := st.HoldingFor(ctx, acct.ID, "ETH")
	require.NoError(t, err)
	require.NotNil(t, holding)
	assert.True(t, holding.Quantity.Equal(dec("3")))
	assert.True(t, holding.AverageCost.IsZero())
}

func TestReconcileDropsSoldOutPositions(t *testing.T) {
	st, acct := newStore(t)
	ctx := context.Background()

	require.NoError(t, st.ReplaceHoldings(ctx, acct.ID, []storemodel.HoldingModel{
		{AccountID: acct.ID, AssetSymbol: "BTC", Quantity: dec("1"), AverageCost: dec("20000")},
	}))
	// Exchange no longer reports any BTC.
	gw := &fakeGateway{balances: map[string]decimal.Decimal{}}
	require.NoError(t, NewReconciler(st).Reconcile(ctx, acct.ID, gw))

	holding, err := st.HoldingFor(ctx, acct.ID, "BTC")
	require.NoError(t, err)
	assert.Nil(t, holding, "a zero balance must remove the row entirely")
}

func TestReconcileUnreachableExchangeLeavesHoldings(t *testing.T) {
	st, acct := newStore(t)
	ctx := context.Background()

	require.NoError(t, st.ReplaceHoldings(ctx, acct.ID, []storemodel.HoldingModel{
		{AccountID: acct.ID, AssetSymbol: "BTC", Quantity: dec("1"), AverageCost: dec("20000")},
	}))
	gw := &fakeGateway{balancesErr: exchange.ErrUnavailable}

	err := NewReconciler(st).Reconcile(ctx, acct.ID, gw)
	require.ErrorIs(t, err, exchange.ErrUnavailable)

	holding, err := st.HoldingFor(ctx, acct.ID, "BTC")
	require.NoError(t, err)
	require.NotNil(t, holding, "failed reconciliation must not touch holdings")
	assert.True(t, holding.Quantity.Equal(dec("1")))
}

func TestSyncTradesIsIdempotent(t *testing.T) {
	st, acct := newStore(t)
	ctx := context.Background()

	gw := &fakeGateway{
		balances: map[string]decimal.Decimal{"BTC": dec("0.3")},
		fills: map[string][]exchange.Fill{
			"BTCUSDT": {
				{TradeID: 1, OrderID: 10, Price: dec("20000"), Quantity: dec("0.1"), IsBuyer: true, Time: time.Unix(1700000000, 0)},
				{TradeID: 2, OrderID: 11, Price: dec("21000"), Quantity: dec("0.2"), IsBuyer: true, Time: time.Unix(1700000100, 0)},
			},
		},
	}
	syncer := NewSyncer(st, NewReconciler(st))

	n, err := syncer.SyncTrades(ctx, acct.ID, gw)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	// Second run sees the same history again.
	_, err = syncer.SyncTrades(ctx, acct.ID, gw)
	require.NoError(t, err)

	txs, err := st.ListTransactions(ctx, acct.ID, 10)
	require.NoError(t, err)
	assert.Len(t, txs, 2, "re-synced fills must not duplicate")

	holding, err := st.HoldingFor(ctx, acct.ID, "BTC")
	require.NoError(t, err)
	require.NotNil(t, holding)
	assert.True(t, holding.Quantity.Equal(dec("0.3")))
}
