package portfolio

import (
	"context"
	"fmt"
	"strconv"

	"github.com/netoalmanca/crypto-trader/internal/exchange"
	"github.com/netoalmanca/crypto-trader/internal/logger"
	"github.com/netoalmanca/crypto-trader/internal/store/gormstore"
	storemodel "github.com/netoalmanca/crypto-trader/internal/store/model"
)

// Syncer pulls the account's fill history from the exchange into the
// ledger. Re-running it is safe: entries are keyed by exchange trade id, so
// already-seen fills update in place instead of duplicating.
type Syncer struct {
	store      *gormstore.Store
	reconciler *Reconciler
}

func NewSyncer(store *gormstore.Store, reconciler *Reconciler) *Syncer {
	return &Syncer{store: store, reconciler: reconciler}
}

// SyncTrades ingests the full trade history for every tracked asset, then
// reconciles holdings. Returns the number of fills ingested or refreshed.
func (s *Syncer) SyncTrades(ctx context.Context, accountID int64, gw exchange.Gateway) (int, error) {
	assets, err := s.store.ListAssets(ctx)
	if err != nil {
		return 0, fmt.Errorf("sync account %d: %w", accountID, err)
	}

	total := 0
	for _, asset := range assets {
		n, err := s.syncSymbol(ctx, accountID, asset, gw)
		if err != nil {
			return total, fmt.Errorf("sync account %d symbol %s: %w", accountID, asset.Pair(), err)
		}
		total += n
	}

	if total > 0 {
		if err := s.reconciler.Reconcile(ctx, accountID, gw); err != nil {
			return total, err
		}
	}
	logger.Infof("portfolio: synced account=%d fills=%d", accountID, total)
	return total, nil
}

func (s *Syncer) syncSymbol(ctx context.Context, accountID int64, asset storemodel.AssetModel, gw exchange.Gateway) (int, error) {
	fills, err := exchange.TradeHistoryAll(ctx, gw, asset.Pair())
	if err != nil {
		return 0, err
	}
	count := 0
	for _, fill := range fills {
		tradeID := strconv.FormatInt(fill.TradeID, 10)
		side := "SELL"
		if fill.IsBuyer {
			side = "BUY"
		}
		tx := storemodel.TransactionModel{
			AccountID:     accountID,
			AssetSymbol:   asset.Symbol,
			Side:          side,
			Quantity:      fill.Quantity,
			PricePerUnit:  fill.Price,
			Fees:          fill.Fee,
			FeeAsset:      fill.FeeAsset,
			TradeTimeUnix: fill.Time.Unix(),
			ExternalID:    &tradeID,
			OrderID:       strconv.FormatInt(fill.OrderID, 10),
			Notes:         "synced from exchange",
		}
		if err := s.store.RecordTransaction(ctx, &tx); err != nil {
			return count, err
		}
		count++
	}
	return count, nil
}
