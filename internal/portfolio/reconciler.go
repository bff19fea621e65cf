// Package portfolio rebuilds derived holdings from the two sources of
// truth: the exchange's reported balances (authoritative for quantity) and
// the local ledger (authoritative for cost basis).
package portfolio

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/netoalmanca/crypto-trader/internal/exchange"
	"github.com/netoalmanca/crypto-trader/internal/logger"
	"github.com/netoalmanca/crypto-trader/internal/store/gormstore"
	storemodel "github.com/netoalmanca/crypto-trader/internal/store/model"
)

type Reconciler struct {
	store *gormstore.Store
}

func NewReconciler(store *gormstore.Store) *Reconciler {
	return &Reconciler{store: store}
}

// Reconcile rebuilds all holdings for one account. Quantities come from the
// exchange's free balances; average cost comes from the ledger's BUY history
// only, so an incomplete buy history yields a low cost basis rather than a
// wrong quantity. If the exchange is unreachable nothing is touched and the
// previous holdings stay in place.
func (r *Reconciler) Reconcile(ctx context.Context, accountID int64, gw exchange.Gateway) error {
	balances, err := gw.Balances(ctx)
	if err != nil {
		return fmt.Errorf("reconcile account %d: %w", accountID, err)
	}

	assets, err := r.store.ListAssets(ctx)
	if err != nil {
		return fmt.Errorf("reconcile account %d: %w", accountID, err)
	}

	var fresh []storemodel.HoldingModel
	for _, asset := range assets {
		qty, ok := balances[asset.Symbol]
		if !ok || qty.Sign() <= 0 {
			// Not held: no row at all, absence is the signal.
			continue
		}
		avgCost, err := r.averageCost(ctx, accountID, asset.Symbol)
		if err != nil {
			return fmt.Errorf("reconcile account %d: %w", accountID, err)
		}
		fresh = append(fresh, storemodel.HoldingModel{
			AssetSymbol: asset.Symbol,
			Quantity:    qty,
			AverageCost: avgCost,
		})
	}

	if err := r.store.ReplaceHoldings(ctx, accountID, fresh); err != nil {
		return fmt.Errorf("reconcile account %d: %w", accountID, err)
	}
	logger.Infof("portfolio: reconciled account=%d holdings=%d", accountID, len(fresh))
	return nil
}

// averageCost is backward-looking over recorded purchases: total BUY cost
// over total BUY quantity. Sells and external deposits do not move it; with
// no recorded buys it is zero, which is a documented data-quality limit when
// assets were acquired outside the tracked account.
func (r *Reconciler) averageCost(ctx context.Context, accountID int64, symbol string) (decimal.Decimal, error) {
	buyQty, buyCost, err := r.store.AggregateBuys(ctx, accountID, symbol)
	if err != nil {
		return decimal.Zero, err
	}
	if buyQty.Sign() <= 0 {
		return decimal.Zero, nil
	}
	return buyCost.DivRound(buyQty, 8), nil
}
