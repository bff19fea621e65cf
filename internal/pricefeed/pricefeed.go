// Package pricefeed keeps the cached spot price of every registered asset
// fresh. Prices come from the public ticker endpoint, so no account
// credentials are needed.
package pricefeed

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/netoalmanca/crypto-trader/internal/exchange"
	"github.com/netoalmanca/crypto-trader/internal/logger"
	storemodel "github.com/netoalmanca/crypto-trader/internal/store/model"
)

type store interface {
	ListAssets(ctx context.Context) ([]storemodel.AssetModel, error)
	UpdateAssetPrice(ctx context.Context, symbol string, price decimal.Decimal, at time.Time) error
}

// Feed refreshes asset prices from a PriceSource.
type Feed struct {
	store  store
	source exchange.PriceSource
}

func New(st store, source exchange.PriceSource) *Feed {
	return &Feed{store: st, source: source}
}

// RefreshAll fetches the current price of every asset and stores it. A failing
// symbol is logged and skipped; the pass only fails when the asset list itself
// cannot be read.
func (f *Feed) RefreshAll(ctx context.Context) error {
	assets, err := f.store.ListAssets(ctx)
	if err != nil {
		return err
	}
	now := time.Now().UTC()
	for _, asset := range assets {
		price, err := f.source.TickerPrice(ctx, asset.Pair())
		if err != nil {
			logger.Warnf("price refresh %s: %v", asset.Pair(), err)
			continue
		}
		if !price.IsPositive() {
			continue
		}
		if err := f.store.UpdateAssetPrice(ctx, asset.Symbol, price, now); err != nil {
			return err
		}
	}
	return nil
}
