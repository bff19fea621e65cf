package portfolio

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/netoalmanca/crypto-trader/internal/logger"
	"github.com/netoalmanca/crypto-trader/internal/store/gormstore"
	storemodel "github.com/netoalmanca/crypto-trader/internal/store/model"
)

// Snapshotter records one end-of-day portfolio valuation per account,
// priced from the assets' last known feed prices. Running it twice on the
// same day is a no-op.
type Snapshotter struct {
	store *gormstore.Store
	nowFn func() time.Time
}

func NewSnapshotter(store *gormstore.Store) *Snapshotter {
	return &Snapshotter{store: store, nowFn: time.Now}
}

func (s *Snapshotter) SnapshotAccount(ctx context.Context, acct storemodel.AccountModel) error {
	day := s.nowFn().UTC().Format("2006-01-02")
	exists, err := s.store.HasSnapshotForDay(ctx, acct.ID, day)
	if err != nil {
		return fmt.Errorf("snapshot account %d: %w", acct.ID, err)
	}
	if exists {
		return nil
	}

	holdings, err := s.store.ListHoldings(ctx, acct.ID)
	if err != nil {
		return fmt.Errorf("snapshot account %d: %w", acct.ID, err)
	}

	total := decimal.Zero
	breakdown := make(map[string]string, len(holdings))
	for _, h := range holdings {
		asset, err := s.store.Asset(ctx, h.AssetSymbol)
		if err != nil {
			logger.Warnf("portfolio: snapshot skipping %s, no asset row: %v", h.AssetSymbol, err)
			continue
		}
		if asset.CurrentPrice.Sign() <= 0 {
			logger.Warnf("portfolio: snapshot skipping %s, no price yet", h.AssetSymbol)
			continue
		}
		value := h.Quantity.Mul(asset.CurrentPrice)
		total = total.Add(value)
		breakdown[h.AssetSymbol] = value.String()
	}

	raw, err := json.Marshal(breakdown)
	if err != nil {
		return fmt.Errorf("snapshot account %d: %w", acct.ID, err)
	}
	snap := storemodel.SnapshotModel{
		AccountID:  acct.ID,
		Day:        day,
		TotalValue: total,
		Currency:   acct.QuoteCurrency,
		Breakdown:  raw,
	}
	if err := s.store.CreateSnapshot(ctx, &snap); err != nil {
		return fmt.Errorf("snapshot account %d: %w", acct.ID, err)
	}
	logger.Infof("portfolio: snapshot account=%d day=%s total=%s %s", acct.ID, day, total, acct.QuoteCurrency)
	return nil
}
