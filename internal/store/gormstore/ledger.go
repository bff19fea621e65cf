package gormstore

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	storemodel "github.com/netoalmanca/crypto-trader/internal/store/model"
)

// RecordTransaction appends one ledger entry. When ExternalID is set the
// exchange trade id acts as the idempotency key: an entry already recorded
// for this account is updated in place instead of duplicated. Manual entries
// (nil ExternalID) always insert fresh. TotalValue is recomputed from
// quantity and price regardless of what the caller filled in.
func (s *Store) RecordTransaction(ctx context.Context, tx *storemodel.TransactionModel) error {
	if tx.Quantity.Sign() <= 0 {
		return fmt.Errorf("ledger: quantity must be positive")
	}
	tx.TotalValue = tx.Quantity.Mul(tx.PricePerUnit)
	if tx.RecordedAtUnix == 0 {
		tx.RecordedAtUnix = time.Now().Unix()
	}
	return s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "account_id"}, {Name: "external_id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"asset_symbol", "side", "quantity", "price_per_unit", "total_value",
				"fees", "fee_asset", "trade_time", "order_id", "notes", "signal_id",
			}),
		}).
		Create(tx).Error
}

// AggregateBuys sums quantity and cost over all recorded BUY entries for one
// account and asset. Sums are computed in decimal, not SQL floats.
func (s *Store) AggregateBuys(ctx context.Context, accountID int64, assetSymbol string) (qty, cost decimal.Decimal, err error) {
	var rows []storemodel.TransactionModel
	err = s.db.WithContext(ctx).
		Select("quantity", "total_value").
		Where("account_id = ? AND asset_symbol = ? AND side = ?", accountID, assetSymbol, "BUY").
		Find(&rows).Error
	if err != nil {
		return decimal.Zero, decimal.Zero, err
	}
	for _, r := range rows {
		qty = qty.Add(r.Quantity)
		cost = cost.Add(r.TotalValue)
	}
	return qty, cost, nil
}

// AggregateSells sums quantity over all recorded SELL entries.
func (s *Store) AggregateSells(ctx context.Context, accountID int64, assetSymbol string) (decimal.Decimal, error) {
	var rows []storemodel.TransactionModel
	err := s.db.WithContext(ctx).
		Select("quantity").
		Where("account_id = ? AND asset_symbol = ? AND side = ?", accountID, assetSymbol, "SELL").
		Find(&rows).Error
	if err != nil {
		return decimal.Zero, err
	}
	qty := decimal.Zero
	for _, r := range rows {
		qty = qty.Add(r.Quantity)
	}
	return qty, nil
}

// ListTransactions returns an account's ledger ordered by trade time
// descending, newest first.
func (s *Store) ListTransactions(ctx context.Context, accountID int64, limit int) ([]storemodel.TransactionModel, error) {
	q := s.db.WithContext(ctx).
		Where("account_id = ?", accountID).
		Order("trade_time DESC, recorded_at DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	var rows []storemodel.TransactionModel
	if err := q.Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// MaxExternalTradeID returns the highest exchange trade id recorded for an
// account and asset, or 0 when none; the sync cursor starts past it.
func (s *Store) MaxExternalTradeID(ctx context.Context, accountID int64, assetSymbol string) (int64, error) {
	var maxID *int64
	err := s.db.WithContext(ctx).
		Model(&storemodel.TransactionModel{}).
		Select("MAX(CAST(external_id AS INTEGER))").
		Where("account_id = ? AND asset_symbol = ? AND external_id IS NOT NULL", accountID, assetSymbol).
		Scan(&maxID).Error
	if err != nil || maxID == nil {
		return 0, err
	}
	return *maxID, nil
}

// ResetAccount wipes an account's ledger, holdings and snapshots in one
// transaction. Signals are kept: they are history, not derived state.
func (s *Store) ResetAccount(ctx context.Context, accountID int64) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("account_id = ?", accountID).Delete(&storemodel.TransactionModel{}).Error; err != nil {
			return err
		}
		if err := tx.Where("account_id = ?", accountID).Delete(&storemodel.HoldingModel{}).Error; err != nil {
			return err
		}
		return tx.Where("account_id = ?", accountID).Delete(&storemodel.SnapshotModel{}).Error
	})
}
