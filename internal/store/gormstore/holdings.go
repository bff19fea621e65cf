package gormstore

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	storemodel "github.com/netoalmanca/crypto-trader/internal/store/model"
)

// ReplaceHoldings swaps an account's holdings wholesale inside one
// transaction: delete everything, insert the fresh set. A crash mid-run
// rolls back to the previous holdings rather than leaving a partial set.
func (s *Store) ReplaceHoldings(ctx context.Context, accountID int64, holdings []storemodel.HoldingModel) error {
	now := time.Now().Unix()
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("account_id = ?", accountID).Delete(&storemodel.HoldingModel{}).Error; err != nil {
			return err
		}
		for i := range holdings {
			holdings[i].ID = 0
			holdings[i].AccountID = accountID
			holdings[i].UpdatedAtUnix = now
			if err := tx.Create(&holdings[i]).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

// HoldingFor returns the holding row for one account and asset, or nil when
// the asset is not held (absence means "not held", never a zero row).
func (s *Store) HoldingFor(ctx context.Context, accountID int64, assetSymbol string) (*storemodel.HoldingModel, error) {
	var h storemodel.HoldingModel
	err := s.db.WithContext(ctx).
		Where("account_id = ? AND asset_symbol = ?", accountID, assetSymbol).
		First(&h).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &h, nil
}

func (s *Store) ListHoldings(ctx context.Context, accountID int64) ([]storemodel.HoldingModel, error) {
	var rows []storemodel.HoldingModel
	err := s.db.WithContext(ctx).
		Where("account_id = ?", accountID).
		Order("asset_symbol ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}
