package gormstore

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	storemodel "github.com/netoalmanca/crypto-trader/internal/store/model"
)

func (s *Store) UpsertAsset(ctx context.Context, asset *storemodel.AssetModel) error {
	if asset.CreatedAtUnix == 0 {
		asset.CreatedAtUnix = time.Now().Unix()
	}
	return s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "symbol"}},
			DoUpdates: clause.AssignmentColumns([]string{"name", "quote_currency"}),
		}).
		Create(asset).Error
}

func (s *Store) Asset(ctx context.Context, symbol string) (*storemodel.AssetModel, error) {
	var a storemodel.AssetModel
	if err := s.db.WithContext(ctx).Where("symbol = ?", symbol).First(&a).Error; err != nil {
		return nil, err
	}
	return &a, nil
}

func (s *Store) ListAssets(ctx context.Context) ([]storemodel.AssetModel, error) {
	var rows []storemodel.AssetModel
	if err := s.db.WithContext(ctx).Order("symbol ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// UpdateAssetPrice is the price feed's single write path into the store.
func (s *Store) UpdateAssetPrice(ctx context.Context, symbol string, price decimal.Decimal, at time.Time) error {
	return s.db.WithContext(ctx).
		Model(&storemodel.AssetModel{}).
		Where("symbol = ?", symbol).
		Updates(map[string]any{
			"current_price":    price,
			"price_updated_at": at.Unix(),
		}).Error
}

// UpsertIndicators replaces the latest indicator snapshot for an asset and
// timeframe.
func (s *Store) UpsertIndicators(ctx context.Context, ind *storemodel.IndicatorModel) error {
	ind.UpdatedAtUnix = time.Now().Unix()
	return s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "asset_symbol"}, {Name: "timeframe"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"rsi", "macd_line", "macd_signal", "bollinger_high", "bollinger_low", "atr", "updated_at",
			}),
		}).
		Create(ind).Error
}

// Indicators returns (nil, nil) when no snapshot exists yet; callers treat
// missing technical data as an input to omit, not a failure.
func (s *Store) Indicators(ctx context.Context, symbol, timeframe string) (*storemodel.IndicatorModel, error) {
	var ind storemodel.IndicatorModel
	err := s.db.WithContext(ctx).
		Where("asset_symbol = ? AND timeframe = ?", symbol, timeframe).
		First(&ind).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &ind, nil
}
