package gormstore

import (
	"context"
	"time"

	storemodel "github.com/netoalmanca/crypto-trader/internal/store/model"
)

func (s *Store) CreateSignal(ctx context.Context, sig *storemodel.TradeSignalModel) error {
	if sig.CreatedAtUnix == 0 {
		sig.CreatedAtUnix = time.Now().Unix()
	}
	return s.db.WithContext(ctx).Create(sig).Error
}

func (s *Store) Signal(ctx context.Context, id int64) (*storemodel.TradeSignalModel, error) {
	var sig storemodel.TradeSignalModel
	if err := s.db.WithContext(ctx).First(&sig, id).Error; err != nil {
		return nil, err
	}
	return &sig, nil
}

// UnexecutedSignals returns actionable BUY/SELL signals not yet executed,
// oldest first so the sweep processes them in arrival order.
func (s *Store) UnexecutedSignals(ctx context.Context) ([]storemodel.TradeSignalModel, error) {
	var rows []storemodel.TradeSignalModel
	err := s.db.WithContext(ctx).
		Where("executed = ? AND decision IN ?", false, []string{"BUY", "SELL"}).
		Order("created_at ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// MarkSignalExecuted flips the one mutable field a signal has. Called only
// after the implied trade is recorded and reconciled.
func (s *Store) MarkSignalExecuted(ctx context.Context, id int64) error {
	return s.db.WithContext(ctx).
		Model(&storemodel.TradeSignalModel{}).
		Where("id = ?", id).
		Update("executed", true).Error
}
