package gormstore

import (
	"context"
	"time"

	storemodel "github.com/netoalmanca/crypto-trader/internal/store/model"
)

// HasSnapshotForDay guards the daily snapshot job against double runs.
func (s *Store) HasSnapshotForDay(ctx context.Context, accountID int64, day string) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).
		Model(&storemodel.SnapshotModel{}).
		Where("account_id = ? AND day = ?", accountID, day).
		Count(&count).Error
	return count > 0, err
}

func (s *Store) CreateSnapshot(ctx context.Context, snap *storemodel.SnapshotModel) error {
	if snap.CreatedAtUnix == 0 {
		snap.CreatedAtUnix = time.Now().Unix()
	}
	return s.db.WithContext(ctx).Create(snap).Error
}

func (s *Store) ListSnapshots(ctx context.Context, accountID int64, limit int) ([]storemodel.SnapshotModel, error) {
	q := s.db.WithContext(ctx).
		Where("account_id = ?", accountID).
		Order("day DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	var rows []storemodel.SnapshotModel
	if err := q.Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}
