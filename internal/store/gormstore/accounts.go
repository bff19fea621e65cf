package gormstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	storemodel "github.com/netoalmanca/crypto-trader/internal/store/model"
)

func (s *Store) CreateAccount(ctx context.Context, acct *storemodel.AccountModel) error {
	now := time.Now().Unix()
	acct.CreatedAtUnix = now
	acct.UpdatedAtUnix = now
	return s.db.WithContext(ctx).Create(acct).Error
}

func (s *Store) Account(ctx context.Context, id int64) (*storemodel.AccountModel, error) {
	var a storemodel.AccountModel
	err := s.db.WithContext(ctx).First(&a, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("account %d not found", id)
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// AccountByName returns nil without error when no such account exists, so
// callers can distinguish "absent" from a failing database.
func (s *Store) AccountByName(ctx context.Context, name string) (*storemodel.AccountModel, error) {
	var a storemodel.AccountModel
	err := s.db.WithContext(ctx).Where("name = ?", name).First(&a).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// AutoTradingAccounts lists accounts enabled for the agent loop.
func (s *Store) AutoTradingAccounts(ctx context.Context) ([]storemodel.AccountModel, error) {
	var rows []storemodel.AccountModel
	err := s.db.WithContext(ctx).
		Where("auto_trading = ?", true).
		Order("id ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// UpdateAccountSettings persists explicit settings changes; nothing else
// mutates an account.
func (s *Store) UpdateAccountSettings(ctx context.Context, acct *storemodel.AccountModel) error {
	acct.UpdatedAtUnix = time.Now().Unix()
	return s.db.WithContext(ctx).Save(acct).Error
}
