package repository

import (
	"context"
	"errors"

	"pensionfund/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	ErrWalletNotFound  = errors.New("钱包不存在")
	ErrWalletNotEnough = errors.New("钱包余额不足")
)

type WalletRepository struct {
	db *gorm.DB
}

func NewWalletRepository(db *gorm.DB) *WalletRepository {
	return &WalletRepository{db: db}
}

func (r *WalletRepository) GetByOwnerID(ctx context.Context, tx *gorm.DB, ownerID int64) (*model.Wallet, error) {
	if tx == nil {
		tx = r.db
	}
	var wallet model.Wallet
	err := tx.WithContext(ctx).Where("owner_id = ?", ownerID).First(&wallet).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrWalletNotFound
		}
		return nil, err
	}
	return &wallet, nil
}

func (r *WalletRepository) GetOrCreate(ctx context.Context, tx *gorm.DB, ownerID int64) (*model.Wallet, error) {
	if tx == nil {
		tx = r.db
	}
	wallet, err := r.GetByOwnerID(ctx, tx, ownerID)
	if err == nil {
		return wallet, nil
	}
	if !errors.Is(err, ErrWalletNotFound) {
		return nil, err
	}

	newWallet := &model.Wallet{
		OwnerID: ownerID,
		Balance: 0,
	}
	err = tx.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "owner_id"}},
			DoNothing: true,
		}).
		Create(newWallet).Error
	if err != nil {
		return nil, err
	}
	return r.GetByOwnerID(ctx, tx, ownerID)
}

// Deduct 钱包出账
//
// 【关键点】WHERE balance >= ? 是价值转移原语的"余额不足即失败"语义，
// 失败会使包裹它的整个业务事务回滚，不留任何中间状态
func (r *WalletRepository) Deduct(ctx context.Context, tx *gorm.DB, ownerID int64, amount int64) error {
	if tx == nil {
		tx = r.db
	}
	result := tx.WithContext(ctx).
		Model(&model.Wallet{}).
		Where("owner_id = ? AND balance >= ?", ownerID, amount).
		Updates(map[string]interface{}{
			"balance": gorm.Expr("balance - ?", amount),
			"version": gorm.Expr("version + 1"),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		if _, err := r.GetByOwnerID(ctx, tx, ownerID); err != nil {
			return err
		}
		return ErrWalletNotEnough
	}
	return nil
}

// Increase 钱包入账
func (r *WalletRepository) Increase(ctx context.Context, tx *gorm.DB, ownerID int64, amount int64) error {
	if tx == nil {
		tx = r.db
	}
	result := tx.WithContext(ctx).
		Model(&model.Wallet{}).
		Where("owner_id = ?", ownerID).
		Updates(map[string]interface{}{
			"balance": gorm.Expr("balance + ?", amount),
			"version": gorm.Expr("version + 1"),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrWalletNotFound
	}
	return nil
}
