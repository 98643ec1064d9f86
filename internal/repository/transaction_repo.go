package repository

import (
	"context"

	"pensionfund/internal/model"

	"gorm.io/gorm"
)

type TransactionRepository struct {
	db *gorm.DB
}

func NewTransactionRepository(db *gorm.DB) *TransactionRepository {
	return &TransactionRepository{db: db}
}

// Create 追加流水（只追加，不修改，不删除）
func (r *TransactionRepository) Create(ctx context.Context, tx *gorm.DB, trans *model.FundTransaction) error {
	if tx == nil {
		tx = r.db
	}
	return tx.WithContext(ctx).Create(trans).Error
}

func (r *TransactionRepository) GetByTransactionNo(ctx context.Context, transactionNo string) (*model.FundTransaction, error) {
	var trans model.FundTransaction
	err := r.db.WithContext(ctx).Where("transaction_no = ?", transactionNo).First(&trans).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &trans, nil
}

func (r *TransactionRepository) ListByOwnerID(ctx context.Context, ownerID int64, page, pageSize int) ([]*model.FundTransaction, int64, error) {
	var transactions []*model.FundTransaction
	var total int64

	query := r.db.WithContext(ctx).Model(&model.FundTransaction{}).Where("owner_id = ?", ownerID)

	err := query.Count(&total).Error
	if err != nil {
		return nil, 0, err
	}

	err = query.
		Order("created_at DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&transactions).Error

	return transactions, total, err
}
