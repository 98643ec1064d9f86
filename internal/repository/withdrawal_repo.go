package repository

import (
	"context"

	"pensionfund/internal/model"

	"gorm.io/gorm"
)

type WithdrawalRepository struct {
	db *gorm.DB
}

func NewWithdrawalRepository(db *gorm.DB) *WithdrawalRepository {
	return &WithdrawalRepository{db: db}
}

// Create 追加提取记录（只追加，不修改，不删除）
func (r *WithdrawalRepository) Create(ctx context.Context, tx *gorm.DB, record *model.WithdrawalRecord) error {
	if tx == nil {
		tx = r.db
	}
	return tx.WithContext(ctx).Create(record).Error
}

// NextSequence 分配参与人内递增序号（必须在提取事务内调用）
func (r *WithdrawalRepository) NextSequence(ctx context.Context, tx *gorm.DB, userID int64) (int64, error) {
	if tx == nil {
		tx = r.db
	}
	var count int64
	err := tx.WithContext(ctx).
		Model(&model.WithdrawalRecord{}).
		Where("user_id = ?", userID).
		Count(&count).Error
	if err != nil {
		return 0, err
	}
	return count + 1, nil
}

func (r *WithdrawalRepository) ListByUserID(ctx context.Context, userID int64, page, pageSize int) ([]*model.WithdrawalRecord, int64, error) {
	var records []*model.WithdrawalRecord
	var total int64

	query := r.db.WithContext(ctx).Model(&model.WithdrawalRecord{}).Where("user_id = ?", userID)

	err := query.Count(&total).Error
	if err != nil {
		return nil, 0, err
	}

	err = query.
		Order("sequence DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&records).Error

	return records, total, err
}

// SumAmountByUserID 参与人累计提取总额（审计：不得超过累计缴存+累计匹配）
func (r *WithdrawalRepository) SumAmountByUserID(ctx context.Context, userID int64) (int64, error) {
	var total int64
	err := r.db.WithContext(ctx).
		Model(&model.WithdrawalRecord{}).
		Where("user_id = ?", userID).
		Select("COALESCE(SUM(amount), 0)").
		Scan(&total).Error
	return total, err
}
