package repository

import (
	"context"
	"errors"

	"pensionfund/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var ErrPoolNotFound = errors.New("投资池不存在")

type PoolRepository struct {
	db *gorm.DB
}

func NewPoolRepository(db *gorm.DB) *PoolRepository {
	return &PoolRepository{db: db}
}

// Seed 播种投资池行（初始化幂等，已存在则跳过）
func (r *PoolRepository) Seed(ctx context.Context, tx *gorm.DB, pools []*model.InvestmentPool) error {
	if tx == nil {
		tx = r.db
	}
	return tx.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "pool_type"}},
			DoNothing: true,
		}).
		Create(pools).Error
}

func (r *PoolRepository) GetByType(ctx context.Context, poolType string) (*model.InvestmentPool, error) {
	var pool model.InvestmentPool
	err := r.db.WithContext(ctx).Where("pool_type = ?", poolType).First(&pool).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPoolNotFound
		}
		return nil, err
	}
	return &pool, nil
}

func (r *PoolRepository) ListAll(ctx context.Context) ([]*model.InvestmentPool, error) {
	var pools []*model.InvestmentPool
	err := r.db.WithContext(ctx).Order("id ASC").Find(&pools).Error
	return pools, err
}

// AddBalance 池内余额增减（amount 可为负）
func (r *PoolRepository) AddBalance(ctx context.Context, tx *gorm.DB, poolType string, amount int64) error {
	if tx == nil {
		tx = r.db
	}
	result := tx.WithContext(ctx).
		Model(&model.InvestmentPool{}).
		Where("pool_type = ?", poolType).
		UpdateColumn("total_balance", gorm.Expr("total_balance + ?", amount))
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrPoolNotFound
	}
	return nil
}

// AddParticipant 池内人数增减（开户 +1，换池一增一减）
func (r *PoolRepository) AddParticipant(ctx context.Context, tx *gorm.DB, poolType string, delta int64) error {
	if tx == nil {
		tx = r.db
	}
	result := tx.WithContext(ctx).
		Model(&model.InvestmentPool{}).
		Where("pool_type = ?", poolType).
		UpdateColumn("participant_count", gorm.Expr("participant_count + ?", delta))
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrPoolNotFound
	}
	return nil
}

// UpdateReturn 更新年化收益配置
func (r *PoolRepository) UpdateReturn(ctx context.Context, tx *gorm.DB, poolType string, annualReturnBP int64, block int64) error {
	if tx == nil {
		tx = r.db
	}
	result := tx.WithContext(ctx).
		Model(&model.InvestmentPool{}).
		Where("pool_type = ?", poolType).
		Updates(map[string]interface{}{
			"annual_return_bp":  annualReturnBP,
			"last_update_block": block,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrPoolNotFound
	}
	return nil
}
