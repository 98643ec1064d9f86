package repository

import (
	"context"
	"errors"

	"pensionfund/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var ErrFundAlreadyInitialized = errors.New("基金已初始化")

type FundRepository struct {
	db *gorm.DB
}

func NewFundRepository(db *gorm.DB) *FundRepository {
	return &FundRepository{db: db}
}

// GetOrCreate 获取总账单行，不存在则创建零值行（inception_block=0 表示未初始化）
func (r *FundRepository) GetOrCreate(ctx context.Context, tx *gorm.DB) (*model.FundLedger, error) {
	if tx == nil {
		tx = r.db
	}
	ledger := &model.FundLedger{ID: model.FundLedgerID}
	err := tx.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(ledger).Error
	if err != nil {
		return nil, err
	}
	var out model.FundLedger
	if err := tx.WithContext(ctx).First(&out, model.FundLedgerID).Error; err != nil {
		return nil, err
	}
	return &out, nil
}

// MarkInitialized 设置基金成立高度与默认收益配置
//
// 【关键点】WHERE inception_block = 0 保证"只初始化一次"：
// 并发初始化只有一次能命中，其余返回已初始化错误
func (r *FundRepository) MarkInitialized(ctx context.Context, tx *gorm.DB, block int64, conservative, balanced, aggressive int64) error {
	if tx == nil {
		tx = r.db
	}
	result := tx.WithContext(ctx).
		Model(&model.FundLedger{}).
		Where("id = ? AND inception_block = 0", model.FundLedgerID).
		Updates(map[string]interface{}{
			"inception_block":     block,
			"conservative_return": conservative,
			"balanced_return":     balanced,
			"aggressive_return":   aggressive,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrFundAlreadyInitialized
	}
	return nil
}

// AddTotalAssets 基金总资产增减（amount 可为负）
func (r *FundRepository) AddTotalAssets(ctx context.Context, tx *gorm.DB, amount int64) error {
	if tx == nil {
		tx = r.db
	}
	return tx.WithContext(ctx).
		Model(&model.FundLedger{}).
		Where("id = ?", model.FundLedgerID).
		UpdateColumn("total_assets", gorm.Expr("total_assets + ?", amount)).Error
}

// IncrParticipants 参与人总数 +1
func (r *FundRepository) IncrParticipants(ctx context.Context, tx *gorm.DB) error {
	if tx == nil {
		tx = r.db
	}
	return tx.WithContext(ctx).
		Model(&model.FundLedger{}).
		Where("id = ?", model.FundLedgerID).
		UpdateColumn("total_participants", gorm.Expr("total_participants + 1")).Error
}

// UpdateReturns 覆盖三档收益配置（管理员操作，无条件覆盖）
func (r *FundRepository) UpdateReturns(ctx context.Context, tx *gorm.DB, conservative, balanced, aggressive int64) error {
	if tx == nil {
		tx = r.db
	}
	return tx.WithContext(ctx).
		Model(&model.FundLedger{}).
		Where("id = ?", model.FundLedgerID).
		Updates(map[string]interface{}{
			"conservative_return": conservative,
			"balanced_return":     balanced,
			"aggressive_return":   aggressive,
		}).Error
}

// UpsertContributionLimit 年度缴存限额覆盖写入
func (r *FundRepository) UpsertContributionLimit(ctx context.Context, tx *gorm.DB, limit *model.ContributionLimit) error {
	if tx == nil {
		tx = r.db
	}
	return tx.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "year"}},
			DoUpdates: clause.AssignmentColumns([]string{"employee_limit", "catch_up_limit"}),
		}).
		Create(limit).Error
}

func (r *FundRepository) GetContributionLimit(ctx context.Context, year int) (*model.ContributionLimit, error) {
	var limit model.ContributionLimit
	err := r.db.WithContext(ctx).Where("year = ?", year).First(&limit).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &limit, nil
}
