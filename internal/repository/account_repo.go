package repository

import (
	"context"
	"errors"

	"pensionfund/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	ErrAccountNotFound      = errors.New("养老金账户不存在")
	ErrAccountAlreadyExists = errors.New("养老金账户已存在")
	ErrBalanceNotEnough     = errors.New("账户余额不足")
	ErrOptimisticLock       = errors.New("乐观锁冲突，请重试")
)

type AccountRepository struct {
	db *gorm.DB
}

func NewAccountRepository(db *gorm.DB) *AccountRepository {
	return &AccountRepository{db: db}
}

// Create 开户（user_id 唯一索引保证至多一个账户）
func (r *AccountRepository) Create(ctx context.Context, tx *gorm.DB, account *model.RetirementAccount) error {
	if tx == nil {
		tx = r.db
	}
	err := tx.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}},
			DoNothing: true,
		}).
		Create(account).Error
	if err != nil {
		return err
	}
	if account.ID == 0 {
		return ErrAccountAlreadyExists
	}
	return nil
}

func (r *AccountRepository) GetByUserID(ctx context.Context, userID int64) (*model.RetirementAccount, error) {
	var account model.RetirementAccount
	err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&account).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAccountNotFound
		}
		return nil, err
	}
	return &account, nil
}

// UpdatePool 仅替换投资池类型
func (r *AccountRepository) UpdatePool(ctx context.Context, tx *gorm.DB, userID int64, poolType string) error {
	if tx == nil {
		tx = r.db
	}
	result := tx.WithContext(ctx).
		Model(&model.RetirementAccount{}).
		Where("user_id = ?", userID).
		Updates(map[string]interface{}{
			"investment_pool": poolType,
			"version":         gorm.Expr("version + 1"),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrAccountNotFound
	}
	return nil
}

// AddEmployeeContribution 个人缴存入账（余额、累计、最近缴存高度一并更新）
func (r *AccountRepository) AddEmployeeContribution(ctx context.Context, tx *gorm.DB, userID int64, amount int64, block int64) error {
	if tx == nil {
		tx = r.db
	}
	result := tx.WithContext(ctx).
		Model(&model.RetirementAccount{}).
		Where("user_id = ?", userID).
		Updates(map[string]interface{}{
			"employee_balance":        gorm.Expr("employee_balance + ?", amount),
			"total_contributions":     gorm.Expr("total_contributions + ?", amount),
			"last_contribution_block": block,
			"version":                 gorm.Expr("version + 1"),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrAccountNotFound
	}
	return nil
}

// AddEmployerMatch 雇主匹配入账
func (r *AccountRepository) AddEmployerMatch(ctx context.Context, tx *gorm.DB, userID int64, amount int64) error {
	if tx == nil {
		tx = r.db
	}
	result := tx.WithContext(ctx).
		Model(&model.RetirementAccount{}).
		Where("user_id = ?", userID).
		Updates(map[string]interface{}{
			"employer_balance":     gorm.Expr("employer_balance + ?", amount),
			"total_employer_match": gorm.Expr("total_employer_match + ?", amount),
			"version":              gorm.Expr("version + 1"),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrAccountNotFound
	}
	return nil
}

// DeductBalances 提取出账，个人余额与雇主余额分别扣减
//
// 【关键点】WHERE 条件带余额下限保护，保证任何时刻余额不会为负；
// 配合版本号校验，并发提取只有一笔能成功
func (r *AccountRepository) DeductBalances(ctx context.Context, tx *gorm.DB, userID int64, fromEmployee, fromEmployer int64, version int) error {
	if tx == nil {
		tx = r.db
	}
	result := tx.WithContext(ctx).
		Model(&model.RetirementAccount{}).
		Where("user_id = ? AND employee_balance >= ? AND employer_balance >= ? AND version = ?",
			userID, fromEmployee, fromEmployer, version).
		Updates(map[string]interface{}{
			"employee_balance": gorm.Expr("employee_balance - ?", fromEmployee),
			"employer_balance": gorm.Expr("employer_balance - ?", fromEmployer),
			"version":          gorm.Expr("version + 1"),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		// 事务内重读，区分余额不足与版本冲突
		var account model.RetirementAccount
		if err := tx.WithContext(ctx).Where("user_id = ?", userID).First(&account).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrAccountNotFound
			}
			return err
		}
		if account.EmployeeBalance < fromEmployee || account.EmployerBalance < fromEmployer {
			return ErrBalanceNotEnough
		}
		return ErrOptimisticLock
	}
	return nil
}

// UpdateStatus 账户状态流转（状态机校验由 service 层完成）
func (r *AccountRepository) UpdateStatus(ctx context.Context, tx *gorm.DB, userID int64, fromStatus, toStatus string) error {
	if tx == nil {
		tx = r.db
	}
	result := tx.WithContext(ctx).
		Model(&model.RetirementAccount{}).
		Where("user_id = ? AND status = ?", userID, fromStatus).
		Update("status", toStatus)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrOptimisticLock
	}
	return nil
}

// RebaseVesting 归属重新起算（入职雇主时触发，见雇主关联逻辑）
func (r *AccountRepository) RebaseVesting(ctx context.Context, tx *gorm.DB, userID int64, startBlock int64, periodDays int64) error {
	if tx == nil {
		tx = r.db
	}
	result := tx.WithContext(ctx).
		Model(&model.RetirementAccount{}).
		Where("user_id = ?", userID).
		Updates(map[string]interface{}{
			"vesting_start_block": startBlock,
			"vesting_period_days": periodDays,
			"version":             gorm.Expr("version + 1"),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrAccountNotFound
	}
	return nil
}

// ListAll 全部账户（对账任务使用）
func (r *AccountRepository) ListAll(ctx context.Context) ([]*model.RetirementAccount, error) {
	var accounts []*model.RetirementAccount
	err := r.db.WithContext(ctx).Find(&accounts).Error
	return accounts, err
}

// SumBalances 全部账户余额合计（对账任务使用）
func (r *AccountRepository) SumBalances(ctx context.Context) (int64, error) {
	var total int64
	err := r.db.WithContext(ctx).
		Model(&model.RetirementAccount{}).
		Select("COALESCE(SUM(employee_balance + employer_balance), 0)").
		Scan(&total).Error
	return total, err
}
