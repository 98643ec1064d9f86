package repository

import (
	"context"
	"errors"

	"pensionfund/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	ErrEmployerNotFound      = errors.New("雇主不存在")
	ErrEmployerAlreadyExists = errors.New("雇主已注册")
	ErrLinkNotFound          = errors.New("雇员未关联雇主")
	ErrLinkAlreadyExists     = errors.New("雇员已关联雇主")
)

type EmployerRepository struct {
	db *gorm.DB
}

func NewEmployerRepository(db *gorm.DB) *EmployerRepository {
	return &EmployerRepository{db: db}
}

// Create 雇主注册（employer_id 唯一索引保证只注册一次）
func (r *EmployerRepository) Create(ctx context.Context, tx *gorm.DB, employer *model.Employer) error {
	if tx == nil {
		tx = r.db
	}
	err := tx.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "employer_id"}},
			DoNothing: true,
		}).
		Create(employer).Error
	if err != nil {
		return err
	}
	if employer.ID == 0 {
		return ErrEmployerAlreadyExists
	}
	return nil
}

func (r *EmployerRepository) GetByEmployerID(ctx context.Context, employerID int64) (*model.Employer, error) {
	var employer model.Employer
	err := r.db.WithContext(ctx).Where("employer_id = ?", employerID).First(&employer).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrEmployerNotFound
		}
		return nil, err
	}
	return &employer, nil
}

// CreateLink 建立雇员-雇主关联（user_id 唯一索引保证不可改绑）
func (r *EmployerRepository) CreateLink(ctx context.Context, tx *gorm.DB, link *model.EmployeeEmployerLink) error {
	if tx == nil {
		tx = r.db
	}
	err := tx.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}},
			DoNothing: true,
		}).
		Create(link).Error
	if err != nil {
		return err
	}
	if link.ID == 0 {
		return ErrLinkAlreadyExists
	}
	return nil
}

func (r *EmployerRepository) GetLinkByUserID(ctx context.Context, userID int64) (*model.EmployeeEmployerLink, error) {
	var link model.EmployeeEmployerLink
	err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&link).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrLinkNotFound
		}
		return nil, err
	}
	return &link, nil
}

// IncrEmployeeCount 在册雇员数 +1（单调递增）
func (r *EmployerRepository) IncrEmployeeCount(ctx context.Context, tx *gorm.DB, employerID int64) error {
	if tx == nil {
		tx = r.db
	}
	result := tx.WithContext(ctx).
		Model(&model.Employer{}).
		Where("employer_id = ?", employerID).
		UpdateColumn("total_employees", gorm.Expr("total_employees + 1"))
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrEmployerNotFound
	}
	return nil
}

// AddContribution 累计匹配缴存（单调递增）
func (r *EmployerRepository) AddContribution(ctx context.Context, tx *gorm.DB, employerID int64, amount int64) error {
	if tx == nil {
		tx = r.db
	}
	result := tx.WithContext(ctx).
		Model(&model.Employer{}).
		Where("employer_id = ?", employerID).
		UpdateColumn("total_contributions", gorm.Expr("total_contributions + ?", amount))
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrEmployerNotFound
	}
	return nil
}

// SetActive 雇主启停（管理员操作）
func (r *EmployerRepository) SetActive(ctx context.Context, tx *gorm.DB, employerID int64, active bool) error {
	if tx == nil {
		tx = r.db
	}
	result := tx.WithContext(ctx).
		Model(&model.Employer{}).
		Where("employer_id = ?", employerID).
		Update("is_active", active)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrEmployerNotFound
	}
	return nil
}
