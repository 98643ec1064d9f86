package service

import (
	"context"
	"errors"

	"pensionfund/internal/config"
	"pensionfund/internal/model"
	"pensionfund/internal/repository"
	"pensionfund/pkg/chain"

	"gorm.io/gorm"
)

// EmployerService 雇主登记与雇员关联
type EmployerService struct {
	db           *gorm.DB
	cfg          *config.Config
	clock        chain.Clock
	employerRepo *repository.EmployerRepository
	accountRepo  *repository.AccountRepository
}

func NewEmployerService(db *gorm.DB, cfg *config.Config, clock chain.Clock) *EmployerService {
	return &EmployerService{
		db:           db,
		cfg:          cfg,
		clock:        clock,
		employerRepo: repository.NewEmployerRepository(db),
		accountRepo:  repository.NewAccountRepository(db),
	}
}

type RegisterEmployerRequest struct {
	EmployerID     int64  `json:"employer_id"`
	CompanyName    string `json:"company_name"`
	MatchRate      int    `json:"match_rate"`
	MaxMatchAmount int64  `json:"max_match_amount"`
	VestingDays    int64  `json:"vesting_days"`
}

// RegisterEmployer 雇主注册
func (s *EmployerService) RegisterEmployer(ctx context.Context, req *RegisterEmployerRequest) error {
	if _, err := s.employerRepo.GetByEmployerID(ctx, req.EmployerID); err == nil {
		return ErrEmployerExists
	} else if !errors.Is(err, repository.ErrEmployerNotFound) {
		return err
	}

	if req.MatchRate < 0 || req.MatchRate > 100 {
		return ErrInvalidParameters
	}
	if req.VestingDays < s.cfg.Pension.MinVestingDays || req.VestingDays > s.cfg.Pension.MaxVestingDays {
		return ErrInvalidParameters
	}
	if req.MaxMatchAmount < 0 {
		return ErrInvalidParameters
	}

	employer := &model.Employer{
		EmployerID:          req.EmployerID,
		CompanyName:         req.CompanyName,
		MatchRate:           req.MatchRate,
		MaxMatchAmount:      req.MaxMatchAmount,
		VestingScheduleDays: req.VestingDays,
		IsActive:            true,
		RegistrationBlock:   s.clock.Height(),
	}

	err := s.employerRepo.Create(ctx, nil, employer)
	if errors.Is(err, repository.ErrEmployerAlreadyExists) {
		return ErrEmployerExists
	}
	return err
}

type AddEmployeeRequest struct {
	EmployerID int64 `json:"employer_id"` // 调用方：必须是已注册且启用的雇主
	UserID     int64 `json:"user_id"`     // 待关联雇员
}

// AddEmployee 雇主添加雇员
//
// 【策略说明】若雇员已有养老金账户，入职会把该账户的归属起算高度
// 重置为当前高度、归属期改为雇主的归属计划 —— 换言之入职重新起算
// 归属进度。这是既定策略，不是缺陷
func (s *EmployerService) AddEmployee(ctx context.Context, req *AddEmployeeRequest) error {
	employer, err := s.employerRepo.GetByEmployerID(ctx, req.EmployerID)
	if err != nil {
		if errors.Is(err, repository.ErrEmployerNotFound) {
			return ErrEmployerNotFound
		}
		return err
	}
	if !employer.IsActive {
		return ErrEmployerInactive
	}

	if _, err := s.employerRepo.GetLinkByUserID(ctx, req.UserID); err == nil {
		return ErrAlreadyLinked
	} else if !errors.Is(err, repository.ErrLinkNotFound) {
		return err
	}

	now := s.clock.Height()
	link := &model.EmployeeEmployerLink{
		UserID:     req.UserID,
		EmployerID: req.EmployerID,
		StartBlock: now,
		IsActive:   true,
	}

	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := s.employerRepo.CreateLink(ctx, tx, link); err != nil {
			if errors.Is(err, repository.ErrLinkAlreadyExists) {
				return ErrAlreadyLinked
			}
			return err
		}
		if err := s.employerRepo.IncrEmployeeCount(ctx, tx, req.EmployerID); err != nil {
			return err
		}

		// 雇员已有账户则重新起算归属
		err := s.accountRepo.RebaseVesting(ctx, tx, req.UserID, now, employer.VestingScheduleDays)
		if err != nil && !errors.Is(err, repository.ErrAccountNotFound) {
			return err
		}
		return nil
	})
}

// GetEmployer 雇主信息查询
func (s *EmployerService) GetEmployer(ctx context.Context, employerID int64) (*model.Employer, error) {
	employer, err := s.employerRepo.GetByEmployerID(ctx, employerID)
	if err != nil {
		if errors.Is(err, repository.ErrEmployerNotFound) {
			return nil, ErrEmployerNotFound
		}
		return nil, err
	}
	return employer, nil
}
