package service

import (
	"context"
	"errors"

	"pensionfund/internal/config"
	"pensionfund/internal/model"
	"pensionfund/internal/repository"
	"pensionfund/pkg/chain"
	"pensionfund/pkg/vesting"

	"gorm.io/gorm"
)

// AccountService 养老金账户登记
type AccountService struct {
	db          *gorm.DB
	cfg         *config.Config
	clock       chain.Clock
	calendar    chain.Calendar
	accountRepo *repository.AccountRepository
	poolRepo    *repository.PoolRepository
	fundRepo    *repository.FundRepository
}

func NewAccountService(db *gorm.DB, cfg *config.Config, clock chain.Clock) *AccountService {
	return &AccountService{
		db:          db,
		cfg:         cfg,
		clock:       clock,
		calendar:    NewCalendar(cfg),
		accountRepo: repository.NewAccountRepository(db),
		poolRepo:    repository.NewPoolRepository(db),
		fundRepo:    repository.NewFundRepository(db),
	}
}

// NewCalendar 由配置构造高度换算常数
func NewCalendar(cfg *config.Config) chain.Calendar {
	return chain.Calendar{
		BlocksPerDay:  cfg.Chain.BlocksPerDay,
		BlocksPerYear: cfg.Chain.BlocksPerYear,
		BaseYear:      cfg.Chain.BaseYear,
	}
}

type CreateAccountRequest struct {
	UserID           int64  `json:"user_id"`
	BirthYear        int    `json:"birth_year"`
	AnnualSalary     int64  `json:"annual_salary"`
	ContributionRate int    `json:"contribution_rate"`
	PoolType         string `json:"pool_type"`
}

// CreateAccount 开户
//
// 校验顺序：已存在 -> 参数越界（年薪/出生年份）-> 缴存比例 -> 投资池类型。
// 开户即计入参与人总数，归属期先按默认值起算，入职雇主时重新起算
func (s *AccountService) CreateAccount(ctx context.Context, req *CreateAccountRequest) error {
	if _, err := s.accountRepo.GetByUserID(ctx, req.UserID); err == nil {
		return ErrAccountExists
	} else if !errors.Is(err, repository.ErrAccountNotFound) {
		return err
	}

	if req.AnnualSalary <= 0 {
		return ErrInvalidParameters
	}
	if req.BirthYear < s.cfg.Pension.MinBirthYear || req.BirthYear > s.cfg.Pension.MaxBirthYear {
		return ErrInvalidParameters
	}
	if req.ContributionRate < 0 || req.ContributionRate > s.cfg.Pension.MaxContributionRate {
		return ErrContributionRate
	}
	if !model.IsValidPoolType(req.PoolType) {
		return ErrInvalidPoolType
	}

	now := s.clock.Height()
	account := &model.RetirementAccount{
		UserID:            req.UserID,
		EmployeeBalance:   0,
		EmployerBalance:   0,
		InvestmentPool:    req.PoolType,
		Status:            model.AccountStatusActive,
		BirthYear:         req.BirthYear,
		AnnualSalary:      req.AnnualSalary,
		ContributionRate:  req.ContributionRate,
		VestingPeriodDays: s.cfg.Pension.DefaultVestingDays,
		CreationBlock:     now,
		VestingStartBlock: now,
	}

	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := s.accountRepo.Create(ctx, tx, account); err != nil {
			if errors.Is(err, repository.ErrAccountAlreadyExists) {
				return ErrAccountExists
			}
			return err
		}
		if err := s.poolRepo.AddParticipant(ctx, tx, req.PoolType, 1); err != nil {
			// 基金未初始化时池行不存在，池计数跳过
			if !errors.Is(err, repository.ErrPoolNotFound) {
				return err
			}
		}
		if _, err := s.fundRepo.GetOrCreate(ctx, tx); err != nil {
			return err
		}
		return s.fundRepo.IncrParticipants(ctx, tx)
	})
}

type UpdatePoolRequest struct {
	UserID   int64  `json:"user_id"`
	PoolType string `json:"pool_type"`
}

// UpdatePool 换投资池（账户唯一允许变更的档案字段）
func (s *AccountService) UpdatePool(ctx context.Context, req *UpdatePoolRequest) error {
	account, err := s.accountRepo.GetByUserID(ctx, req.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrAccountNotFound) {
			return ErrAccountNotFound
		}
		return err
	}
	if !model.IsValidPoolType(req.PoolType) {
		return ErrInvalidPoolType
	}
	if account.Status != model.AccountStatusActive {
		return ErrAccountSuspended
	}
	if account.InvestmentPool == req.PoolType {
		return nil
	}

	balance := account.EmployeeBalance + account.EmployerBalance
	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := s.accountRepo.UpdatePool(ctx, tx, req.UserID, req.PoolType); err != nil {
			return err
		}
		// 池聚合量随账户迁移
		if err := s.poolRepo.AddParticipant(ctx, tx, account.InvestmentPool, -1); err != nil && !errors.Is(err, repository.ErrPoolNotFound) {
			return err
		}
		if err := s.poolRepo.AddParticipant(ctx, tx, req.PoolType, 1); err != nil && !errors.Is(err, repository.ErrPoolNotFound) {
			return err
		}
		if balance != 0 {
			if err := s.poolRepo.AddBalance(ctx, tx, account.InvestmentPool, -balance); err != nil && !errors.Is(err, repository.ErrPoolNotFound) {
				return err
			}
			if err := s.poolRepo.AddBalance(ctx, tx, req.PoolType, balance); err != nil && !errors.Is(err, repository.ErrPoolNotFound) {
				return err
			}
		}
		return nil
	})
}

// AccountInfo 账户快照（含派生字段）
type AccountInfo struct {
	UserID                int64  `json:"user_id"`
	EmployeeBalance       int64  `json:"employee_balance"`
	EmployerBalance       int64  `json:"employer_balance"`
	TotalContributions    int64  `json:"total_contributions"`
	TotalEmployerMatch    int64  `json:"total_employer_match"`
	InvestmentPool        string `json:"investment_pool"`
	Status                string `json:"status"`
	BirthYear             int    `json:"birth_year"`
	AnnualSalary          int64  `json:"annual_salary"`
	ContributionRate      int    `json:"contribution_rate"`
	VestingPeriodDays     int64  `json:"vesting_period_days"`
	CreationBlock         int64  `json:"creation_block"`
	LastContributionBlock int64  `json:"last_contribution_block"`
	VestingStartBlock     int64  `json:"vesting_start_block"`
	Age                   int    `json:"age"`                 // 派生：当前年龄
	VestedBalance         int64  `json:"vested_balance"`      // 派生：已归属雇主余额
	YearsToRetirement     int    `json:"years_to_retirement"` // 派生：距退休年数
}

// GetAccountInfo 账户快照查询
func (s *AccountService) GetAccountInfo(ctx context.Context, userID int64) (*AccountInfo, error) {
	account, err := s.accountRepo.GetByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrAccountNotFound) {
			return nil, ErrAccountNotFound
		}
		return nil, err
	}

	now := s.clock.Height()
	age := s.calendar.Age(account.BirthYear, now)
	yearsToRetirement := s.cfg.Pension.RetirementAge - age
	if yearsToRetirement < 0 {
		yearsToRetirement = 0
	}

	return &AccountInfo{
		UserID:                account.UserID,
		EmployeeBalance:       account.EmployeeBalance,
		EmployerBalance:       account.EmployerBalance,
		TotalContributions:    account.TotalContributions,
		TotalEmployerMatch:    account.TotalEmployerMatch,
		InvestmentPool:        account.InvestmentPool,
		Status:                account.Status,
		BirthYear:             account.BirthYear,
		AnnualSalary:          account.AnnualSalary,
		ContributionRate:      account.ContributionRate,
		VestingPeriodDays:     account.VestingPeriodDays,
		CreationBlock:         account.CreationBlock,
		LastContributionBlock: account.LastContributionBlock,
		VestingStartBlock:     account.VestingStartBlock,
		Age:                   age,
		VestedBalance: vesting.VestedAmount(
			account.EmployerBalance,
			account.VestingStartBlock,
			account.VestingPeriodDays,
			now,
			s.calendar.BlocksPerDay,
		),
		YearsToRetirement: yearsToRetirement,
	}, nil
}

// IsEligibleForRetirement 是否已达退休提取年龄
func (s *AccountService) IsEligibleForRetirement(ctx context.Context, userID int64) (bool, error) {
	account, err := s.accountRepo.GetByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrAccountNotFound) {
			return false, ErrAccountNotFound
		}
		return false, err
	}
	age := s.calendar.Age(account.BirthYear, s.clock.Height())
	return age >= s.cfg.Pension.RetirementAge, nil
}
