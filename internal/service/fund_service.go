package service

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"math"
	"time"

	"pensionfund/internal/config"
	"pensionfund/internal/infrastructure/cache"
	"pensionfund/internal/model"
	"pensionfund/internal/repository"
	"pensionfund/pkg/chain"
	"pensionfund/pkg/vesting"

	"github.com/go-redis/redis/v8"
	"gorm.io/gorm"
)

// FundService 基金总账与管理员操作
type FundService struct {
	db           *gorm.DB
	redisClient  *redis.Client
	cfg          *config.Config
	clock        chain.Clock
	calendar     chain.Calendar
	fundRepo     *repository.FundRepository
	poolRepo     *repository.PoolRepository
	accountRepo  *repository.AccountRepository
	employerRepo *repository.EmployerRepository
}

func NewFundService(db *gorm.DB, redisClient *redis.Client, cfg *config.Config, clock chain.Clock) *FundService {
	return &FundService{
		db:           db,
		redisClient:  redisClient,
		cfg:          cfg,
		clock:        clock,
		calendar:     NewCalendar(cfg),
		fundRepo:     repository.NewFundRepository(db),
		poolRepo:     repository.NewPoolRepository(db),
		accountRepo:  repository.NewAccountRepository(db),
		employerRepo: repository.NewEmployerRepository(db),
	}
}

// isAdmin 管理员校验（调用方身份是不可信输入，一律与配置比对）
func (s *FundService) isAdmin(callerID int64) bool {
	return callerID == s.cfg.Pension.AdminID
}

// InitializeFund 基金初始化（仅管理员，全生命周期只允许一次）
//
// 成功后：记录成立高度、播种三档投资池行、播种初始年度缴存限额
func (s *FundService) InitializeFund(ctx context.Context, callerID int64) error {
	if !s.isAdmin(callerID) {
		return ErrNotAuthorized
	}

	ledger, err := s.fundRepo.GetOrCreate(ctx, nil)
	if err != nil {
		return err
	}
	if ledger.InceptionBlock != 0 {
		return ErrAlreadyInitialized
	}

	now := s.clock.Height()
	p := s.cfg.Pension

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := s.fundRepo.MarkInitialized(ctx, tx, now, p.ConservativeReturnBP, p.BalancedReturnBP, p.AggressiveReturnBP); err != nil {
			if errors.Is(err, repository.ErrFundAlreadyInitialized) {
				return ErrAlreadyInitialized
			}
			return err
		}

		pools := []*model.InvestmentPool{
			{PoolType: model.PoolConservative, AnnualReturnBP: p.ConservativeReturnBP, LastUpdateBlock: now},
			{PoolType: model.PoolBalanced, AnnualReturnBP: p.BalancedReturnBP, LastUpdateBlock: now},
			{PoolType: model.PoolAggressive, AnnualReturnBP: p.AggressiveReturnBP, LastUpdateBlock: now},
		}
		if err := s.poolRepo.Seed(ctx, tx, pools); err != nil {
			return err
		}

		limit := &model.ContributionLimit{
			Year:          p.DefaultLimitYear,
			EmployeeLimit: p.DefaultEmployeeLimit,
			CatchUpLimit:  p.DefaultCatchUpLimit,
		}
		return s.fundRepo.UpsertContributionLimit(ctx, tx, limit)
	})
	if err != nil {
		return err
	}

	log.Printf("基金初始化完成: inceptionBlock=%d", now)
	return nil
}

type UpdatePoolReturnsRequest struct {
	CallerID           int64 `json:"caller_id"`
	ConservativeReturn int64 `json:"conservative_return"`
	BalancedReturn     int64 `json:"balanced_return"`
	AggressiveReturn   int64 `json:"aggressive_return"`
}

// UpdatePoolReturns 覆盖三档年化收益配置（仅管理员，无条件覆盖）
func (s *FundService) UpdatePoolReturns(ctx context.Context, req *UpdatePoolReturnsRequest) error {
	if !s.isAdmin(req.CallerID) {
		return ErrNotAuthorized
	}

	now := s.clock.Height()
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := s.fundRepo.UpdateReturns(ctx, tx, req.ConservativeReturn, req.BalancedReturn, req.AggressiveReturn); err != nil {
			return err
		}
		returns := map[string]int64{
			model.PoolConservative: req.ConservativeReturn,
			model.PoolBalanced:     req.BalancedReturn,
			model.PoolAggressive:   req.AggressiveReturn,
		}
		for _, poolType := range model.AllPoolTypes {
			if err := s.poolRepo.UpdateReturn(ctx, tx, poolType, returns[poolType], now); err != nil && !errors.Is(err, repository.ErrPoolNotFound) {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.invalidateStatisticsCache(ctx)
	return nil
}

type SetContributionLimitsRequest struct {
	CallerID      int64 `json:"caller_id"`
	Year          int   `json:"year"`
	EmployeeLimit int64 `json:"employee_limit"`
	CatchUpLimit  int64 `json:"catch_up_limit"`
}

// SetContributionLimits 设置年度缴存限额（仅管理员）
func (s *FundService) SetContributionLimits(ctx context.Context, req *SetContributionLimitsRequest) error {
	if !s.isAdmin(req.CallerID) {
		return ErrNotAuthorized
	}
	limit := &model.ContributionLimit{
		Year:          req.Year,
		EmployeeLimit: req.EmployeeLimit,
		CatchUpLimit:  req.CatchUpLimit,
	}
	return s.fundRepo.UpsertContributionLimit(ctx, nil, limit)
}

type SetAccountStatusRequest struct {
	CallerID int64  `json:"caller_id"`
	UserID   int64  `json:"user_id"`
	Status   string `json:"status"`
}

// SetAccountStatus 账户状态流转（仅管理员，按状态机校验）
func (s *FundService) SetAccountStatus(ctx context.Context, req *SetAccountStatusRequest) error {
	if !s.isAdmin(req.CallerID) {
		return ErrNotAuthorized
	}

	account, err := s.accountRepo.GetByUserID(ctx, req.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrAccountNotFound) {
			return ErrAccountNotFound
		}
		return err
	}
	if !model.CanTransitionAccountStatus(account.Status, req.Status) {
		return ErrStatusConflict
	}
	return s.accountRepo.UpdateStatus(ctx, nil, req.UserID, account.Status, req.Status)
}

type SetEmployerStatusRequest struct {
	CallerID   int64 `json:"caller_id"`
	EmployerID int64 `json:"employer_id"`
	IsActive   bool  `json:"is_active"`
}

// SetEmployerStatus 雇主启停（仅管理员）
func (s *FundService) SetEmployerStatus(ctx context.Context, req *SetEmployerStatusRequest) error {
	if !s.isAdmin(req.CallerID) {
		return ErrNotAuthorized
	}
	err := s.employerRepo.SetActive(ctx, nil, req.EmployerID, req.IsActive)
	if errors.Is(err, repository.ErrEmployerNotFound) {
		return ErrEmployerNotFound
	}
	return err
}

// FundStatistics 基金统计
type FundStatistics struct {
	TotalAssets        int64                    `json:"total_assets"`
	TotalParticipants  int64                    `json:"total_participants"`
	InceptionBlock     int64                    `json:"inception_block"`
	ConservativeReturn int64                    `json:"conservative_return"`
	BalancedReturn     int64                    `json:"balanced_return"`
	AggressiveReturn   int64                    `json:"aggressive_return"`
	Pools              []*model.InvestmentPool  `json:"pools"`
	CurrentLimit       *model.ContributionLimit `json:"current_limit"` // 当前年度缴存限额（未设置为 null）
}

// GetFundStatistics 基金统计查询（redis 短缓存）
func (s *FundService) GetFundStatistics(ctx context.Context) (*FundStatistics, error) {
	if s.redisClient != nil {
		cached, err := s.redisClient.Get(ctx, cache.FundStatisticsKey()).Result()
		if err == nil {
			var stats FundStatistics
			if json.Unmarshal([]byte(cached), &stats) == nil {
				return &stats, nil
			}
		}
	}

	ledger, err := s.fundRepo.GetOrCreate(ctx, nil)
	if err != nil {
		return nil, err
	}
	pools, err := s.poolRepo.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	limit, err := s.fundRepo.GetContributionLimit(ctx, s.calendar.CurrentYear(s.clock.Height()))
	if err != nil {
		return nil, err
	}

	stats := &FundStatistics{
		TotalAssets:        ledger.TotalAssets,
		TotalParticipants:  ledger.TotalParticipants,
		InceptionBlock:     ledger.InceptionBlock,
		ConservativeReturn: ledger.ConservativeReturn,
		BalancedReturn:     ledger.BalancedReturn,
		AggressiveReturn:   ledger.AggressiveReturn,
		Pools:              pools,
		CurrentLimit:       limit,
	}

	if s.redisClient != nil {
		if data, err := json.Marshal(stats); err == nil {
			s.redisClient.Set(ctx, cache.FundStatisticsKey(), data, 5*time.Second)
		}
	}
	return stats, nil
}

func (s *FundService) invalidateStatisticsCache(ctx context.Context) {
	if s.redisClient != nil {
		s.redisClient.Del(ctx, cache.FundStatisticsKey())
	}
}

type ProjectionRequest struct {
	UserID             int64 `json:"user_id"`
	AdditionalYears    int   `json:"additional_years"`
	AnnualContribution int64 `json:"annual_contribution"`
}

type ProjectionResponse struct {
	CurrentBalance     int64 `json:"current_balance"`
	ProjectedBalance   int64 `json:"projected_balance"`
	AnnualReturnBP     int64 `json:"annual_return_bp"`
	AdditionalYears    int   `json:"additional_years"`
	AnnualContribution int64 `json:"annual_contribution"`
}

// CalculateProjectedBalance 复利预估（只读，不改任何余额）
//
// 当前余额 = 个人余额 + 雇主余额（含未归属部分，简化口径）。
// 预估值 = 当前余额 × (1 + 年化/10000)^年数 + 年度追加 × 年数，向下取整
func (s *FundService) CalculateProjectedBalance(ctx context.Context, req *ProjectionRequest) (*ProjectionResponse, error) {
	account, err := s.accountRepo.GetByUserID(ctx, req.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrAccountNotFound) {
			return nil, ErrAccountNotFound
		}
		return nil, err
	}
	if req.AdditionalYears < 0 || req.AnnualContribution < 0 {
		return nil, ErrInvalidParameters
	}

	annualReturnBP, err := s.poolAnnualReturn(ctx, account.InvestmentPool)
	if err != nil {
		return nil, err
	}

	currentBalance := account.EmployeeBalance + account.EmployerBalance
	growth := math.Pow(1+float64(annualReturnBP)/float64(vesting.FullVestingBP), float64(req.AdditionalYears))

	// 年数足够大时复利结果会超出 int64，直接转换是未定义行为，封顶返回
	var projected int64
	grown := math.Floor(float64(currentBalance) * growth)
	if grown >= math.MaxInt64 || math.IsInf(grown, 1) {
		projected = math.MaxInt64
	} else {
		projected = int64(grown) + req.AnnualContribution*int64(req.AdditionalYears)
		if projected < int64(grown) {
			projected = math.MaxInt64
		}
	}

	return &ProjectionResponse{
		CurrentBalance:     currentBalance,
		ProjectedBalance:   projected,
		AnnualReturnBP:     annualReturnBP,
		AdditionalYears:    req.AdditionalYears,
		AnnualContribution: req.AnnualContribution,
	}, nil
}

// poolAnnualReturn 账户所属池的年化配置，池行未播种时回落到总账配置
func (s *FundService) poolAnnualReturn(ctx context.Context, poolType string) (int64, error) {
	pool, err := s.poolRepo.GetByType(ctx, poolType)
	if err == nil {
		return pool.AnnualReturnBP, nil
	}
	if !errors.Is(err, repository.ErrPoolNotFound) {
		return 0, err
	}

	ledger, err := s.fundRepo.GetOrCreate(ctx, nil)
	if err != nil {
		return 0, err
	}
	switch poolType {
	case model.PoolConservative:
		return ledger.ConservativeReturn, nil
	case model.PoolBalanced:
		return ledger.BalancedReturn, nil
	case model.PoolAggressive:
		return ledger.AggressiveReturn, nil
	}
	return 0, ErrInvalidPoolType
}
