package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"pensionfund/internal/config"
	"pensionfund/internal/infrastructure/lock"
	"pensionfund/internal/model"
	"pensionfund/internal/repository"
	"pensionfund/pkg/chain"
	"pensionfund/pkg/idgen"

	"github.com/go-redis/redis/v8"
	"gorm.io/gorm"
)

// ContributionService 缴存与雇主匹配管道
type ContributionService struct {
	db              *gorm.DB
	redisClient     *redis.Client
	cfg             *config.Config
	clock           chain.Clock
	walletService   *WalletService
	accountRepo     *repository.AccountRepository
	employerRepo    *repository.EmployerRepository
	poolRepo        *repository.PoolRepository
	fundRepo        *repository.FundRepository
	transactionRepo *repository.TransactionRepository
	outboxRepo      *repository.OutboxRepository
}

func NewContributionService(db *gorm.DB, redisClient *redis.Client, cfg *config.Config, clock chain.Clock) *ContributionService {
	return &ContributionService{
		db:              db,
		redisClient:     redisClient,
		cfg:             cfg,
		clock:           clock,
		walletService:   NewWalletService(db, clock),
		accountRepo:     repository.NewAccountRepository(db),
		employerRepo:    repository.NewEmployerRepository(db),
		poolRepo:        repository.NewPoolRepository(db),
		fundRepo:        repository.NewFundRepository(db),
		transactionRepo: repository.NewTransactionRepository(db),
		outboxRepo:      repository.NewOutboxRepository(db),
	}
}

type ContributeRequest struct {
	UserID int64 `json:"user_id"`
	Amount int64 `json:"amount"`
}

type ContributeResponse struct {
	ContributionNo string `json:"contribution_no"`
	Amount         int64  `json:"amount"`       // 个人缴存金额
	MatchAmount    int64  `json:"match_amount"` // 实际发生的雇主匹配（0 为合法结果）
}

// Contribute 个人缴存
//
// 【关键点】整个操作必须保证：
// 1. 原子性：钱包划转、账户入账、池/总账聚合、流水、匹配必须同时成功或同时失败
// 2. 并发安全：按参与人维度加分布式锁，同一参与人的缴存串行执行
// 3. 匹配在缴存事务内完成，雇主钱包不足会令整笔缴存回滚
func (s *ContributionService) Contribute(ctx context.Context, req *ContributeRequest) (*ContributeResponse, error) {
	if req.Amount <= 0 {
		return nil, ErrInvalidAmount
	}

	participantLock := lock.NewParticipantLock(s.redisClient, req.UserID)
	if err := participantLock.Lock(ctx, 100*time.Millisecond, 30); err != nil {
		return nil, fmt.Errorf("系统繁忙，请稍后重试: %w", err)
	}
	defer participantLock.Unlock(ctx)

	account, err := s.accountRepo.GetByUserID(ctx, req.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrAccountNotFound) {
			return nil, ErrAccountNotFound
		}
		return nil, err
	}
	if account.Status != model.AccountStatusActive {
		return nil, ErrAccountSuspended
	}

	now := s.clock.Height()
	contributionNo := idgen.GenerateContributionNo()

	var matchAmount int64
	err = s.db.Transaction(func(tx *gorm.DB) error {
		// 价值转移：参与人钱包 -> 基金钱包
		wallet, err := s.walletService.walletRepo.GetByOwnerID(ctx, tx, req.UserID)
		if err != nil {
			if errors.Is(err, repository.ErrWalletNotFound) {
				return fmt.Errorf("%w: owner=%d", ErrValueTransferFailed, req.UserID)
			}
			return err
		}
		if err := s.walletService.Transfer(ctx, tx, req.UserID, s.cfg.Pension.FundWalletID, req.Amount); err != nil {
			return err
		}

		if err := s.accountRepo.AddEmployeeContribution(ctx, tx, req.UserID, req.Amount, now); err != nil {
			return err
		}
		if err := s.poolRepo.AddBalance(ctx, tx, account.InvestmentPool, req.Amount); err != nil && !errors.Is(err, repository.ErrPoolNotFound) {
			return err
		}
		if err := s.fundRepo.AddTotalAssets(ctx, tx, req.Amount); err != nil {
			return err
		}

		trans := &model.FundTransaction{
			TransactionNo: idgen.GenerateTransactionNo(),
			OwnerID:       req.UserID,
			RefNo:         contributionNo,
			Amount:        -req.Amount,
			Type:          model.TransactionTypeContribution,
			BalanceBefore: wallet.Balance,
			BalanceAfter:  wallet.Balance - req.Amount,
			Block:         now,
			Remark:        "个人缴存",
		}
		if err := s.transactionRepo.Create(ctx, tx, trans); err != nil {
			return err
		}

		// 雇主匹配子操作
		matchAmount, err = s.applyMatch(ctx, tx, account, req.Amount, contributionNo, now)
		if err != nil {
			return err
		}

		msgPayload := map[string]interface{}{
			"event":           "contribution.completed",
			"contribution_no": contributionNo,
			"user_id":         req.UserID,
			"amount":          req.Amount,
			"match_amount":    matchAmount,
			"block":           now,
		}
		payloadBytes, _ := json.Marshal(msgPayload)

		outboxMsg := &model.OutboxMessage{
			MessageKey: contributionNo,
			Topic:      s.cfg.Kafka.Topic.PensionEvents,
			Payload:    string(payloadBytes),
			Status:     model.OutboxStatusPending,
		}
		return s.outboxRepo.Create(ctx, tx, outboxMsg)
	})

	if err != nil {
		return nil, err
	}

	log.Printf("缴存成功: contributionNo=%s, userID=%d, amount=%d, match=%d",
		contributionNo, req.UserID, req.Amount, matchAmount)

	return &ContributeResponse{
		ContributionNo: contributionNo,
		Amount:         req.Amount,
		MatchAmount:    matchAmount,
	}, nil
}

// applyMatch 雇主匹配子操作（缴存事务内执行）
//
// 计算：match = floor(缴存金额 × 匹配比例 / 100)，按雇主单笔上限封顶
// （上限按单笔缴存事件生效，不做年度累计）。未关联雇主、雇主停用
// 或算得 0 都返回 0，不算失败
func (s *ContributionService) applyMatch(ctx context.Context, tx *gorm.DB, account *model.RetirementAccount, contributionAmount int64, contributionNo string, now int64) (int64, error) {
	link, err := s.employerRepo.GetLinkByUserID(ctx, account.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrLinkNotFound) {
			return 0, nil
		}
		return 0, err
	}
	if !link.IsActive {
		return 0, nil
	}

	employer, err := s.employerRepo.GetByEmployerID(ctx, link.EmployerID)
	if err != nil {
		if errors.Is(err, repository.ErrEmployerNotFound) {
			return 0, nil
		}
		return 0, err
	}
	if !employer.IsActive {
		return 0, nil
	}

	match := contributionAmount * int64(employer.MatchRate) / 100
	if match > employer.MaxMatchAmount {
		match = employer.MaxMatchAmount
	}
	if match <= 0 {
		return 0, nil
	}

	// 价值转移：雇主钱包 -> 基金钱包（不足则整笔缴存回滚）
	employerWallet, err := s.walletService.walletRepo.GetByOwnerID(ctx, tx, employer.EmployerID)
	if err != nil {
		if errors.Is(err, repository.ErrWalletNotFound) {
			return 0, fmt.Errorf("%w: owner=%d", ErrValueTransferFailed, employer.EmployerID)
		}
		return 0, err
	}
	if err := s.walletService.Transfer(ctx, tx, employer.EmployerID, s.cfg.Pension.FundWalletID, match); err != nil {
		return 0, err
	}

	if err := s.accountRepo.AddEmployerMatch(ctx, tx, account.UserID, match); err != nil {
		return 0, err
	}
	if err := s.employerRepo.AddContribution(ctx, tx, employer.EmployerID, match); err != nil {
		return 0, err
	}
	if err := s.poolRepo.AddBalance(ctx, tx, account.InvestmentPool, match); err != nil && !errors.Is(err, repository.ErrPoolNotFound) {
		return 0, err
	}
	if err := s.fundRepo.AddTotalAssets(ctx, tx, match); err != nil {
		return 0, err
	}

	trans := &model.FundTransaction{
		TransactionNo: idgen.GenerateTransactionNo(),
		OwnerID:       employer.EmployerID,
		RefNo:         contributionNo,
		Amount:        -match,
		Type:          model.TransactionTypeMatch,
		BalanceBefore: employerWallet.Balance,
		BalanceAfter:  employerWallet.Balance - match,
		Block:         now,
		Remark:        fmt.Sprintf("雇主匹配-%s", employer.CompanyName),
	}
	if err := s.transactionRepo.Create(ctx, tx, trans); err != nil {
		return 0, err
	}

	return match, nil
}
