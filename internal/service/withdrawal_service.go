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
	"pensionfund/pkg/vesting"

	"github.com/go-redis/redis/v8"
	"gorm.io/gorm"
)

// WithdrawalService 提取状态机
//
// 两条互斥路径：
// - 退休提取：年龄 >= 门槛，可提 个人余额 + 已归属雇主余额，先扣个人
// - 提前提取：年龄 < 门槛，仅可提个人余额，扣 10% 罚金（罚金留存基金内）
type WithdrawalService struct {
	db              *gorm.DB
	redisClient     *redis.Client
	cfg             *config.Config
	clock           chain.Clock
	calendar        chain.Calendar
	walletService   *WalletService
	accountRepo     *repository.AccountRepository
	withdrawalRepo  *repository.WithdrawalRepository
	poolRepo        *repository.PoolRepository
	fundRepo        *repository.FundRepository
	transactionRepo *repository.TransactionRepository
	outboxRepo      *repository.OutboxRepository
}

func NewWithdrawalService(db *gorm.DB, redisClient *redis.Client, cfg *config.Config, clock chain.Clock) *WithdrawalService {
	return &WithdrawalService{
		db:              db,
		redisClient:     redisClient,
		cfg:             cfg,
		clock:           clock,
		calendar:        NewCalendar(cfg),
		walletService:   NewWalletService(db, clock),
		accountRepo:     repository.NewAccountRepository(db),
		withdrawalRepo:  repository.NewWithdrawalRepository(db),
		poolRepo:        repository.NewPoolRepository(db),
		fundRepo:        repository.NewFundRepository(db),
		transactionRepo: repository.NewTransactionRepository(db),
		outboxRepo:      repository.NewOutboxRepository(db),
	}
}

type WithdrawRequest struct {
	UserID int64  `json:"user_id"`
	Amount int64  `json:"amount"`
	Reason string `json:"reason,omitempty"` // 仅提前提取使用
}

type WithdrawResponse struct {
	WithdrawalNo  string `json:"withdrawal_no"`
	Amount        int64  `json:"amount"`         // 账户扣减总额
	PenaltyAmount int64  `json:"penalty_amount"` // 罚金（退休提取恒为 0）
	NetAmount     int64  `json:"net_amount"`     // 实际到账金额
	Type          string `json:"type"`
}

// WithdrawRetirement 退休提取
func (s *WithdrawalService) WithdrawRetirement(ctx context.Context, req *WithdrawRequest) (*WithdrawResponse, error) {
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

	now := s.clock.Height()
	age := s.calendar.Age(account.BirthYear, now)
	if age < s.cfg.Pension.RetirementAge {
		return nil, ErrNotRetirementAge
	}

	vested := vesting.VestedAmount(
		account.EmployerBalance,
		account.VestingStartBlock,
		account.VestingPeriodDays,
		now,
		s.calendar.BlocksPerDay,
	)
	available := account.EmployeeBalance + vested
	if req.Amount > available {
		return nil, ErrInsufficientBalance
	}

	// 先扣个人余额，不足部分从已归属雇主余额补
	fromEmployee := req.Amount
	fromEmployer := int64(0)
	if fromEmployee > account.EmployeeBalance {
		fromEmployee = account.EmployeeBalance
		fromEmployer = req.Amount - fromEmployee
	}

	withdrawalNo := idgen.GenerateWithdrawalNo()
	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := s.accountRepo.DeductBalances(ctx, tx, req.UserID, fromEmployee, fromEmployer, account.Version); err != nil {
			if errors.Is(err, repository.ErrBalanceNotEnough) {
				return ErrInsufficientBalance
			}
			if errors.Is(err, repository.ErrOptimisticLock) {
				return ErrConcurrentUpdate
			}
			return err
		}
		return s.settleWithdrawal(ctx, tx, account, &model.WithdrawalRecord{
			WithdrawalNo: withdrawalNo,
			UserID:       req.UserID,
			Amount:       req.Amount,
			Type:         model.WithdrawalTypeRegular,
			Block:        now,
		}, req.Amount, req.Amount)
	})
	if err != nil {
		return nil, err
	}

	log.Printf("退休提取成功: withdrawalNo=%s, userID=%d, amount=%d", withdrawalNo, req.UserID, req.Amount)

	return &WithdrawResponse{
		WithdrawalNo: withdrawalNo,
		Amount:       req.Amount,
		NetAmount:    req.Amount,
		Type:         model.WithdrawalTypeRegular,
	}, nil
}

// WithdrawEarly 提前提取
//
// 仅退休年龄之下可用；雇主余额（无论归属与否）不可经此路径提取。
// 罚金从提取额中扣除且留存基金内：账户扣减全额，总资产只减净额
func (s *WithdrawalService) WithdrawEarly(ctx context.Context, req *WithdrawRequest) (*WithdrawResponse, error) {
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

	now := s.clock.Height()
	age := s.calendar.Age(account.BirthYear, now)
	if age >= s.cfg.Pension.RetirementAge {
		return nil, ErrNotRetirementAge
	}

	if req.Amount > account.EmployeeBalance {
		return nil, ErrInsufficientBalance
	}

	penalty := req.Amount * s.cfg.Pension.EarlyPenaltyPercent / 100
	net := req.Amount - penalty

	withdrawalNo := idgen.GenerateWithdrawalNo()
	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := s.accountRepo.DeductBalances(ctx, tx, req.UserID, req.Amount, 0, account.Version); err != nil {
			if errors.Is(err, repository.ErrBalanceNotEnough) {
				return ErrInsufficientBalance
			}
			if errors.Is(err, repository.ErrOptimisticLock) {
				return ErrConcurrentUpdate
			}
			return err
		}
		return s.settleWithdrawal(ctx, tx, account, &model.WithdrawalRecord{
			WithdrawalNo:  withdrawalNo,
			UserID:        req.UserID,
			Amount:        req.Amount,
			Type:          model.WithdrawalTypeEarly,
			PenaltyAmount: penalty,
			Block:         now,
			Reason:        req.Reason,
		}, req.Amount, net)
	})
	if err != nil {
		return nil, err
	}

	log.Printf("提前提取成功: withdrawalNo=%s, userID=%d, amount=%d, penalty=%d, net=%d",
		withdrawalNo, req.UserID, req.Amount, penalty, net)

	return &WithdrawResponse{
		WithdrawalNo:  withdrawalNo,
		Amount:        req.Amount,
		PenaltyAmount: penalty,
		NetAmount:     net,
		Type:          model.WithdrawalTypeEarly,
	}, nil
}

// settleWithdrawal 提取公共收尾（事务内）：
// 基金钱包划出净额、池/总账聚合扣减、提取记录、流水、事件
//
// deducted 为账户扣减总额（含罚金），net 为实际到账金额。
// 总资产只减 net，罚金差额留存基金内
func (s *WithdrawalService) settleWithdrawal(ctx context.Context, tx *gorm.DB, account *model.RetirementAccount, record *model.WithdrawalRecord, deducted, net int64) error {
	fundWallet, err := s.walletService.walletRepo.GetByOwnerID(ctx, tx, s.cfg.Pension.FundWalletID)
	if err != nil {
		if errors.Is(err, repository.ErrWalletNotFound) {
			return fmt.Errorf("%w: owner=%d", ErrValueTransferFailed, s.cfg.Pension.FundWalletID)
		}
		return err
	}

	// 价值转移：基金钱包 -> 参与人钱包
	if err := s.walletService.Transfer(ctx, tx, s.cfg.Pension.FundWalletID, account.UserID, net); err != nil {
		return err
	}

	if err := s.poolRepo.AddBalance(ctx, tx, account.InvestmentPool, -deducted); err != nil && !errors.Is(err, repository.ErrPoolNotFound) {
		return err
	}
	if err := s.fundRepo.AddTotalAssets(ctx, tx, -net); err != nil {
		return err
	}

	seq, err := s.withdrawalRepo.NextSequence(ctx, tx, record.UserID)
	if err != nil {
		return err
	}
	record.Sequence = seq
	if err := s.withdrawalRepo.Create(ctx, tx, record); err != nil {
		return err
	}

	trans := &model.FundTransaction{
		TransactionNo: idgen.GenerateTransactionNo(),
		OwnerID:       s.cfg.Pension.FundWalletID,
		RefNo:         record.WithdrawalNo,
		Amount:        -net,
		Type:          model.TransactionTypeWithdrawal,
		BalanceBefore: fundWallet.Balance,
		BalanceAfter:  fundWallet.Balance - net,
		Block:         record.Block,
		Remark:        fmt.Sprintf("提取-%s", record.Type),
	}
	if err := s.transactionRepo.Create(ctx, tx, trans); err != nil {
		return err
	}

	msgPayload := map[string]interface{}{
		"event":          "withdrawal.completed",
		"withdrawal_no":  record.WithdrawalNo,
		"user_id":        record.UserID,
		"amount":         record.Amount,
		"penalty_amount": record.PenaltyAmount,
		"net_amount":     net,
		"type":           record.Type,
		"block":          record.Block,
	}
	payloadBytes, _ := json.Marshal(msgPayload)

	outboxMsg := &model.OutboxMessage{
		MessageKey: record.WithdrawalNo,
		Topic:      s.cfg.Kafka.Topic.PensionEvents,
		Payload:    string(payloadBytes),
		Status:     model.OutboxStatusPending,
	}
	return s.outboxRepo.Create(ctx, tx, outboxMsg)
}

// ListWithdrawals 提取记录查询
func (s *WithdrawalService) ListWithdrawals(ctx context.Context, userID int64, page, pageSize int) ([]*model.WithdrawalRecord, int64, error) {
	return s.withdrawalRepo.ListByUserID(ctx, userID, page, pageSize)
}
