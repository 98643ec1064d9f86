package service

import (
	"context"
	"errors"
	"fmt"

	"pensionfund/internal/model"
	"pensionfund/internal/repository"
	"pensionfund/pkg/chain"
	"pensionfund/pkg/idgen"

	"gorm.io/gorm"
)

// WalletService 资金托管钱包
// 外部价值转移原语的实现方：缴存/提取的资金划转都经由这里，
// 划转失败（余额不足）会令外层业务事务整体回滚
type WalletService struct {
	db              *gorm.DB
	clock           chain.Clock
	walletRepo      *repository.WalletRepository
	transactionRepo *repository.TransactionRepository
}

func NewWalletService(db *gorm.DB, clock chain.Clock) *WalletService {
	return &WalletService{
		db:              db,
		clock:           clock,
		walletRepo:      repository.NewWalletRepository(db),
		transactionRepo: repository.NewTransactionRepository(db),
	}
}

func (s *WalletService) GetBalance(ctx context.Context, ownerID int64) (int64, error) {
	wallet, err := s.walletRepo.GetByOwnerID(ctx, nil, ownerID)
	if err != nil {
		if errors.Is(err, repository.ErrWalletNotFound) {
			return 0, nil
		}
		return 0, err
	}
	return wallet.Balance, nil
}

// Recharge 钱包充值（资金进入系统的入口，实际场景对接支付渠道）
func (s *WalletService) Recharge(ctx context.Context, ownerID int64, amount int64) error {
	if amount <= 0 {
		return ErrInvalidAmount
	}

	wallet, err := s.walletRepo.GetOrCreate(ctx, nil, ownerID)
	if err != nil {
		return err
	}

	rechargeNo := idgen.GenerateRechargeNo()
	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := s.walletRepo.Increase(ctx, tx, ownerID, amount); err != nil {
			return err
		}

		trans := &model.FundTransaction{
			TransactionNo: idgen.GenerateTransactionNo(),
			OwnerID:       ownerID,
			RefNo:         rechargeNo,
			Amount:        amount,
			Type:          model.TransactionTypeRecharge,
			BalanceBefore: wallet.Balance,
			BalanceAfter:  wallet.Balance + amount,
			Block:         s.clock.Height(),
			Remark:        "钱包充值",
		}
		return s.transactionRepo.Create(ctx, tx, trans)
	})
}

// Transfer 事务内划转：from 钱包扣减、to 钱包入账
// 必须在外层业务事务（tx）内调用，任一步失败整体回滚
func (s *WalletService) Transfer(ctx context.Context, tx *gorm.DB, fromID, toID, amount int64) error {
	if amount <= 0 {
		return ErrInvalidAmount
	}
	if err := s.walletRepo.Deduct(ctx, tx, fromID, amount); err != nil {
		if errors.Is(err, repository.ErrWalletNotEnough) || errors.Is(err, repository.ErrWalletNotFound) {
			return fmt.Errorf("%w: owner=%d amount=%d", ErrValueTransferFailed, fromID, amount)
		}
		return err
	}
	if _, err := s.walletRepo.GetOrCreate(ctx, tx, toID); err != nil {
		return err
	}
	return s.walletRepo.Increase(ctx, tx, toID, amount)
}
