package service

import (
	"context"
	"testing"

	"pensionfund/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestContribute(t *testing.T) {
	ctx := context.Background()

	t.Run("无雇主缴存", func(t *testing.T) {
		env := newTestEnv(t)
		env.initFund(t)
		env.createAccount(t, 101, 1990, model.PoolBalanced)
		env.recharge(t, 101, 10000)
		env.clock.SetHeight(300)

		resp, err := env.contribution.Contribute(ctx, &ContributeRequest{UserID: 101, Amount: 1000})
		require.NoError(t, err)
		assert.NotEmpty(t, resp.ContributionNo)
		assert.Equal(t, int64(1000), resp.Amount)
		assert.Equal(t, int64(0), resp.MatchAmount)

		account := env.mustAccount(t, 101)
		assert.Equal(t, int64(1000), account.EmployeeBalance)
		assert.Equal(t, int64(0), account.EmployerBalance)
		assert.Equal(t, int64(1000), account.TotalContributions)
		assert.Equal(t, int64(300), account.LastContributionBlock)

		assert.Equal(t, int64(1000), env.mustLedger(t).TotalAssets)
		assert.Equal(t, int64(1000), env.mustPool(t, model.PoolBalanced).TotalBalance)

		// 价值转移：参与人钱包 -> 基金钱包
		assert.Equal(t, int64(9000), env.walletBalance(t, 101))
		assert.Equal(t, int64(1000), env.walletBalance(t, testFundWalletID))

		// 流水与发件箱
		var transCount int64
		env.db.Model(&model.FundTransaction{}).
			Where("owner_id = ? AND type = ?", 101, model.TransactionTypeContribution).Count(&transCount)
		assert.Equal(t, int64(1), transCount)

		var outbox model.OutboxMessage
		require.NoError(t, env.db.Where("message_key = ?", resp.ContributionNo).First(&outbox).Error)
		assert.Equal(t, "pension_events", outbox.Topic)
		assert.Equal(t, model.OutboxStatusPending, outbox.Status)
	})

	t.Run("雇主匹配", func(t *testing.T) {
		env := newTestEnv(t)
		env.initFund(t)
		env.createAccount(t, 101, 1990, model.PoolBalanced)
		env.registerEmployer(t, 9001, 50, 5000)
		require.NoError(t, env.employer.AddEmployee(ctx, &AddEmployeeRequest{EmployerID: 9001, UserID: 101}))
		env.recharge(t, 101, 10000)
		env.recharge(t, 9001, 100000)

		resp, err := env.contribution.Contribute(ctx, &ContributeRequest{UserID: 101, Amount: 1000})
		require.NoError(t, err)
		assert.Equal(t, int64(500), resp.MatchAmount) // 1000 × 50%

		account := env.mustAccount(t, 101)
		assert.Equal(t, int64(1000), account.EmployeeBalance)
		assert.Equal(t, int64(500), account.EmployerBalance)
		assert.Equal(t, int64(500), account.TotalEmployerMatch)

		employer, err := env.employer.GetEmployer(ctx, 9001)
		require.NoError(t, err)
		assert.Equal(t, int64(500), employer.TotalContributions)

		assert.Equal(t, int64(1500), env.mustLedger(t).TotalAssets)
		assert.Equal(t, int64(1500), env.mustPool(t, model.PoolBalanced).TotalBalance)
		assert.Equal(t, int64(99500), env.walletBalance(t, 9001))
		assert.Equal(t, int64(1500), env.walletBalance(t, testFundWalletID))

		var matchCount int64
		env.db.Model(&model.FundTransaction{}).
			Where("owner_id = ? AND type = ?", 9001, model.TransactionTypeMatch).Count(&matchCount)
		assert.Equal(t, int64(1), matchCount)
	})

	t.Run("匹配按单笔上限封顶", func(t *testing.T) {
		env := newTestEnv(t)
		env.initFund(t)
		env.createAccount(t, 101, 1990, model.PoolBalanced)
		env.registerEmployer(t, 9001, 50, 5000)
		require.NoError(t, env.employer.AddEmployee(ctx, &AddEmployeeRequest{EmployerID: 9001, UserID: 101}))
		env.recharge(t, 101, 50000)
		env.recharge(t, 9001, 100000)

		resp, err := env.contribution.Contribute(ctx, &ContributeRequest{UserID: 101, Amount: 20000})
		require.NoError(t, err)
		assert.Equal(t, int64(5000), resp.MatchAmount, "匹配算得10000，被上限5000封顶")

		// 上限按单笔生效，第二笔仍可再匹配到上限
		resp, err = env.contribution.Contribute(ctx, &ContributeRequest{UserID: 101, Amount: 20000})
		require.NoError(t, err)
		assert.Equal(t, int64(5000), resp.MatchAmount)
	})

	t.Run("雇主停用时只缴存不匹配", func(t *testing.T) {
		env := newTestEnv(t)
		env.initFund(t)
		env.createAccount(t, 101, 1990, model.PoolBalanced)
		env.registerEmployer(t, 9001, 50, 5000)
		require.NoError(t, env.employer.AddEmployee(ctx, &AddEmployeeRequest{EmployerID: 9001, UserID: 101}))
		require.NoError(t, env.fund.SetEmployerStatus(ctx, &SetEmployerStatusRequest{
			CallerID: testAdminID, EmployerID: 9001, IsActive: false,
		}))
		env.recharge(t, 101, 10000)

		resp, err := env.contribution.Contribute(ctx, &ContributeRequest{UserID: 101, Amount: 1000})
		require.NoError(t, err)
		assert.Equal(t, int64(0), resp.MatchAmount)
		assert.Equal(t, int64(0), env.mustAccount(t, 101).EmployerBalance)
	})

	t.Run("钱包余额不足整笔失败", func(t *testing.T) {
		env := newTestEnv(t)
		env.initFund(t)
		env.createAccount(t, 101, 1990, model.PoolBalanced)
		env.recharge(t, 101, 100)

		_, err := env.contribution.Contribute(ctx, &ContributeRequest{UserID: 101, Amount: 1000})
		assert.ErrorIs(t, err, ErrValueTransferFailed)

		// 全部回滚
		assert.Equal(t, int64(0), env.mustAccount(t, 101).EmployeeBalance)
		assert.Equal(t, int64(0), env.mustLedger(t).TotalAssets)
		assert.Equal(t, int64(100), env.walletBalance(t, 101))
	})

	t.Run("雇主钱包不足整笔回滚", func(t *testing.T) {
		env := newTestEnv(t)
		env.initFund(t)
		env.createAccount(t, 101, 1990, model.PoolBalanced)
		env.registerEmployer(t, 9001, 50, 5000)
		require.NoError(t, env.employer.AddEmployee(ctx, &AddEmployeeRequest{EmployerID: 9001, UserID: 101}))
		env.recharge(t, 101, 10000)
		env.recharge(t, 9001, 100) // 不够匹配 500

		_, err := env.contribution.Contribute(ctx, &ContributeRequest{UserID: 101, Amount: 1000})
		assert.ErrorIs(t, err, ErrValueTransferFailed)

		// 个人缴存部分也一并回滚，不留半笔状态
		account := env.mustAccount(t, 101)
		assert.Equal(t, int64(0), account.EmployeeBalance)
		assert.Equal(t, int64(0), account.TotalContributions)
		assert.Equal(t, int64(0), env.mustLedger(t).TotalAssets)
		assert.Equal(t, int64(10000), env.walletBalance(t, 101))
		assert.Equal(t, int64(100), env.walletBalance(t, 9001))

		var outboxCount int64
		env.db.Model(&model.OutboxMessage{}).Count(&outboxCount)
		assert.Equal(t, int64(0), outboxCount)
	})

	t.Run("前置校验", func(t *testing.T) {
		env := newTestEnv(t)
		env.createAccount(t, 101, 1990, model.PoolBalanced)

		_, err := env.contribution.Contribute(ctx, &ContributeRequest{UserID: 101, Amount: 0})
		assert.ErrorIs(t, err, ErrInvalidAmount)

		_, err = env.contribution.Contribute(ctx, &ContributeRequest{UserID: 101, Amount: -5})
		assert.ErrorIs(t, err, ErrInvalidAmount)

		_, err = env.contribution.Contribute(ctx, &ContributeRequest{UserID: 999, Amount: 100})
		assert.ErrorIs(t, err, ErrAccountNotFound)

		require.NoError(t, env.fund.SetAccountStatus(ctx, &SetAccountStatusRequest{
			CallerID: testAdminID, UserID: 101, Status: model.AccountStatusSuspended,
		}))
		_, err = env.contribution.Contribute(ctx, &ContributeRequest{UserID: 101, Amount: 100})
		assert.ErrorIs(t, err, ErrAccountSuspended)
	})

	t.Run("无钱包缴存失败", func(t *testing.T) {
		env := newTestEnv(t)
		env.createAccount(t, 101, 1990, model.PoolBalanced)

		_, err := env.contribution.Contribute(ctx, &ContributeRequest{UserID: 101, Amount: 100})
		assert.ErrorIs(t, err, ErrValueTransferFailed)
	})
}
