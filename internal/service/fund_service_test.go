package service

import (
	"context"
	"math"
	"testing"

	"pensionfund/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitializeFund(t *testing.T) {
	ctx := context.Background()

	t.Run("仅管理员可初始化", func(t *testing.T) {
		env := newTestEnv(t)
		err := env.fund.InitializeFund(ctx, 42)
		assert.ErrorIs(t, err, ErrNotAuthorized)
	})

	t.Run("初始化播种池与限额", func(t *testing.T) {
		env := newTestEnv(t)
		env.clock.SetHeight(100)
		require.NoError(t, env.fund.InitializeFund(ctx, testAdminID))

		ledger := env.mustLedger(t)
		assert.Equal(t, int64(100), ledger.InceptionBlock)
		assert.Equal(t, int64(500), ledger.ConservativeReturn)
		assert.Equal(t, int64(700), ledger.BalancedReturn)
		assert.Equal(t, int64(900), ledger.AggressiveReturn)

		for _, poolType := range model.AllPoolTypes {
			pool := env.mustPool(t, poolType)
			assert.Equal(t, int64(0), pool.TotalBalance)
			assert.Equal(t, int64(0), pool.ParticipantCount)
		}
		assert.Equal(t, int64(700), env.mustPool(t, model.PoolBalanced).AnnualReturnBP)

		var limit model.ContributionLimit
		require.NoError(t, env.db.Where("year = ?", 2024).First(&limit).Error)
		assert.Equal(t, int64(23000), limit.EmployeeLimit)
		assert.Equal(t, int64(7500), limit.CatchUpLimit)
	})

	t.Run("只允许初始化一次", func(t *testing.T) {
		env := newTestEnv(t)
		env.clock.SetHeight(100)
		require.NoError(t, env.fund.InitializeFund(ctx, testAdminID))

		env.clock.SetHeight(200)
		err := env.fund.InitializeFund(ctx, testAdminID)
		assert.ErrorIs(t, err, ErrAlreadyInitialized)
		assert.Equal(t, int64(100), env.mustLedger(t).InceptionBlock)
	})
}

func TestUpdatePoolReturns(t *testing.T) {
	ctx := context.Background()

	t.Run("仅管理员可调整", func(t *testing.T) {
		env := newTestEnv(t)
		err := env.fund.UpdatePoolReturns(ctx, &UpdatePoolReturnsRequest{
			CallerID: 42, ConservativeReturn: 100, BalancedReturn: 200, AggressiveReturn: 300,
		})
		assert.ErrorIs(t, err, ErrNotAuthorized)
	})

	t.Run("调整后统计立即可见", func(t *testing.T) {
		env := newTestEnv(t)
		env.initFund(t)

		// 先读一次，落入缓存
		stats, err := env.fund.GetFundStatistics(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(700), stats.BalancedReturn)

		require.NoError(t, env.fund.UpdatePoolReturns(ctx, &UpdatePoolReturnsRequest{
			CallerID: testAdminID, ConservativeReturn: 400, BalancedReturn: 600, AggressiveReturn: 1100,
		}))

		// 调整操作使缓存失效，读到新值
		stats, err = env.fund.GetFundStatistics(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(400), stats.ConservativeReturn)
		assert.Equal(t, int64(600), stats.BalancedReturn)
		assert.Equal(t, int64(1100), stats.AggressiveReturn)

		assert.Equal(t, int64(600), env.mustPool(t, model.PoolBalanced).AnnualReturnBP)
	})
}

func TestSetContributionLimits(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)

	err := env.fund.SetContributionLimits(ctx, &SetContributionLimitsRequest{
		CallerID: 42, Year: 2025, EmployeeLimit: 24000, CatchUpLimit: 8000,
	})
	assert.ErrorIs(t, err, ErrNotAuthorized)

	require.NoError(t, env.fund.SetContributionLimits(ctx, &SetContributionLimitsRequest{
		CallerID: testAdminID, Year: 2025, EmployeeLimit: 24000, CatchUpLimit: 8000,
	}))

	// 同年份覆盖写入
	require.NoError(t, env.fund.SetContributionLimits(ctx, &SetContributionLimitsRequest{
		CallerID: testAdminID, Year: 2025, EmployeeLimit: 25000, CatchUpLimit: 8000,
	}))

	var limit model.ContributionLimit
	require.NoError(t, env.db.Where("year = ?", 2025).First(&limit).Error)
	assert.Equal(t, int64(25000), limit.EmployeeLimit)
}

func TestSetAccountStatus(t *testing.T) {
	ctx := context.Background()

	t.Run("状态机流转", func(t *testing.T) {
		env := newTestEnv(t)
		env.createAccount(t, 101, 1990, model.PoolBalanced)

		require.NoError(t, env.fund.SetAccountStatus(ctx, &SetAccountStatusRequest{
			CallerID: testAdminID, UserID: 101, Status: model.AccountStatusSuspended,
		}))
		assert.Equal(t, model.AccountStatusSuspended, env.mustAccount(t, 101).Status)

		require.NoError(t, env.fund.SetAccountStatus(ctx, &SetAccountStatusRequest{
			CallerID: testAdminID, UserID: 101, Status: model.AccountStatusActive,
		}))

		require.NoError(t, env.fund.SetAccountStatus(ctx, &SetAccountStatusRequest{
			CallerID: testAdminID, UserID: 101, Status: model.AccountStatusRetired,
		}))

		// RETIRED 为终态
		err := env.fund.SetAccountStatus(ctx, &SetAccountStatusRequest{
			CallerID: testAdminID, UserID: 101, Status: model.AccountStatusActive,
		})
		assert.ErrorIs(t, err, ErrStatusConflict)
	})

	t.Run("权限与存在性", func(t *testing.T) {
		env := newTestEnv(t)
		env.createAccount(t, 101, 1990, model.PoolBalanced)

		err := env.fund.SetAccountStatus(ctx, &SetAccountStatusRequest{
			CallerID: 42, UserID: 101, Status: model.AccountStatusSuspended,
		})
		assert.ErrorIs(t, err, ErrNotAuthorized)

		err = env.fund.SetAccountStatus(ctx, &SetAccountStatusRequest{
			CallerID: testAdminID, UserID: 999, Status: model.AccountStatusSuspended,
		})
		assert.ErrorIs(t, err, ErrAccountNotFound)
	})
}

func TestSetEmployerStatus(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	env.registerEmployer(t, 9001, 50, 5000)

	err := env.fund.SetEmployerStatus(ctx, &SetEmployerStatusRequest{CallerID: 42, EmployerID: 9001, IsActive: false})
	assert.ErrorIs(t, err, ErrNotAuthorized)

	err = env.fund.SetEmployerStatus(ctx, &SetEmployerStatusRequest{CallerID: testAdminID, EmployerID: 404, IsActive: false})
	assert.ErrorIs(t, err, ErrEmployerNotFound)

	require.NoError(t, env.fund.SetEmployerStatus(ctx, &SetEmployerStatusRequest{
		CallerID: testAdminID, EmployerID: 9001, IsActive: false,
	}))
	employer, err := env.employer.GetEmployer(ctx, 9001)
	require.NoError(t, err)
	assert.False(t, employer.IsActive)
}

func TestGetFundStatistics(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	env.initFund(t)
	env.createAccount(t, 101, 1990, model.PoolBalanced)
	env.recharge(t, 101, 10000)
	_, err := env.contribution.Contribute(ctx, &ContributeRequest{UserID: 101, Amount: 2000})
	require.NoError(t, err)

	stats, err := env.fund.GetFundStatistics(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2000), stats.TotalAssets)
	assert.Equal(t, int64(1), stats.TotalParticipants)
	assert.Len(t, stats.Pools, 3)

	// 当前年度（2024）的缴存限额随统计返回
	require.NotNil(t, stats.CurrentLimit)
	assert.Equal(t, 2024, stats.CurrentLimit.Year)
	assert.Equal(t, int64(23000), stats.CurrentLimit.EmployeeLimit)

	// 短缓存：未失效前读到的是快照
	_, err = env.contribution.Contribute(ctx, &ContributeRequest{UserID: 101, Amount: 1000})
	require.NoError(t, err)
	stats, err = env.fund.GetFundStatistics(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2000), stats.TotalAssets)
}

func TestCalculateProjectedBalance(t *testing.T) {
	ctx := context.Background()

	t.Run("复利预估", func(t *testing.T) {
		env := newTestEnv(t)
		env.initFund(t)
		env.createAccount(t, 101, 1990, model.PoolBalanced)
		env.recharge(t, 101, 20000)
		_, err := env.contribution.Contribute(ctx, &ContributeRequest{UserID: 101, Amount: 10000})
		require.NoError(t, err)

		resp, err := env.fund.CalculateProjectedBalance(ctx, &ProjectionRequest{
			UserID: 101, AdditionalYears: 10, AnnualContribution: 1000,
		})
		require.NoError(t, err)
		assert.Equal(t, int64(10000), resp.CurrentBalance)
		assert.Equal(t, int64(700), resp.AnnualReturnBP)
		// 10000 × 1.07^10 向下取整 = 19671，加 1000 × 10
		assert.Equal(t, int64(29671), resp.ProjectedBalance)
	})

	t.Run("零年数返回当前余额", func(t *testing.T) {
		env := newTestEnv(t)
		env.initFund(t)
		env.createAccount(t, 101, 1990, model.PoolBalanced)
		env.recharge(t, 101, 5000)
		_, err := env.contribution.Contribute(ctx, &ContributeRequest{UserID: 101, Amount: 5000})
		require.NoError(t, err)

		resp, err := env.fund.CalculateProjectedBalance(ctx, &ProjectionRequest{UserID: 101})
		require.NoError(t, err)
		assert.Equal(t, int64(5000), resp.ProjectedBalance)
	})

	t.Run("池未播种时回落总账配置", func(t *testing.T) {
		env := newTestEnv(t)
		env.createAccount(t, 101, 1990, model.PoolBalanced)

		resp, err := env.fund.CalculateProjectedBalance(ctx, &ProjectionRequest{
			UserID: 101, AdditionalYears: 5, AnnualContribution: 1000,
		})
		require.NoError(t, err)
		assert.Equal(t, int64(0), resp.AnnualReturnBP)
		assert.Equal(t, int64(5000), resp.ProjectedBalance)
	})

	t.Run("超大年数封顶不溢出", func(t *testing.T) {
		env := newTestEnv(t)
		env.initFund(t)
		env.createAccount(t, 101, 1990, model.PoolBalanced)
		env.recharge(t, 101, 10000)
		_, err := env.contribution.Contribute(ctx, &ContributeRequest{UserID: 101, Amount: 10000})
		require.NoError(t, err)

		resp, err := env.fund.CalculateProjectedBalance(ctx, &ProjectionRequest{
			UserID: 101, AdditionalYears: 20000,
		})
		require.NoError(t, err)
		assert.Equal(t, int64(math.MaxInt64), resp.ProjectedBalance)
		assert.GreaterOrEqual(t, resp.ProjectedBalance, int64(0), "预估值不允许为负")
	})

	t.Run("参数校验", func(t *testing.T) {
		env := newTestEnv(t)
		env.createAccount(t, 101, 1990, model.PoolBalanced)

		_, err := env.fund.CalculateProjectedBalance(ctx, &ProjectionRequest{UserID: 101, AdditionalYears: -1})
		assert.ErrorIs(t, err, ErrInvalidParameters)

		_, err = env.fund.CalculateProjectedBalance(ctx, &ProjectionRequest{UserID: 999})
		assert.ErrorIs(t, err, ErrAccountNotFound)
	})
}
