package service

import (
	"context"
	"testing"

	"pensionfund/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisterEmployer(t *testing.T) {
	ctx := context.Background()

	t.Run("注册成功", func(t *testing.T) {
		env := newTestEnv(t)
		env.clock.SetHeight(500)
		env.registerEmployer(t, 9001, 50, 5000)

		employer, err := env.employer.GetEmployer(ctx, 9001)
		require.NoError(t, err)
		assert.Equal(t, 50, employer.MatchRate)
		assert.Equal(t, int64(5000), employer.MaxMatchAmount)
		assert.Equal(t, int64(365), employer.VestingScheduleDays)
		assert.True(t, employer.IsActive)
		assert.Equal(t, int64(500), employer.RegistrationBlock)
	})

	t.Run("重复注册被拒", func(t *testing.T) {
		env := newTestEnv(t)
		env.registerEmployer(t, 9001, 50, 5000)

		err := env.employer.RegisterEmployer(ctx, &RegisterEmployerRequest{
			EmployerID: 9001, CompanyName: "另一家", MatchRate: 30, MaxMatchAmount: 1000, VestingDays: 365,
		})
		assert.ErrorIs(t, err, ErrEmployerExists)
	})

	t.Run("参数校验", func(t *testing.T) {
		env := newTestEnv(t)

		err := env.employer.RegisterEmployer(ctx, &RegisterEmployerRequest{
			EmployerID: 9002, MatchRate: 101, MaxMatchAmount: 100, VestingDays: 365,
		})
		assert.ErrorIs(t, err, ErrInvalidParameters, "匹配比例超过100")

		err = env.employer.RegisterEmployer(ctx, &RegisterEmployerRequest{
			EmployerID: 9002, MatchRate: 50, MaxMatchAmount: 100, VestingDays: 100,
		})
		assert.ErrorIs(t, err, ErrInvalidParameters, "归属期低于下限")

		err = env.employer.RegisterEmployer(ctx, &RegisterEmployerRequest{
			EmployerID: 9002, MatchRate: 50, MaxMatchAmount: 100, VestingDays: 3650,
		})
		assert.ErrorIs(t, err, ErrInvalidParameters, "归属期超过上限")

		err = env.employer.RegisterEmployer(ctx, &RegisterEmployerRequest{
			EmployerID: 9002, MatchRate: 50, MaxMatchAmount: -1, VestingDays: 365,
		})
		assert.ErrorIs(t, err, ErrInvalidParameters, "单笔匹配上限不能为负")
	})
}

func TestAddEmployee(t *testing.T) {
	ctx := context.Background()

	t.Run("关联成功并重新起算归属", func(t *testing.T) {
		env := newTestEnv(t)
		env.createAccount(t, 101, 1990, model.PoolBalanced)

		require.NoError(t, env.employer.RegisterEmployer(ctx, &RegisterEmployerRequest{
			EmployerID: 9001, CompanyName: "测试雇主", MatchRate: 50, MaxMatchAmount: 5000, VestingDays: 730,
		}))

		env.clock.SetHeight(2000)
		require.NoError(t, env.employer.AddEmployee(ctx, &AddEmployeeRequest{EmployerID: 9001, UserID: 101}))

		var link model.EmployeeEmployerLink
		require.NoError(t, env.db.Where("user_id = ?", 101).First(&link).Error)
		assert.Equal(t, int64(9001), link.EmployerID)
		assert.Equal(t, int64(2000), link.StartBlock)
		assert.True(t, link.IsActive)

		employer, err := env.employer.GetEmployer(ctx, 9001)
		require.NoError(t, err)
		assert.Equal(t, int64(1), employer.TotalEmployees)

		// 入职重新起算归属：起算高度与归属期都换成雇主计划
		account := env.mustAccount(t, 101)
		assert.Equal(t, int64(2000), account.VestingStartBlock)
		assert.Equal(t, int64(730), account.VestingPeriodDays)
	})

	t.Run("无账户雇员也可关联", func(t *testing.T) {
		env := newTestEnv(t)
		env.registerEmployer(t, 9001, 50, 5000)

		require.NoError(t, env.employer.AddEmployee(ctx, &AddEmployeeRequest{EmployerID: 9001, UserID: 202}))

		var link model.EmployeeEmployerLink
		require.NoError(t, env.db.Where("user_id = ?", 202).First(&link).Error)
	})

	t.Run("雇主不存在", func(t *testing.T) {
		env := newTestEnv(t)
		err := env.employer.AddEmployee(ctx, &AddEmployeeRequest{EmployerID: 999, UserID: 101})
		assert.ErrorIs(t, err, ErrEmployerNotFound)
	})

	t.Run("雇主已停用", func(t *testing.T) {
		env := newTestEnv(t)
		env.registerEmployer(t, 9001, 50, 5000)
		require.NoError(t, env.fund.SetEmployerStatus(ctx, &SetEmployerStatusRequest{
			CallerID: testAdminID, EmployerID: 9001, IsActive: false,
		}))

		err := env.employer.AddEmployee(ctx, &AddEmployeeRequest{EmployerID: 9001, UserID: 101})
		assert.ErrorIs(t, err, ErrEmployerInactive)
	})

	t.Run("重复关联被拒", func(t *testing.T) {
		env := newTestEnv(t)
		env.registerEmployer(t, 9001, 50, 5000)
		env.registerEmployer(t, 9002, 30, 1000)

		require.NoError(t, env.employer.AddEmployee(ctx, &AddEmployeeRequest{EmployerID: 9001, UserID: 101}))

		err := env.employer.AddEmployee(ctx, &AddEmployeeRequest{EmployerID: 9002, UserID: 101})
		assert.ErrorIs(t, err, ErrAlreadyLinked)

		err = env.employer.AddEmployee(ctx, &AddEmployeeRequest{EmployerID: 9001, UserID: 101})
		assert.ErrorIs(t, err, ErrAlreadyLinked)
	})
}

func TestGetEmployer(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.employer.GetEmployer(context.Background(), 404)
	assert.ErrorIs(t, err, ErrEmployerNotFound)
}
