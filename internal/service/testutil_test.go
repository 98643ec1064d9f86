package service

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"

	"pensionfund/internal/config"
	"pensionfund/internal/model"
	"pensionfund/pkg/chain"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// ============================================================================
// 测试基础设施
// ============================================================================
//
// sqlite 内存库 + miniredis + 手动时钟，整条业务链路在进程内跑通。
// 每个用例独立命名的共享缓存内存库，互不串库。
// ============================================================================

const (
	testAdminID      = int64(10000)
	testFundWalletID = int64(1)
)

var testDBSeq int64

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:svc_test_%d?mode=memory&cache=shared", atomic.AddInt64(&testDBSeq, 1))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	require.NoError(t, db.AutoMigrate(
		&model.RetirementAccount{},
		&model.Employer{},
		&model.EmployeeEmployerLink{},
		&model.WithdrawalRecord{},
		&model.InvestmentPool{},
		&model.FundLedger{},
		&model.ContributionLimit{},
		&model.Wallet{},
		&model.FundTransaction{},
		&model.OutboxMessage{},
	))
	return db
}

func setupTestRedis(t *testing.T) *redis.Client {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return client
}

func testConfig() *config.Config {
	return &config.Config{
		Kafka: config.KafkaConfig{
			Topic:    config.KafkaTopicConfig{PensionEvents: "pension_events"},
			MaxRetry: 3,
		},
		Chain: config.ChainConfig{
			BlocksPerDay:  144,
			BlocksPerYear: 52560,
			BaseYear:      2024,
		},
		Pension: config.PensionConfig{
			AdminID:              testAdminID,
			FundWalletID:         testFundWalletID,
			RetirementAge:        65,
			EarlyPenaltyPercent:  10,
			DefaultVestingDays:   365,
			MinVestingDays:       365,
			MaxVestingDays:       1825,
			MaxContributionRate:  50,
			MinBirthYear:         1940,
			MaxBirthYear:         2010,
			ConservativeReturnBP: 500,
			BalancedReturnBP:     700,
			AggressiveReturnBP:   900,
			DefaultLimitYear:     2024,
			DefaultEmployeeLimit: 23000,
			DefaultCatchUpLimit:  7500,
		},
	}
}

// testEnv 全服务测试环境
type testEnv struct {
	db    *gorm.DB
	rdb   *redis.Client
	cfg   *config.Config
	clock *chain.ManualClock

	fund         *FundService
	account      *AccountService
	employer     *EmployerService
	wallet       *WalletService
	contribution *ContributionService
	withdrawal   *WithdrawalService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db := setupTestDB(t)
	rdb := setupTestRedis(t)
	cfg := testConfig()
	clock := chain.NewManualClock(0)

	return &testEnv{
		db:    db,
		rdb:   rdb,
		cfg:   cfg,
		clock: clock,

		fund:         NewFundService(db, rdb, cfg, clock),
		account:      NewAccountService(db, cfg, clock),
		employer:     NewEmployerService(db, cfg, clock),
		wallet:       NewWalletService(db, clock),
		contribution: NewContributionService(db, rdb, cfg, clock),
		withdrawal:   NewWithdrawalService(db, rdb, cfg, clock),
	}
}

// initFund 管理员初始化基金（播种池行与默认限额）
func (e *testEnv) initFund(t *testing.T) {
	t.Helper()
	require.NoError(t, e.fund.InitializeFund(context.Background(), testAdminID))
}

// createAccount 开户快捷方式
func (e *testEnv) createAccount(t *testing.T, userID int64, birthYear int, poolType string) {
	t.Helper()
	require.NoError(t, e.account.CreateAccount(context.Background(), &CreateAccountRequest{
		UserID:           userID,
		BirthYear:        birthYear,
		AnnualSalary:     600000,
		ContributionRate: 10,
		PoolType:         poolType,
	}))
}

// recharge 钱包充值快捷方式
func (e *testEnv) recharge(t *testing.T, ownerID, amount int64) {
	t.Helper()
	require.NoError(t, e.wallet.Recharge(context.Background(), ownerID, amount))
}

// registerEmployer 雇主注册快捷方式
func (e *testEnv) registerEmployer(t *testing.T, employerID int64, matchRate int, maxMatch int64) {
	t.Helper()
	require.NoError(t, e.employer.RegisterEmployer(context.Background(), &RegisterEmployerRequest{
		EmployerID:     employerID,
		CompanyName:    fmt.Sprintf("测试雇主%d", employerID),
		MatchRate:      matchRate,
		MaxMatchAmount: maxMatch,
		VestingDays:    365,
	}))
}

// mustAccount 直接读账户行
func (e *testEnv) mustAccount(t *testing.T, userID int64) *model.RetirementAccount {
	t.Helper()
	var account model.RetirementAccount
	require.NoError(t, e.db.Where("user_id = ?", userID).First(&account).Error)
	return &account
}

// mustLedger 直接读总账行
func (e *testEnv) mustLedger(t *testing.T) *model.FundLedger {
	t.Helper()
	var ledger model.FundLedger
	require.NoError(t, e.db.First(&ledger, model.FundLedgerID).Error)
	return &ledger
}

// mustPool 直接读池行
func (e *testEnv) mustPool(t *testing.T, poolType string) *model.InvestmentPool {
	t.Helper()
	var pool model.InvestmentPool
	require.NoError(t, e.db.Where("pool_type = ?", poolType).First(&pool).Error)
	return &pool
}

// walletBalance 直接读钱包余额（钱包不存在返回 0）
func (e *testEnv) walletBalance(t *testing.T, ownerID int64) int64 {
	t.Helper()
	balance, err := e.wallet.GetBalance(context.Background(), ownerID)
	require.NoError(t, err)
	return balance
}
