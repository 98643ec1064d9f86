package job

import (
	"context"
	"log"
	"time"

	"pensionfund/internal/config"
	"pensionfund/internal/repository"

	"gorm.io/gorm"
)

// ReconcileJob 对账任务
//
// 周期性校验两组不变量，只告警不自动修复：
// 1. 基金总资产 >= 全部账户余额合计（差额为提前提取留存的罚金）
// 2. 每个参与人：累计提取 <= 累计缴存 + 累计匹配（资金离开账户的唯一出口）
// 出现偏差说明某次变更破坏了原子性
type ReconcileJob struct {
	db             *gorm.DB
	accountRepo    *repository.AccountRepository
	withdrawalRepo *repository.WithdrawalRepository
	fundRepo       *repository.FundRepository
	cfg            *config.Config
	stopCh         chan struct{}
	interval       time.Duration
}

func NewReconcileJob(db *gorm.DB, cfg *config.Config) *ReconcileJob {
	return &ReconcileJob{
		db:             db,
		accountRepo:    repository.NewAccountRepository(db),
		withdrawalRepo: repository.NewWithdrawalRepository(db),
		fundRepo:       repository.NewFundRepository(db),
		cfg:            cfg,
		stopCh:         make(chan struct{}),
		interval:       time.Minute,
	}
}

func (j *ReconcileJob) Start(ctx context.Context) {
	log.Println("[ReconcileJob] 对账任务启动")

	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("[ReconcileJob] 收到停止信号，任务退出")
			return
		case <-j.stopCh:
			log.Println("[ReconcileJob] 任务停止")
			return
		case <-ticker.C:
			j.checkInvariants(ctx)
		}
	}
}

func (j *ReconcileJob) Stop() {
	close(j.stopCh)
}

// checkInvariants 执行一轮对账，返回发现的异常数
func (j *ReconcileJob) checkInvariants(ctx context.Context) int {
	anomalies := 0

	ledger, err := j.fundRepo.GetOrCreate(ctx, nil)
	if err != nil {
		log.Printf("[ReconcileJob] 查询总账失败: %v", err)
		return anomalies
	}

	accountTotal, err := j.accountRepo.SumBalances(ctx)
	if err != nil {
		log.Printf("[ReconcileJob] 账户余额汇总失败: %v", err)
		return anomalies
	}

	if ledger.TotalAssets < accountTotal {
		anomalies++
		log.Printf("[ReconcileJob] 对账异常: totalAssets=%d < 账户余额合计=%d, 差额=%d",
			ledger.TotalAssets, accountTotal, accountTotal-ledger.TotalAssets)
	} else if diff := ledger.TotalAssets - accountTotal; diff > 0 {
		// 差额为留存罚金，属正常
		log.Printf("[ReconcileJob] 对账完成: 留存罚金=%d", diff)
	}

	// 参与人维度：累计提取不得超过累计流入
	accounts, err := j.accountRepo.ListAll(ctx)
	if err != nil {
		log.Printf("[ReconcileJob] 账户列表查询失败: %v", err)
		return anomalies
	}
	for _, account := range accounts {
		withdrawn, err := j.withdrawalRepo.SumAmountByUserID(ctx, account.UserID)
		if err != nil {
			log.Printf("[ReconcileJob] 提取汇总失败: userID=%d, %v", account.UserID, err)
			continue
		}
		inflow := account.TotalContributions + account.TotalEmployerMatch
		if withdrawn > inflow {
			anomalies++
			log.Printf("[ReconcileJob] 对账异常: userID=%d 累计提取=%d > 累计流入=%d",
				account.UserID, withdrawn, inflow)
		}
	}

	return anomalies
}
