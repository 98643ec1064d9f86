package model

import (
	"time"
)

// ============================================================================
// 养老金账户
// ============================================================================

// 投资池类型
const (
	PoolConservative = "CONSERVATIVE" // 保守型
	PoolBalanced     = "BALANCED"     // 平衡型
	PoolAggressive   = "AGGRESSIVE"   // 进取型
)

// AllPoolTypes 全部投资池类型（固定三档）
var AllPoolTypes = []string{PoolConservative, PoolBalanced, PoolAggressive}

// IsValidPoolType 校验投资池类型是否合法
func IsValidPoolType(poolType string) bool {
	for _, p := range AllPoolTypes {
		if p == poolType {
			return true
		}
	}
	return false
}

// 账户状态
const (
	AccountStatusActive    = "ACTIVE"    // 正常
	AccountStatusSuspended = "SUSPENDED" // 冻结
	AccountStatusRetired   = "RETIRED"   // 已退休
)

// 账户状态流转表
// 账户一经创建永不删除，RETIRED 为终态（保留审计记录）
var ValidAccountStatusTransitions = map[string][]string{
	AccountStatusActive:    {AccountStatusSuspended, AccountStatusRetired},
	AccountStatusSuspended: {AccountStatusActive, AccountStatusRetired},
}

// CanTransitionAccountStatus 判断账户状态是否允许流转
func CanTransitionAccountStatus(currentStatus, targetStatus string) bool {
	allowedStatuses, exists := ValidAccountStatusTransitions[currentStatus]
	if !exists {
		return false
	}
	for _, s := range allowedStatuses {
		if s == targetStatus {
			return true
		}
	}
	return false
}

// RetirementAccount 养老金账户表
// 每个参与人至多一个账户，是整个系统的核心数据
//
// 【重要】余额不变量：
// 1. employee_balance >= 0 且 employer_balance >= 0 恒成立
// 2. employee_balance + employer_balance <= total_contributions + total_employer_match
//    （资金只能通过提取离开账户，提取另行记录 WithdrawalRecord）
type RetirementAccount struct {
	ID                    int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID                int64     `gorm:"uniqueIndex;not null" json:"user_id"`               // 参与人ID
	EmployeeBalance       int64     `gorm:"not null;default:0" json:"employee_balance"`        // 个人缴存余额
	EmployerBalance       int64     `gorm:"not null;default:0" json:"employer_balance"`        // 雇主匹配余额
	TotalContributions    int64     `gorm:"not null;default:0" json:"total_contributions"`     // 累计个人缴存
	TotalEmployerMatch    int64     `gorm:"not null;default:0" json:"total_employer_match"`    // 累计雇主匹配
	InvestmentPool        string    `gorm:"type:varchar(20);not null" json:"investment_pool"`  // 投资池类型
	Status                string    `gorm:"type:varchar(20);index;not null" json:"status"`     // 账户状态
	BirthYear             int       `gorm:"not null" json:"birth_year"`                        // 出生年份（开户后不可变）
	AnnualSalary          int64     `gorm:"not null" json:"annual_salary"`                     // 年薪
	ContributionRate      int       `gorm:"not null" json:"contribution_rate"`                 // 缴存比例（百分比，开户后不可变）
	VestingPeriodDays     int64     `gorm:"not null" json:"vesting_period_days"`               // 归属期（天）
	CreationBlock         int64     `gorm:"not null" json:"creation_block"`                    // 开户区块高度
	LastContributionBlock int64     `gorm:"not null;default:0" json:"last_contribution_block"` // 最近缴存区块高度
	VestingStartBlock     int64     `gorm:"not null" json:"vesting_start_block"`               // 归属起算区块高度
	Version               int       `gorm:"not null;default:0" json:"version"`                 // 乐观锁版本号
	CreatedAt             time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt             time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (RetirementAccount) TableName() string {
	return "retirement_account"
}
