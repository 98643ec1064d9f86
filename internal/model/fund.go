package model

import (
	"time"
)

// FundLedger 基金总账（单行表，id 固定为 1）
//
// 【重要】全局聚合量的唯一落点，所有变更必须与触发它的业务操作
// 处于同一数据库事务内，保证不出现中间状态
type FundLedger struct {
	ID                 int64     `gorm:"primaryKey" json:"id"`
	TotalAssets        int64     `gorm:"not null;default:0" json:"total_assets"`         // 基金总资产
	TotalParticipants  int64     `gorm:"not null;default:0" json:"total_participants"`   // 参与人总数
	InceptionBlock     int64     `gorm:"not null;default:0" json:"inception_block"`      // 基金成立区块高度（0=未初始化，只允许设置一次）
	ConservativeReturn int64     `gorm:"not null;default:0" json:"conservative_return"`  // 保守型年化收益（基点）
	BalancedReturn     int64     `gorm:"not null;default:0" json:"balanced_return"`      // 平衡型年化收益（基点）
	AggressiveReturn   int64     `gorm:"not null;default:0" json:"aggressive_return"`    // 进取型年化收益（基点）
	UpdatedAt          time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (FundLedger) TableName() string {
	return "fund_ledger"
}

// FundLedgerID 总账单行主键
const FundLedgerID = 1

// ContributionLimit 年度缴存限额表（年份 -> 限额）
type ContributionLimit struct {
	ID            int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	Year          int       `gorm:"uniqueIndex;not null" json:"year"`
	EmployeeLimit int64     `gorm:"not null" json:"employee_limit"` // 个人年度缴存上限
	CatchUpLimit  int64     `gorm:"not null" json:"catch_up_limit"` // 50岁以上追加上限
	UpdatedAt     time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (ContributionLimit) TableName() string {
	return "contribution_limit"
}
