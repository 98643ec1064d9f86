package model

import (
	"time"
)

// ============================================================================
// 资金流水
// ============================================================================

const (
	TransactionTypeRecharge     = "RECHARGE"     // 钱包充值
	TransactionTypeContribution = "CONTRIBUTION" // 个人缴存（钱包 -> 基金）
	TransactionTypeMatch        = "MATCH"        // 雇主匹配（雇主钱包 -> 基金）
	TransactionTypeWithdrawal   = "WITHDRAWAL"   // 提取（基金 -> 钱包）
)

// FundTransaction 资金流水表
// 记录每一笔钱包资金变动，是对账的核心依据
//
// 【重要】流水表设计原则：
// 1. 只追加，不修改，不删除 —— 保证审计可追溯
// 2. 每笔流水必须关联业务单号 —— 便于对账
// 3. 记录交易前后钱包余额 —— 便于校验余额一致性
type FundTransaction struct {
	ID            int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	TransactionNo string    `gorm:"type:varchar(64);uniqueIndex;not null" json:"transaction_no"` // 流水号（全局唯一）
	OwnerID       int64     `gorm:"index;not null" json:"owner_id"`                              // 钱包持有人ID
	RefNo         string    `gorm:"type:varchar(64);index;not null" json:"ref_no"`               // 关联业务单号
	Amount        int64     `gorm:"not null" json:"amount"`                                      // 金额（正数入账，负数出账）
	Type          string    `gorm:"type:varchar(20);not null" json:"type"`                       // 交易类型
	BalanceBefore int64     `gorm:"not null" json:"balance_before"`                              // 交易前钱包余额
	BalanceAfter  int64     `gorm:"not null" json:"balance_after"`                               // 交易后钱包余额
	Block         int64     `gorm:"not null" json:"block"`                                       // 发生区块高度
	Remark        string    `gorm:"type:varchar(256)" json:"remark"`                             // 备注
	CreatedAt     time.Time `gorm:"autoCreateTime;index" json:"created_at"`
}

func (FundTransaction) TableName() string {
	return "fund_transaction"
}
