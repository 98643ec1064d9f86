package model

import (
	"time"
)

// 提取类型
const (
	WithdrawalTypeRegular  = "REGULAR"  // 退休提取
	WithdrawalTypeEarly    = "EARLY"    // 提前提取（扣罚金）
	WithdrawalTypeHardship = "HARDSHIP" // 困难提取（预留）
)

// WithdrawalRecord 提取记录表
// 按参与人维度分配递增序号，只追加，不修改，不删除
//
// 【设计说明】序号在提取事务内按 count+1 分配，记录条数不设上限，
// 保证审计链完整（资金离开账户的唯一出口）
type WithdrawalRecord struct {
	ID            int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	WithdrawalNo  string    `gorm:"type:varchar(64);uniqueIndex;not null" json:"withdrawal_no"` // 提取单号（全局唯一）
	UserID        int64     `gorm:"index:idx_user_seq,unique;not null" json:"user_id"`          // 参与人ID
	Sequence      int64     `gorm:"index:idx_user_seq,unique;not null" json:"sequence"`         // 参与人内递增序号
	Amount        int64     `gorm:"not null" json:"amount"`                                     // 提取总额（含罚金）
	Type          string    `gorm:"type:varchar(20);not null" json:"type"`                      // 提取类型
	PenaltyAmount int64     `gorm:"not null;default:0" json:"penalty_amount"`                   // 罚金（留存基金内）
	Block         int64     `gorm:"not null" json:"block"`                                      // 提取区块高度
	Reason        string    `gorm:"type:varchar(256)" json:"reason"`                            // 提取原因
	CreatedAt     time.Time `gorm:"autoCreateTime;index" json:"created_at"`
}

func (WithdrawalRecord) TableName() string {
	return "withdrawal_record"
}
