package model

import (
	"time"
)

// Wallet 资金托管钱包表
// 外部价值转移原语的落地：缴存从个人/雇主钱包划入基金钱包，
// 提取从基金钱包划回个人钱包。钱包余额不足导致整个业务操作回滚
type Wallet struct {
	ID        int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	OwnerID   int64     `gorm:"uniqueIndex;not null" json:"owner_id"` // 持有人ID（参与人/雇主/基金）
	Balance   int64     `gorm:"not null;default:0" json:"balance"`    // 可用余额
	Version   int       `gorm:"not null;default:0" json:"version"`    // 乐观锁版本号
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Wallet) TableName() string {
	return "wallet"
}
