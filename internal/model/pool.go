package model

import (
	"time"
)

// InvestmentPool 投资池表
// 固定三行（保守/平衡/进取），基金初始化时播种
type InvestmentPool struct {
	ID               int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	PoolType         string    `gorm:"type:varchar(20);uniqueIndex;not null" json:"pool_type"`
	TotalBalance     int64     `gorm:"not null;default:0" json:"total_balance"`      // 池内账户余额合计
	ParticipantCount int64     `gorm:"not null;default:0" json:"participant_count"`  // 池内参与人数
	AnnualReturnBP   int64     `gorm:"not null" json:"annual_return_bp"`             // 年化收益率（基点，10000=100%）
	LastUpdateBlock  int64     `gorm:"not null" json:"last_update_block"`            // 最近配置变更区块高度
	CreatedAt        time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt        time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (InvestmentPool) TableName() string {
	return "investment_pool"
}
