package model

import (
	"time"
)

// Employer 雇主表
// 雇主注册后永不删除，is_active 控制是否参与匹配
type Employer struct {
	ID                 int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	EmployerID         int64     `gorm:"uniqueIndex;not null" json:"employer_id"`       // 雇主ID
	CompanyName        string    `gorm:"type:varchar(128);not null" json:"company_name"`
	MatchRate          int       `gorm:"not null" json:"match_rate"`                    // 匹配比例（百分比，<=100）
	MaxMatchAmount     int64     `gorm:"not null" json:"max_match_amount"`              // 单笔匹配上限
	VestingScheduleDays int64    `gorm:"not null" json:"vesting_schedule_days"`         // 归属期（天）
	TotalEmployees     int64     `gorm:"not null;default:0" json:"total_employees"`     // 在册雇员数（单调递增）
	TotalContributions int64     `gorm:"not null;default:0" json:"total_contributions"` // 累计匹配缴存（单调递增）
	IsActive           bool      `gorm:"not null;default:true" json:"is_active"`
	RegistrationBlock  int64     `gorm:"not null" json:"registration_block"`            // 注册区块高度
	CreatedAt          time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt          time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Employer) TableName() string {
	return "employer"
}

// EmployeeEmployerLink 雇员-雇主关联表
// 每个雇员至多一条有效关联，且关联一经建立不可改绑（不支持换雇主迁移）
type EmployeeEmployerLink struct {
	ID         int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID     int64     `gorm:"uniqueIndex;not null" json:"user_id"`     // 雇员ID
	EmployerID int64     `gorm:"index;not null" json:"employer_id"`       // 雇主ID
	StartBlock int64     `gorm:"not null" json:"start_block"`             // 入职区块高度
	IsActive   bool      `gorm:"not null;default:true" json:"is_active"`
	CreatedAt  time.Time `gorm:"autoCreateTime" json:"created_at"`
}

func (EmployeeEmployerLink) TableName() string {
	return "employee_employer_link"
}
