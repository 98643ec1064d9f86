package chain

import (
	"time"
)

// ============================================================================
// 区块时钟
// ============================================================================
//
// 系统内所有时间语义（归属天数、年龄、退休资格）都建立在单调递增的
// 区块高度上，而不是墙上时钟。高度到天/年的换算使用固定策略常数
// （144 块/天，52560 块/年），是近似值而非测量值，误差属于已知限制。
//
// 常数不在代码里写死，由配置注入 Calendar。
// ============================================================================

// Clock 区块高度来源（只读，无副作用）
type Clock interface {
	Height() int64
}

// RealClock 由创世时间与固定出块间隔推算当前高度
type RealClock struct {
	genesis  time.Time
	interval time.Duration
}

func NewRealClock(genesis time.Time, interval time.Duration) *RealClock {
	return &RealClock{genesis: genesis, interval: interval}
}

func (c *RealClock) Height() int64 {
	elapsed := time.Since(c.genesis)
	if elapsed < 0 {
		return 0
	}
	return int64(elapsed / c.interval)
}

// ManualClock 手动设置高度的时钟（测试用）
type ManualClock struct {
	height int64
}

func NewManualClock(height int64) *ManualClock {
	return &ManualClock{height: height}
}

func (c *ManualClock) Height() int64 {
	return c.height
}

func (c *ManualClock) SetHeight(height int64) {
	c.height = height
}

// Advance 推进高度（测试用）
func (c *ManualClock) Advance(blocks int64) {
	c.height += blocks
}

// Calendar 高度换算策略常数
type Calendar struct {
	BlocksPerDay  int64 // 每天区块数
	BlocksPerYear int64 // 每年区块数
	BaseYear      int   // 高度 0 对应的公历年份
}

// ElapsedDays 两个高度之间经过的整天数（向下取整）
func (c Calendar) ElapsedDays(fromBlock, toBlock int64) int64 {
	if toBlock <= fromBlock {
		return 0
	}
	return (toBlock - fromBlock) / c.BlocksPerDay
}

// CurrentYear 当前高度对应的公历年份
func (c Calendar) CurrentYear(height int64) int {
	return c.BaseYear + int(height/c.BlocksPerYear)
}

// Age 按出生年份推算的年龄
func (c Calendar) Age(birthYear int, height int64) int {
	age := c.CurrentYear(height) - birthYear
	if age < 0 {
		return 0
	}
	return age
}
