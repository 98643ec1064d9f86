package vesting

// ============================================================================
// 归属计算（纯函数）
// ============================================================================
//
// 雇主匹配余额按时间线性归属：经过天数 >= 归属期则 100% 归属，
// 否则按 经过天数/归属期 的比例归属。比例以基点（10000=100%）表示，
// 避免整数百分比带来的截断误差。
// ============================================================================

// FullVestingBP 完全归属的基点值
const FullVestingBP = 10000

// VestedPercentBP 当前归属比例（基点）
// 对固定余额而言，结果随经过时间单调不减，到期后饱和于 10000
func VestedPercentBP(vestingStartBlock, vestingPeriodDays, now, blocksPerDay int64) int64 {
	if vestingPeriodDays <= 0 {
		return FullVestingBP
	}
	if now <= vestingStartBlock {
		return 0
	}
	elapsedDays := (now - vestingStartBlock) / blocksPerDay
	if elapsedDays >= vestingPeriodDays {
		return FullVestingBP
	}
	return elapsedDays * FullVestingBP / vestingPeriodDays
}

// VestedAmount 当前可归属的雇主匹配金额（向下取整）
func VestedAmount(employerBalance, vestingStartBlock, vestingPeriodDays, now, blocksPerDay int64) int64 {
	if employerBalance <= 0 {
		return 0
	}
	percentBP := VestedPercentBP(vestingStartBlock, vestingPeriodDays, now, blocksPerDay)
	return employerBalance * percentBP / FullVestingBP
}
