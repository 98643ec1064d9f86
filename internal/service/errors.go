package service

import (
	"errors"
)

// ============================================================================
// 业务错误
// ============================================================================
//
// 所有业务失败都以哨兵错误返回，handler 层用 errors.Is 映射为稳定的
// 业务错误码。任何一个前置条件失败都发生在变更之前，或使事务整体回滚，
// 不会留下部分更新
// ============================================================================

var (
	ErrNotAuthorized       = errors.New("无权限，仅管理员可操作")
	ErrAlreadyInitialized  = errors.New("基金已初始化")
	ErrAccountExists       = errors.New("账户已存在")
	ErrAccountNotFound     = errors.New("账户不存在")
	ErrInvalidParameters   = errors.New("参数越界")
	ErrContributionRate    = errors.New("缴存比例超过上限")
	ErrInvalidPoolType     = errors.New("投资池类型非法")
	ErrAccountSuspended    = errors.New("账户非正常状态")
	ErrInvalidAmount       = errors.New("金额必须大于0")
	ErrNotRetirementAge    = errors.New("年龄不满足该提取方式的门槛")
	ErrInsufficientBalance = errors.New("可提取余额不足")
	ErrEmployerExists      = errors.New("雇主已注册")
	ErrEmployerNotFound    = errors.New("雇主不存在")
	ErrEmployerInactive    = errors.New("雇主已停用")
	ErrAlreadyLinked       = errors.New("雇员已关联雇主")
	ErrValueTransferFailed = errors.New("钱包余额不足，价值转移失败")
	ErrStatusConflict      = errors.New("状态流转不允许")
	ErrConcurrentUpdate    = errors.New("并发更新冲突，请重试")
)
