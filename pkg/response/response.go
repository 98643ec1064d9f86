package response

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

const (
	CodeSuccess       = 0
	CodeParamError    = 400
	CodeUnauthorized  = 401
	CodeForbidden     = 403
	CodeNotFound      = 404
	CodeServerError   = 500
	CodeBusinessError = 1000
)

// 业务错误码（对外稳定，便于调用方断言）
const (
	CodeNotAuthorized        = 1001 // 非管理员/无权限
	CodeAlreadyInitialized   = 1002 // 基金已初始化
	CodeAccountExists        = 1003 // 账户已存在
	CodeAccountNotFound      = 1004 // 账户不存在
	CodeInvalidParameters    = 1005 // 参数越界
	CodeContributionRateHigh = 1006 // 缴存比例超限
	CodeInvalidPoolType      = 1007 // 投资池类型非法
	CodeAccountSuspended     = 1008 // 账户/雇主非正常状态
	CodeInvalidAmount        = 1009 // 金额非法
	CodeNotRetirementAge     = 1010 // 年龄门槛不满足
	CodeInsufficientBalance  = 1011 // 可提余额不足
	CodeEmployerExists       = 1012 // 雇主已注册
	CodeEmployerNotFound     = 1013 // 雇主不存在
	CodeAlreadyLinked        = 1014 // 雇员已关联雇主
	CodeWalletNotEnough      = 1015 // 钱包余额不足（价值转移失败）
	CodeStatusConflict       = 1016 // 状态流转不允许
	CodeConcurrentConflict   = 1017 // 并发更新冲突，可重试
)

type Response struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

func Success(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Response{
		Code:    CodeSuccess,
		Message: "success",
		Data:    data,
	})
}

func Error(c *gin.Context, code int, message string) {
	c.JSON(http.StatusOK, Response{
		Code:    code,
		Message: message,
	})
}

func ParamError(c *gin.Context, message string) {
	Error(c, CodeParamError, message)
}

func ServerError(c *gin.Context, message string) {
	Error(c, CodeServerError, message)
}

func BusinessError(c *gin.Context, code int, message string) {
	Error(c, code, message)
}
