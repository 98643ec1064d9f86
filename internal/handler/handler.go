package handler

import (
	"errors"
	"strconv"

	"pensionfund/internal/config"
	"pensionfund/internal/service"
	"pensionfund/pkg/chain"
	"pensionfund/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"gorm.io/gorm"
)

// Handler 统一处理器，包含所有服务依赖
type Handler struct {
	accountService      *service.AccountService
	employerService     *service.EmployerService
	contributionService *service.ContributionService
	withdrawalService   *service.WithdrawalService
	fundService         *service.FundService
	walletService       *service.WalletService
}

// NewHandler 创建处理器实例
func NewHandler(db *gorm.DB, rdb *redis.Client, cfg *config.Config, clock chain.Clock) *Handler {
	return &Handler{
		accountService:      service.NewAccountService(db, cfg, clock),
		employerService:     service.NewEmployerService(db, cfg, clock),
		contributionService: service.NewContributionService(db, rdb, cfg, clock),
		withdrawalService:   service.NewWithdrawalService(db, rdb, cfg, clock),
		fundService:         service.NewFundService(db, rdb, cfg, clock),
		walletService:       service.NewWalletService(db, clock),
	}
}

// serviceError 业务错误到稳定错误码的映射
// 调用方根据 code 做确定性断言，message 仅用于人读
func serviceError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrNotAuthorized):
		response.BusinessError(c, response.CodeNotAuthorized, err.Error())
	case errors.Is(err, service.ErrAlreadyInitialized):
		response.BusinessError(c, response.CodeAlreadyInitialized, err.Error())
	case errors.Is(err, service.ErrAccountExists):
		response.BusinessError(c, response.CodeAccountExists, err.Error())
	case errors.Is(err, service.ErrAccountNotFound):
		response.BusinessError(c, response.CodeAccountNotFound, err.Error())
	case errors.Is(err, service.ErrInvalidParameters):
		response.BusinessError(c, response.CodeInvalidParameters, err.Error())
	case errors.Is(err, service.ErrContributionRate):
		response.BusinessError(c, response.CodeContributionRateHigh, err.Error())
	case errors.Is(err, service.ErrInvalidPoolType):
		response.BusinessError(c, response.CodeInvalidPoolType, err.Error())
	case errors.Is(err, service.ErrAccountSuspended), errors.Is(err, service.ErrEmployerInactive):
		response.BusinessError(c, response.CodeAccountSuspended, err.Error())
	case errors.Is(err, service.ErrInvalidAmount):
		response.BusinessError(c, response.CodeInvalidAmount, err.Error())
	case errors.Is(err, service.ErrNotRetirementAge):
		response.BusinessError(c, response.CodeNotRetirementAge, err.Error())
	case errors.Is(err, service.ErrInsufficientBalance):
		response.BusinessError(c, response.CodeInsufficientBalance, err.Error())
	case errors.Is(err, service.ErrEmployerExists):
		response.BusinessError(c, response.CodeEmployerExists, err.Error())
	case errors.Is(err, service.ErrEmployerNotFound):
		response.BusinessError(c, response.CodeEmployerNotFound, err.Error())
	case errors.Is(err, service.ErrAlreadyLinked):
		response.BusinessError(c, response.CodeAlreadyLinked, err.Error())
	case errors.Is(err, service.ErrValueTransferFailed):
		response.BusinessError(c, response.CodeWalletNotEnough, err.Error())
	case errors.Is(err, service.ErrStatusConflict):
		response.BusinessError(c, response.CodeStatusConflict, err.Error())
	case errors.Is(err, service.ErrConcurrentUpdate):
		response.BusinessError(c, response.CodeConcurrentConflict, err.Error())
	default:
		response.ServerError(c, err.Error())
	}
}

// ============================================================
// 基金管理接口
// ============================================================

// InitializeFund 基金初始化（仅管理员，只允许一次）
// POST /api/v1/fund/initialize
func (h *Handler) InitializeFund(c *gin.Context) {
	var req struct {
		CallerID int64 `json:"caller_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, "参数错误: "+err.Error())
		return
	}

	if err := h.fundService.InitializeFund(c.Request.Context(), req.CallerID); err != nil {
		serviceError(c, err)
		return
	}
	response.Success(c, gin.H{"message": "基金初始化成功"})
}

// GetFundStatistics 基金统计
// GET /api/v1/fund/statistics
func (h *Handler) GetFundStatistics(c *gin.Context) {
	stats, err := h.fundService.GetFundStatistics(c.Request.Context())
	if err != nil {
		serviceError(c, err)
		return
	}
	response.Success(c, stats)
}

// UpdatePoolReturns 覆盖三档年化收益（仅管理员）
// POST /api/v1/fund/pool-returns
func (h *Handler) UpdatePoolReturns(c *gin.Context) {
	var req service.UpdatePoolReturnsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, "参数错误: "+err.Error())
		return
	}

	if err := h.fundService.UpdatePoolReturns(c.Request.Context(), &req); err != nil {
		serviceError(c, err)
		return
	}
	response.Success(c, gin.H{"message": "收益配置已更新"})
}

// SetContributionLimits 设置年度缴存限额（仅管理员）
// POST /api/v1/fund/contribution-limits
func (h *Handler) SetContributionLimits(c *gin.Context) {
	var req service.SetContributionLimitsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, "参数错误: "+err.Error())
		return
	}

	if err := h.fundService.SetContributionLimits(c.Request.Context(), &req); err != nil {
		serviceError(c, err)
		return
	}
	response.Success(c, gin.H{"message": "缴存限额已更新"})
}

// SetAccountStatus 账户状态流转（仅管理员）
// POST /api/v1/fund/account-status
func (h *Handler) SetAccountStatus(c *gin.Context) {
	var req service.SetAccountStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, "参数错误: "+err.Error())
		return
	}

	if err := h.fundService.SetAccountStatus(c.Request.Context(), &req); err != nil {
		serviceError(c, err)
		return
	}
	response.Success(c, gin.H{"message": "账户状态已更新"})
}

// SetEmployerStatus 雇主启停（仅管理员）
// POST /api/v1/fund/employer-status
func (h *Handler) SetEmployerStatus(c *gin.Context) {
	var req service.SetEmployerStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, "参数错误: "+err.Error())
		return
	}

	if err := h.fundService.SetEmployerStatus(c.Request.Context(), &req); err != nil {
		serviceError(c, err)
		return
	}
	response.Success(c, gin.H{"message": "雇主状态已更新"})
}

// ============================================================
// 账户相关接口
// ============================================================

// CreateAccountRequest 开户请求
type CreateAccountRequest struct {
	UserID           int64  `json:"user_id" binding:"required"`
	BirthYear        int    `json:"birth_year" binding:"required"`
	AnnualSalary     int64  `json:"annual_salary" binding:"required"`
	ContributionRate int    `json:"contribution_rate"`
	PoolType         string `json:"pool_type" binding:"required"`
}

// CreateAccount 开户
// POST /api/v1/account/create
func (h *Handler) CreateAccount(c *gin.Context) {
	var req CreateAccountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, "参数错误: "+err.Error())
		return
	}

	serviceReq := &service.CreateAccountRequest{
		UserID:           req.UserID,
		BirthYear:        req.BirthYear,
		AnnualSalary:     req.AnnualSalary,
		ContributionRate: req.ContributionRate,
		PoolType:         req.PoolType,
	}
	if err := h.accountService.CreateAccount(c.Request.Context(), serviceReq); err != nil {
		serviceError(c, err)
		return
	}
	response.Success(c, gin.H{"message": "开户成功"})
}

// UpdatePool 换投资池
// POST /api/v1/account/pool
func (h *Handler) UpdatePool(c *gin.Context) {
	var req service.UpdatePoolRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, "参数错误: "+err.Error())
		return
	}

	if err := h.accountService.UpdatePool(c.Request.Context(), &req); err != nil {
		serviceError(c, err)
		return
	}
	response.Success(c, gin.H{"message": "投资池已更新"})
}

// GetAccountInfo 账户快照（含派生字段）
// GET /api/v1/account/info?user_id=xxx
func (h *Handler) GetAccountInfo(c *gin.Context) {
	userID, err := strconv.ParseInt(c.Query("user_id"), 10, 64)
	if err != nil {
		response.ParamError(c, "user_id 参数错误")
		return
	}

	info, err := h.accountService.GetAccountInfo(c.Request.Context(), userID)
	if err != nil {
		serviceError(c, err)
		return
	}
	response.Success(c, info)
}

// IsEligibleForRetirement 退休资格查询
// GET /api/v1/account/eligibility?user_id=xxx
func (h *Handler) IsEligibleForRetirement(c *gin.Context) {
	userID, err := strconv.ParseInt(c.Query("user_id"), 10, 64)
	if err != nil {
		response.ParamError(c, "user_id 参数错误")
		return
	}

	eligible, err := h.accountService.IsEligibleForRetirement(c.Request.Context(), userID)
	if err != nil {
		serviceError(c, err)
		return
	}
	response.Success(c, gin.H{"user_id": userID, "eligible": eligible})
}

// CalculateProjectedBalance 复利预估（只读）
// GET /api/v1/account/projection?user_id=xxx&years=10&annual_contribution=5000
func (h *Handler) CalculateProjectedBalance(c *gin.Context) {
	userID, err := strconv.ParseInt(c.Query("user_id"), 10, 64)
	if err != nil {
		response.ParamError(c, "user_id 参数错误")
		return
	}
	years, _ := strconv.Atoi(c.DefaultQuery("years", "0"))
	annualContribution, _ := strconv.ParseInt(c.DefaultQuery("annual_contribution", "0"), 10, 64)

	result, err := h.fundService.CalculateProjectedBalance(c.Request.Context(), &service.ProjectionRequest{
		UserID:             userID,
		AdditionalYears:    years,
		AnnualContribution: annualContribution,
	})
	if err != nil {
		serviceError(c, err)
		return
	}
	response.Success(c, result)
}

// ============================================================
// 雇主相关接口
// ============================================================

// RegisterEmployerRequest 雇主注册请求
type RegisterEmployerRequest struct {
	EmployerID     int64  `json:"employer_id" binding:"required"`
	CompanyName    string `json:"company_name" binding:"required"`
	MatchRate      int    `json:"match_rate"`
	MaxMatchAmount int64  `json:"max_match_amount"`
	VestingDays    int64  `json:"vesting_days" binding:"required"`
}

// RegisterEmployer 雇主注册
// POST /api/v1/employer/register
func (h *Handler) RegisterEmployer(c *gin.Context) {
	var req RegisterEmployerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, "参数错误: "+err.Error())
		return
	}

	serviceReq := &service.RegisterEmployerRequest{
		EmployerID:     req.EmployerID,
		CompanyName:    req.CompanyName,
		MatchRate:      req.MatchRate,
		MaxMatchAmount: req.MaxMatchAmount,
		VestingDays:    req.VestingDays,
	}
	if err := h.employerService.RegisterEmployer(c.Request.Context(), serviceReq); err != nil {
		serviceError(c, err)
		return
	}
	response.Success(c, gin.H{"message": "雇主注册成功"})
}

// AddEmployee 雇主添加雇员（会重新起算雇员账户的归属）
// POST /api/v1/employer/employee/add
func (h *Handler) AddEmployee(c *gin.Context) {
	var req service.AddEmployeeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, "参数错误: "+err.Error())
		return
	}

	if err := h.employerService.AddEmployee(c.Request.Context(), &req); err != nil {
		serviceError(c, err)
		return
	}
	response.Success(c, gin.H{"message": "雇员已关联"})
}

// GetEmployer 雇主信息查询
// GET /api/v1/employer/info?employer_id=xxx
func (h *Handler) GetEmployer(c *gin.Context) {
	employerID, err := strconv.ParseInt(c.Query("employer_id"), 10, 64)
	if err != nil {
		response.ParamError(c, "employer_id 参数错误")
		return
	}

	employer, err := h.employerService.GetEmployer(c.Request.Context(), employerID)
	if err != nil {
		serviceError(c, err)
		return
	}
	response.Success(c, employer)
}

// ============================================================
// 缴存相关接口
// ============================================================

// Contribute 个人缴存（含雇主匹配）
// POST /api/v1/contribution/execute
//
// 【关键点】缴存是整个系统最核心的操作，需要保证：
// 1. 原子性：钱包划转、账户入账、聚合更新、匹配必须同时成功或同时失败
// 2. 并发安全：按参与人维度加分布式锁
func (h *Handler) Contribute(c *gin.Context) {
	var req service.ContributeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, "参数错误: "+err.Error())
		return
	}

	result, err := h.contributionService.Contribute(c.Request.Context(), &req)
	if err != nil {
		serviceError(c, err)
		return
	}
	response.Success(c, result)
}

// ============================================================
// 提取相关接口
// ============================================================

// WithdrawRetirement 退休提取
// POST /api/v1/withdrawal/retirement
func (h *Handler) WithdrawRetirement(c *gin.Context) {
	var req service.WithdrawRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, "参数错误: "+err.Error())
		return
	}

	result, err := h.withdrawalService.WithdrawRetirement(c.Request.Context(), &req)
	if err != nil {
		serviceError(c, err)
		return
	}
	response.Success(c, result)
}

// WithdrawEarly 提前提取（扣罚金）
// POST /api/v1/withdrawal/early
func (h *Handler) WithdrawEarly(c *gin.Context) {
	var req service.WithdrawRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, "参数错误: "+err.Error())
		return
	}

	result, err := h.withdrawalService.WithdrawEarly(c.Request.Context(), &req)
	if err != nil {
		serviceError(c, err)
		return
	}
	response.Success(c, result)
}

// ListWithdrawals 提取记录
// GET /api/v1/withdrawal/list?user_id=xxx&page=1&page_size=10
func (h *Handler) ListWithdrawals(c *gin.Context) {
	userID, err := strconv.ParseInt(c.Query("user_id"), 10, 64)
	if err != nil {
		response.ParamError(c, "user_id 参数错误")
		return
	}
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "10"))

	records, total, err := h.withdrawalService.ListWithdrawals(c.Request.Context(), userID, page, pageSize)
	if err != nil {
		serviceError(c, err)
		return
	}
	response.Success(c, gin.H{
		"list":      records,
		"total":     total,
		"page":      page,
		"page_size": pageSize,
	})
}

// ============================================================
// 钱包相关接口
// ============================================================

// GetWalletBalance 钱包余额查询
// GET /api/v1/wallet/balance?owner_id=xxx
func (h *Handler) GetWalletBalance(c *gin.Context) {
	ownerID, err := strconv.ParseInt(c.Query("owner_id"), 10, 64)
	if err != nil {
		response.ParamError(c, "owner_id 参数错误")
		return
	}

	balance, err := h.walletService.GetBalance(c.Request.Context(), ownerID)
	if err != nil {
		serviceError(c, err)
		return
	}
	response.Success(c, gin.H{"owner_id": ownerID, "balance": balance})
}

// RechargeRequest 充值请求
type RechargeRequest struct {
	OwnerID int64 `json:"owner_id" binding:"required"`
	Amount  int64 `json:"amount" binding:"required,gt=0"`
}

// Recharge 钱包充值（简化版，实际应该走支付渠道）
// POST /api/v1/wallet/recharge
func (h *Handler) Recharge(c *gin.Context) {
	var req RechargeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, "参数错误: "+err.Error())
		return
	}

	if err := h.walletService.Recharge(c.Request.Context(), req.OwnerID, req.Amount); err != nil {
		serviceError(c, err)
		return
	}
	response.Success(c, gin.H{"message": "充值成功"})
}
