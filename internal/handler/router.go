package handler

import (
	"pensionfund/internal/config"
	"pensionfund/pkg/chain"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"gorm.io/gorm"
)

// SetupRouter 配置路由
func SetupRouter(db *gorm.DB, rdb *redis.Client, cfg *config.Config, clock chain.Clock) *gin.Engine {
	// 设置 gin 为发布模式（减少日志输出）
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()

	// 注册中间件（请求ID先于日志，保证访问日志带上链路ID）
	r.Use(RequestIDMiddleware())
	r.Use(RecoveryMiddleware())
	r.Use(LoggerMiddleware())
	r.Use(CORSMiddleware())

	// 创建处理器
	h := NewHandler(db, rdb, cfg, clock)

	// API 路由组
	api := r.Group("/api/v1")
	{
		// 基金管理（含管理员操作）
		fund := api.Group("/fund")
		{
			fund.POST("/initialize", h.InitializeFund)
			fund.GET("/statistics", h.GetFundStatistics)
			fund.POST("/pool-returns", h.UpdatePoolReturns)
			fund.POST("/contribution-limits", h.SetContributionLimits)
			fund.POST("/account-status", h.SetAccountStatus)
			fund.POST("/employer-status", h.SetEmployerStatus)
		}

		// 账户相关
		account := api.Group("/account")
		{
			account.POST("/create", h.CreateAccount)
			account.POST("/pool", h.UpdatePool)
			account.GET("/info", h.GetAccountInfo)
			account.GET("/eligibility", h.IsEligibleForRetirement)
			account.GET("/projection", h.CalculateProjectedBalance)
		}

		// 雇主相关
		employer := api.Group("/employer")
		{
			employer.POST("/register", h.RegisterEmployer)
			employer.POST("/employee/add", h.AddEmployee)
			employer.GET("/info", h.GetEmployer)
		}

		// 缴存相关
		contribution := api.Group("/contribution")
		{
			contribution.POST("/execute", h.Contribute)
		}

		// 提取相关
		withdrawal := api.Group("/withdrawal")
		{
			withdrawal.POST("/retirement", h.WithdrawRetirement)
			withdrawal.POST("/early", h.WithdrawEarly)
			withdrawal.GET("/list", h.ListWithdrawals)
		}

		// 钱包相关
		wallet := api.Group("/wallet")
		{
			wallet.GET("/balance", h.GetWalletBalance)
			wallet.POST("/recharge", h.Recharge)
		}
	}

	// 健康检查
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	return r
}
