package handler

import (
	"fmt"
	"log"
	"time"

	"pensionfund/pkg/idgen"

	"github.com/gin-gonic/gin"
)

const (
	// HeaderRequestID 请求链路ID，客户端可自带，没有则由网关生成
	HeaderRequestID = "X-Request-ID"

	// ContextKeyRequestID gin 上下文中的请求ID键
	ContextKeyRequestID = "request_id"
)

// RequestIDMiddleware 请求ID中间件
// 养老金操作涉及资金变动，每个请求分配唯一ID并回写响应头，
// 便于将 HTTP 日志与缴存/提取单号、outbox 事件串联排查
func RequestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader(HeaderRequestID)
		if requestID == "" {
			requestID = fmt.Sprintf("REQ%d", idgen.NextID())
		}
		c.Set(ContextKeyRequestID, requestID)
		c.Header(HeaderRequestID, requestID)
		c.Next()
	}
}

// LoggerMiddleware 日志中间件
// 除通用访问信息外，额外记录请求ID与调用方身份（user_id / caller_id），
// 资金类接口的审计排查以此为入口
func LoggerMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		query := c.Request.URL.RawQuery

		// 处理请求
		c.Next()

		// 记录日志
		latency := time.Since(start)
		status := c.Writer.Status()

		if query != "" {
			path = path + "?" + query
		}

		log.Printf("[HTTP] %d | %13v | %15s | %-7s %s | rid=%s caller=%s",
			status,
			latency,
			c.ClientIP(),
			c.Request.Method,
			path,
			c.GetString(ContextKeyRequestID),
			callerIdentity(c),
		)
	}
}

// callerIdentity 从查询参数提取调用方身份
// POST 接口的身份在 JSON 体内，读取会消耗 body，这里只取查询参数，取不到记 "-"
func callerIdentity(c *gin.Context) string {
	if userID := c.Query("user_id"); userID != "" {
		return userID
	}
	if callerID := c.Query("caller_id"); callerID != "" {
		return callerID
	}
	if employerID := c.Query("employer_id"); employerID != "" {
		return "employer:" + employerID
	}
	return "-"
}

// RecoveryMiddleware 恢复中间件，防止 panic 导致服务崩溃
func RecoveryMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if err := recover(); err != nil {
				log.Printf("[PANIC] rid=%s %v", c.GetString(ContextKeyRequestID), err)
				c.AbortWithStatusJSON(500, gin.H{
					"code":       500,
					"message":    "服务器内部错误",
					"request_id": c.GetString(ContextKeyRequestID),
				})
			}
		}()
		c.Next()
	}
}

// CORSMiddleware 跨域中间件
func CORSMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Authorization, X-Request-ID")
		c.Header("Access-Control-Expose-Headers", "X-Request-ID")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	}
}
