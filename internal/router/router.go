package router

import (
	"fmt"
	"strings"

	"github.com/soundmarket/internal/cache"
	"github.com/soundmarket/internal/config"
	"github.com/soundmarket/internal/constants"
	adminhandlers "github.com/soundmarket/internal/http/handlers/admin"
	publichandlers "github.com/soundmarket/internal/http/handlers/public"
	"github.com/soundmarket/internal/logger"
	"github.com/soundmarket/internal/provider"

	"github.com/gin-gonic/gin"
)

// SetupRouter 初始化路由
func SetupRouter(cfg *config.Config, c *provider.Container) *gin.Engine {
	log := logger.L
	if log == nil {
		log = logger.Init(cfg.Server.Mode, cfg.Log.ToLoggerOptions())
	}
	r := gin.New()

	// 初始化 Handler（按集成/后台分组）
	publicHandler := publichandlers.New(c)
	adminHandler := adminhandlers.New(c)
	redisPrefix := strings.TrimSpace(cfg.Redis.Prefix)
	if redisPrefix == "" {
		redisPrefix = constants.RedisPrefixDefault
	}
	evaluateRule := RateLimitRule{
		Prefix:        fmt.Sprintf("%s:rate:certification_evaluate", redisPrefix),
		WindowSeconds: cfg.Security.EvaluateRateLimit.WindowSeconds,
		MaxRequests:   cfg.Security.EvaluateRateLimit.MaxRequests,
		Message:       "认证评估请求过于频繁",
	}
	evaluateLimiter := RateLimitMiddleware(cache.Client(), evaluateRule, KeyByAdminSubject)
	adminAuth := AdminJWTAuthMiddleware(cfg.AdminJWT)

	// 中间件
	r.Use(gin.Recovery())
	r.Use(RequestIDMiddleware())
	r.Use(LoggerMiddleware(log))
	r.Use(CORSMiddleware(cfg.CORS))

	apiV1 := r.Group("/api/v1")
	{
		// 公开接口：证书验证
		apiV1.GET("/certificates/:number", publicHandler.VerifyCertificate)

		// 集成接口：上游系统使用服务令牌调用
		integration := apiV1.Group("")
		integration.Use(adminAuth)
		{
			integration.POST("/sales", publicHandler.CreateSale)
			integration.POST("/items/:id/downloads", publicHandler.RecordItemDownload)
			integration.POST("/items/:id/plays", publicHandler.RecordItemPlay)
		}

		// 管理端接口
		admin := apiV1.Group("/admin")
		admin.Use(adminAuth)
		{
			// 佣金配置
			admin.GET("/commission-settings", adminHandler.GetCommissionSettings)
			admin.PUT("/commission-settings/:key", adminHandler.UpdateCommissionSetting)

			// 认证等级配置
			admin.GET("/settings/certification", adminHandler.GetCertificationSettings)
			admin.PUT("/settings/certification", adminHandler.UpdateCertificationSettings)

			// 结算
			admin.GET("/settlements", adminHandler.GetSettlements)
			admin.GET("/settlements/summary", adminHandler.GetCommissionSummary)
			admin.GET("/settlements/:transaction_id", adminHandler.GetSettlement)
			admin.POST("/settlements/:transaction_id/refund", adminHandler.RefundSettlement)
			admin.GET("/sellers/:id/revenue", adminHandler.GetSellerRevenue)

			// 认证
			admin.GET("/certifications", adminHandler.GetCertifications)
			admin.POST("/certifications/evaluate-all", evaluateLimiter, adminHandler.EvaluateAllCertifications)
			admin.POST("/certifications/:id/activate", adminHandler.ActivateCertification)
			admin.POST("/certifications/:id/deactivate", adminHandler.DeactivateCertification)
			admin.GET("/certifications/:id/document", adminHandler.GetCertificateDocument)

			// 作品
			admin.GET("/items/:id/certifications", adminHandler.GetItemCertifications)
			admin.POST("/items/:id/certifications/evaluate", evaluateLimiter, adminHandler.EvaluateItemCertification)
			admin.PUT("/items/:id/status", adminHandler.UpdateItemStatus)

			// 通知
			admin.GET("/users/:id/notifications", adminHandler.GetUserNotifications)
		}
	}

	// 健康检查
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	return r
}
