package main

import (
	"flag"
	"fmt"
	"os"
	"strings"
	"syscall"

	"github.com/soundmarket/internal/app"
	"github.com/soundmarket/internal/config"
	"github.com/soundmarket/internal/constants"
	"github.com/soundmarket/internal/logger"
	"github.com/soundmarket/internal/models"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

const (
	ansiReset = "\033[0m"
	ansiBold  = "\033[1m"
	ansiDim   = "\033[2m"
	ansiCyan  = "\033[36m"
)

func main() {
	// 解析命令行参数
	var mode string
	flag.StringVar(&mode, "mode", app.ModeAll, "启动模式: all (默认), api, worker")
	flag.Parse()

	printStartupBanner(mode)

	// 加载配置
	cfg := config.Load()
	logger.Init(cfg.Server.Mode, cfg.Log.ToLoggerOptions())
	stdLog := logger.StdLogger()

	if cfg.Server.Mode == "release" {
		if isWeakSecret(cfg.AdminJWT.SecretKey) {
			stdLog.Fatalf("管理端 JWT secret 过弱或仍为默认值，请配置与认证服务一致的强随机密钥")
		}
	} else if isWeakSecret(cfg.AdminJWT.SecretKey) {
		stdLog.Printf("警告: 管理端 JWT secret 过弱或仍为默认值，建议在生产环境中更换")
	}

	// 初始化数据库
	if err := models.InitDB(cfg.Database.Driver, cfg.Database.DSN, models.DBPoolConfig{
		MaxOpenConns:           cfg.Database.Pool.MaxOpenConns,
		MaxIdleConns:           cfg.Database.Pool.MaxIdleConns,
		ConnMaxLifetimeSeconds: cfg.Database.Pool.ConnMaxLifetimeSeconds,
		ConnMaxIdleTimeSeconds: cfg.Database.Pool.ConnMaxIdleTimeSeconds,
	}, cfg.Server.Mode == "debug"); err != nil {
		stdLog.Fatalf("数据库初始化失败: %v", err)
	}

	// 自动迁移数据库表
	if err := models.AutoMigrate(); err != nil {
		stdLog.Fatalf("数据库迁移失败: %v", err)
	}

	// 初始化默认佣金配置
	if err := models.InitDefaultCommissionSettings(models.DB, map[string]decimal.Decimal{
		constants.CommissionKeySound: decimal.NewFromFloat(cfg.Commission.DefaultSoundRate),
		constants.CommissionKeyEvent: decimal.NewFromFloat(cfg.Commission.DefaultEventRate),
	}); err != nil {
		stdLog.Printf("警告: 初始化默认佣金配置失败: %v", err)
	}

	// 设置 Gin 模式
	if cfg.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	if err := app.Run(app.Options{
		Config:  cfg,
		Logger:  logger.S(),
		Signals: []os.Signal{syscall.SIGINT, syscall.SIGTERM},
		Mode:    mode,
	}); err != nil {
		stdLog.Fatalf("服务运行失败: %v", err)
	}
}

func printStartupBanner(mode string) {
	fmt.Println(ansiCyan + ansiBold + "SoundMarket settlement & certification engine" + ansiReset)
	fmt.Println(ansiDim + "mode: " + mode + ansiReset)
	fmt.Println(ansiDim + "--------------------------------------------------------------" + ansiReset)
}

func isWeakSecret(secret string) bool {
	if len(secret) < 32 {
		return true
	}
	normalized := strings.ToLower(secret)
	if strings.Contains(normalized, "change-me") ||
		strings.Contains(normalized, "change-in-production") ||
		strings.Contains(normalized, "your-secret-key") {
		return true
	}
	return false
}
