package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"memory_webapp/internal/bot"
	"memory_webapp/internal/cache"
	"memory_webapp/internal/config"
	"memory_webapp/internal/db"
	"memory_webapp/internal/game"
	httpServer "memory_webapp/internal/http"
	"memory_webapp/internal/http/handlers"
	"memory_webapp/internal/http/middleware"
	"memory_webapp/internal/logger"
	"memory_webapp/internal/repository"
	"memory_webapp/internal/service"
	"memory_webapp/internal/ws"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
)

// Version устанавливается при сборке
var Version = "dev"

func main() {
	cfg := config.Load()

	// Инициализация структурированного логгера
	logger.Init(logger.Options{
		Level:   cfg.LogLevel,
		JSON:    cfg.LogFormat == "json",
		Service: "memory",
	})
	log := logger.Get()

	dbPool := db.Connect(cfg.DatabaseURL)
	defer dbPool.Close()

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	defer rdb.Close()

	pingCtx, pingCancel := context.WithTimeout(context.Background(), 3*time.Second)
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		// без redis работаем: лидерборд читается из базы, лимит выключается сам
		log.Warn("redis unavailable", "addr", cfg.RedisAddr, "error", err)
	}
	pingCancel()

	// репозитории и сервисы
	auditRepo := repository.NewAuditRepository(dbPool)
	auditService := service.NewAuditService(auditRepo)
	authService := service.NewAuthService(cfg.JWTSecret, cfg.JWTTTL, cfg.BotToken, auditService)
	walletService := service.NewWalletService(repository.NewWalletRepository(dbPool), auditService)
	resultService := service.NewResultService(
		repository.NewMemoryRepository(dbPool),
		cache.NewLeaderboard(rdb),
	)

	// бот: уведомления о раундах и /top
	var tgBot *bot.Bot
	if cfg.BotToken != "" {
		b, err := bot.New(cfg.BotToken, cfg.NotifyChatIDs, resultService)
		if err != nil {
			log.Error("failed to start bot", "error", err)
		} else {
			tgBot = b
			go tgBot.Start()
			log.Info("bot started", "notify_chats", cfg.NotifyChatIDs)
		}
	}

	reporters := service.MultiReporter{}
	switch cfg.ReportMode {
	case config.ReportModeHTTP:
		reporters = append(reporters, service.NewHTTPReporter(cfg.SaveBaseURL, nil))
	default:
		reporters = append(reporters, service.NewStoreReporter(resultService))
	}
	if tgBot != nil && len(cfg.NotifyChatIDs) > 0 {
		reporters = append(reporters, tgBot)
	}

	hub := ws.NewHub()

	engineCfg := game.DefaultConfig()
	engineCfg.PeekDuration = cfg.PeekDuration
	engineCfg.InputLock = cfg.InputLockDuration
	engineCfg.ResolveDelay = cfg.ResolveDelay

	memoryService := service.NewMemoryService(service.MemoryOptions{
		Engine:        engineCfg,
		Reporter:      reporters,
		Wallets:       walletService,
		RequireWallet: cfg.RequireWallet,
		Audit:         auditService,
		Publisher:     hub,
		IdleTimeout:   cfg.RoundIdleTimeout,
		CleanupEvery:  5 * time.Minute,
	})

	r := gin.Default()

	// CORS для прода и связи фронта с бэкендом(разные домены)
	r.Use(func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")
		if origin != "" {
			c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
			c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
			c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
			c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		}
		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}
		c.Next()
	})

	middleware.InitRedisRateLimiter(rdb, cfg.RateLimitPerMinute)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	httpServer.RegisterRoutes(r, &handlers.Handler{
		Auth:          authService,
		Rounds:        memoryService,
		Results:       resultService,
		Wallets:       walletService,
		Audit:         auditService,
		Hub:           hub,
		Version:       Version,
		AllowedOrigin: cfg.AllowedOrigin,
	}, authService)

	srv := &http.Server{
		Addr:    ":" + cfg.AppPort,
		Handler: r,
	}

	go func() {
		log.Info("server started", "port", cfg.AppPort, "version", Version, "report_mode", cfg.ReportMode)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("listen failed", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error("server forced to shutdown", "error", err)
	}

	// раунды останавливаются после HTTP, чтобы дождаться отправки итогов
	if err := memoryService.Shutdown(ctx); err != nil {
		log.Warn("memory service shutdown incomplete", "error", err)
	}

	if tgBot != nil {
		tgBot.Stop()
	}

	log.Info("server exited")
}
