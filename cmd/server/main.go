package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/WinKyaw/InventSight-sub003/internal/config"
	"github.com/WinKyaw/InventSight-sub003/internal/middleware"
	"github.com/WinKyaw/InventSight-sub003/internal/shared/objstore"
	"github.com/WinKyaw/InventSight-sub003/internal/transfer/entity"
	"github.com/WinKyaw/InventSight-sub003/internal/transfer/handler"
	"github.com/WinKyaw/InventSight-sub003/internal/transfer/repository"
	"github.com/WinKyaw/InventSight-sub003/internal/transfer/service"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	// .env 仅本地开发使用，不存在时忽略
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	zapLogger, err := initLogger(cfg.Log)
	if err != nil {
		log.Fatalf("Failed to init logger: %v", err)
	}
	defer zapLogger.Sync()

	zapLogger.Info("Starting transfer service",
		zap.String("version", Version),
		zap.String("build_time", BuildTime),
	)

	db, err := initDatabase(cfg.Database)
	if err != nil {
		zapLogger.Fatal("Failed to connect to database", zap.Error(err))
	}

	if err := autoMigrate(db); err != nil {
		zapLogger.Fatal("Failed to migrate database", zap.Error(err))
	}

	rdb := initRedis(cfg.Redis)

	store, err := objstore.New(objstore.Options{
		Endpoint:  cfg.MinIO.Endpoint,
		AccessKey: cfg.MinIO.AccessKey,
		SecretKey: cfg.MinIO.SecretKey,
		Bucket:    cfg.MinIO.Bucket,
		UseSSL:    cfg.MinIO.UseSSL,
	})
	if err != nil {
		zapLogger.Warn("Object storage unavailable, proof-of-delivery upload disabled", zap.Error(err))
		store = nil
	}
	if store != nil {
		if err := store.EnsureBucket(context.Background()); err != nil {
			zapLogger.Warn("Ensure bucket failed", zap.Error(err))
		}
	}

	repos := repository.NewRepositories(db)
	services := service.NewServices(db, repos, rdb, zapLogger)
	handlers := handler.NewHandlers(services, store)

	if cfg.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.Logger(zapLogger))
	router.Use(middleware.CORS())
	router.Use(middleware.RequestID())
	router.Use(middleware.Metrics())
	router.Use(gzip.Gzip(gzip.DefaultCompression))

	registerRoutes(router, handlers, cfg)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		zapLogger.Info("Server starting", zap.Int("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zapLogger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	zapLogger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		zapLogger.Error("Server forced to shutdown", zap.Error(err))
	}

	zapLogger.Info("Server exited")
}

func initLogger(cfg config.LogConfig) (*zap.Logger, error) {
	var zapCfg zap.Config

	if cfg.Format == "json" {
		zapCfg = zap.NewProductionConfig()
	} else {
		zapCfg = zap.NewDevelopmentConfig()
	}

	switch cfg.Level {
	case "debug":
		zapCfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	case "info":
		zapCfg.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	case "warn":
		zapCfg.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	case "error":
		zapCfg.Level = zap.NewAtomicLevelAt(zap.ErrorLevel)
	}

	return zapCfg.Build()
}

func initDatabase(cfg config.DatabaseConfig) (*gorm.DB, error) {
	gormConfig := &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Warn),
	}

	db, err := gorm.Open(postgres.Open(cfg.DSN()), gormConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database instance: %w", err)
	}

	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	sqlDB.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	return db, nil
}

func autoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&entity.User{},
		&entity.UserLocation{},
		&entity.WarehouseGrant{},
		&entity.Location{},
		&entity.TransferLocation{},
		&entity.Product{},
		&entity.InventoryRecord{},
		&entity.TransferRequest{},
	)
}

func initRedis(cfg config.RedisConfig) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     cfg.Addr(),
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: cfg.PoolSize,
	})
}

func registerRoutes(r *gin.Engine, h *handler.Handlers, cfg *config.Config) {
	// 健康检查
	r.GET("/health/live", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/health/ready", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// 指标
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// 版本信息
	r.GET("/version", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"version":    Version,
			"build_time": BuildTime,
		})
	})

	// API v1
	v1 := r.Group("/api/v1")
	authorized := v1.Group("")
	authorized.Use(middleware.JWTAuth(cfg.JWT.Secret))
	{
		transfers := authorized.Group("/transfers")
		{
			transfers.POST("", h.Transfer.Create)
			transfers.GET("", h.Transfer.List)
			transfers.GET("/pending-approval", h.Transfer.PendingApproval)
			transfers.GET("/export",
				middleware.RequireRole(entity.RoleCEO, entity.RoleGeneralManager),
				h.Transfer.Export)
			transfers.GET("/:id", h.Transfer.Get)
			transfers.GET("/:id/proof-of-delivery", h.Transfer.DownloadProofOfDelivery)
			transfers.POST("/:id/approve", h.Transfer.Approve)
			transfers.POST("/:id/reject", h.Transfer.Reject)
			transfers.POST("/:id/cancel", h.Transfer.Cancel)
			transfers.POST("/:id/ready", h.Transfer.MarkReady)
			transfers.POST("/:id/pickup", h.Transfer.Pickup)
			transfers.POST("/:id/deliver", h.Transfer.Deliver)
			transfers.POST("/:id/receive", h.Transfer.Receive)
			transfers.POST("/:id/proof-of-delivery", h.Transfer.UploadProofOfDelivery)
		}

		inventory := authorized.Group("/inventory")
		{
			inventory.GET("/availability", h.Inventory.Availability)
			inventory.GET("/locations/:type/:id", h.Inventory.ListLocation)
		}
	}
}
