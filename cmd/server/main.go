package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/qvdang/stockledger/config"
	"github.com/qvdang/stockledger/internal/auth"
	authHandler "github.com/qvdang/stockledger/internal/auth/handler"
	"github.com/qvdang/stockledger/internal/inventory/handler"
	"github.com/qvdang/stockledger/internal/inventory/repository"
	"github.com/qvdang/stockledger/internal/inventory/usecase"
	"github.com/qvdang/stockledger/internal/logger"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("no .env file found, relying on environment")
	}
	cfg := config.LoadEnv()

	zapLogger := logger.New(&logger.Config{
		IsDevelopment:     cfg.Server.AppEnv == "dev",
		Encoding:          cfg.Logger.Encoding,
		Level:             cfg.Logger.Level,
		DisableCaller:     cfg.Logger.DisableCaller,
		DisableStacktrace: cfg.Logger.DisableStacktrace,
	})
	defer func() { _ = zapLogger.Sync() }()

	documents := repository.NewDocumentFileRepository(cfg.DocumentPath())
	history := repository.NewHistoryFileRepository(cfg.HistoryPath())
	ledger := usecase.NewLedgerUseCase(documents, history, zapLogger)

	users := auth.NewUserStore(cfg.UsersPath())
	if err := users.EnsureBootstrapAdmin(cfg.Auth.BootstrapAdmin, cfg.Auth.BootstrapPassword); err != nil {
		zapLogger.Fatal("failed to bootstrap admin user", zap.Error(err))
	}
	tokens := auth.NewTokenManager(cfg.JWT.SecretKey, time.Duration(cfg.JWT.TTLMinutes)*time.Minute)
	loginLog, err := auth.NewLoginLog(cfg.LoginLogPath())
	if err != nil {
		zapLogger.Fatal("failed to open login log", zap.Error(err))
	}
	defer func() { _ = loginLog.Close() }()

	if cfg.Server.AppEnv != "dev" {
		gin.SetMode(gin.ReleaseMode)
	}
	engine := gin.New()
	engine.Use(gin.Recovery(), auth.RequestLogger(zapLogger))
	registerRoutes(engine, tokens,
		handler.New(ledger, zapLogger),
		authHandler.New(users, tokens, loginLog, zapLogger))

	server := &http.Server{
		Addr:         cfg.Server.HTTPPort,
		Handler:      engine,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	go func() {
		zapLogger.Info("http server listening", zap.String("addr", cfg.Server.HTTPPort))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zapLogger.Fatal("http server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	zapLogger.Info("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		zapLogger.Error("graceful shutdown failed", zap.Error(err))
	}
}

func registerRoutes(engine *gin.Engine, tokens *auth.TokenManager, inv *handler.Handler, account *authHandler.Handler) {
	api := engine.Group("/api")
	api.POST("/login", account.Login)

	protected := api.Group("")
	protected.Use(auth.RequireAuth(tokens))

	protected.GET("/items", inv.ListItems)
	protected.POST("/items", inv.CreateItem)
	protected.GET("/items/:name", inv.GetItem)
	protected.PUT("/items/:name", inv.UpdateItem)
	protected.DELETE("/items/:name", inv.DeleteItem)
	protected.POST("/items/:name/in", inv.StockIn)
	protected.POST("/items/:name/out", inv.StockOut)
	protected.POST("/transfer", inv.Transfer)

	protected.GET("/stores", inv.ListStores)
	protected.POST("/stores", inv.CreateStore)
	protected.GET("/categories", inv.ListCategories)
	protected.POST("/categories", inv.CreateCategory)

	protected.GET("/history", inv.ListHistory)
	protected.POST("/import", inv.Import)
	protected.POST("/import/preview", inv.PreviewImport)
	protected.GET("/export", inv.Export)
	protected.GET("/export/csv", inv.ExportCSV)

	admin := protected.Group("")
	admin.Use(auth.RequireRole(auth.RoleSuperAdmin, auth.RoleAdmin))
	admin.DELETE("/stores/:id", inv.DeleteStore)
	admin.DELETE("/categories/:id", inv.DeleteCategory)
	admin.DELETE("/history", inv.ClearHistory)
	admin.GET("/login-logs", account.LoginLogs)
	admin.GET("/users", account.ListUsers)
	admin.POST("/users", account.CreateUser)
	admin.PUT("/users/:username/password", account.SetPassword)
	admin.DELETE("/users/:username", account.DeleteUser)
}
