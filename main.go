package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"ama_live/internal/api"
	"ama_live/internal/logger"
	"ama_live/internal/middleware"
	"ama_live/internal/repository"
	"ama_live/internal/service"
	"ama_live/pkg/config"
)

func main() {
	// 載入應用程式配置
	// 從 .env、配置文件與環境變數讀取上游位址、串流參數和本地監聽位址
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger.Init(cfg.Log.Level, cfg.Log.Sink)
	gin.SetMode(cfg.Server.Mode)

	// 初始化 repositories（上游 HTTP API）
	repos := repository.NewRepositories(service.NewHTTPClient(), cfg.Upstream.APIURL)

	// 初始化 services
	services, err := service.NewServices(cfg, repos)
	if err != nil {
		log.Fatalf("Failed to initialize services: %v", err)
	}

	// 設置 Gin 路由
	r := gin.New()
	r.Use(middleware.Recovery(), middleware.RequestLogger())
	api.SetupRoutes(r, services)

	srv := &http.Server{
		Addr:    cfg.Server.Address,
		Handler: r,
	}

	// 啟動伺服器
	go func() {
		slog.Info("server listening", "address", cfg.Server.Address, "upstream", cfg.Upstream.APIURL)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Failed to run server: %v", err)
		}
	}()

	// 等待中斷訊號後優雅關閉：先停止接受請求，再關閉所有房間串流
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	slog.Info("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("server shutdown failed", "err", err)
	}
	services.Close()
}
