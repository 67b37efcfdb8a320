package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/gin-gonic/gin"
	gormmysql "gorm.io/driver/mysql"
	"gorm.io/gorm"

	"github.com/wyfcoding/binancebot/internal/strategy/application"
	"github.com/wyfcoding/binancebot/internal/strategy/domain"
	"github.com/wyfcoding/binancebot/internal/strategy/infrastructure/messaging"
	"github.com/wyfcoding/binancebot/internal/strategy/infrastructure/persistence/mysql"
	"github.com/wyfcoding/binancebot/internal/strategy/infrastructure/venue"
	"github.com/wyfcoding/binancebot/internal/strategy/interfaces"
	"github.com/wyfcoding/binancebot/pkg/config"
	"github.com/wyfcoding/binancebot/pkg/logger"
	"github.com/wyfcoding/binancebot/pkg/metrics"
	"github.com/wyfcoding/binancebot/pkg/mq"
)

func main() {
	configPath := flag.String("config", "configs/config.toml", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	log, err := logger.New(logger.Config{
		Level:      cfg.Logger.Level,
		Format:     cfg.Logger.Format,
		Output:     cfg.Logger.Output,
		FilePath:   cfg.Logger.FilePath,
		MaxSize:    cfg.Logger.MaxSize,
		MaxBackups: cfg.Logger.MaxBackups,
		MaxAge:     cfg.Logger.MaxAge,
		Compress:   cfg.Logger.Compress,
		WithCaller: cfg.Logger.WithCaller,
	})
	if err != nil {
		slog.Error("failed to init logger", "error", err)
		os.Exit(1)
	}

	if err := run(cfg, log); err != nil {
		log.Error("service exited with error", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, log *slog.Logger) error {
	// 指标
	m := metrics.New(cfg.ServiceName)
	if err := m.Register(); err != nil {
		return fmt.Errorf("failed to register metrics: %w", err)
	}
	if cfg.Metrics.Enabled {
		metrics.StartHTTPServer(cfg.Metrics.Port, cfg.Metrics.Path, log)
	}

	// 数据库
	db, err := gorm.Open(gormmysql.Open(cfg.Database.DSN), &gorm.Config{})
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to access sql db: %w", err)
	}
	sqlDB.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(time.Duration(cfg.Database.ConnMaxLifetime) * time.Second)
	defer sqlDB.Close()

	if err := db.AutoMigrate(&domain.Strategy{}); err != nil {
		return fmt.Errorf("failed to migrate tables: %w", err)
	}

	// 消息队列
	producer := mq.NewProducer(mq.KafkaConfig{
		Brokers:      cfg.Kafka.Brokers,
		MaxRetries:   cfg.Kafka.MaxRetries,
		RetryBackoff: cfg.Kafka.RetryBackoff,
	}, log)
	defer producer.Close()
	publisher := messaging.NewKafkaEventPublisher(producer, cfg.Kafka.EventTopic)

	// 场内网关
	clk := clock.New()
	gateway := venue.NewClient(venue.Config{
		APIKey:         cfg.Binance.APIKey,
		APISecret:      cfg.Binance.APISecret,
		Testnet:        cfg.Binance.Testnet,
		RequestTimeout: time.Duration(cfg.Binance.RequestTimeout) * time.Second,
		RecvWindow:     cfg.Binance.RecvWindow,
	}, clk, m, log)

	// 仓储与服务
	strategyRepo := mysql.NewStrategyRepository(db)
	validator := domain.NewValidator(cfg.Binance.Symbols)
	monitor := application.NewOrderMonitor(gateway, clk, log)
	twap := application.NewTWAPExecutor(gateway, monitor, clk, log)
	grid := application.NewGridExecutor(gateway, clk, log, publisher)
	oco := application.NewOCOCoordinator(gateway, validator, clk, log, publisher)

	execDefaults := application.ExecutionDefaults{
		FillWait:         time.Duration(cfg.Execution.FillWait) * time.Second,
		GridWindow:       time.Duration(cfg.Execution.GridWindow) * time.Second,
		GridPollInterval: time.Duration(cfg.Execution.GridPollInterval) * time.Second,
		MaxActiveOrders:  cfg.Execution.MaxActiveOrders,
	}
	cmdService := application.NewCommandService(strategyRepo, validator, twap, grid, oco, publisher, clk, m, execDefaults, log)
	queryService := application.NewQueryService(strategyRepo, gateway, monitor, validator,
		time.Duration(cfg.Execution.PollInterval)*time.Second,
		time.Duration(cfg.Execution.MonitorTimeout)*time.Second,
		log)
	httpHandler := interfaces.NewHTTPHandler(cmdService, queryService)

	// HTTP 服务
	if cfg.Environment == "prod" {
		gin.SetMode(gin.ReleaseMode)
	}
	engine := gin.New()
	engine.Use(gin.Recovery())
	api := engine.Group("/api/v1")
	{
		httpHandler.RegisterRoutes(api)
	}

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.HTTP.Host, cfg.HTTP.Port),
		Handler:      engine,
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeout) * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("http server starting", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-quit:
		log.Info("shutting down", "signal", sig.String())
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	log.Info("server stopped")
	return nil
}
