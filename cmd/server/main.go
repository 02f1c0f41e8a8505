package main

import (
	"context"
	"database/sql"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"google.golang.org/grpc"

	"github.com/rl1809/shop-inventory/internal/adapter/auth"
	"github.com/rl1809/shop-inventory/internal/adapter/discovery"
	"github.com/rl1809/shop-inventory/internal/adapter/handler"
	"github.com/rl1809/shop-inventory/internal/adapter/messaging"
	"github.com/rl1809/shop-inventory/internal/adapter/storage"
	"github.com/rl1809/shop-inventory/internal/config"
	"github.com/rl1809/shop-inventory/internal/core/service"
	"github.com/rl1809/shop-inventory/internal/port"
)

const serviceName = "inventory-service"

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger, err := newLogger(cfg)
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	if err := run(cfg, logger); err != nil {
		logger.Fatal("server failed", zap.Error(err))
	}
}

func newLogger(cfg *config.Config) (*zap.Logger, error) {
	zcfg := zap.NewDevelopmentConfig()
	if cfg.Production() {
		zcfg = zap.NewProductionConfig()
	}
	level, err := zapcore.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, err
	}
	zcfg.Level = zap.NewAtomicLevelAt(level)
	return zcfg.Build()
}

func run(cfg *config.Config, logger *zap.Logger) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize store
	var (
		store      port.Store
		categories port.CategoryStore
	)
	switch cfg.StoreBackend {
	case config.BackendMySQL:
		db, err := sql.Open("mysql", cfg.MySQLDSN)
		if err != nil {
			return err
		}
		defer db.Close()
		db.SetMaxOpenConns(50)
		db.SetMaxIdleConns(25)
		db.SetConnMaxLifetime(5 * time.Minute)

		if err := db.PingContext(ctx); err != nil {
			return err
		}
		logger.Info("connected to mysql")

		mysqlAdapter := storage.NewMySQLAdapter(db)
		if err := mysqlAdapter.Migrate(ctx); err != nil {
			return err
		}
		store, categories = mysqlAdapter, mysqlAdapter
	default:
		memory := storage.NewMemoryStore()
		store, categories = memory, memory
		logger.Warn("using in-memory store, data is lost on restart")
	}

	var opts []service.Option

	// Initialize Redis
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			PoolSize: 100,
		})
		defer rdb.Close()
		if err := rdb.Ping(ctx).Err(); err != nil {
			return err
		}
		logger.Info("connected to redis", zap.String("addr", cfg.RedisAddr))
		opts = append(opts, service.WithIdempotency(storage.NewRedisAdapter(rdb)))
	}

	// Initialize Kafka
	if len(cfg.KafkaBrokers) > 0 {
		publisher := messaging.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaTopic)
		defer publisher.Close()
		logger.Info("kafka publisher initialized",
			zap.Strings("brokers", cfg.KafkaBrokers),
			zap.String("topic", cfg.KafkaTopic))
		opts = append(opts, service.WithPublisher(publisher))
	}

	// Initialize services
	services := handler.Services{
		Stock:      service.NewStockService(store, logger, opts...),
		Query:      service.NewQueryService(store, logger),
		Catalog:    service.NewCatalogService(store, categories, logger),
		Reconciler: service.NewReconciler(store, logger),
	}
	verifier := auth.NewVerifier(cfg.JWTSecret, cfg.JWTAudience)

	// Initialize gRPC server
	grpcHandler := handler.NewGRPCHandler(services, verifier, logger)
	grpcServer := grpc.NewServer(grpc.UnaryInterceptor(grpcHandler.AuthInterceptor))
	handler.RegisterInventoryServer(grpcServer, grpcHandler)

	lis, err := net.Listen("tcp", ":"+cfg.GRPCPort)
	if err != nil {
		return err
	}

	go func() {
		logger.Info("gRPC server listening", zap.String("port", cfg.GRPCPort))
		if err := grpcServer.Serve(lis); err != nil {
			logger.Error("gRPC server error", zap.Error(err))
		}
	}()

	// Initialize HTTP server
	app := handler.NewHTTPHandler(services, verifier, logger).NewApp()

	go func() {
		logger.Info("HTTP server listening", zap.String("port", cfg.HTTPPort))
		if err := app.Listen(":" + cfg.HTTPPort); err != nil {
			logger.Error("HTTP server error", zap.Error(err))
		}
	}()

	// Register with Consul
	if cfg.ConsulAddr != "" {
		consulClient, err := discovery.NewConsulClient(cfg.ConsulAddr)
		if err != nil {
			return err
		}
		serviceID := serviceName + "-" + cfg.ServiceID
		if err := consulClient.RegisterService(serviceID, serviceName, cfg.HTTPPort, cfg.GRPCPort); err != nil {
			return err
		}
		logger.Info("registered with consul", zap.String("service_id", serviceID))
		defer func() {
			if err := consulClient.DeregisterService(serviceID); err != nil {
				logger.Warn("failed to deregister service", zap.Error(err))
			}
		}()
	}

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down...")

	if err := app.ShutdownWithTimeout(5 * time.Second); err != nil {
		logger.Warn("HTTP shutdown", zap.Error(err))
	}
	logger.Info("HTTP server stopped")

	grpcServer.GracefulStop()
	logger.Info("gRPC server stopped")

	return nil
}
