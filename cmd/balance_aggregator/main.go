package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"balance_aggregator/internal/app/service"
	"balance_aggregator/internal/config"
	"balance_aggregator/internal/infrastructure/chainloader"
	"balance_aggregator/internal/infrastructure/eventbus"
	"balance_aggregator/internal/infrastructure/network"
	"balance_aggregator/internal/infrastructure/pricefeed"
	"balance_aggregator/internal/infrastructure/restapi"
	"balance_aggregator/internal/infrastructure/walletloader"
	"balance_aggregator/internal/pkg/logger"
	"balance_aggregator/internal/pkg/metrics"
)

const defaultConfigPath = "config/config.yaml"

func main() {
	cfgPath := os.Getenv("CONFIG_PATH")
	if cfgPath == "" {
		cfgPath = defaultConfigPath
	}
	cfg, err := config.LoadConfig(cfgPath)
	if err != nil {
		logger.Fatal("Failed to load configuration", "path", cfgPath, "error", err)
	}

	zapLogger, err := logger.New(cfg.Logging.Level)
	if err != nil {
		logger.Fatal("Failed to initialize logger", "error", err)
	}
	defer zapLogger.Sync()
	log := logger.NewZapAdapter(zapLogger)

	zapLogger.Info("Configuration loaded", zap.String("path", cfgPath))

	metrics.MustRegisterMetrics()

	walletRepo := walletloader.NewWalletFileLoader(cfg.Data.WalletsFile, log)
	chainFetcher := chainloader.NewChainAssetFileLoader(
		cfg.Data.ChainAssetsFile,
		time.Duration(cfg.Cache.DefaultExpirationMinutes)*time.Minute,
		time.Duration(cfg.Cache.CleanupIntervalMinutes)*time.Minute,
		log,
	)

	quoteClient := pricefeed.NewQuoteClient(
		cfg.PriceFeed.BaseURL,
		time.Duration(cfg.PriceFeed.RequestTimeoutMillis)*time.Millisecond,
		zapLogger,
		cfg.PriceFeed.MaxIDsPerBatchCall,
	)
	pricePoller := pricefeed.NewPoller(
		quoteClient,
		time.Duration(cfg.PriceFeed.PollIntervalSeconds)*time.Second,
		time.Duration(cfg.PriceFeed.RequestTimeoutMillis)*time.Millisecond,
		cfg.PriceFeed.MaxIDsPerBatchCall,
		log,
	)

	adapterFactory := network.NewEVMAdapterFactory(network.EVMAdapterConfig{
		ConnectTimeout: time.Duration(cfg.RpcClient.ConnectTimeoutMs) * time.Millisecond,
		CallTimeout:    time.Duration(cfg.RpcClient.CallTimeoutMs) * time.Millisecond,
		PollInterval:   time.Duration(cfg.RpcClient.PollIntervalSeconds) * time.Second,
		RateLimit:      rate.Limit(cfg.RpcClient.RateLimit),
		RateBurst:      cfg.RpcClient.BurstLimit,
	}, log)

	events := eventbus.New()

	coordinator := service.NewBalanceCoordinator(service.BalanceCoordinatorDeps{
		Wallets:        walletRepo,
		Chains:         chainFetcher,
		AdapterFactory: adapterFactory,
		Prices:         pricePoller,
		Events:         events,
		Logger:         log,
	})
	defer coordinator.Close()

	balanceHandler := restapi.NewBalanceHandler(log)
	coordinator.SubscribeWalletsBalances(nil, balanceHandler)

	startCtx, cancelStart := context.WithTimeout(context.Background(), time.Minute)
	defer cancelStart()
	if err := coordinator.Start(startCtx); err != nil {
		logger.Fatal("Failed to start balance coordinator", "error", err)
	}

	router := restapi.SetupRouter(balanceHandler)
	srv := &http.Server{
		Addr:         cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		IdleTimeout:  time.Duration(cfg.Server.IdleTimeout) * time.Second,
	}

	go func() {
		zapLogger.Info("Server starting", zap.String("addr", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zapLogger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	zapLogger.Info("Shutting down server...")

	ctxShutdown, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelShutdown()
	if err := srv.Shutdown(ctxShutdown); err != nil {
		zapLogger.Error("Server forced to shutdown", zap.Error(err))
	}

	zapLogger.Info("Server exiting")
}
