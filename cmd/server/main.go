package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"

	"github.com/ignatzorin/swapmarket-backend/internal/auth"
	"github.com/ignatzorin/swapmarket-backend/internal/config"
	"github.com/ignatzorin/swapmarket-backend/internal/db"
	"github.com/ignatzorin/swapmarket-backend/internal/domain/repository"
	"github.com/ignatzorin/swapmarket-backend/internal/goroutine"
	httpRouter "github.com/ignatzorin/swapmarket-backend/internal/http/router"
	"github.com/ignatzorin/swapmarket-backend/internal/infrastructure/payment"
	"github.com/ignatzorin/swapmarket-backend/internal/infrastructure/persistence/memory"
	"github.com/ignatzorin/swapmarket-backend/internal/infrastructure/persistence/postgres"
	"github.com/ignatzorin/swapmarket-backend/internal/interface/http/handler"
	"github.com/ignatzorin/swapmarket-backend/internal/logger"
	"github.com/ignatzorin/swapmarket-backend/internal/notify"
	"github.com/ignatzorin/swapmarket-backend/internal/tracing"
	"github.com/ignatzorin/swapmarket-backend/internal/usecase/dispute"
	"github.com/ignatzorin/swapmarket-backend/internal/usecase/escrow"
	"github.com/ignatzorin/swapmarket-backend/internal/usecase/inventory"
	"github.com/ignatzorin/swapmarket-backend/internal/usecase/order"
	"github.com/ignatzorin/swapmarket-backend/internal/usecase/trade"
	"github.com/ignatzorin/swapmarket-backend/internal/worker"
	"github.com/ignatzorin/swapmarket-backend/internal/ws"
)

const notifyTimeout = 5 * time.Second

func main() {
	// Готовим контекст для graceful shutdown.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("main: ошибка загрузки конфигурации: %v", err)
	}

	logger.Init(cfg.LogLevel)
	if !cfg.IsProduction() {
		logger.SetTextFormatter()
	}

	shutdownTracing, err := tracing.Init(ctx, cfg.OTLPEndpoint, cfg.ServiceName)
	if err != nil {
		log.Fatalf("main: ошибка инициализации трассировки: %v", err)
	}

	store, dbConn, err := openStore(ctx, cfg)
	if err != nil {
		log.Fatalf("main: %v", err)
	}
	if dbConn != nil {
		defer safeClose(dbConn)
	}

	gateway, err := newGateway(cfg)
	if err != nil {
		log.Fatalf("main: %v", err)
	}

	// Уведомления: WebSocket для подключённых пользователей, Kafka для остальных каналов.
	hub := ws.NewHub()
	goroutine.SafeGoWithContext(ctx, "ws:hub", hub.Run)

	sinks := []notify.Sink{hub}
	var kafkaSink *notify.KafkaSink
	if len(cfg.KafkaBrokers) > 0 {
		kafkaSink = notify.NewKafkaSink(cfg.KafkaBrokers, cfg.KafkaTopic)
		sinks = append(sinks, kafkaSink)
	}
	dispatcher := notify.NewDispatcher(notifyTimeout, sinks...)

	// Use cases.
	settings := trade.Settings{Window: cfg.TradeTimerWindow}
	inv := inventory.NewAdjuster()
	ledger := escrow.NewLedger(store)
	reversal := dispute.NewReversalProtocol(store, inv, ledger, gateway)

	orderHandler := handler.NewOrderHandler(
		order.NewCreateOrderUseCase(store, inv, ledger, dispatcher),
		order.NewUpdateOrderStatusUseCase(store, inv, ledger, gateway, dispatcher),
		order.NewInitiatePaymentUseCase(store, gateway, dispatcher),
		order.NewGetOrderUseCase(store),
		order.NewListMyOrdersUseCase(store),
		ledger,
	)
	disputeHandler := handler.NewDisputeHandler(
		dispute.NewCreateDisputeUseCase(store, dispatcher),
		dispute.NewReviewDisputeUseCase(store, dispatcher),
		dispute.NewResolveDisputeUseCase(store, reversal, dispatcher),
		dispute.NewGetDisputeUseCase(store),
	)
	tradeHandler := handler.NewTradeHandler(
		trade.NewCreateOfferUseCase(store, dispatcher, settings),
		trade.NewUpdateTradeStatusUseCase(store, inv, dispatcher, settings),
		trade.NewTradeTimerUseCase(store, dispatcher, settings),
		trade.NewGetTradeUseCase(store),
		nil,
	)

	// Фоновая отмена просроченных сделок.
	sweeper := worker.NewSweeper(trade.NewExpireTradesUseCase(store, inv, dispatcher, settings), cfg.SweepInterval, cfg.SweepBatch)
	goroutine.SafeGoWithContext(ctx, "worker:sweeper", sweeper.Run)

	var pinger handler.Pinger
	if dbConn != nil {
		pinger = dbConn
	}

	tokenManager := auth.NewTokenManager(cfg.JWTSecret, 0)
	engine := httpRouter.SetupRouter(
		cfg,
		tokenManager,
		orderHandler,
		disputeHandler,
		tradeHandler,
		handler.NewWSHandler(hub, tokenManager, cfg.AllowedOrigins),
		handler.NewHealthHandler(pinger, cfg.StorageDriver),
	)

	server := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Завершаем сервер при получении сигнала.
	goroutine.SafeGo("http:shutdown", func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Entry().WithError(err).Error("main: ошибка остановки http сервера")
		}
	})

	logger.Entry().WithFields(logrus.Fields{
		"port":    cfg.HTTPPort,
		"storage": cfg.StorageDriver,
		"payment": cfg.PaymentProvider,
	}).Info("main: HTTP сервер запущен")

	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Entry().WithError(err).Error("main: сервер завершился с ошибкой")
	}

	// Дожидаемся уже отправленных уведомлений, затем закрываем внешние ресурсы.
	dispatcher.Wait()
	if kafkaSink != nil {
		if err := kafkaSink.Close(); err != nil {
			logger.Entry().WithError(err).Warn("main: ошибка закрытия kafka writer")
		}
	}

	tracingCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := shutdownTracing(tracingCtx); err != nil {
		logger.Entry().WithError(err).Warn("main: ошибка остановки трассировки")
	}
}

// openStore выбирает хранилище по STORAGE_DRIVER. Для memory соединение с базой не открывается.
func openStore(ctx context.Context, cfg *config.Config) (repository.Store, *sqlx.DB, error) {
	if cfg.StorageDriver == "memory" {
		logger.Entry().Warn("main: данные хранятся в памяти и пропадут при перезапуске")
		return memory.NewStore(), nil, nil
	}

	dbConn, err := db.NewPostgres(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, nil, err
	}

	if cfg.AutoMigrate {
		if err := db.RunMigrations(ctx, dbConn); err != nil {
			safeClose(dbConn)
			return nil, nil, err
		}
	}

	return postgres.NewStore(dbConn), dbConn, nil
}

func newGateway(cfg *config.Config) (repository.PaymentGateway, error) {
	if cfg.PaymentProvider == "stripe" {
		return payment.NewStripeGateway(cfg.StripeSecretKey), nil
	}
	return payment.NewOfflineGateway()
}

// safeClose закрывает соединение с базой.
func safeClose(conn *sqlx.DB) {
	if err := conn.Close(); err != nil {
		log.Printf("main: ошибка закрытия базы: %v", err)
	}
}
