package router

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ignatzorin/swapmarket-backend/internal/auth"
	"github.com/ignatzorin/swapmarket-backend/internal/config"
	"github.com/ignatzorin/swapmarket-backend/internal/domain/valueobject"
	"github.com/ignatzorin/swapmarket-backend/internal/http/middleware"
	"github.com/ignatzorin/swapmarket-backend/internal/interface/http/handler"
)

func SetupRouter(
	cfg *config.Config,
	tokenManager *auth.TokenManager,
	orderHandler *handler.OrderHandler,
	disputeHandler *handler.DisputeHandler,
	tradeHandler *handler.TradeHandler,
	wsHandler *handler.WSHandler,
	healthHandler *handler.HealthHandler,
) *gin.Engine {
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.Default()
	r.Use(middleware.MetricsMiddleware())
	r.Use(middleware.ErrorHandler())
	r.Use(middleware.CORSMiddleware(cfg.AllowedOrigins))

	r.GET("/health", healthHandler.Health)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group("/api")
	api.GET("/ws", wsHandler.Handle)

	protected := api.Group("/")
	protected.Use(middleware.AuthMiddleware(tokenManager))
	protected.Use(middleware.RateLimitMiddleware(cfg.RateLimitLimit, cfg.RateLimitPeriod))
	protected.Use(middleware.IdempotencyMiddleware(middleware.NewIdempotencyStore(cfg.IdempotencyCacheSize, cfg.IdempotencyTTL)))
	{
		// Заказы и эскроу
		protected.POST("/orders", orderHandler.CreateOrder)
		protected.GET("/orders", orderHandler.ListMyOrders)
		protected.GET("/orders/:id", middleware.UUIDValidator("id"), orderHandler.GetOrder)
		protected.PATCH("/orders/:id/status", middleware.UUIDValidator("id"), orderHandler.UpdateStatus)
		protected.POST("/orders/:id/pay", middleware.UUIDValidator("id"), orderHandler.InitiatePayment)
		protected.GET("/orders/:id/escrow", middleware.UUIDValidator("id"), orderHandler.GetEscrow)
		protected.GET("/orders/:id/disputes", middleware.UUIDValidator("id"), disputeHandler.ListOrderDisputes)

		// Споры; review/reject/resolve доступны только администратору, проверка в use case
		protected.POST("/disputes", disputeHandler.CreateDispute)
		protected.GET("/disputes", disputeHandler.ListMyDisputes)
		protected.GET("/disputes/:id", middleware.UUIDValidator("id"), disputeHandler.GetDispute)
		protected.POST("/disputes/:id/review", middleware.UUIDValidator("id"), disputeHandler.StartReview)
		protected.POST("/disputes/:id/reject", middleware.UUIDValidator("id"), disputeHandler.RejectDispute)
		protected.POST("/disputes/:id/resolve", middleware.UUIDValidator("id"), disputeHandler.ResolveDispute)

		// Бартерные сделки и таймер
		protected.POST("/trades", tradeHandler.CreateOffer)
		protected.GET("/trades", tradeHandler.ListMyTrades)
		protected.GET("/trades/:id", middleware.UUIDValidator("id"), tradeHandler.GetTrade)
		protected.PATCH("/trades/:id/status", middleware.UUIDValidator("id"), tradeHandler.UpdateStatus)
		protected.POST("/trades/:id/accept", middleware.UUIDValidator("id"), tradeHandler.Transition(valueobject.TradeStatusAccepted))
		protected.POST("/trades/:id/reject", middleware.UUIDValidator("id"), tradeHandler.Transition(valueobject.TradeStatusRejected))
		protected.POST("/trades/:id/withdraw", middleware.UUIDValidator("id"), tradeHandler.Transition(valueobject.TradeStatusWithdrawn))
		protected.POST("/trades/:id/meetup", middleware.UUIDValidator("id"), tradeHandler.Transition(valueobject.TradeStatusAwaitingMeetup))
		protected.POST("/trades/:id/complete", middleware.UUIDValidator("id"), tradeHandler.Transition(valueobject.TradeStatusCompleted))
		protected.POST("/trades/:id/cancel", middleware.UUIDValidator("id"), tradeHandler.Transition(valueobject.TradeStatusCancelled))
		protected.POST("/trades/:id/counter", middleware.UUIDValidator("id"), tradeHandler.Counter)
		protected.GET("/trades/:id/timer", middleware.UUIDValidator("id"), tradeHandler.GetTimer)
		protected.POST("/trades/:id/timer/extend", middleware.UUIDValidator("id"), tradeHandler.ExtendTimer)
		protected.POST("/trades/:id/timer/pause", middleware.UUIDValidator("id"), tradeHandler.PauseTimer)
		protected.POST("/trades/:id/timer/resume", middleware.UUIDValidator("id"), tradeHandler.ResumeTimer)
	}

	return r
}
