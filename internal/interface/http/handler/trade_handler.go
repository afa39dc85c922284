package handler

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/ignatzorin/swapmarket-backend/internal/domain/entity"
	"github.com/ignatzorin/swapmarket-backend/internal/domain/valueobject"
	"github.com/ignatzorin/swapmarket-backend/internal/interface/http/dto"
	"github.com/ignatzorin/swapmarket-backend/internal/interface/http/response"
	"github.com/ignatzorin/swapmarket-backend/internal/usecase/trade"
)

type TradeHandler struct {
	createOfferUC  *trade.CreateOfferUseCase
	updateStatusUC *trade.UpdateTradeStatusUseCase
	timerUC        *trade.TradeTimerUseCase
	getTradeUC     *trade.GetTradeUseCase
	now            func() time.Time
}

// NewTradeHandler: now задаёт момент, на который в ответах считается остаток таймера.
func NewTradeHandler(
	createOfferUC *trade.CreateOfferUseCase,
	updateStatusUC *trade.UpdateTradeStatusUseCase,
	timerUC *trade.TradeTimerUseCase,
	getTradeUC *trade.GetTradeUseCase,
	now func() time.Time,
) *TradeHandler {
	if now == nil {
		now = time.Now
	}
	return &TradeHandler{
		createOfferUC:  createOfferUC,
		updateStatusUC: updateStatusUC,
		timerUC:        timerUC,
		getTradeUC:     getTradeUC,
		now:            now,
	}
}

// CreateOffer обслуживает POST /api/trades.
func (h *TradeHandler) CreateOffer(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}

	var req dto.CreateOfferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "некорректные данные запроса")
		return
	}

	t, err := h.createOfferUC.Execute(c.Request.Context(), actor, req.ToInput())
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, dto.ToTradeResponse(t, h.now()))
}

func (h *TradeHandler) GetTrade(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}
	tradeID, ok := pathID(c, "id")
	if !ok {
		return
	}

	t, err := h.getTradeUC.Get(c.Request.Context(), actor, tradeID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, dto.ToTradeResponse(t, h.now()))
}

func (h *TradeHandler) ListMyTrades(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}
	limit, offset := pagination(c)

	trades, err := h.getTradeUC.ListMine(c.Request.Context(), actor, limit, offset)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Paginated(c, dto.ToTradeResponses(trades, h.now()), len(trades), limit, offset)
}

// UpdateStatus обслуживает PATCH /api/trades/:id/status.
func (h *TradeHandler) UpdateStatus(c *gin.Context) {
	var req dto.UpdateTradeStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "не указан статус")
		return
	}
	h.applyStatus(c, trade.UpdateTradeStatusInput{Status: req.Status, CashTopUpCents: req.CashTopUpCents})
}

// Transition возвращает хэндлер для коротких маршрутов вида POST /api/trades/:id/accept.
func (h *TradeHandler) Transition(status valueobject.TradeStatus) gin.HandlerFunc {
	return func(c *gin.Context) {
		h.applyStatus(c, trade.UpdateTradeStatusInput{Status: string(status)})
	}
}

// Counter обслуживает POST /api/trades/:id/counter: продавец предлагает свою доплату.
func (h *TradeHandler) Counter(c *gin.Context) {
	var req dto.CounterOfferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "не указана доплата")
		return
	}
	h.applyStatus(c, trade.UpdateTradeStatusInput{
		Status:         string(valueobject.TradeStatusCountered),
		CashTopUpCents: req.CashTopUpCents,
	})
}

func (h *TradeHandler) applyStatus(c *gin.Context, input trade.UpdateTradeStatusInput) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}
	tradeID, ok := pathID(c, "id")
	if !ok {
		return
	}

	t, err := h.updateStatusUC.Execute(c.Request.Context(), actor, tradeID, input)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, dto.ToTradeResponse(t, h.now()))
}

func (h *TradeHandler) GetTimer(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}
	tradeID, ok := pathID(c, "id")
	if !ok {
		return
	}

	view, err := h.timerUC.State(c.Request.Context(), actor, tradeID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, dto.ToTimerResponse(view))
}

// ExtendTimer: продавец продлевает сразу (200), покупатель только просит (202).
func (h *TradeHandler) ExtendTimer(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}
	tradeID, ok := pathID(c, "id")
	if !ok {
		return
	}

	result, err := h.timerUC.Extend(c.Request.Context(), actor, tradeID)
	if err != nil {
		response.Error(c, err)
		return
	}

	body := dto.ExtendTimerResponse{
		Requested: result.Requested,
		Trade:     dto.ToTradeResponse(result.Trade, h.now()),
	}
	if result.Requested {
		response.Accepted(c, body)
		return
	}
	response.Success(c, body)
}

func (h *TradeHandler) PauseTimer(c *gin.Context) {
	h.timerAction(c, h.timerUC.Pause)
}

func (h *TradeHandler) ResumeTimer(c *gin.Context) {
	h.timerAction(c, h.timerUC.Resume)
}

func (h *TradeHandler) timerAction(c *gin.Context, action func(ctx context.Context, actor entity.Actor, tradeID uuid.UUID) (*entity.Trade, error)) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}
	tradeID, ok := pathID(c, "id")
	if !ok {
		return
	}

	t, err := action(c.Request.Context(), actor, tradeID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, dto.ToTradeResponse(t, h.now()))
}
