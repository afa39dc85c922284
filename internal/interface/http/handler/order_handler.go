package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/ignatzorin/swapmarket-backend/internal/interface/http/dto"
	"github.com/ignatzorin/swapmarket-backend/internal/interface/http/response"
	"github.com/ignatzorin/swapmarket-backend/internal/usecase/escrow"
	"github.com/ignatzorin/swapmarket-backend/internal/usecase/order"
)

type OrderHandler struct {
	createOrderUC  *order.CreateOrderUseCase
	updateStatusUC *order.UpdateOrderStatusUseCase
	paymentUC      *order.InitiatePaymentUseCase
	getOrderUC     *order.GetOrderUseCase
	listMyOrdersUC *order.ListMyOrdersUseCase
	ledger         *escrow.Ledger
}

func NewOrderHandler(
	createOrderUC *order.CreateOrderUseCase,
	updateStatusUC *order.UpdateOrderStatusUseCase,
	paymentUC *order.InitiatePaymentUseCase,
	getOrderUC *order.GetOrderUseCase,
	listMyOrdersUC *order.ListMyOrdersUseCase,
	ledger *escrow.Ledger,
) *OrderHandler {
	return &OrderHandler{
		createOrderUC:  createOrderUC,
		updateStatusUC: updateStatusUC,
		paymentUC:      paymentUC,
		getOrderUC:     getOrderUC,
		listMyOrdersUC: listMyOrdersUC,
		ledger:         ledger,
	}
}

// CreateOrder обслуживает POST /api/orders.
func (h *OrderHandler) CreateOrder(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}

	var req dto.CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "некорректные данные запроса")
		return
	}

	created, err := h.createOrderUC.Execute(c.Request.Context(), actor, req.ToInput())
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, dto.ToOrderResponse(created))
}

func (h *OrderHandler) GetOrder(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}
	orderID, ok := pathID(c, "id")
	if !ok {
		return
	}

	o, err := h.getOrderUC.Execute(c.Request.Context(), actor, orderID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, dto.ToOrderResponse(o))
}

func (h *OrderHandler) ListMyOrders(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}
	limit, offset := pagination(c)

	orders, err := h.listMyOrdersUC.Execute(c.Request.Context(), actor, limit, offset)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Paginated(c, dto.ToOrderResponses(orders), len(orders), limit, offset)
}

// UpdateStatus обслуживает PATCH /api/orders/:id/status (только продавец).
func (h *OrderHandler) UpdateStatus(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}
	orderID, ok := pathID(c, "id")
	if !ok {
		return
	}

	var req dto.UpdateOrderStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "не указан статус")
		return
	}

	o, err := h.updateStatusUC.Execute(c.Request.Context(), actor, orderID, req.Status)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, dto.ToOrderResponse(o))
}

// InitiatePayment обслуживает POST /api/orders/:id/pay (только покупатель).
func (h *OrderHandler) InitiatePayment(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}
	orderID, ok := pathID(c, "id")
	if !ok {
		return
	}

	o, err := h.paymentUC.Execute(c.Request.Context(), actor, orderID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, dto.ToOrderResponse(o))
}

func (h *OrderHandler) GetEscrow(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}
	orderID, ok := pathID(c, "id")
	if !ok {
		return
	}

	e, err := h.ledger.Get(c.Request.Context(), actor, orderID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, dto.ToEscrowResponse(e))
}
