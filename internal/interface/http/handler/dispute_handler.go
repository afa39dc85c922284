package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/ignatzorin/swapmarket-backend/internal/interface/http/dto"
	"github.com/ignatzorin/swapmarket-backend/internal/interface/http/response"
	"github.com/ignatzorin/swapmarket-backend/internal/usecase/dispute"
)

type DisputeHandler struct {
	createUC  *dispute.CreateDisputeUseCase
	reviewUC  *dispute.ReviewDisputeUseCase
	resolveUC *dispute.ResolveDisputeUseCase
	getUC     *dispute.GetDisputeUseCase
}

func NewDisputeHandler(
	createUC *dispute.CreateDisputeUseCase,
	reviewUC *dispute.ReviewDisputeUseCase,
	resolveUC *dispute.ResolveDisputeUseCase,
	getUC *dispute.GetDisputeUseCase,
) *DisputeHandler {
	return &DisputeHandler{
		createUC:  createUC,
		reviewUC:  reviewUC,
		resolveUC: resolveUC,
		getUC:     getUC,
	}
}

// CreateDispute обслуживает POST /api/disputes.
func (h *DisputeHandler) CreateDispute(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}

	var req dto.CreateDisputeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "некорректные данные запроса")
		return
	}

	d, err := h.createUC.Execute(c.Request.Context(), actor, dispute.CreateDisputeInput{
		OrderID:        req.OrderID,
		Reason:         req.Reason,
		Description:    req.Description,
		EvidenceImages: req.EvidenceImages,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, dto.ToDisputeResponse(d))
}

func (h *DisputeHandler) GetDispute(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}
	disputeID, ok := pathID(c, "id")
	if !ok {
		return
	}

	d, err := h.getUC.Get(c.Request.Context(), actor, disputeID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, dto.ToDisputeResponse(d))
}

func (h *DisputeHandler) ListMyDisputes(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}
	limit, offset := pagination(c)

	disputes, err := h.getUC.ListMine(c.Request.Context(), actor, limit, offset)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Paginated(c, dto.ToDisputeResponses(disputes), len(disputes), limit, offset)
}

// ListOrderDisputes обслуживает GET /api/orders/:id/disputes: вся история споров по заказу.
func (h *DisputeHandler) ListOrderDisputes(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}
	orderID, ok := pathID(c, "id")
	if !ok {
		return
	}

	disputes, err := h.getUC.GetByOrder(c.Request.Context(), actor, orderID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, dto.ToDisputeResponses(disputes))
}

func (h *DisputeHandler) StartReview(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}
	disputeID, ok := pathID(c, "id")
	if !ok {
		return
	}

	d, err := h.reviewUC.StartReview(c.Request.Context(), actor, disputeID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, dto.ToDisputeResponse(d))
}

func (h *DisputeHandler) RejectDispute(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}
	disputeID, ok := pathID(c, "id")
	if !ok {
		return
	}

	// тело необязательно
	var req dto.RejectDisputeRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			response.BadRequest(c, "некорректные данные запроса")
			return
		}
	}

	d, err := h.reviewUC.Reject(c.Request.Context(), actor, disputeID, req.AdminNotes)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, dto.ToDisputeResponse(d))
}

// ResolveDispute обслуживает POST /api/disputes/:id/resolve. При full_refund
// синхронно выполняет возврат денег и откат заказа.
func (h *DisputeHandler) ResolveDispute(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}
	disputeID, ok := pathID(c, "id")
	if !ok {
		return
	}

	var req dto.ResolveDisputeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "не указано решение по спору")
		return
	}

	d, err := h.resolveUC.Execute(c.Request.Context(), actor, disputeID, dispute.ResolveInput{
		Resolution: req.Resolution,
		AdminNotes: req.AdminNotes,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, dto.ToDisputeResponse(d))
}
