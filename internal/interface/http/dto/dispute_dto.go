package dto

import (
	"time"

	"github.com/google/uuid"

	"github.com/ignatzorin/swapmarket-backend/internal/domain/entity"
)

type CreateDisputeRequest struct {
	OrderID        uuid.UUID `json:"order_id" binding:"required"`
	Reason         string    `json:"reason" binding:"required"`
	Description    string    `json:"description"`
	EvidenceImages []string  `json:"evidence_images" binding:"max=10,dive,max=2048"`
}

type ResolveDisputeRequest struct {
	Resolution string `json:"resolution" binding:"required"`
	AdminNotes string `json:"admin_notes"`
}

type RejectDisputeRequest struct {
	AdminNotes string `json:"admin_notes"`
}

type DisputeResponse struct {
	ID             uuid.UUID  `json:"id"`
	OrderID        uuid.UUID  `json:"order_id"`
	ReporterID     uuid.UUID  `json:"reporter_id"`
	Reason         string     `json:"reason"`
	Description    string     `json:"description"`
	EvidenceImages []string   `json:"evidence_images"`
	Status         string     `json:"status"`
	Resolution     *string    `json:"resolution,omitempty"`
	AdminNotes     *string    `json:"admin_notes,omitempty"`
	ResolvedByID   *uuid.UUID `json:"resolved_by_id,omitempty"`
	ResolvedAt     *time.Time `json:"resolved_at,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

func ToDisputeResponse(d *entity.Dispute) DisputeResponse {
	resp := DisputeResponse{
		ID:             d.ID,
		OrderID:        d.OrderID,
		ReporterID:     d.ReporterID,
		Reason:         string(d.Reason),
		Description:    d.Description,
		EvidenceImages: d.EvidenceImages,
		Status:         string(d.Status),
		AdminNotes:     d.AdminNotes,
		ResolvedByID:   d.ResolvedByID,
		ResolvedAt:     d.ResolvedAt,
		CreatedAt:      d.CreatedAt,
		UpdatedAt:      d.UpdatedAt,
	}
	if resp.EvidenceImages == nil {
		resp.EvidenceImages = []string{}
	}
	if d.Resolution != nil {
		r := string(*d.Resolution)
		resp.Resolution = &r
	}
	return resp
}

func ToDisputeResponses(disputes []*entity.Dispute) []DisputeResponse {
	responses := make([]DisputeResponse, 0, len(disputes))
	for _, d := range disputes {
		responses = append(responses, ToDisputeResponse(d))
	}
	return responses
}
