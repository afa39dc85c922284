package entity

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/ignatzorin/swapmarket-backend/internal/domain/valueobject"
	"github.com/ignatzorin/swapmarket-backend/internal/pkg/apperror"
)

const (
	MaxDisputeDescriptionLength = 5000
	MaxEvidenceImages           = 10
)

type Dispute struct {
	ID             uuid.UUID
	OrderID        uuid.UUID
	ReporterID     uuid.UUID
	Reason         valueobject.DisputeReason
	Description    string
	EvidenceImages []string
	Status         valueobject.DisputeStatus
	Resolution     *valueobject.DisputeResolution
	AdminNotes     *string
	ResolvedByID   *uuid.UUID
	ResolvedAt     *time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

func NewDispute(orderID, reporterID uuid.UUID, reason, description string, evidenceImages []string, now time.Time) (*Dispute, error) {
	r, err := valueobject.NewDisputeReason(reason)
	if err != nil {
		return nil, err
	}
	description = strings.TrimSpace(description)
	if len(description) > MaxDisputeDescriptionLength {
		return nil, apperror.New(apperror.ErrCodeValidation, "описание спора слишком длинное")
	}
	if len(evidenceImages) > MaxEvidenceImages {
		return nil, apperror.New(apperror.ErrCodeValidation, "слишком много изображений-доказательств")
	}

	images := make([]string, 0, len(evidenceImages))
	for _, img := range evidenceImages {
		if img = strings.TrimSpace(img); img != "" {
			images = append(images, img)
		}
	}

	return &Dispute{
		ID:             uuid.New(),
		OrderID:        orderID,
		ReporterID:     reporterID,
		Reason:         r,
		Description:    description,
		EvidenceImages: images,
		Status:         valueobject.DisputeStatusOpen,
		CreatedAt:      now,
		UpdatedAt:      now,
	}, nil
}

func (d *Dispute) IsActive() bool {
	return d.Status.IsActive()
}

func (d *Dispute) StartReview(now time.Time) error {
	if d.Status != valueobject.DisputeStatusOpen {
		return apperror.New(apperror.ErrCodeInvalidState, "взять в работу можно только открытый спор")
	}
	d.Status = valueobject.DisputeStatusUnderReview
	d.UpdatedAt = now
	return nil
}

// Resolve закрывает спор. Решение выставляется один раз и дальше не меняется.
func (d *Dispute) Resolve(resolution valueobject.DisputeResolution, adminID uuid.UUID, notes string, now time.Time) error {
	if !d.IsActive() {
		return apperror.New(apperror.ErrCodeInvalidState, "спор уже закрыт")
	}
	d.Status = valueobject.DisputeStatusResolved
	d.Resolution = &resolution
	d.close(adminID, notes, now)
	return nil
}

func (d *Dispute) Reject(adminID uuid.UUID, notes string, now time.Time) error {
	if !d.IsActive() {
		return apperror.New(apperror.ErrCodeInvalidState, "спор уже закрыт")
	}
	d.Status = valueobject.DisputeStatusRejected
	d.close(adminID, notes, now)
	return nil
}

func (d *Dispute) close(adminID uuid.UUID, notes string, now time.Time) {
	if notes = strings.TrimSpace(notes); notes != "" {
		d.AdminNotes = &notes
	}
	d.ResolvedByID = &adminID
	d.ResolvedAt = &now
	d.UpdatedAt = now
}
