package trade

import (
	"context"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/ignatzorin/swapmarket-backend/internal/domain/entity"
	"github.com/ignatzorin/swapmarket-backend/internal/domain/repository"
	"github.com/ignatzorin/swapmarket-backend/internal/domain/valueobject"
	"github.com/ignatzorin/swapmarket-backend/internal/logger"
	"github.com/ignatzorin/swapmarket-backend/internal/notify"
	"github.com/ignatzorin/swapmarket-backend/internal/pkg/apperror"
	"github.com/ignatzorin/swapmarket-backend/internal/tracing"
	"github.com/ignatzorin/swapmarket-backend/internal/usecase/common"
)

const maxOfferMessageLength = 2000

type CreateOfferInput struct {
	ListingID        uuid.UUID
	OfferedListingID *uuid.UUID
	CashTopUpCents   int64
	Quantity         int
	Message          string
}

type CreateOfferUseCase struct {
	store    repository.Store
	notifier notify.Emitter
	settings Settings
}

func NewCreateOfferUseCase(store repository.Store, notifier notify.Emitter, settings Settings) *CreateOfferUseCase {
	return &CreateOfferUseCase{store: store, notifier: notifier, settings: settings}
}

func (uc *CreateOfferUseCase) Execute(ctx context.Context, actor entity.Actor, input CreateOfferInput) (_ *entity.Trade, err error) {
	ctx, span := tracing.StartSpan(ctx, "trade.CreateOffer", tracing.ActorID(actor.ID))
	defer func() { tracing.End(span, err) }()

	if input.Quantity == 0 {
		input.Quantity = 1
	}
	message := strings.TrimSpace(input.Message)
	if utf8.RuneCountInString(message) > maxOfferMessageLength {
		return nil, apperror.New(apperror.ErrCodeValidation, "сообщение к предложению слишком длинное")
	}

	listing, err := uc.store.GetListing(ctx, input.ListingID)
	if err != nil {
		return nil, common.StoreError(err, apperror.ErrListingNotFound, "не удалось получить объявление")
	}
	if listing.OwnerID == actor.ID {
		return nil, apperror.New(apperror.ErrCodeInvalidOperation, "нельзя предложить обмен на собственное объявление")
	}
	if listing.Status != valueobject.ListingStatusActive {
		return nil, apperror.New(apperror.ErrCodeInvalidOperation, "объявление недоступно для обмена")
	}
	if listing.Quantity < input.Quantity {
		return nil, apperror.New(apperror.ErrCodeInvalidOperation, "недостаточно товара в наличии")
	}

	if input.OfferedListingID != nil {
		if *input.OfferedListingID == listing.ID {
			return nil, apperror.New(apperror.ErrCodeValidation, "нельзя предложить объявление само на себя")
		}
		offered, err := uc.store.GetListing(ctx, *input.OfferedListingID)
		if err != nil {
			return nil, common.StoreError(err, apperror.ErrListingNotFound, "не удалось получить предлагаемое объявление")
		}
		if offered.OwnerID != actor.ID {
			return nil, apperror.New(apperror.ErrCodeForbidden, "предложить можно только своё объявление")
		}
	}

	t, err := entity.NewTrade(actor.ID, listing.OwnerID, listing.ID, input.OfferedListingID, input.CashTopUpCents, input.Quantity, message, uc.settings.now())
	if err != nil {
		return nil, err
	}

	err = repository.WithTx(ctx, uc.store, func(tx repository.Tx) error {
		return tx.CreateTrade(ctx, t)
	})
	if err != nil {
		return nil, common.StoreError(err, nil, "не удалось создать предложение обмена")
	}

	logger.Entry().WithFields(logrus.Fields{
		"trade_id":   t.ID,
		"listing_id": listing.ID,
		"buyer_id":   actor.ID,
	}).Info("создано предложение обмена")

	uc.notifier.Notify(ctx, t.SellerID, notify.EventTradeOffered, map[string]any{
		"trade_id":   t.ID,
		"listing_id": t.ListingID,
	})
	return t, nil
}
