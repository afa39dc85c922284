package payment

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stripe/stripe-go/v81"
	"github.com/stripe/stripe-go/v81/client"

	"github.com/ignatzorin/swapmarket-backend/internal/logger"
	"github.com/ignatzorin/swapmarket-backend/internal/pkg/apperror"
)

// StripeGateway проводит оплату через PaymentIntents и возвраты через Refunds.
type StripeGateway struct {
	api *client.API
}

func NewStripeGateway(secretKey string) *StripeGateway {
	return &StripeGateway{api: client.New(secretKey, nil)}
}

func (g *StripeGateway) Initiate(ctx context.Context, orderID uuid.UUID, amountCents int64, currency, idempotencyKey string) (string, error) {
	params := &stripe.PaymentIntentParams{
		Amount:   stripe.Int64(amountCents),
		Currency: stripe.String(strings.ToLower(currency)),
	}
	params.Context = ctx
	params.AddMetadata("order_id", orderID.String())
	params.SetIdempotencyKey(idempotencyKey)

	intent, err := g.api.PaymentIntents.New(params)
	if err != nil {
		return "", apperror.Wrap(err, apperror.ErrCodePayment, "платёжный провайдер отклонил создание платежа")
	}

	logger.Entry().WithFields(logrus.Fields{
		"order_id":  orderID,
		"reference": intent.ID,
	}).Info("stripe: платёж создан")
	return intent.ID, nil
}

func (g *StripeGateway) Refund(ctx context.Context, reference, idempotencyKey string) error {
	params := &stripe.RefundParams{
		PaymentIntent: stripe.String(reference),
	}
	params.Context = ctx
	params.SetIdempotencyKey(idempotencyKey)

	refund, err := g.api.Refunds.New(params)
	if err != nil {
		return apperror.Wrap(err, apperror.ErrCodePayment, "платёжный провайдер отклонил возврат")
	}

	logger.Entry().WithFields(logrus.Fields{
		"reference": reference,
		"refund_id": refund.ID,
	}).Info("stripe: возврат проведён")
	return nil
}
