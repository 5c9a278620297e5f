package billing

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/webhook"

	"github.com/markdave123-py/Learnify/internal/core"
	"github.com/markdave123-py/Learnify/internal/logger"
	"github.com/markdave123-py/Learnify/internal/models"
)

// ErrInvalidSignature means the payload was not signed with our webhook secret.
var ErrInvalidSignature = errors.New("invalid webhook signature")

// AccountStore is what the webhook writes to.
type AccountStore interface {
	UpsertUserByEmail(ctx context.Context, user *models.User) error
	UpdateUserStatusByCustomer(ctx context.Context, customerID, status string) error
	CreatePayment(ctx context.Context, p *models.Payment) error
}

type WebhookProcessor struct {
	gateway Gateway
	store   AccountStore
	secret  string
}

func NewWebhookProcessor(gateway Gateway, store AccountStore, secret string) *WebhookProcessor {
	return &WebhookProcessor{gateway: gateway, store: store, secret: secret}
}

// Handle verifies and applies one Stripe event. Unhandled event types are ignored.
func (w *WebhookProcessor) Handle(ctx context.Context, payload []byte, signature string) error {
	event, err := webhook.ConstructEventWithOptions(payload, signature, w.secret, webhook.ConstructEventOptions{
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}

	switch event.Type {
	case stripe.EventTypeCheckoutSessionCompleted:
		var sess stripe.CheckoutSession
		if err := json.Unmarshal(event.Data.Raw, &sess); err != nil {
			return fmt.Errorf("decode checkout session: %w", err)
		}
		logger.Info("checkout session completed", "session_id", sess.ID)
		return w.checkoutCompleted(ctx, sess.ID)

	case stripe.EventTypeCustomerSubscriptionDeleted:
		var sub stripe.Subscription
		if err := json.Unmarshal(event.Data.Raw, &sub); err != nil {
			return fmt.Errorf("decode subscription: %w", err)
		}
		logger.Info("subscription deleted", "subscription_id", sub.ID)
		return w.subscriptionDeleted(ctx, sub.ID)

	default:
		logger.Debug("ignoring stripe event", "type", event.Type)
		return nil
	}
}

func (w *WebhookProcessor) checkoutCompleted(ctx context.Context, sessionID string) error {
	sess, err := w.gateway.CheckoutSession(ctx, sessionID)
	if err != nil {
		return err
	}
	if sess.Customer == nil || sess.Customer.ID == "" {
		logger.Warn("checkout session has no customer", "session_id", sessionID)
		return nil
	}

	customer, err := w.gateway.Customer(ctx, sess.Customer.ID)
	if err != nil {
		return err
	}

	priceID := firstPriceID(sess)
	if customer.Email == "" || priceID == "" {
		logger.Warn("checkout session missing email or price", "session_id", sessionID, "customer_id", customer.ID)
		return nil
	}

	user := &models.User{
		Email:      customer.Email,
		FullName:   customer.Name,
		CustomerID: customer.ID,
		PriceID:    priceID,
		Status:     models.UserStatusActive,
	}
	if err := w.store.UpsertUserByEmail(ctx, user); err != nil {
		logger.Error("upsert user from checkout failed", "email", customer.Email, "err", err)
		return fmt.Errorf("upsert user: %w", err)
	}

	payment := &models.Payment{
		Amount:          sess.AmountTotal,
		UserEmail:       customer.Email,
		PriceID:         priceID,
		Status:          paymentStatus(sess),
		StripePaymentID: sess.ID,
	}
	if err := w.store.CreatePayment(ctx, payment); err != nil {
		if errors.Is(err, core.ErrConflict) {
			logger.Info("payment already recorded", "session_id", sess.ID)
			return nil
		}
		logger.Error("record payment failed", "session_id", sess.ID, "err", err)
		return fmt.Errorf("create payment: %w", err)
	}
	return nil
}

func (w *WebhookProcessor) subscriptionDeleted(ctx context.Context, subscriptionID string) error {
	sub, err := w.gateway.Subscription(ctx, subscriptionID)
	if err != nil {
		return err
	}
	if sub.Customer == nil || sub.Customer.ID == "" {
		return fmt.Errorf("subscription %s has no customer", subscriptionID)
	}

	if err := w.store.UpdateUserStatusByCustomer(ctx, sub.Customer.ID, models.UserStatusCancelled); err != nil {
		logger.Error("cancel user failed", "customer_id", sub.Customer.ID, "err", err)
		return fmt.Errorf("cancel subscription: %w", err)
	}
	return nil
}

func firstPriceID(sess *stripe.CheckoutSession) string {
	if sess.LineItems == nil || len(sess.LineItems.Data) == 0 {
		return ""
	}
	if item := sess.LineItems.Data[0]; item != nil && item.Price != nil {
		return item.Price.ID
	}
	return ""
}

func paymentStatus(sess *stripe.CheckoutSession) string {
	switch sess.PaymentStatus {
	case stripe.CheckoutSessionPaymentStatusPaid:
		return "paid"
	case stripe.CheckoutSessionPaymentStatusNoPaymentRequired:
		return "no_payment_required"
	case stripe.CheckoutSessionPaymentStatusUnpaid:
		if sess.Status == stripe.CheckoutSessionStatusOpen {
			return "pending"
		}
		return "unpaid"
	}
	return "pending"
}
