package billing

import (
	"context"
	"fmt"

	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/client"
)

// Gateway is the slice of the Stripe API the webhook needs.
type Gateway interface {
	CheckoutSession(ctx context.Context, id string) (*stripe.CheckoutSession, error)
	Customer(ctx context.Context, id string) (*stripe.Customer, error)
	Subscription(ctx context.Context, id string) (*stripe.Subscription, error)
}

type StripeGateway struct {
	api *client.API
}

var _ Gateway = (*StripeGateway)(nil)

func NewStripeGateway(secretKey string) *StripeGateway {
	api := &client.API{}
	api.Init(secretKey, nil)
	return &StripeGateway{api: api}
}

// CheckoutSession fetches the session with its line items so the price id is available.
func (g *StripeGateway) CheckoutSession(ctx context.Context, id string) (*stripe.CheckoutSession, error) {
	params := &stripe.CheckoutSessionParams{}
	params.Context = ctx
	params.AddExpand("line_items")

	s, err := g.api.CheckoutSessions.Get(id, params)
	if err != nil {
		return nil, fmt.Errorf("stripe get checkout session %s: %w", id, err)
	}
	return s, nil
}

func (g *StripeGateway) Customer(ctx context.Context, id string) (*stripe.Customer, error) {
	params := &stripe.CustomerParams{}
	params.Context = ctx

	c, err := g.api.Customers.Get(id, params)
	if err != nil {
		return nil, fmt.Errorf("stripe get customer %s: %w", id, err)
	}
	return c, nil
}

func (g *StripeGateway) Subscription(ctx context.Context, id string) (*stripe.Subscription, error) {
	params := &stripe.SubscriptionParams{}
	params.Context = ctx

	s, err := g.api.Subscriptions.Get(id, params)
	if err != nil {
		return nil, fmt.Errorf("stripe get subscription %s: %w", id, err)
	}
	return s, nil
}
