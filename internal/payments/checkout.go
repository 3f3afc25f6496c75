package payments

import (
	"context"
	"fmt"
	"strconv"

	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"
)

// CheckoutParams describes a credit package purchase.
type CheckoutParams struct {
	UserID     string
	PriceID    string
	Credits    int64
	SuccessURL string
	CancelURL  string
}

// CheckoutSession is the part of a created session returned to the client.
type CheckoutSession struct {
	ID  string
	URL string
}

// CheckoutCreator starts hosted checkout flows.
type CheckoutCreator interface {
	CreateCheckout(ctx context.Context, params CheckoutParams) (CheckoutSession, error)
}

// StripeCheckout creates Stripe Checkout sessions.
type StripeCheckout struct {
	api *client.API
}

// NewStripeCheckout builds a client authenticated with the secret key.
func NewStripeCheckout(secretKey string) *StripeCheckout {
	return &StripeCheckout{api: client.New(secretKey, nil)}
}

// CreateCheckout opens a payment-mode session whose metadata carries the
// userId and credits consumed by the completed-checkout webhook.
func (s *StripeCheckout) CreateCheckout(ctx context.Context, p CheckoutParams) (CheckoutSession, error) {
	params := &stripe.CheckoutSessionParams{
		Mode:              stripe.String(string(stripe.CheckoutSessionModePayment)),
		SuccessURL:        stripe.String(p.SuccessURL),
		CancelURL:         stripe.String(p.CancelURL),
		ClientReferenceID: stripe.String(p.UserID),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{Price: stripe.String(p.PriceID), Quantity: stripe.Int64(1)},
		},
	}
	params.Context = ctx
	params.AddMetadata("userId", p.UserID)
	params.AddMetadata("credits", strconv.FormatInt(p.Credits, 10))

	sess, err := s.api.CheckoutSessions.New(params)
	if err != nil {
		return CheckoutSession{}, fmt.Errorf("create checkout session: %w", err)
	}
	return CheckoutSession{ID: sess.ID, URL: sess.URL}, nil
}
