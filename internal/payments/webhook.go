// Package payments adapts Stripe: webhook signature verification, parsing
// of completed checkouts, and checkout session creation.
package payments

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/webhook"
)

// EventCheckoutCompleted is the only event type that moves credits.
const EventCheckoutCompleted = "checkout.session.completed"

// SignatureHeader carries the webhook signature.
const SignatureHeader = "Stripe-Signature"

var (
	// ErrMissingMetadata means the session lacks userId or credits.
	ErrMissingMetadata = errors.New("checkout session missing userId or credits metadata")
	// ErrInvalidCredits means the credits metadata is not a non-negative integer.
	ErrInvalidCredits = errors.New("checkout session credits metadata is not a non-negative integer")
)

// Verifier checks webhook signatures against the endpoint secret.
type Verifier struct {
	secret string
}

// NewVerifier returns a verifier for the given signing secret.
func NewVerifier(secret string) *Verifier {
	return &Verifier{secret: secret}
}

// Verify authenticates payload with the signature header and decodes the
// event. The event API version is not enforced.
func (v *Verifier) Verify(payload []byte, signature string) (stripe.Event, error) {
	if strings.TrimSpace(signature) == "" {
		return stripe.Event{}, errors.New("missing " + SignatureHeader + " header")
	}
	return webhook.ConstructEventWithOptions(payload, signature, v.secret, webhook.ConstructEventOptions{
		IgnoreAPIVersionMismatch: true,
	})
}

// CompletedCheckout is the credit-relevant part of a completed checkout.
type CompletedCheckout struct {
	EventID     string
	SessionID   string
	UserID      string
	Credits     int64
	AmountTotal int64
}

// ParseCompletedCheckout extracts the target user and credit quantity from a
// checkout.session.completed event.
func ParseCompletedCheckout(event stripe.Event) (CompletedCheckout, error) {
	if event.Data == nil {
		return CompletedCheckout{}, errors.New("event has no data")
	}
	var session stripe.CheckoutSession
	if err := json.Unmarshal(event.Data.Raw, &session); err != nil {
		return CompletedCheckout{}, fmt.Errorf("decode checkout session: %w", err)
	}

	out := CompletedCheckout{
		EventID:     event.ID,
		SessionID:   session.ID,
		AmountTotal: session.AmountTotal,
	}
	userID := strings.TrimSpace(session.Metadata["userId"])
	rawCredits := strings.TrimSpace(session.Metadata["credits"])
	if userID == "" || rawCredits == "" {
		return out, ErrMissingMetadata
	}
	credits, err := strconv.ParseInt(rawCredits, 10, 64)
	if err != nil || credits < 0 {
		return out, ErrInvalidCredits
	}
	out.UserID = userID
	out.Credits = credits
	return out, nil
}
