package handlers

import (
	"errors"
	"math"
	"net/http"
	"strings"

	"github.com/carmelita/carmelita-be/internal/credits"
	"github.com/carmelita/carmelita-be/internal/http/callable"
	"github.com/carmelita/carmelita-be/internal/logging"
	"github.com/carmelita/carmelita-be/internal/middleware"
	"github.com/carmelita/carmelita-be/internal/models/dto"
	"github.com/carmelita/carmelita-be/internal/payments"
	"github.com/carmelita/carmelita-be/internal/pricing"
)

const (
	msgRedeemed     = "credits redeemed"
	msgInsufficient = "insufficient credits"
	msgRedeemFailed = "failed to redeem credits"
)

// CreditsHandler serves the credit callables: redemption and checkout.
type CreditsHandler struct {
	ledger   *credits.Ledger
	checkout payments.CheckoutCreator
	catalog  *pricing.Catalog
	log      *logging.Logger
}

// NewCreditsHandler constructs the handler. checkout may be nil when Stripe
// is not configured.
func NewCreditsHandler(ledger *credits.Ledger, checkout payments.CheckoutCreator, catalog *pricing.Catalog, log *logging.Logger) *CreditsHandler {
	return &CreditsHandler{ledger: ledger, checkout: checkout, catalog: catalog, log: log}
}

// Register attaches the callable routes. wrap is applied to each route, for
// example to rate limit callers.
func (h *CreditsHandler) Register(mux *http.ServeMux, wrap func(http.Handler) http.Handler) {
	mux.Handle("/callable/redeemCredits", wrap(http.HandlerFunc(h.handleRedeem)))
	mux.Handle("/callable/createCheckoutSession", wrap(http.HandlerFunc(h.handleCheckout)))
}

func (h *CreditsHandler) handleRedeem(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		callable.MethodNotAllowed(w)
		return
	}
	ctx := r.Context()
	id, ok := middleware.IdentityFrom(ctx)
	if !ok {
		callable.Fail(w, callable.NewError(callable.Unauthenticated, "The function must be called while authenticated."))
		return
	}

	var req dto.RedeemCreditsRequest
	if err := callable.Decode(r, &req); err != nil {
		callable.Fail(w, err)
		return
	}
	cost, ok := parseCost(req.Cost)
	if !ok {
		callable.Fail(w, callable.NewError(callable.InvalidArgument, "cost must be a positive whole number"))
		return
	}

	_, err := h.ledger.Redeem(ctx, credits.Redemption{
		UserID:       id.UserID,
		Cost:         cost,
		ResourceType: strings.TrimSpace(req.ResourceType),
	})
	switch {
	case errors.Is(err, credits.ErrInsufficientCredits):
		callable.Result(w, dto.RedeemCreditsResponse{Success: false, Message: msgInsufficient})
	case err != nil:
		h.log.WithContext(ctx).WithError(err).Error("redeem credits failed")
		callable.Result(w, dto.RedeemCreditsResponse{Success: false, Message: msgRedeemFailed})
	default:
		callable.Result(w, dto.RedeemCreditsResponse{Success: true, Message: msgRedeemed})
	}
}

// parseCost accepts JSON numbers that are positive and integral.
func parseCost(v any) (int64, bool) {
	f, ok := v.(float64)
	if !ok || math.IsNaN(f) || f <= 0 || f != math.Trunc(f) || f >= math.MaxInt64 {
		return 0, false
	}
	return int64(f), true
}

func (h *CreditsHandler) handleCheckout(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		callable.MethodNotAllowed(w)
		return
	}
	ctx := r.Context()
	id, ok := middleware.IdentityFrom(ctx)
	if !ok {
		callable.Fail(w, callable.NewError(callable.Unauthenticated, "The function must be called while authenticated."))
		return
	}

	var req dto.CheckoutRequest
	if err := callable.Decode(r, &req); err != nil {
		callable.Fail(w, err)
		return
	}
	if strings.TrimSpace(req.PricingID) == "" || strings.TrimSpace(req.SuccessURL) == "" || strings.TrimSpace(req.CancelURL) == "" {
		callable.Fail(w, callable.NewError(callable.InvalidArgument, "pricingId, successUrl and cancelUrl are required"))
		return
	}
	pkg, err := h.catalog.Find(req.PricingID)
	if err != nil {
		callable.Fail(w, callable.NewError(callable.NotFound, "unknown pricing package"))
		return
	}
	if h.checkout == nil {
		h.log.WithContext(ctx).Error("checkout requested but STRIPE_SECRET_KEY is not set")
		callable.Fail(w, callable.NewError(callable.Internal, "payments are not configured"))
		return
	}

	session, err := h.checkout.CreateCheckout(ctx, payments.CheckoutParams{
		UserID:     id.UserID,
		PriceID:    pkg.StripePriceID,
		Credits:    pkg.CreditsAmount,
		SuccessURL: req.SuccessURL,
		CancelURL:  req.CancelURL,
	})
	if err != nil {
		h.log.WithContext(ctx).WithError(err).WithField("pricing_id", pkg.ID).Error("create checkout session failed")
		callable.Fail(w, callable.NewError(callable.Internal, "unable to start checkout"))
		return
	}
	callable.Result(w, dto.CheckoutResponse{SessionID: session.ID, URL: session.URL})
}
