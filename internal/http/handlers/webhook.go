package handlers

import (
	"context"
	"io"
	"net/http"

	"github.com/sirupsen/logrus"

	"github.com/carmelita/carmelita-be/internal/credits"
	"github.com/carmelita/carmelita-be/internal/http/respond"
	"github.com/carmelita/carmelita-be/internal/logging"
	"github.com/carmelita/carmelita-be/internal/payments"
)

// maxWebhookBytes matches the payload ceiling Stripe documents for events.
const maxWebhookBytes = 65536

// EventClaimer remembers processed webhook events.
type EventClaimer interface {
	Claim(ctx context.Context, eventID string) (bool, error)
	Release(ctx context.Context, eventID string) error
}

// WebhookHandler grants credits for completed Stripe checkouts.
type WebhookHandler struct {
	verifier *payments.Verifier
	ledger   *credits.Ledger
	events   EventClaimer
	log      *logging.Logger
}

// NewWebhookHandler constructs the handler. events may be nil, in which case
// repeated deliveries of one event are applied each time.
func NewWebhookHandler(verifier *payments.Verifier, ledger *credits.Ledger, events EventClaimer, log *logging.Logger) *WebhookHandler {
	return &WebhookHandler{verifier: verifier, ledger: ledger, events: events, log: log}
}

// Register attaches the webhook route to the mux.
func (h *WebhookHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("/webhooks/stripe", h.handle)
}

func (h *WebhookHandler) handle(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
		return
	}
	ctx := r.Context()
	log := h.log.WithContext(ctx)

	payload, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxWebhookBytes))
	if err != nil {
		log.WithError(err).Error("stripe webhook: read body failed")
		http.Error(w, "Webhook Error: "+err.Error(), http.StatusBadRequest)
		return
	}

	event, err := h.verifier.Verify(payload, r.Header.Get(payments.SignatureHeader))
	if err != nil {
		log.WithError(err).Error("stripe webhook: signature verification failed")
		http.Error(w, "Webhook Error: "+err.Error(), http.StatusBadRequest)
		return
	}
	log = log.WithFields(logrus.Fields{"event_id": event.ID, "event_type": event.Type})

	if string(event.Type) != payments.EventCheckoutCompleted {
		log.Debug("stripe webhook: ignoring event type")
		acknowledge(w)
		return
	}

	checkout, err := payments.ParseCompletedCheckout(event)
	if err != nil {
		log.WithError(err).Warn("stripe webhook: checkout not credited")
		acknowledge(w)
		return
	}

	if h.events != nil {
		first, err := h.events.Claim(ctx, event.ID)
		if err != nil {
			log.WithError(err).Error("stripe webhook: dedupe claim failed")
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		if !first {
			log.Info("stripe webhook: duplicate delivery acknowledged")
			acknowledge(w)
			return
		}
	}

	balance, err := h.ledger.Grant(ctx, credits.Grant{
		UserID:     checkout.UserID,
		Credits:    checkout.Credits,
		AmountPaid: checkout.AmountTotal,
		Reference:  event.ID,
	})
	if err != nil {
		log.WithError(err).WithField("user_id", checkout.UserID).Error("stripe webhook: credit grant failed")
		if h.events != nil {
			if relErr := h.events.Release(context.WithoutCancel(ctx), event.ID); relErr != nil {
				log.WithError(relErr).Error("stripe webhook: dedupe release failed")
			}
		}
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	log.WithFields(logrus.Fields{
		"user_id": checkout.UserID,
		"credits": checkout.Credits,
		"balance": balance,
	}).Info("stripe webhook: credits added")
	acknowledge(w)
}

func acknowledge(w http.ResponseWriter) {
	respond.Raw(w, http.StatusOK, map[string]bool{"received": true})
}
