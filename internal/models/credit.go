package models

import "time"

// CreditTransactionType is the business reason for a balance change.
type CreditTransactionType string

const (
	CreditPurchase   CreditTransactionType = "PURCHASE"
	CreditRedemption CreditTransactionType = "REDEMPTION"
)

// CreditTransaction is an append-only ledger entry. Amount is the signed
// change applied to the balance. Cost is USD cents for purchases and CC for
// redemptions.
type CreditTransaction struct {
	ID          string                `json:"id"`
	UserID      string                `json:"userId"`
	Type        CreditTransactionType `json:"type"`
	Amount      int64                 `json:"amount"`
	Cost        int64                 `json:"cost"`
	ServiceUsed string                `json:"serviceUsed,omitempty"`
	Reference   string                `json:"reference,omitempty"`
	CreatedAt   time.Time             `json:"date"`
}

// CreditPricing is a purchasable credit package.
type CreditPricing struct {
	ID            string `json:"id" yaml:"id"`
	Name          string `json:"name" yaml:"name"`
	PriceUSD      int64  `json:"priceUSD" yaml:"price_usd_cents"`
	CreditsAmount int64  `json:"creditsAmount" yaml:"credits"`
	StripePriceID string `json:"stripePriceId" yaml:"stripe_price_id"`
}
