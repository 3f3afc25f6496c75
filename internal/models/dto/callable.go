package dto

// RedeemCreditsRequest is the input of the redeemCredits callable. Cost is
// left untyped so that non-numeric values can be rejected explicitly.
type RedeemCreditsRequest struct {
	Cost         any    `json:"cost"`
	ResourceType string `json:"resourceType"`
}

type RedeemCreditsResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

type HealthCheckResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

type CheckoutRequest struct {
	PricingID  string `json:"pricingId"`
	SuccessURL string `json:"successUrl"`
	CancelURL  string `json:"cancelUrl"`
}

type CheckoutResponse struct {
	SessionID string `json:"sessionId"`
	URL       string `json:"url"`
}
