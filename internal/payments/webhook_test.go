package payments

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v76/webhook"
)

const testSecret = "whsec_test_secret"

func checkoutEvent(t *testing.T, metadata map[string]string) []byte {
	t.Helper()
	body, err := json.Marshal(map[string]any{
		"id":     "evt_123",
		"object": "event",
		"type":   EventCheckoutCompleted,
		"data": map[string]any{
			"object": map[string]any{
				"id":           "cs_test_1",
				"object":       "checkout.session",
				"amount_total": 4900,
				"metadata":     metadata,
			},
		},
	})
	require.NoError(t, err)
	return body
}

func sign(payload []byte, secret string) string {
	return webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{
		Payload:   payload,
		Secret:    secret,
		Timestamp: time.Now(),
	}).Header
}

func TestVerifyAcceptsValidSignature(t *testing.T) {
	payload := checkoutEvent(t, map[string]string{"userId": "u-1", "credits": "50"})

	event, err := NewVerifier(testSecret).Verify(payload, sign(payload, testSecret))
	require.NoError(t, err)
	assert.Equal(t, "evt_123", event.ID)
	assert.EqualValues(t, EventCheckoutCompleted, event.Type)
}

func TestVerifyRejects(t *testing.T) {
	payload := checkoutEvent(t, map[string]string{"userId": "u-1", "credits": "50"})
	v := NewVerifier(testSecret)

	_, err := v.Verify(payload, "")
	assert.Error(t, err)

	_, err = v.Verify(payload, sign(payload, "whsec_other"))
	assert.Error(t, err)

	tampered := checkoutEvent(t, map[string]string{"userId": "u-1", "credits": "5000"})
	_, err = v.Verify(tampered, sign(payload, testSecret))
	assert.Error(t, err)

	_, err = v.Verify(payload, "t=1,v1=deadbeef")
	assert.Error(t, err)
}

func TestParseCompletedCheckout(t *testing.T) {
	tests := []struct {
		name     string
		metadata map[string]string
		wantErr  error
		credits  int64
	}{
		{name: "valid", metadata: map[string]string{"userId": "u-1", "credits": "50"}, credits: 50},
		{name: "zero credits", metadata: map[string]string{"userId": "u-1", "credits": "0"}, credits: 0},
		{name: "missing user", metadata: map[string]string{"credits": "50"}, wantErr: ErrMissingMetadata},
		{name: "missing credits", metadata: map[string]string{"userId": "u-1"}, wantErr: ErrMissingMetadata},
		{name: "no metadata", metadata: nil, wantErr: ErrMissingMetadata},
		{name: "non numeric", metadata: map[string]string{"userId": "u-1", "credits": "lots"}, wantErr: ErrInvalidCredits},
		{name: "negative", metadata: map[string]string{"userId": "u-1", "credits": "-10"}, wantErr: ErrInvalidCredits},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			payload := checkoutEvent(t, tc.metadata)
			event, err := NewVerifier(testSecret).Verify(payload, sign(payload, testSecret))
			require.NoError(t, err)

			checkout, err := ParseCompletedCheckout(event)
			if tc.wantErr != nil {
				assert.ErrorIs(t, err, tc.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "u-1", checkout.UserID)
			assert.Equal(t, tc.credits, checkout.Credits)
			assert.EqualValues(t, 4900, checkout.AmountTotal)
			assert.Equal(t, "evt_123", checkout.EventID)
			assert.Equal(t, "cs_test_1", checkout.SessionID)
		})
	}
}
