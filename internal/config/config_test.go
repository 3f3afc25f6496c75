package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequired(t *testing.T) {
	t.Helper()
	t.Setenv("JWT_SECRET", "test-secret")
	t.Setenv("STRIPE_WEBHOOK_SECRET", "whsec_test")
}

func TestLoadDefaults(t *testing.T) {
	setRequired(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, ":8080", cfg.HTTPAddress())
	assert.Equal(t, "carmelita-backend", cfg.JWTIssuer)
	assert.Equal(t, time.Hour, cfg.JWTTTL)
	assert.Equal(t, "gemini-2.5-flash", cfg.GeminiModel)
	assert.Equal(t, []string{"*"}, cfg.CORSOrigins)
	assert.Equal(t, 5, cfg.RateLimitRPS)
	assert.Equal(t, 10, cfg.RateLimitBurst)
	assert.False(t, cfg.WebhookDedupe)
}

func TestLoadOverrides(t *testing.T) {
	setRequired(t)
	t.Setenv("PORT", "9090")
	t.Setenv("JWT_TTL", "15m")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://app.carmelita.mx, http://localhost:5173 ,")
	t.Setenv("INITIAL_CREDITS", "25")
	t.Setenv("REDIS_ADDR", "localhost:6379")
	t.Setenv("WEBHOOK_DEDUPE", "true")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.HTTPAddress())
	assert.Equal(t, 15*time.Minute, cfg.JWTTTL)
	assert.Equal(t, []string{"https://app.carmelita.mx", "http://localhost:5173"}, cfg.CORSOrigins)
	assert.EqualValues(t, 25, cfg.InitialCredits)
	assert.True(t, cfg.WebhookDedupe)
}

func TestLoadValidation(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
		want string
	}{
		{
			name: "missing jwt secret",
			env:  map[string]string{"STRIPE_WEBHOOK_SECRET": "whsec_test"},
			want: "JWT_SECRET is required",
		},
		{
			name: "missing webhook secret",
			env:  map[string]string{"JWT_SECRET": "s"},
			want: "STRIPE_WEBHOOK_SECRET is required",
		},
		{
			name: "negative initial credits",
			env:  map[string]string{"JWT_SECRET": "s", "STRIPE_WEBHOOK_SECRET": "w", "INITIAL_CREDITS": "-1"},
			want: "INITIAL_CREDITS must not be negative",
		},
		{
			name: "dedupe without redis",
			env:  map[string]string{"JWT_SECRET": "s", "STRIPE_WEBHOOK_SECRET": "w", "WEBHOOK_DEDUPE": "true"},
			want: "WEBHOOK_DEDUPE requires REDIS_ADDR",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Setenv("JWT_SECRET", "")
			t.Setenv("STRIPE_WEBHOOK_SECRET", "")
			for k, v := range tc.env {
				t.Setenv(k, v)
			}
			_, err := Load()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.want)
		})
	}
}
