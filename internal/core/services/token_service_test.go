package services

import (
	"strings"
	"testing"
	"time"

	"streamgate/internal/core/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenService_IssueAndValidate(t *testing.T) {
	clock := newFakeClock(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	svc := NewTokenService("test-secret", 2*time.Minute, clock)

	signed, token, err := svc.Issue("cam-1", "acme")
	require.NoError(t, err)
	require.NotEmpty(t, signed)
	require.NotNil(t, token)

	assert.Equal(t, domain.CameraID("cam-1"), token.CameraID)
	assert.Equal(t, domain.CompanyID("acme"), token.CompanyID)
	assert.NotEmpty(t, token.TokenID)
	assert.Equal(t, clock.Now().Add(2*time.Minute), token.ExpiresAt)

	decoded, err := svc.Validate(signed, "cam-1")
	require.NoError(t, err)
	assert.Equal(t, token.TokenID, decoded.TokenID)
	assert.Equal(t, domain.CameraID("cam-1"), decoded.CameraID)
	assert.Equal(t, domain.CompanyID("acme"), decoded.CompanyID)
}

func TestTokenService_TokenIDsAreUnique(t *testing.T) {
	clock := newFakeClock(time.Now())
	svc := NewTokenService("test-secret", time.Minute, clock)

	seen := make(map[string]bool)
	for i := 0; i < 50; i++ {
		_, token, err := svc.Issue("cam-1", "acme")
		require.NoError(t, err)
		require.False(t, seen[token.TokenID], "duplicate token id %s", token.TokenID)
		seen[token.TokenID] = true
	}
}

func TestTokenService_Expiry(t *testing.T) {
	clock := newFakeClock(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	svc := NewTokenService("test-secret", 2*time.Minute, clock)

	signed, _, err := svc.Issue("cam-1", "acme")
	require.NoError(t, err)

	// Still accepted just before the deadline.
	clock.Advance(2*time.Minute - time.Second)
	_, err = svc.Validate(signed, "cam-1")
	require.NoError(t, err)

	clock.Advance(2 * time.Second)
	_, err = svc.Validate(signed, "cam-1")
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrTokenInvalid)
}

func TestTokenService_CameraScopeMismatch(t *testing.T) {
	clock := newFakeClock(time.Now())
	svc := NewTokenService("test-secret", time.Minute, clock)

	signed, _, err := svc.Issue("cam-1", "acme")
	require.NoError(t, err)

	_, err = svc.Validate(signed, "cam-2")
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrTokenInvalid)
}

func TestTokenService_RejectsTampering(t *testing.T) {
	clock := newFakeClock(time.Now())
	svc := NewTokenService("test-secret", time.Minute, clock)

	signed, _, err := svc.Issue("cam-1", "acme")
	require.NoError(t, err)

	tests := []struct {
		name  string
		token string
	}{
		{"garbage", "not-a-token"},
		{"empty", ""},
		{"truncated", signed[:len(signed)/2]},
		{"payload flipped", flipPayload(t, signed)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Validate(tt.token, "cam-1")
			require.Error(t, err)
			assert.ErrorIs(t, err, domain.ErrTokenInvalid)
		})
	}
}

func TestTokenService_RejectsForeignSecret(t *testing.T) {
	clock := newFakeClock(time.Now())
	issuer := NewTokenService("secret-a", time.Minute, clock)
	validator := NewTokenService("secret-b", time.Minute, clock)

	signed, _, err := issuer.Issue("cam-1", "acme")
	require.NoError(t, err)

	_, err = validator.Validate(signed, "cam-1")
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrTokenInvalid)
}

func flipPayload(t *testing.T, signed string) string {
	t.Helper()
	parts := strings.Split(signed, ".")
	require.Len(t, parts, 3)
	payload := []byte(parts[1])
	if payload[0] == 'A' {
		payload[0] = 'B'
	} else {
		payload[0] = 'A'
	}
	return parts[0] + "." + string(payload) + "." + parts[2]
}
