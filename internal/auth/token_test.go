package auth

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenIssueAndVerify(t *testing.T) {
	tm := NewTokenManager("test-secret", time.Hour)
	userID := uuid.New()

	token, err := tm.Issue(userID, "enumerator@example.com", "enumerator")
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := tm.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, userID, claims.UserID)
	assert.Equal(t, "enumerator@example.com", claims.Email)
	assert.Equal(t, "enumerator", claims.Role)
}

func TestTokenVerifyWrongSecret(t *testing.T) {
	issuer := NewTokenManager("secret-a", time.Hour)
	verifier := NewTokenManager("secret-b", time.Hour)

	token, err := issuer.Issue(uuid.New(), "admin@example.com", "administrator")
	require.NoError(t, err)

	claims, err := verifier.Verify(token)
	assert.Nil(t, claims)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestTokenVerifyExpired(t *testing.T) {
	tm := NewTokenManager("test-secret", -time.Minute)

	token, err := tm.Issue(uuid.New(), "admin@example.com", "administrator")
	require.NoError(t, err)

	claims, err := tm.Verify(token)
	assert.Nil(t, claims)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestTokenVerifyMalformed(t *testing.T) {
	tm := NewTokenManager("test-secret", time.Hour)

	tests := []struct {
		name  string
		token string
	}{
		{name: "empty string", token: ""},
		{name: "not a token", token: "garbage"},
		{name: "truncated token", token: "eyJhbGciOiJIUzI1NiJ9"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			claims, err := tm.Verify(tt.token)
			assert.Nil(t, claims)
			assert.ErrorIs(t, err, ErrInvalidToken)
		})
	}
}

func TestTokenVerifyUnsignedAlgorithmRejected(t *testing.T) {
	tm := NewTokenManager("test-secret", time.Hour)

	// alg=none token with an empty signature segment
	unsigned := "eyJhbGciOiJub25lIiwidHlwIjoiSldUIn0." +
		"eyJ1c2VyX2lkIjoiMDAwMDAwMDAtMDAwMC0wMDAwLTAwMDAtMDAwMDAwMDAwMDAwIn0."

	claims, err := tm.Verify(unsigned)
	assert.Nil(t, claims)
	assert.ErrorIs(t, err, ErrInvalidToken)
}
