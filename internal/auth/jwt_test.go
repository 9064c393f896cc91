package auth_test

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/kirinyoku/tix-checkout/internal/auth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVerify_RoundTrip(t *testing.T) {
	v := auth.NewVerifier("s3cret", "tix")

	tok, err := v.Issue("alice", "", time.Minute)
	require.NoError(t, err)

	id, err := v.Verify(tok)
	require.NoError(t, err)
	assert.Equal(t, auth.Identity{Subject: "alice", Role: auth.RoleCustomer}, id)
}

func TestVerify_Rejects(t *testing.T) {
	v := auth.NewVerifier("s3cret", "tix")

	expired, err := v.Issue("alice", auth.RoleCustomer, -time.Minute)
	require.NoError(t, err)

	otherKey, err := auth.NewVerifier("other", "tix").Issue("alice", auth.RoleCustomer, time.Minute)
	require.NoError(t, err)

	otherIssuer, err := auth.NewVerifier("s3cret", "someone-else").Issue("alice", auth.RoleCustomer, time.Minute)
	require.NoError(t, err)

	noSubject, err := v.Issue("", auth.RoleCustomer, time.Minute)
	require.NoError(t, err)

	none, err := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{
		"sub": "alice",
		"exp": time.Now().Add(time.Minute).Unix(),
	}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	tests := []struct {
		name string
		raw  string
		want error
	}{
		{name: "empty", raw: "", want: auth.ErrMissingToken},
		{name: "garbage", raw: "not.a.jwt", want: auth.ErrInvalidToken},
		{name: "expired", raw: expired, want: auth.ErrInvalidToken},
		{name: "wrong key", raw: otherKey, want: auth.ErrInvalidToken},
		{name: "wrong issuer", raw: otherIssuer, want: auth.ErrInvalidToken},
		{name: "alg none", raw: none, want: auth.ErrInvalidToken},
		{name: "no subject", raw: noSubject, want: auth.ErrNoSubject},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := v.Verify(tt.raw)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}
