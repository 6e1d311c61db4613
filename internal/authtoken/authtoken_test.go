package authtoken

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIssueThenVerifyRoundTrips(t *testing.T) {
	s := NewSigner("secret-key")
	token := s.Issue("user-1", "alice")

	userID, username, ok := s.Verify(token)
	require.True(t, ok)
	assert.Equal(t, "user-1", userID)
	assert.Equal(t, "alice", username)
}

func TestVerifyRejectsTamperedSignature(t *testing.T) {
	s := NewSigner("secret-key")
	token := s.Issue("user-1", "alice")
	tampered := token[:len(token)-1] + "x"

	_, _, ok := s.Verify(tampered)
	assert.False(t, ok)
}

func TestVerifyRejectsTokenSignedWithDifferentSecret(t *testing.T) {
	issuer := NewSigner("secret-a")
	verifier := NewSigner("secret-b")
	token := issuer.Issue("user-1", "alice")

	_, _, ok := verifier.Verify(token)
	assert.False(t, ok)
}

func TestVerifyRejectsMalformedToken(t *testing.T) {
	s := NewSigner("secret-key")
	_, _, ok := s.Verify("not-a-valid-token")
	assert.False(t, ok)
}
