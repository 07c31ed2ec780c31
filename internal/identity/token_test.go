package identity

import (
	"encoding/base64"
	"strings"
	"testing"
	"time"

	"foodcourt/internal/apperr"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-signing-secret"

func TestTokenRoundTrip(t *testing.T) {
	issuedAt := time.Now().UTC().Truncate(time.Second)
	token := IssueToken(testSecret, "principal-1", issuedAt)

	parsed, err := VerifyToken(testSecret, token)
	require.NoError(t, err)
	assert.Equal(t, "principal-1", parsed.SubjectID)
	assert.Equal(t, issuedAt.Unix(), parsed.IssuedAt.Unix())
}

func TestVerifyTokenRejectsWrongSecret(t *testing.T) {
	token := IssueToken(testSecret, "principal-1", time.Now())

	_, err := VerifyToken("different-secret", token)
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.Unauthenticated))
}

func TestVerifyTokenRejectsTamperedSubject(t *testing.T) {
	token := IssueToken(testSecret, "principal-1", time.Now())
	raw, err := base64.RawURLEncoding.DecodeString(token)
	require.NoError(t, err)

	tampered := strings.Replace(string(raw), "sub=principal-1", "sub=principal-2", 1)
	forged := base64.RawURLEncoding.EncodeToString([]byte(tampered))

	_, err = VerifyToken(testSecret, forged)
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.Unauthenticated))
}

func TestVerifyTokenRejectsStaleToken(t *testing.T) {
	token := IssueToken(testSecret, "principal-1", time.Now().Add(-25*time.Hour))

	_, err := VerifyToken(testSecret, token)
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.Unauthenticated))
}

func TestVerifyTokenAcceptsTokenWithinFreshnessWindow(t *testing.T) {
	token := IssueToken(testSecret, "principal-1", time.Now().Add(-23*time.Hour))

	_, err := VerifyToken(testSecret, token)
	assert.NoError(t, err)
}

func TestVerifyTokenRejectsGarbage(t *testing.T) {
	for _, token := range []string{
		"",
		"not-base64!!!",
		base64.RawURLEncoding.EncodeToString([]byte("no-equals-sign")),
		base64.RawURLEncoding.EncodeToString([]byte("sub=alice&iat=123")), // no signature
	} {
		_, err := VerifyToken(testSecret, token)
		assert.Error(t, err, "token %q should be rejected", token)
	}
}

func TestVerifyTokenRejectsTokenFromPrefixSecret(t *testing.T) {
	// Two distinct secrets must never validate each other's tokens even
	// when one is a prefix of the other.
	token := IssueToken("secret", "principal-1", time.Now())
	_, err := VerifyToken("secret2", token)
	assert.Error(t, err)
}
