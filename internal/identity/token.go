// Package identity is the identity oracle: it validates a signed session
// token into a resolved Principal and answers authorize(principal, verb,
// resource) for every command handler. Tokens are signed name/value
// envelopes (sorted field canonicalization, derived signing key,
// constant-time compare).
package identity

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"sort"
	"strconv"
	"strings"
	"time"

	"foodcourt/internal/apperr"
)

// MaxTokenAge is the freshness window: a token whose issuedAt is older
// than this is rejected even if the signature is valid.
const MaxTokenAge = 24 * time.Hour

// DefaultSessionLifetime is the expiry recorded on a freshly created session
// row. VerifyToken still rejects a token once it is older than MaxTokenAge.
const DefaultSessionLifetime = 7 * 24 * time.Hour

// deriveSigningKey computes HMAC-SHA256("SessionAuth", providerSecret) — the
// envelope key is derived from, not equal to, the process-wide provider
// secret, so the raw secret is never used directly as an HMAC key.
func deriveSigningKey(providerSecret string) []byte {
	mac := hmac.New(sha256.New, []byte(providerSecret))
	mac.Write([]byte("SessionAuth"))
	return mac.Sum(nil)
}

// fields is the canonical envelope: subject id and issuedAt, sorted by key
// and joined as "key=value" pairs before signing.
type fields map[string]string

func (f fields) canonical() string {
	keys := make([]string, 0, len(f))
	for k := range f {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+"="+f[k])
	}
	return strings.Join(parts, "&")
}

// IssueToken builds an opaque, signed session token binding subjectID
// (a Principal id) to the given issuedAt.
func IssueToken(providerSecret, subjectID string, issuedAt time.Time) string {
	f := fields{
		"sub": subjectID,
		"iat": strconv.FormatInt(issuedAt.Unix(), 10),
	}
	canonical := f.canonical()
	sig := hmac.New(sha256.New, deriveSigningKey(providerSecret))
	sig.Write([]byte(canonical))
	signed := canonical + "&sig=" + hex.EncodeToString(sig.Sum(nil))
	return base64.RawURLEncoding.EncodeToString([]byte(signed))
}

// ParsedToken is the verified content of a session token envelope.
type ParsedToken struct {
	SubjectID string
	IssuedAt  time.Time
}

// VerifyToken parses the envelope, recomputes the HMAC over every field
// except sig, and compares constant-time. It also enforces the 24h
// freshness window. It does not resolve the subject to an
// existing Principal — that is the oracle's job, since the bootstrap flow
// needs to distinguish "bad signature" from "unknown subject".
func VerifyToken(providerSecret, token string) (ParsedToken, error) {
	raw, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return ParsedToken{}, apperr.New(apperr.Unauthenticated, "malformed session token")
	}

	parts := strings.Split(string(raw), "&")
	values := make(map[string]string, len(parts))
	var sigHex string
	canonicalParts := make([]string, 0, len(parts))
	for _, p := range parts {
		kv := strings.SplitN(p, "=", 2)
		if len(kv) != 2 {
			return ParsedToken{}, apperr.New(apperr.Unauthenticated, "malformed session token field")
		}
		if kv[0] == "sig" {
			sigHex = kv[1]
			continue
		}
		values[kv[0]] = kv[1]
		canonicalParts = append(canonicalParts, p)
	}
	if sigHex == "" {
		return ParsedToken{}, apperr.New(apperr.Unauthenticated, "session token missing signature")
	}

	sort.Strings(canonicalParts)
	canonical := strings.Join(canonicalParts, "&")

	mac := hmac.New(sha256.New, deriveSigningKey(providerSecret))
	mac.Write([]byte(canonical))
	expected := mac.Sum(nil)

	actual, err := hex.DecodeString(sigHex)
	if err != nil || !hmac.Equal(expected, actual) {
		return ParsedToken{}, apperr.New(apperr.Unauthenticated, "session token signature mismatch")
	}

	sub, ok := values["sub"]
	if !ok || sub == "" {
		return ParsedToken{}, apperr.New(apperr.Unauthenticated, "session token missing subject")
	}
	iatRaw, ok := values["iat"]
	if !ok {
		return ParsedToken{}, apperr.New(apperr.Unauthenticated, "session token missing issuedAt")
	}
	iatUnix, err := strconv.ParseInt(iatRaw, 10, 64)
	if err != nil {
		return ParsedToken{}, apperr.New(apperr.Unauthenticated, "session token has malformed issuedAt")
	}
	issuedAt := time.Unix(iatUnix, 0).UTC()
	if time.Since(issuedAt) > MaxTokenAge {
		return ParsedToken{}, apperr.New(apperr.Unauthenticated, "session token expired")
	}

	return ParsedToken{SubjectID: sub, IssuedAt: issuedAt}, nil
}
