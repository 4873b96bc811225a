// Package token issues and verifies single-use secrets sent out in email links.
// Only a one-way digest of the raw secret is ever persisted; possession of the
// raw value is proven by recomputing the digest on redemption.
package token

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/shule/core"
)

// Purpose selects the expiry policy applied to an issued token.
type Purpose string

const (
	PurposeAccountInvite     Purpose = "account_invite"
	PurposePasswordReset     Purpose = "password_reset"
	PurposeEmailVerification Purpose = "email_verification"
)

const rawLen = 32 // bytes of entropy before encoding

// TTL returns the validity window for this purpose.
func (p Purpose) TTL(conf *core.Config) time.Duration {
	switch p {
	case PurposePasswordReset:
		return conf.PasswordResetTimeoutDelta
	case PurposeEmailVerification:
		return conf.EmailVerificationTimeoutDelta
	default:
		return conf.AccountInviteTimeoutDelta
	}
}

// Issue generates a new raw/hashed token pair. The raw value goes out in an
// email link and is never stored; the hash is what gets persisted.
func Issue() (raw, hash string, err error) {
	buf := make([]byte, rawLen)
	if _, err = rand.Read(buf); err != nil {
		return "", "", errors.Wrap(err, "generating token")
	}
	raw = base64.RawURLEncoding.EncodeToString(buf)
	return raw, Hash(raw), nil
}

// Hash recomputes the persisted digest for a raw candidate.
// Lookups always compare digests; raw values are never compared directly.
func Hash(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return base64.RawURLEncoding.EncodeToString(sum[:])
}
