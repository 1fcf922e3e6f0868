// Package initdata verifies signed launch payloads issued by the messaging
// platform to the mini-app. The payload is a query-string-encoded field set
// carrying a hex "hash" signature; verification reproduces the platform's
// two-stage HMAC scheme, so the raw bot token never signs anything directly.
package initdata

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/url"
	"sort"
	"strings"
)

var (
	ErrMissingProof       = errors.New("missing proof")
	ErrSignatureMismatch  = errors.New("signature mismatch")
	ErrMalformedPrincipal = errors.New("malformed principal")
)

// User is the principal embedded in a verified payload's "user" field.
type User struct {
	ID        int64  `json:"id"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Username  string `json:"username"`
}

// Verifier checks launch payloads against a single bot's shared secret.
// The per-application signing key is derived once at construction:
// HMAC-SHA256 over the literal "WebAppData", keyed with the bot token.
type Verifier struct {
	signingKey []byte
}

func NewVerifier(botToken string) *Verifier {
	mac := hmac.New(sha256.New, []byte(botToken))
	mac.Write([]byte("WebAppData"))
	return &Verifier{signingKey: mac.Sum(nil)}
}

// Verify validates a raw query-string proof and returns the embedded user.
//
// The check string is built from every field except "hash", rendered as
// name=value, sorted byte-wise by line, and joined with single newlines. The
// candidate signature is HMAC-SHA256 of that string under the derived key,
// compared in constant time against the claimed hash. Verification failure is
// not a fault: it only means the caller is untrusted.
func (v *Verifier) Verify(proof string) (User, error) {
	if strings.TrimSpace(proof) == "" {
		return User{}, ErrMissingProof
	}

	fields, err := url.ParseQuery(proof)
	if err != nil {
		return User{}, ErrSignatureMismatch
	}

	claimed := fields.Get("hash")
	if claimed == "" {
		return User{}, ErrSignatureMismatch
	}
	fields.Del("hash")

	lines := make([]string, 0, len(fields))
	for name, values := range fields {
		for _, value := range values {
			lines = append(lines, name+"="+value)
		}
	}
	sort.Strings(lines)
	checkString := strings.Join(lines, "\n")

	mac := hmac.New(sha256.New, v.signingKey)
	mac.Write([]byte(checkString))
	computed := hex.EncodeToString(mac.Sum(nil))

	if !hmac.Equal([]byte(computed), []byte(strings.ToLower(claimed))) {
		return User{}, ErrSignatureMismatch
	}

	rawUser := fields.Get("user")
	if rawUser == "" {
		return User{}, ErrMalformedPrincipal
	}
	var user User
	if err := json.Unmarshal([]byte(rawUser), &user); err != nil {
		return User{}, ErrMalformedPrincipal
	}
	if user.ID == 0 {
		return User{}, ErrMalformedPrincipal
	}
	return user, nil
}
