// Package csrf issues and verifies the token pairs used by the double-submit
// cookie protection on mutating API requests.
//
// A pair consists of a random client token, handed to page script, and a
// session token stored in an HttpOnly cookie. The session token has the form
// "<salt>.<mac>" where mac = HMAC-SHA256(secret, clientToken + salt), both
// hex-encoded. The server keeps no per-pair state: possession of the secret
// is enough to check that a presented client token belongs to the cookie.
package csrf

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
)

const (
	// clientTokenBytes is the entropy of a client token (256 bits).
	clientTokenBytes = 32

	// saltBytes is the length of the per-pair salt.
	saltBytes = 8

	separator = "."
)

// Cookie and header names shared by the issuing endpoints and the gatekeeper.
const (
	SessionCookieName  = "csrf_session_token"
	ClientCookieName   = "csrf-token"
	ReadableCookieName = "XSRF-TOKEN"
	HeaderName         = "x-csrf-token"
)

// Service issues and verifies CSRF token pairs with a process-wide secret.
type Service struct {
	secret []byte
}

// NewService creates a CSRF service keyed with secret. The secret is read
// once at startup; an empty secret is a programming error.
func NewService(secret string) (*Service, error) {
	if secret == "" {
		return nil, errors.New("csrf secret is required")
	}
	return &Service{secret: []byte(secret)}, nil
}

// Issue generates a fresh client token and the session token bound to it.
func (s *Service) Issue() (clientToken, sessionToken string, err error) {
	client := make([]byte, clientTokenBytes)
	if _, err := rand.Read(client); err != nil {
		return "", "", fmt.Errorf("generating client token: %w", err)
	}
	salt := make([]byte, saltBytes)
	if _, err := rand.Read(salt); err != nil {
		return "", "", fmt.Errorf("generating salt: %w", err)
	}

	clientToken = hex.EncodeToString(client)
	saltHex := hex.EncodeToString(salt)
	sessionToken = saltHex + separator + hex.EncodeToString(s.mac(clientToken, saltHex))
	return clientToken, sessionToken, nil
}

// Verify reports whether clientToken is the token sessionToken was issued
// with. Malformed input of any kind yields false.
func (s *Service) Verify(clientToken, sessionToken string) bool {
	if clientToken == "" || sessionToken == "" {
		return false
	}
	salt, macHex, ok := strings.Cut(sessionToken, separator)
	if !ok || salt == "" || macHex == "" {
		return false
	}
	presented, err := hex.DecodeString(macHex)
	if err != nil {
		return false
	}
	return hmac.Equal(presented, s.mac(clientToken, salt))
}

func (s *Service) mac(clientToken, salt string) []byte {
	h := hmac.New(sha256.New, s.secret)
	h.Write([]byte(clientToken + salt))
	return h.Sum(nil)
}
