package identity

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Claims is what a successful verification yields. Email is required;
// Name is advisory display text.
type Claims struct {
	Email string `json:"email"`
	Name  string `json:"name"`
	Exp   int64  `json:"exp"`
}

var (
	ErrInvalidAssertion = errors.New("invalid assertion")
	ErrExpiredAssertion = errors.New("expired assertion")
)

// Verifier turns an opaque provider assertion into verified claims. The
// rest of the system never inspects assertion internals.
type Verifier interface {
	Verify(ctx context.Context, assertion string) (Claims, error)
}

// TokenVerifier verifies HMAC-SHA256 signed assertions of the form
// base64(payload).base64(signature), shared-secret with the provider.
type TokenVerifier struct {
	secret []byte
}

func NewTokenVerifier(secret string) *TokenVerifier {
	return &TokenVerifier{secret: []byte(secret)}
}

func (v *TokenVerifier) Verify(_ context.Context, assertion string) (Claims, error) {
	parts := strings.Split(strings.TrimSpace(assertion), ".")
	if len(parts) != 2 {
		return Claims{}, ErrInvalidAssertion
	}
	payload := parts[0]
	signature := parts[1]

	expected := sign(v.secret, payload)
	if !hmac.Equal([]byte(signature), []byte(expected)) {
		return Claims{}, ErrInvalidAssertion
	}

	decoded, err := base64.RawURLEncoding.DecodeString(payload)
	if err != nil {
		return Claims{}, ErrInvalidAssertion
	}

	var claims Claims
	if err := json.Unmarshal(decoded, &claims); err != nil {
		return Claims{}, ErrInvalidAssertion
	}
	if strings.TrimSpace(claims.Email) == "" || claims.Exp == 0 {
		return Claims{}, ErrInvalidAssertion
	}
	if time.Now().Unix() >= claims.Exp {
		return Claims{}, ErrExpiredAssertion
	}
	return claims, nil
}

// IssueAssertion signs claims the way the provider does. Exercised by the
// provider side of the contract and by tests.
func IssueAssertion(secret []byte, claims Claims) (string, error) {
	payloadBytes, err := json.Marshal(claims)
	if err != nil {
		return "", fmt.Errorf("marshal claims: %w", err)
	}
	payload := base64.RawURLEncoding.EncodeToString(payloadBytes)
	return payload + "." + sign(secret, payload), nil
}

func sign(secret []byte, payload string) string {
	sum := hmac.New(sha256.New, secret)
	_, _ = sum.Write([]byte(payload))
	return base64.RawURLEncoding.EncodeToString(sum.Sum(nil))
}
