package chat

import (
	"errors"
	"fmt"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// ErrMissingSecret indicates the platform API secret was not configured.
var ErrMissingSecret = errors.New("chat api secret is not configured")

// TokenIssuer signs user tokens for the external chat and video platform.
// Tokens carry only a user_id claim and are a pure function of the user id.
type TokenIssuer struct {
	apiKey string
	secret []byte
}

type userClaims struct {
	UserID string `json:"user_id"`
	jwt.RegisteredClaims
}

// NewTokenIssuer returns an issuer for the platform credentials.
func NewTokenIssuer(apiKey, apiSecret string) *TokenIssuer {
	return &TokenIssuer{apiKey: apiKey, secret: []byte(apiSecret)}
}

// APIKey returns the public key clients need alongside a token.
func (i *TokenIssuer) APIKey() string {
	return i.apiKey
}

// IssueToken returns the platform token for userID.
func (i *TokenIssuer) IssueToken(userID string) (string, error) {
	if len(i.secret) == 0 {
		return "", ErrMissingSecret
	}
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return "", errors.New("chat token: user id must be provided")
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, userClaims{UserID: userID}).SignedString(i.secret)
	if err != nil {
		return "", fmt.Errorf("sign chat token: %w", err)
	}
	return token, nil
}

// UserID extracts the user id from a token this issuer signed.
func (i *TokenIssuer) UserID(token string) (string, error) {
	var claims userClaims
	if _, err := jwt.ParseWithClaims(token, &claims, func(*jwt.Token) (any, error) {
		return i.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})); err != nil {
		return "", fmt.Errorf("parse chat token: %w", err)
	}
	if claims.UserID == "" {
		return "", errors.New("chat token: missing user_id claim")
	}
	return claims.UserID, nil
}
