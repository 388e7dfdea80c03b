package utils // package utils provides helper functions for token creation and hashing

import (
	"crypto/sha256" // SHA-256 hashing for refresh tokens at rest
	"encoding/hex"  // hex encoding for digest output
	"errors"        // sentinel error definitions and matching
	"time"          // expiry computation

	"github.com/golang-jwt/jwt/v5" // JWT library for creating signed tokens
)

// Verification failure kinds. Handlers map ErrExpiredToken and
// ErrInvalidToken to distinct unauthorized messages.
var (
	ErrInvalidToken = errors.New("invalid token")
	ErrExpiredToken = errors.New("expired token")
)

// AccessToken represents a signed JWT access token along with its
// expiry. Access tokens are short-lived, self-contained and never
// persisted; validity is established purely from the signature.
type AccessToken struct {
	Token string    // the serialized JWT string
	Exp   time.Time // the UTC expiration time
}

// RefreshToken represents a long-lived token used to obtain new
// access tokens. The raw string is returned to the client; in the
// database only a SHA-256 hash of it is stored alongside Exp.
type RefreshToken struct {
	Token string    // raw token string returned to the client
	Exp   time.Time // UTC expiration time
}

// AccessClaims is the decoded identity carried by an access token.
type AccessClaims struct {
	UserID uint64
	Email  string
	RoleID uint64
}

// NewAccessToken builds and signs an HS256 JWT for a user. The JWT
// encodes the subject id, email and role reference plus the standard
// exp/iat claims. ttlMin controls the validity window in minutes.
func NewAccessToken(secret string, userID uint64, email string, roleID uint64, ttlMin int) (AccessToken, error) {
	now := time.Now().UTC()
	exp := now.Add(time.Duration(ttlMin) * time.Minute)
	claims := jwt.MapClaims{
		"sub":     userID,
		"email":   email,
		"role_id": roleID,
		"exp":     exp.Unix(),
		"iat":     now.Unix(),
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := t.SignedString([]byte(secret))
	if err != nil {
		return AccessToken{}, err
	}
	return AccessToken{Token: signed, Exp: exp}, nil
}

// NewRefreshToken builds and signs an HS256 JWT carrying only the
// subject id. Refresh tokens are signed with a secret distinct from
// the access secret so the two kinds can never be swapped. ttlDays
// controls the validity window in days.
func NewRefreshToken(secret string, userID uint64, ttlDays int) (RefreshToken, error) {
	now := time.Now().UTC()
	exp := now.Add(time.Duration(ttlDays) * 24 * time.Hour)
	claims := jwt.MapClaims{
		"sub": userID,
		"exp": exp.Unix(),
		"iat": now.Unix(),
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := t.SignedString([]byte(secret))
	if err != nil {
		return RefreshToken{}, err
	}
	return RefreshToken{Token: signed, Exp: exp}, nil
}

// ParseAccessToken verifies an access token signature and returns the
// identity claims. Expired signatures yield ErrExpiredToken; every
// other failure yields ErrInvalidToken.
func ParseAccessToken(secret, raw string) (AccessClaims, error) {
	claims, err := parseHS256(secret, raw)
	if err != nil {
		return AccessClaims{}, err
	}
	out := AccessClaims{}
	sub, ok := claims["sub"].(float64)
	if !ok {
		return AccessClaims{}, ErrInvalidToken
	}
	out.UserID = uint64(sub)
	if email, ok := claims["email"].(string); ok {
		out.Email = email
	}
	if rid, ok := claims["role_id"].(float64); ok {
		out.RoleID = uint64(rid)
	}
	return out, nil
}

// ParseRefreshToken verifies a refresh token signature and returns
// the subject id. The caller must additionally confirm a matching
// persisted record exists before trusting the token.
func ParseRefreshToken(secret, raw string) (uint64, error) {
	claims, err := parseHS256(secret, raw)
	if err != nil {
		return 0, err
	}
	sub, ok := claims["sub"].(float64)
	if !ok {
		return 0, ErrInvalidToken
	}
	return uint64(sub), nil
}

// parseHS256 parses a token signed with the given secret, rejecting
// any token whose signing method is not HMAC.
func parseHS256(secret, raw string) (jwt.MapClaims, error) {
	tok, err := jwt.Parse(raw, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return []byte(secret), nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, ErrInvalidToken
	}
	if !tok.Valid {
		return nil, ErrInvalidToken
	}
	claims, ok := tok.Claims.(jwt.MapClaims)
	if !ok {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// HashRefreshRaw returns the SHA-256 hash of the raw refresh token as
// a hex string. Storing only the hash prevents attackers from using
// stolen database entries to refresh sessions.
func HashRefreshRaw(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}
