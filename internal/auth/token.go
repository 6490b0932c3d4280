// ABOUTME: JWT token verification for authenticating WebSocket and API requests
// ABOUTME: Uses HS256 signing with configurable secret

package auth

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Token errors
var (
	ErrInvalidToken = errors.New("invalid token")
	ErrExpiredToken = errors.New("token expired")
	ErrMissingClaim = errors.New("missing required claim")
)

// RoleAdmin is the role required for the admin API surface.
const RoleAdmin = "ADMIN"

// Identity is the verified identity attached to a connection for its lifetime.
type Identity struct {
	UserID    int64
	Role      string
	CompanyID int64
}

// TokenVerifier defines the interface for token verification
type TokenVerifier interface {
	Verify(tokenString string) (*Identity, error)
}

// JWTVerifier implements TokenVerifier using HS256 signed JWTs
type JWTVerifier struct {
	secret []byte
}

// NewJWTVerifier creates a new JWT verifier with the given secret
func NewJWTVerifier(secret []byte) *JWTVerifier {
	return &JWTVerifier{secret: secret}
}

// Verify validates the token and extracts the identity from its claims.
// The user id is read from "userId", falling back to "id" and "sub".
func (v *JWTVerifier) Verify(tokenString string) (*Identity, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		// Validate the signing method is HS256
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return v.secret, nil
	})

	if err != nil {
		// Check if it's specifically an expiration error
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	if !token.Valid {
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, ErrInvalidToken
	}

	userID, ok := claimInt64(claims, "userId", "id", "sub")
	if !ok {
		return nil, fmt.Errorf("%w: userId", ErrMissingClaim)
	}

	identity := &Identity{UserID: userID}

	if role, ok := claims["role"].(string); ok {
		identity.Role = role
	}
	if companyID, ok := claimInt64(claims, "companyId"); ok {
		identity.CompanyID = companyID
	}

	return identity, nil
}

// Generate creates a new JWT token for the given identity with expiration
func (v *JWTVerifier) Generate(identity *Identity, expiresIn time.Duration) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"userId":    identity.UserID,
		"role":      identity.Role,
		"companyId": identity.CompanyID,
		"iat":       now.Unix(),
		"exp":       now.Add(expiresIn).Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(v.secret)
}

// claimInt64 reads the first present claim among keys as an int64.
// JSON numbers decode as float64; string values are parsed for
// compatibility with issuers that put numeric ids in "sub".
func claimInt64(claims jwt.MapClaims, keys ...string) (int64, bool) {
	for _, key := range keys {
		switch v := claims[key].(type) {
		case float64:
			return int64(v), true
		case string:
			if n, err := strconv.ParseInt(v, 10, 64); err == nil {
				return n, true
			}
		}
	}
	return 0, false
}
