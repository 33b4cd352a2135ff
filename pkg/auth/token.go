package auth

import (
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/ikrcommerce/ikr-backend/pkg/config"
)

var jwtSigningMethod = jwt.SigningMethodHS256

// Roles carried in access tokens. Staff tokens unlock the admin surface.
const (
	RoleCustomer = "customer"
	RoleAdmin    = "admin"
)

// AccessTokenClaims is the typed JWT issued to storefront customers.
type AccessTokenClaims struct {
	CustomerID uuid.UUID `json:"customer_id"`
	Email      string    `json:"email,omitempty"`
	Role       string    `json:"role,omitempty"`
	jwt.RegisteredClaims
}

// IsAdmin reports whether the token carries the staff role.
func (c *AccessTokenClaims) IsAdmin() bool {
	return c != nil && c.Role == RoleAdmin
}

// MintAccessToken issues a signed JWT for the customer using the configured TTL.
func MintAccessToken(cfg config.JWTConfig, now time.Time, customerID uuid.UUID, email string) (string, error) {
	return MintAccessTokenWithRole(cfg, now, customerID, email, RoleCustomer)
}

// MintAccessTokenWithRole issues a signed JWT carrying an explicit role.
func MintAccessTokenWithRole(cfg config.JWTConfig, now time.Time, customerID uuid.UUID, email, role string) (string, error) {
	if cfg.Secret == "" {
		return "", fmt.Errorf("jwt secret is required")
	}
	if cfg.Issuer == "" {
		return "", fmt.Errorf("jwt issuer is required")
	}
	if cfg.ExpirationMinutes <= 0 {
		return "", fmt.Errorf("jwt expiration minutes must be positive")
	}
	if customerID == uuid.Nil {
		return "", fmt.Errorf("customer id is required")
	}

	if role == "" {
		role = RoleCustomer
	}

	claims := AccessTokenClaims{
		CustomerID: customerID,
		Email:      strings.TrimSpace(email),
		Role:       role,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    cfg.Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Duration(cfg.ExpirationMinutes) * time.Minute)),
			ID:        uuid.NewString(),
		},
	}

	token := jwt.NewWithClaims(jwtSigningMethod, claims)
	signed, err := token.SignedString([]byte(cfg.Secret))
	if err != nil {
		return "", fmt.Errorf("signing jwt: %w", err)
	}
	return signed, nil
}

// ParseAccessToken validates the JWT string and returns typed claims.
func ParseAccessToken(cfg config.JWTConfig, tokenString string) (*AccessTokenClaims, error) {
	if cfg.Secret == "" {
		return nil, fmt.Errorf("jwt secret is required")
	}

	claims := &AccessTokenClaims{}
	_, err := jwt.ParseWithClaims(
		tokenString,
		claims,
		func(token *jwt.Token) (interface{}, error) {
			if token.Method != jwtSigningMethod {
				return nil, fmt.Errorf("unexpected signing method %s", token.Header["alg"])
			}
			return []byte(cfg.Secret), nil
		},
		jwt.WithValidMethods([]string{jwtSigningMethod.Alg()}),
		jwt.WithIssuer(cfg.Issuer),
	)
	if err != nil {
		return nil, err
	}
	if claims.CustomerID == uuid.Nil {
		return nil, fmt.Errorf("token missing customer id")
	}

	return claims, nil
}
