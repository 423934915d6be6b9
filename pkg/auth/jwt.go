// Package auth validates the JWTs that front-door callers present to the
// lending gRPC API.
package auth

import (
	"fmt"
	"os"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// JWTConfig holds JWT configuration.
type JWTConfig struct {
	// Secret is the HMAC-SHA256 symmetric key (HS256 mode).
	Secret string

	// PublicKeyPEM is a PEM-encoded RSA public key for validation-only
	// RS256 mode. Takes precedence over Secret when set.
	PublicKeyPEM string

	Issuer     string
	Expiration time.Duration
}

// JWTService validates (and, in HS256 mode, issues) JWT tokens.
type JWTService struct {
	config JWTConfig
	useRSA bool
}

// NewJWTService creates a JWTService. Either PublicKeyPEM (RS256 validation)
// or Secret (HS256) must be configured.
func NewJWTService(cfg JWTConfig) (*JWTService, error) {
	switch {
	case cfg.PublicKeyPEM != "":
		if _, err := jwt.ParseRSAPublicKeyFromPEM([]byte(cfg.PublicKeyPEM)); err != nil {
			return nil, fmt.Errorf("auth: parse RSA public key: %w", err)
		}
		return &JWTService{config: cfg, useRSA: true}, nil
	case cfg.Secret != "":
		return &JWTService{config: cfg}, nil
	default:
		return nil, fmt.Errorf("auth: jwt configuration requires PublicKeyPEM or Secret")
	}
}

// GenerateToken issues a signed token for the given user. Only available in
// HS256 mode; the RS256 path is validation-only.
func (s *JWTService) GenerateToken(userID string, roles []string) (string, error) {
	if s.useRSA {
		return "", fmt.Errorf("auth: cannot issue tokens in validation-only mode")
	}

	now := time.Now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.config.Issuer,
			Subject:   userID,
			ExpiresAt: jwt.NewNumericDate(now.Add(s.config.Expiration)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ID:        uuid.New().String(),
		},
		UserID: userID,
		Roles:  roles,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(s.config.Secret))
	if err != nil {
		return "", fmt.Errorf("auth: sign token: %w", err)
	}
	return signed, nil
}

// ValidateToken parses and validates a token string.
func (s *JWTService) ValidateToken(tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if s.useRSA {
			if _, ok := token.Method.(*jwt.SigningMethodRSA); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
			}
			return jwt.ParseRSAPublicKeyFromPEM([]byte(s.config.PublicKeyPEM))
		}
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.config.Secret), nil
	})
	if err != nil {
		return nil, fmt.Errorf("auth: parse token: %w", err)
	}
	if !token.Valid {
		return nil, fmt.Errorf("auth: invalid token")
	}

	if s.config.Issuer != "" && claims.Issuer != s.config.Issuer {
		return nil, fmt.Errorf("auth: invalid issuer %q", claims.Issuer)
	}

	return claims, nil
}

// LoadKeyFromFile reads a PEM-encoded key from disk.
func LoadKeyFromFile(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("auth: read key file %q: %w", path, err)
	}
	return data, nil
}
