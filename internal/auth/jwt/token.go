package jwt

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Claims carried by access tokens.
type Claims struct {
	UserID      string `json:"user_id"`
	DisplayName string `json:"display_name,omitempty"`
	IsGuest     bool   `json:"is_guest"`
	jwt.RegisteredClaims
}

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrExpiredToken = errors.New("token expired")
	ErrNoSecret     = errors.New("jwt secret not configured")
)

// TokenConfig holds JWT signing configuration.
type TokenConfig struct {
	Secret    []byte
	AccessTTL time.Duration // default: 1 hour
	Issuer    string
	Now       func() time.Time
}

// Manager handles JWT token generation and validation.
type Manager struct {
	secret    []byte
	accessTTL time.Duration
	issuer    string
	now       func() time.Time
}

// NewManager creates a JWT token manager.
func NewManager(cfg TokenConfig) *Manager {
	if cfg.AccessTTL == 0 {
		cfg.AccessTTL = 1 * time.Hour
	}
	if cfg.Issuer == "" {
		cfg.Issuer = "quizforge"
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	return &Manager{
		secret:    cfg.Secret,
		accessTTL: cfg.AccessTTL,
		issuer:    cfg.Issuer,
		now:       cfg.Now,
	}
}

// User represents user data for token generation.
type User struct {
	ID          string
	DisplayName string
	IsGuest     bool
}

// GenerateAccessToken creates a short-lived access token.
func (m *Manager) GenerateAccessToken(user User) (string, error) {
	if len(m.secret) == 0 {
		return "", ErrNoSecret
	}
	now := m.now()
	claims := Claims{
		UserID:      user.ID,
		DisplayName: user.DisplayName,
		IsGuest:     user.IsGuest,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    m.issuer,
			Subject:   user.ID,
			ExpiresAt: jwt.NewNumericDate(now.Add(m.accessTTL)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(m.secret)
}

// ValidateAccessToken parses and validates an access token.
func (m *Manager) ValidateAccessToken(tokenString string) (*Claims, error) {
	if len(m.secret) == 0 {
		return nil, ErrNoSecret
	}
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return m.secret, nil
	}, jwt.WithIssuer(m.issuer), jwt.WithTimeFunc(m.now))

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.UserID == "" {
		return nil, ErrInvalidToken
	}

	return claims, nil
}
