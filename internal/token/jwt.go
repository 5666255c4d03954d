package token

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/dtroode/healping/internal/model"
)

// UserMetadata is the profile data the auth provider copies into access tokens.
type UserMetadata struct {
	FullName  string `json:"full_name,omitempty"`
	AvatarURL string `json:"avatar_url,omitempty"`
}

// Claims represents the access token claims issued by the hosted auth provider.
type Claims struct {
	jwt.RegisteredClaims
	Email        string       `json:"email"`
	Role         string       `json:"role"`
	UserMetadata UserMetadata `json:"user_metadata"`
}

// JWT implements TokenManager backed by symmetric HMAC.
type JWT struct {
	secretKey string
}

// NewJWT creates a new JWT token manager with the provided secret key.
func NewJWT(secretKey string) *JWT {
	return &JWT{secretKey: secretKey}
}

var _ model.TokenManager = (*JWT)(nil)

const (
	accessTTL         = time.Hour
	roleAuthenticated = "authenticated"
)

// GenerateAccessToken signs an access token for session the way the auth provider does.
// A zero ExpiresAt gets the default lifetime.
func (j *JWT) GenerateAccessToken(session model.Session) (string, error) {
	now := time.Now()
	expiresAt := session.ExpiresAt
	if expiresAt.IsZero() {
		expiresAt = now.Add(accessTTL)
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   session.UserID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
		Email: session.Email,
		Role:  roleAuthenticated,
		UserMetadata: UserMetadata{
			FullName:  session.FullName,
			AvatarURL: session.AvatarURL,
		},
	})

	tokenString, err := token.SignedString([]byte(j.secretKey))
	if err != nil {
		return "", fmt.Errorf("failed to sign access token: %w", err)
	}

	return tokenString, nil
}

// ParseAccessToken validates the signature and extracts the session identity.
// Expired tokens are accepted so that callers can decide to refresh them.
func (j *JWT) ParseAccessToken(tokenString string) (model.Session, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("wrong signing method %v", t.Header["alg"])
		}
		return []byte(j.secretKey), nil
	}, jwt.WithoutClaimsValidation())
	if err != nil {
		return model.Session{}, fmt.Errorf("%w: %w", model.ErrTokenInvalid, err)
	}
	if !token.Valid {
		return model.Session{}, model.ErrTokenInvalid
	}
	if claims.Subject == "" {
		return model.Session{}, fmt.Errorf("%w: missing subject", model.ErrTokenInvalid)
	}
	if claims.ExpiresAt == nil {
		return model.Session{}, fmt.Errorf("%w: missing expiry", model.ErrTokenInvalid)
	}

	return model.Session{
		UserID:      claims.Subject,
		Email:       claims.Email,
		FullName:    claims.UserMetadata.FullName,
		AvatarURL:   claims.UserMetadata.AvatarURL,
		AccessToken: tokenString,
		ExpiresAt:   claims.ExpiresAt.Time,
	}, nil
}
