package auth

import (
	"context"
	"fmt"
	"time"

	"findam-backend/internal/common/config"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	TokenTypeAccess  = "access"
	TokenTypeRefresh = "refresh"

	denylistPrefix = "auth:denylist:"
)

// Claims carries the JWT payload used by the API.
type Claims struct {
	UserID    string `json:"uid"`
	UserType  string `json:"utype"`
	TokenType string `json:"ttype"`
	jwt.RegisteredClaims
}

// TokenPair is the access/refresh pair returned on login and refresh.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"` // access token lifetime, seconds
}

// JWTService issues and validates tokens. Revoked refresh tokens are kept in
// a Redis denylist until their natural expiry.
type JWTService struct {
	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
	redis      *redis.Client
}

func NewJWTService(cfg config.AuthConfig, rdb *redis.Client) *JWTService {
	return &JWTService{
		secret:     []byte(cfg.JWTSecret),
		accessTTL:  time.Duration(cfg.AccessTokenTTL) * time.Minute,
		refreshTTL: time.Duration(cfg.RefreshTokenTTL) * time.Hour,
		redis:      rdb,
	}
}

// IssuePair creates a fresh access/refresh token pair for a user.
func (s *JWTService) IssuePair(userID, userType string) (*TokenPair, error) {
	access, err := s.sign(userID, userType, TokenTypeAccess, s.accessTTL)
	if err != nil {
		return nil, err
	}
	refresh, err := s.sign(userID, userType, TokenTypeRefresh, s.refreshTTL)
	if err != nil {
		return nil, err
	}
	return &TokenPair{
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresIn:    int64(s.accessTTL.Seconds()),
	}, nil
}

func (s *JWTService) sign(userID, userType, tokenType string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		UserID:    userID,
		UserType:  userType,
		TokenType: tokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			Issuer:    "findam",
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secret)
}

// Parse validates the signature and expiry and returns the claims.
func (s *JWTService) Parse(tokenStr string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil {
		return nil, err
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid token claims")
	}
	return claims, nil
}

// Refresh validates a refresh token (including the denylist) and issues a new
// pair. The used refresh token is revoked so it cannot be replayed.
func (s *JWTService) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	claims, err := s.Parse(refreshToken)
	if err != nil {
		return nil, err
	}
	if claims.TokenType != TokenTypeRefresh {
		return nil, fmt.Errorf("token is not a refresh token")
	}

	revoked, err := s.isRevoked(ctx, claims.ID)
	if err != nil {
		return nil, err
	}
	if revoked {
		return nil, fmt.Errorf("refresh token has been revoked")
	}

	if err := s.revoke(ctx, claims); err != nil {
		return nil, err
	}

	return s.IssuePair(claims.UserID, claims.UserType)
}

// Revoke invalidates a refresh token (logout).
func (s *JWTService) Revoke(ctx context.Context, refreshToken string) error {
	claims, err := s.Parse(refreshToken)
	if err != nil {
		// Already expired or malformed tokens need no denylist entry.
		return nil
	}
	if claims.TokenType != TokenTypeRefresh {
		return fmt.Errorf("token is not a refresh token")
	}
	return s.revoke(ctx, claims)
}

func (s *JWTService) revoke(ctx context.Context, claims *Claims) error {
	ttl := time.Until(claims.ExpiresAt.Time)
	if ttl <= 0 {
		return nil
	}
	return s.redis.Set(ctx, denylistPrefix+claims.ID, "1", ttl).Err()
}

func (s *JWTService) isRevoked(ctx context.Context, jti string) (bool, error) {
	_, err := s.redis.Get(ctx, denylistPrefix+jti).Result()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}
