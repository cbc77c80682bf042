package service

import (
	"fmt"

	"github.com/golang-jwt/jwt/v5"

	"github.com/medhaven/clinic-scheduling-api/internal/models"
	"github.com/medhaven/clinic-scheduling-api/pkg/config"
	appErrors "github.com/medhaven/clinic-scheduling-api/pkg/errors"
)

// AuthService verifies the opaque bearer tokens issued by the identity tier.
// Token issuance and refresh live outside this service; only validation of
// the HS256 signature and claims shape happens here.
type AuthService struct {
	secret string
}

// NewAuthService builds a token verifier from config.
func NewAuthService(cfg config.JWTConfig) *AuthService {
	return &AuthService{secret: cfg.Secret}
}

// ValidateToken parses and verifies an access token, returning its claims.
func (s *AuthService) ValidateToken(tokenString string) (*models.JWTClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &models.JWTClaims{}, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.secret), nil
	})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrUnauthorized.Code, appErrors.ErrUnauthorized.Status, "invalid token")
	}

	claims, ok := token.Claims.(*models.JWTClaims)
	if !ok || !token.Valid {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid token claims")
	}

	return claims, nil
}
