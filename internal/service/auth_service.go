package service

import (
	"context"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"cinetrivia/internal/domain"
	apperrors "cinetrivia/pkg/errors"
	"cinetrivia/pkg/logger"
)

// tokenLifetime covers one event evening with margin.
const tokenLifetime = 24 * time.Hour

// AuthService issues and validates the operator session token. There is
// a single admin identity; the password is configured as a bcrypt hash,
// never in clear text.
type AuthService struct {
	jwtSecret         []byte
	adminPasswordHash []byte
	logger            *logger.Logger
}

func NewAuthService(jwtSecret, adminPasswordHash string, log *logger.Logger) *AuthService {
	return &AuthService{
		jwtSecret:         []byte(jwtSecret),
		adminPasswordHash: []byte(adminPasswordHash),
		logger:            log,
	}
}

// Login verifies the admin password and issues a signed session token.
func (s *AuthService) Login(ctx context.Context, req *domain.LoginRequest) (*domain.LoginResponse, error) {
	if req.Password == "" {
		return nil, apperrors.NewValidationError("Password is required", nil)
	}
	if len(s.adminPasswordHash) == 0 {
		return nil, apperrors.NewInternalError("Admin password is not configured", nil)
	}

	if err := bcrypt.CompareHashAndPassword(s.adminPasswordHash, []byte(req.Password)); err != nil {
		s.logger.Warn("Failed admin login attempt")
		return nil, apperrors.NewAuthenticationError("Invalid password")
	}

	expiresAt := time.Now().Add(tokenLifetime)
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":  "admin",
		"role": "admin",
		"iat":  time.Now().Unix(),
		"exp":  expiresAt.Unix(),
	})

	signed, err := token.SignedString(s.jwtSecret)
	if err != nil {
		return nil, apperrors.NewInternalError("Failed to sign token", err)
	}

	return &domain.LoginResponse{
		Token:     signed,
		ExpiresAt: expiresAt.Unix(),
	}, nil
}

// Verify validates a session token and returns its claims.
func (s *AuthService) Verify(ctx context.Context, tokenString string) (*domain.AuthClaims, error) {
	if tokenString == "" {
		return nil, apperrors.NewAuthenticationError("Missing token")
	}

	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, apperrors.NewAuthenticationError("Unexpected signing method")
		}
		return s.jwtSecret, nil
	})
	if err != nil || !token.Valid {
		return nil, apperrors.NewAuthenticationError("Invalid or expired token")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, apperrors.NewAuthenticationError("Invalid token claims")
	}

	subject, _ := claims["sub"].(string)
	role, _ := claims["role"].(string)
	var expiresAt int64
	if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
		expiresAt = exp.Unix()
	}

	return &domain.AuthClaims{
		Subject:   subject,
		Role:      role,
		ExpiresAt: expiresAt,
	}, nil
}
