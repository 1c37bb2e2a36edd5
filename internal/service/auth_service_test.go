package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"cinetrivia/internal/domain"
	apperrors "cinetrivia/pkg/errors"
	"cinetrivia/pkg/logger"
)

func newAuthService(t *testing.T, password string) *AuthService {
	t.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)

	log, err := logger.New("error", "test")
	require.NoError(t, err)

	return NewAuthService("test-secret", string(hash), log)
}

func TestAuthService_Login(t *testing.T) {
	svc := newAuthService(t, "hunter2")
	ctx := context.Background()

	resp, err := svc.Login(ctx, &domain.LoginRequest{Password: "hunter2"})
	require.NoError(t, err)
	assert.NotEmpty(t, resp.Token)
	assert.Greater(t, resp.ExpiresAt, int64(0))

	_, err = svc.Login(ctx, &domain.LoginRequest{Password: "wrong"})
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeAuthentication))

	_, err = svc.Login(ctx, &domain.LoginRequest{})
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeValidation))
}

func TestAuthService_Verify(t *testing.T) {
	svc := newAuthService(t, "hunter2")
	ctx := context.Background()

	resp, err := svc.Login(ctx, &domain.LoginRequest{Password: "hunter2"})
	require.NoError(t, err)

	claims, err := svc.Verify(ctx, resp.Token)
	require.NoError(t, err)
	assert.Equal(t, "admin", claims.Subject)
	assert.Equal(t, "admin", claims.Role)
	assert.Equal(t, resp.ExpiresAt, claims.ExpiresAt)

	_, err = svc.Verify(ctx, "not-a-token")
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeAuthentication))

	_, err = svc.Verify(ctx, "")
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeAuthentication))

	// A token signed with another secret is rejected.
	other := newAuthService(t, "hunter2")
	otherResp, err := other.Login(ctx, &domain.LoginRequest{Password: "hunter2"})
	require.NoError(t, err)

	foreign := NewAuthService("different-secret", "", nil)
	_, err = foreign.Verify(ctx, otherResp.Token)
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeAuthentication))
}
