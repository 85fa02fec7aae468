package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adenafil/campus-timetable-api/internal/models"
	appErrors "github.com/adenafil/campus-timetable-api/pkg/errors"
)

func TestAuthServiceIssueAndValidate(t *testing.T) {
	svc := NewAuthService(nil, nil, AuthConfig{Secret: "fixture-secret"})

	resp, err := svc.IssueToken(models.TokenRequest{Subject: "scheduler-bot", Role: models.RoleAdmin})
	require.NoError(t, err)
	require.NotEmpty(t, resp.Token)
	assert.Greater(t, resp.ExpiresAt, time.Now().Unix())

	claims, err := svc.ValidateToken(resp.Token)
	require.NoError(t, err)
	assert.Equal(t, "scheduler-bot", claims.Subject)
	assert.Equal(t, models.RoleAdmin, claims.Role)
	assert.Equal(t, "campus-timetable-api", claims.Issuer)
}

func TestAuthServiceDefaultsRole(t *testing.T) {
	svc := NewAuthService(nil, nil, AuthConfig{Secret: "fixture-secret"})

	resp, err := svc.IssueToken(models.TokenRequest{Subject: "scheduler-bot"})
	require.NoError(t, err)

	claims, err := svc.ValidateToken(resp.Token)
	require.NoError(t, err)
	assert.Equal(t, models.RoleScheduler, claims.Role)
}

func TestAuthServiceRejectsInvalidPayload(t *testing.T) {
	svc := NewAuthService(nil, nil, AuthConfig{Secret: "fixture-secret"})

	_, err := svc.IssueToken(models.TokenRequest{Role: models.RoleAdmin})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)

	_, err = svc.IssueToken(models.TokenRequest{Subject: "scheduler-bot", Role: "superuser"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestAuthServiceRejectsWrongSecret(t *testing.T) {
	issuer := NewAuthService(nil, nil, AuthConfig{Secret: "fixture-secret"})
	verifier := NewAuthService(nil, nil, AuthConfig{Secret: "other-secret"})

	resp, err := issuer.IssueToken(models.TokenRequest{Subject: "scheduler-bot"})
	require.NoError(t, err)

	_, err = verifier.ValidateToken(resp.Token)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrUnauthorized.Code, appErrors.FromError(err).Code)
}

func TestAuthServiceRejectsExpiredToken(t *testing.T) {
	issuer := NewAuthService(nil, nil, AuthConfig{Secret: "fixture-secret", Expiration: time.Nanosecond})

	resp, err := issuer.IssueToken(models.TokenRequest{Subject: "scheduler-bot"})
	require.NoError(t, err)

	time.Sleep(5 * time.Millisecond)

	_, err = issuer.ValidateToken(resp.Token)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrUnauthorized.Code, appErrors.FromError(err).Code)
}

func TestAuthServiceRejectsGarbageToken(t *testing.T) {
	svc := NewAuthService(nil, nil, AuthConfig{Secret: "fixture-secret"})

	_, err := svc.ValidateToken("not-a-token")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrUnauthorized.Code, appErrors.FromError(err).Code)
}
