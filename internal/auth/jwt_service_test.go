package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestNewJWTServiceRequiresSecret(t *testing.T) {
	_, err := NewJWTService(Config{})
	require.Error(t, err)
}

func TestIssueAndValidate(t *testing.T) {
	svc, err := NewJWTService(Config{Secret: "test-secret", Issuer: "pictobank"})
	require.NoError(t, err)

	token, err := svc.Issue("user-1")
	require.NoError(t, err)

	claims, err := svc.Validate(token)
	require.NoError(t, err)
	require.Equal(t, "user-1", claims.UserID)
	require.Equal(t, "pictobank", claims.Issuer)
}

func TestValidateRejectsExpiredToken(t *testing.T) {
	issuedAt := time.Now().Add(-48 * time.Hour)
	issuer, err := NewJWTService(Config{
		Secret: "test-secret",
		Clock:  func() time.Time { return issuedAt },
	})
	require.NoError(t, err)

	token, err := issuer.Issue("user-1")
	require.NoError(t, err)

	validator, err := NewJWTService(Config{Secret: "test-secret"})
	require.NoError(t, err)

	_, err = validator.Validate(token)
	require.Error(t, err)
}

func TestValidateRejectsWrongIssuer(t *testing.T) {
	issuer, err := NewJWTService(Config{Secret: "test-secret", Issuer: "someone-else"})
	require.NoError(t, err)

	token, err := issuer.Issue("user-1")
	require.NoError(t, err)

	validator, err := NewJWTService(Config{Secret: "test-secret", Issuer: "pictobank"})
	require.NoError(t, err)

	_, err = validator.Validate(token)
	require.Error(t, err)
}

func TestIssueRequiresUserID(t *testing.T) {
	svc, err := NewJWTService(Config{Secret: "test-secret"})
	require.NoError(t, err)

	_, err = svc.Issue("")
	require.Error(t, err)
}
