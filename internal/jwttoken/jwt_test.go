package jwttoken

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateAndValidate(t *testing.T) {
	svc := NewService("test-signing-key", "unionvote", time.Hour)

	token, err := svc.Generate("10001", "Asha Rao", "voter")
	require.NoError(t, err)
	require.NotEmpty(t, token)

	principal, err := svc.Validate(token)
	require.NoError(t, err)
	assert.Equal(t, "10001", principal.EmployeeID)
	assert.Equal(t, "Asha Rao", principal.Name)
	assert.Equal(t, "voter", principal.Role)
	assert.NotEmpty(t, principal.JTI, "jti keys the revocation list")
	assert.WithinDuration(t, time.Now().Add(time.Hour), principal.ExpiresAt, time.Minute)
}

func TestValidateRejectsWrongKey(t *testing.T) {
	token, err := NewService("key-one", "unionvote", time.Hour).Generate("10001", "Asha Rao", "voter")
	require.NoError(t, err)

	_, err = NewService("key-two", "unionvote", time.Hour).Validate(token)
	assert.Error(t, err)
}

func TestValidateRejectsExpiredToken(t *testing.T) {
	svc := NewService("test-signing-key", "unionvote", -time.Minute)
	token, err := svc.Generate("10001", "Asha Rao", "voter")
	require.NoError(t, err)

	_, err = svc.Validate(token)
	assert.Error(t, err)
}

func TestValidateRejectsGarbage(t *testing.T) {
	svc := NewService("test-signing-key", "unionvote", time.Hour)
	_, err := svc.Validate("not-a-token")
	assert.Error(t, err)
}
