package token

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "licensing/pkg/domain-errors"
)

var jwtService = NewJWTService("test-signing-key", "test-issuer")

func Test_GenerateAccessToken(t *testing.T) {
	tok, expiresAt, err := jwtService.GenerateAccessToken("staff-1", "admin", time.Hour)
	require.NoError(t, err)
	require.NotEmpty(t, tok)
	assert.WithinDuration(t, time.Now().Add(time.Hour), expiresAt, time.Minute)

	claims, err := jwtService.ValidateToken(tok)
	require.NoError(t, err)
	assert.Equal(t, "staff-1", claims.Subject)
	assert.Equal(t, "admin", claims.Role)
}

func Test_ValidateToken_InvalidToken(t *testing.T) {
	_, err := jwtService.ValidateToken("invalid-token-string")
	assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
}

func Test_ValidateToken_ExpiredToken(t *testing.T) {
	tok, _, err := jwtService.GenerateAccessToken("staff-1", "admin", -time.Hour)
	require.NoError(t, err)

	_, err = jwtService.ValidateToken(tok)
	require.Error(t, err)
	assert.Equal(t, "token has expired", err.Error())
}

func Test_ValidateToken_WrongKeyOrIssuer(t *testing.T) {
	other := NewJWTService("other-key", "test-issuer")
	tok, _, err := other.GenerateAccessToken("staff-1", "admin", time.Hour)
	require.NoError(t, err)
	_, err = jwtService.ValidateToken(tok)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))

	foreign := NewJWTService("test-signing-key", "someone-else")
	tok, _, err = foreign.GenerateAccessToken("staff-1", "admin", time.Hour)
	require.NoError(t, err)
	_, err = jwtService.ValidateToken(tok)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
}
