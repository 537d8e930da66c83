package security

import (
	"testing"
	"time"
	"trippey_quests/internal/domain/model"

	"github.com/go-chi/jwtauth/v5"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateTokenRoundTrip(t *testing.T) {
	InitJWT([]byte("test-secret"))

	token, err := GenerateToken("user-1", model.RoleAdmin, time.Hour)
	require.NoError(t, err)

	parsed, err := jwtauth.VerifyToken(TokenAuth, token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", parsed.Subject())
}

func TestClaimsHelpers(t *testing.T) {
	id, err := GetUserIDFromClaims(jwt.MapClaims{"user_id": "legacy"})
	require.NoError(t, err)
	assert.Equal(t, "legacy", id)

	id, err = GetUserIDFromClaims(jwt.MapClaims{"sub": "s-1", "user_id": "legacy"})
	require.NoError(t, err)
	assert.Equal(t, "s-1", id)

	_, err = GetUserIDFromClaims(jwt.MapClaims{})
	assert.Error(t, err)

	assert.Equal(t, model.RoleAdmin, GetUserRoleFromClaims(jwt.MapClaims{"role": "admin"}))
	assert.Equal(t, model.RoleUser, GetUserRoleFromClaims(jwt.MapClaims{"role": "authenticated"}))
	assert.Equal(t, model.RoleUser, GetUserRoleFromClaims(jwt.MapClaims{}))
}
