package security

import (
	"errors"
	"time"
	"trippey_quests/internal/domain/model"

	"github.com/go-chi/jwtauth/v5"
	"github.com/golang-jwt/jwt/v5"
)

var TokenAuth *jwtauth.JWTAuth

// InitJWT configures verification of HS256 tokens issued by the auth provider.
func InitJWT(secret []byte) {
	TokenAuth = jwtauth.New("HS256", secret, nil)
}

// GenerateToken mints a token the way the auth provider does. Used by tests
// and local tooling; production tokens come from outside this service.
func GenerateToken(userID, role string, ttl time.Duration) (string, error) {
	if TokenAuth == nil {
		return "", errors.New("jwt not initialised")
	}
	now := time.Now()
	claims := jwt.MapClaims{
		"sub":  userID,
		"role": role,
		"exp":  now.Add(ttl).Unix(),
		"iat":  now.Unix(),
	}
	_, tokenString, err := TokenAuth.Encode(claims)
	return tokenString, err
}

// GetUserIDFromClaims reads "sub", falling back to the legacy "user_id" claim.
func GetUserIDFromClaims(claims jwt.MapClaims) (string, error) {
	if sub, err := claims.GetSubject(); err == nil && sub != "" {
		return sub, nil
	}
	if id, ok := claims["user_id"].(string); ok && id != "" {
		return id, nil
	}
	return "", errors.New("sub claim is missing or not a string")
}

// GetUserRoleFromClaims defaults to a plain user when the token carries no
// role of ours.
func GetUserRoleFromClaims(claims jwt.MapClaims) string {
	if role, _ := claims["role"].(string); role == model.RoleAdmin {
		return model.RoleAdmin
	}
	return model.RoleUser
}
