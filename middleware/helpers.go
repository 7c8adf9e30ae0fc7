package middleware

import (
	"context"
	"fmt"
	"strconv"

	"github.com/Dosada05/arcade-tournaments/models"
	"github.com/golang-jwt/jwt/v4"
)

// JWT claim names issued by the identity service.
const (
	jwtClaimUserID   = "user_id"
	jwtClaimUsername = "username"
	jwtClaimEmail    = "email"
)

func WithUser(ctx context.Context, user models.AuthUser) context.Context {
	return context.WithValue(ctx, userContextKey, user)
}

func GetUserFromContext(ctx context.Context) (models.AuthUser, error) {
	user, ok := ctx.Value(userContextKey).(models.AuthUser)
	if !ok {
		return models.AuthUser{}, errNoUserInContext
	}
	return user, nil
}

func userFromClaims(claims jwt.MapClaims) (models.AuthUser, error) {
	id, err := userIDFromClaims(claims)
	if err != nil {
		return models.AuthUser{}, err
	}

	username, ok := claims[jwtClaimUsername].(string)
	if !ok || username == "" {
		return models.AuthUser{}, fmt.Errorf("missing '%s' claim in token", jwtClaimUsername)
	}

	email, _ := claims[jwtClaimEmail].(string)
	return models.AuthUser{ID: id, Username: username, Email: email}, nil
}

// userIDFromClaims accepts the id as a JSON number or a numeric string.
func userIDFromClaims(claims jwt.MapClaims) (int64, error) {
	raw, ok := claims[jwtClaimUserID]
	if !ok {
		return 0, fmt.Errorf("missing '%s' claim in token", jwtClaimUserID)
	}

	var id int64
	switch v := raw.(type) {
	case float64:
		if v != float64(int64(v)) {
			return 0, fmt.Errorf("'%s' claim is not an integer: %f", jwtClaimUserID, v)
		}
		id = int64(v)
	case string:
		parsed, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("invalid '%s' claim %q: %w", jwtClaimUserID, v, err)
		}
		id = parsed
	default:
		return 0, fmt.Errorf("invalid type for '%s' claim: expected number or string, got %T", jwtClaimUserID, raw)
	}

	if id <= 0 {
		return 0, fmt.Errorf("invalid user ID value in '%s' claim: %d", jwtClaimUserID, id)
	}
	return id, nil
}
