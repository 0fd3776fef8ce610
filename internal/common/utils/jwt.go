// internal/common/utils/jwt.go
// JWT token validation for the identity boundary. Token issuance belongs to the
// external auth collaborator; this service only verifies access tokens.

package utils

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/golang-jwt/jwt/v4"
)

// JWTClaims are the claims this service reads from an access token
type JWTClaims struct {
	UserID   int64  `json:"user_id"`
	Username string `json:"username"`
	Type     string `json:"type"` // "access" or "refresh"
}

// ValidateJWT validates a JWT token and returns claims
func ValidateJWT(tokenString string, secret string) (*JWTClaims, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid token")
	}

	userID, err := parseUserID(claims)
	if err != nil {
		return nil, err
	}

	return &JWTClaims{
		UserID:   userID,
		Username: getStringClaim(claims, "username"),
		Type:     getStringClaim(claims, "type"),
	}, nil
}

// parseUserID accepts the user id as either a string or a JSON number,
// matching the token shapes the auth collaborator has issued over time
func parseUserID(claims jwt.MapClaims) (int64, error) {
	switch v := claims["user_id"].(type) {
	case string:
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return 0, errors.New("invalid user_id format")
		}
		return id, nil
	case float64:
		return int64(v), nil
	default:
		return 0, errors.New("invalid user_id in token")
	}
}

func getStringClaim(claims jwt.MapClaims, key string) string {
	if val, ok := claims[key].(string); ok {
		return val
	}
	return ""
}
