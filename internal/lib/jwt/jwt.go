package jwt

import (
	"errors"
	"time"

	"diary_console/internal/domain/models"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrInvalidToken       = errors.New("invalid token")
	ErrInvalidTokenClaims = errors.New("invalid token claims")
	ErrTokenExpired       = errors.New("token expired")
)

// Claims are the fields the console reads out of an access token.
type Claims struct {
	UserID   string
	Username string
	Nickname string
	Role     models.Role
	Expires  time.Time
}

// Parse reads claims without verifying the signature. Verification is the
// server's job; the console only needs role and expiry to decide whether a
// stored token is still worth sending.
func Parse(tokenString string) (Claims, error) {
	token, _, err := new(jwt.Parser).ParseUnverified(tokenString, jwt.MapClaims{})
	if err != nil {
		return Claims{}, ErrInvalidToken
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return Claims{}, ErrInvalidTokenClaims
	}

	out := Claims{Role: models.RoleUser}
	if uid, ok := claims["uid"].(string); ok {
		out.UserID = uid
	}
	if username, ok := claims["username"].(string); ok {
		out.Username = username
	}
	if nickname, ok := claims["nickname"].(string); ok {
		out.Nickname = nickname
	}
	if role, ok := claims["role"].(string); ok && role != "" {
		out.Role = models.Role(role)
	}
	if exp, ok := claims["exp"].(float64); ok {
		out.Expires = time.Unix(int64(exp), 0)
	}

	if out.UserID == "" {
		return Claims{}, ErrInvalidTokenClaims
	}
	if !out.Expires.IsZero() && time.Now().After(out.Expires) {
		return Claims{}, ErrTokenExpired
	}

	return out, nil
}

// NewToken mints an access token for user. Used by the stub server.
func NewToken(user models.User, secret string, duration time.Duration) (string, error) {
	token := jwt.New(jwt.SigningMethodHS256)

	claims := token.Claims.(jwt.MapClaims)
	claims["uid"] = user.ID
	claims["username"] = user.Username
	claims["nickname"] = user.Nickname
	claims["role"] = string(user.Role)
	claims["iat"] = time.Now().Unix()
	claims["exp"] = time.Now().Add(duration).Unix()

	return token.SignedString([]byte(secret))
}
