package httpapi

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	capabilityx "github.com/tanpawarit/kcartbot/agent/capability"
	"github.com/tanpawarit/kcartbot/marketplace/model"
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrUnknownUser  = errors.New("unknown user")
)

// Claims carry the user id as the JWT subject.
type Claims struct {
	Role string `json:"role,omitempty"`
	jwt.RegisteredClaims
}

// IssueToken signs an HS256 token for the user.
func IssueToken(secret string, u *model.User, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		Role: string(u.Role),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   u.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}

func ValidateToken(secret, tokenStr string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !token.Valid || strings.TrimSpace(claims.Subject) == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// Users looks up the account behind a token.
type Users interface {
	GetUser(ctx context.Context, id string) (*model.User, error)
}

type authenticator struct {
	secret string
	users  Users
}

// resolve returns nil for an empty token. The user record is always reloaded so a
// role change takes effect without reissuing tokens.
func (a authenticator) resolve(ctx context.Context, token string) (*model.User, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, nil
	}
	claims, err := ValidateToken(a.secret, token)
	if err != nil {
		return nil, err
	}
	u, err := a.users.GetUser(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrUnknownUser, claims.Subject)
		}
		return nil, err
	}
	return u, nil
}

func actorFor(u *model.User) *capabilityx.Actor {
	if u == nil {
		return nil
	}
	return &capabilityx.Actor{
		ID:   u.ID,
		Name: u.Name,
		Role: capabilityx.ParseRole(string(u.Role)),
	}
}
