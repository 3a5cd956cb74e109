package middleware // reusable HTTP middleware functions

import (
	"errors"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/eventdesk/internal/logging"
)

// JWTAuth returns an Echo middleware that validates a Bearer access token and
// injects the token's subject into the request context.  The provided
// secret must match the one used when issuing tokens.  Handlers read the
// authenticated organizer via UserID(c).
//
// Browsers cannot set headers on websocket upgrades, so the token is also
// accepted from the access_token query parameter.
func JWTAuth(secret string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			raw := BearerToken(c)
			if raw == "" {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "missing bearer token"})
			}

			sub, err := ParseSubject(secret, raw)
			if err != nil {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": err.Error()})
			}

			c.Set(userIDKey, sub)
			req := c.Request()
			c.SetRequest(req.WithContext(logging.WithUserID(req.Context(), sub)))
			return next(c)
		}
	}
}

var (
	errInvalidToken  = errors.New("invalid token")
	errInvalidClaims = errors.New("invalid claims")
)

// ParseSubject verifies an HS256 access token and returns its subject.
func ParseSubject(secret, raw string) (string, error) {
	tok, err := jwt.Parse(raw, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, echo.ErrUnauthorized
		}
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !tok.Valid {
		return "", errInvalidToken
	}
	sub, err := tok.Claims.GetSubject()
	if err != nil || sub == "" {
		return "", errInvalidClaims
	}
	return sub, nil
}

// BearerToken returns the raw token from the Authorization header or the
// access_token query parameter.
func BearerToken(c echo.Context) string {
	if auth := c.Request().Header.Get("Authorization"); strings.HasPrefix(auth, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(auth, "Bearer "))
	}
	return c.QueryParam("access_token")
}
