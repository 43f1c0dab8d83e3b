package inkwell

import (
	"crypto/subtle"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	gonanoid "github.com/matoous/go-nanoid/v2"
)

// APIKeyHeader is the request header carrying the bearer secret for the
// read-only API.
const APIKeyHeader = "x-api-key"

const (
	apiKeyAlphabet = "abcdefghijklmnopqrstuvwxyz0123456789"
	apiKeyLength   = 26
)

// MintAPIKey creates a named key with a fresh ak_-prefixed random secret.
func MintAPIKey(name string) (APIKey, error) {
	secret, err := gonanoid.Generate(apiKeyAlphabet, apiKeyLength)
	if err != nil {
		return APIKey{}, err
	}
	return APIKey{
		Name:      name,
		Key:       "ak_" + secret,
		CreatedAt: time.Now().UTC().Format(time.RFC3339),
	}, nil
}

// Authorize reports whether presented exactly matches the Key of some
// registry entry. An empty presented value or an empty registry always
// denies. Each candidate is compared in constant time so the scan does not
// leak how much of a key matched.
func Authorize(registry []APIKey, presented string) bool {
	if presented == "" {
		return false
	}
	allowed := false
	for _, k := range registry {
		if subtle.ConstantTimeCompare([]byte(k.Key), []byte(presented)) == 1 {
			allowed = true
		}
	}
	return allowed
}

// requireAPIKey gates the read-only API. The registry is loaded from the
// settings table on every request, never cached, and any load failure
// yields an empty registry, which denies.
func (a *App) requireAPIKey(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		presented := c.Request().Header.Get(APIKeyHeader)
		if !Authorize(a.Store.APIKeys(), presented) {
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "Unauthorized"})
		}
		return next(c)
	}
}
