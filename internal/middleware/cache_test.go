package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"

	"github.com/iliyamo/payment-workflow/internal/config"
)

func TestCacheKeyMatchesRequestKey(t *testing.T) {
	cfg := config.CacheConfig{Prefix: "cache"}

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/v1/roles", nil)
	c := e.NewContext(req, httptest.NewRecorder())
	c.SetPath("/v1/roles")

	// Invalidation and lookup must agree on the key for a route.
	assert.Equal(t, CacheKey(cfg, "/v1/roles", ""), cacheKeyFrom(cfg, c))
	assert.NotEqual(t, CacheKey(cfg, "/v1/roles", ""), CacheKey(cfg, "/v1/users", ""))
	assert.NotEqual(t, CacheKey(cfg, "/v1/roles", ""), CacheKey(cfg, "/v1/roles", "page=2"))
}
