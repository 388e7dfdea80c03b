package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/payment-workflow/internal/config"
	"github.com/iliyamo/payment-workflow/internal/model"
	"github.com/iliyamo/payment-workflow/internal/utils"
)

// fakeTokenStore records refresh-token repository calls in memory.
type fakeTokenStore struct {
	stored  []string
	deleted []string
	rec     model.RefreshToken
	findErr error
}

func (f *fakeTokenStore) StoreRefresh(_ context.Context, _ uint64, tokenHash string, _ time.Time) error {
	f.stored = append(f.stored, tokenHash)
	return nil
}

func (f *fakeTokenStore) FindByHash(_ context.Context, _ string) (model.RefreshToken, error) {
	return f.rec, f.findErr
}

func (f *fakeTokenStore) DeleteByHash(_ context.Context, tokenHash string) error {
	f.deleted = append(f.deleted, tokenHash)
	return nil
}

func newJSONContext(t *testing.T, method, target, body string) (echo.Context, *httptest.ResponseRecorder) {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func TestRefreshAfterExpiryRemovesStaleSession(t *testing.T) {
	const secret = "refresh-secret"
	expired, err := utils.NewRefreshToken(secret, 42, -1)
	require.NoError(t, err)

	store := &fakeTokenStore{}
	h := &AuthHandler{Cfg: config.Config{RefreshSecret: secret}, Tokens: store}

	c, rec := newJSONContext(t, http.MethodPost, "/v1/auth/refresh",
		`{"refresh_token":"`+expired.Token+`"}`)
	require.NoError(t, h.Refresh(c))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	body := decodeEnvelope(t, rec)
	assert.Equal(t, "refresh token expired", body["message"])

	// The stale persisted row must go with the expired signature.
	require.Len(t, store.deleted, 1)
	assert.Equal(t, utils.HashRefreshRaw(expired.Token), store.deleted[0])
}

func TestRefreshInvalidTokenLeavesStoreAlone(t *testing.T) {
	store := &fakeTokenStore{}
	h := &AuthHandler{Cfg: config.Config{RefreshSecret: "refresh-secret"}, Tokens: store}

	c, rec := newJSONContext(t, http.MethodPost, "/v1/auth/refresh",
		`{"refresh_token":"not-a-jwt"}`)
	require.NoError(t, h.Refresh(c))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	body := decodeEnvelope(t, rec)
	assert.Equal(t, "invalid refresh token", body["message"])
	assert.Empty(t, store.deleted)
}
