package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/payment-workflow/internal/auth"
)

func newTestContext(t *testing.T, target string) (echo.Context, *httptest.ResponseRecorder) {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestRespondEnvelope(t *testing.T) {
	c, rec := newTestContext(t, "/")
	require.NoError(t, respond(c, http.StatusCreated, "created", echo.Map{"id": 1}))

	assert.Equal(t, http.StatusCreated, rec.Code)
	body := decodeEnvelope(t, rec)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, "created", body["message"])
	assert.NotNil(t, body["data"])
	assert.NotEmpty(t, body["timestamp"])
	_, hasErrors := body["errors"]
	assert.False(t, hasErrors)
}

func TestFailEnvelope(t *testing.T) {
	c, rec := newTestContext(t, "/")
	require.NoError(t, fail(c, http.StatusBadRequest, "validation failed",
		ErrorDetail{Field: "amount", Message: "must be greater than zero"}))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	body := decodeEnvelope(t, rec)
	assert.Equal(t, false, body["success"])
	assert.Equal(t, "validation failed", body["message"])
	errs, ok := body["errors"].([]interface{})
	require.True(t, ok)
	require.Len(t, errs, 1)
	first := errs[0].(map[string]interface{})
	assert.Equal(t, "amount", first["field"])
}

func TestForbiddenNamesRequiredAndHeldPermissions(t *testing.T) {
	c, rec := newTestContext(t, "/")
	caller := auth.Caller{
		ID:          9,
		Permissions: auth.NewPermissionSet([]string{auth.PermPaymentsRead}),
	}
	require.NoError(t, forbidden(c, caller, auth.PermPaymentsReadAll))

	assert.Equal(t, http.StatusForbidden, rec.Code)
	body := decodeEnvelope(t, rec)
	assert.Equal(t, false, body["success"])
	errs := body["errors"].([]interface{})
	require.Len(t, errs, 2)
	required := errs[0].(map[string]interface{})
	held := errs[1].(map[string]interface{})
	assert.Equal(t, "required", required["field"])
	assert.Contains(t, required["message"], auth.PermPaymentsReadAll)
	assert.Equal(t, "held", held["field"])
	assert.Contains(t, held["message"], auth.PermPaymentsRead)
}

func TestCallerFrom(t *testing.T) {
	c, _ := newTestContext(t, "/")
	_, ok := callerFrom(c)
	assert.False(t, ok)

	want := auth.Caller{ID: 3, Email: "u@example.com"}
	c.Set(auth.CallerKey, want)
	got, ok := callerFrom(c)
	assert.True(t, ok)
	assert.Equal(t, want.ID, got.ID)
}

func TestQueryInt(t *testing.T) {
	c, _ := newTestContext(t, "/?page=3&junk=x")
	assert.Equal(t, 3, queryInt(c, "page", 1))
	assert.Equal(t, 1, queryInt(c, "missing", 1))
	assert.Equal(t, 5, queryInt(c, "junk", 5))
}
