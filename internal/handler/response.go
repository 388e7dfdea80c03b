package handler

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/payment-workflow/internal/auth"
)

// ErrorDetail describes one field-level or general problem inside an
// error response.
type ErrorDetail struct {
	Field   string `json:"field,omitempty"`
	Message string `json:"message"`
}

// envelope is the uniform response body used by every endpoint:
// a success flag, a human-readable message, the optional payload, the
// optional error descriptors and a server timestamp.
type envelope struct {
	Success   bool          `json:"success"`
	Message   string        `json:"message"`
	Data      interface{}   `json:"data,omitempty"`
	Errors    []ErrorDetail `json:"errors,omitempty"`
	Timestamp time.Time     `json:"timestamp"`
}

// respond writes a success envelope.
func respond(c echo.Context, status int, msg string, data interface{}) error {
	return c.JSON(status, envelope{
		Success:   true,
		Message:   msg,
		Data:      data,
		Timestamp: time.Now().UTC(),
	})
}

// fail writes an error envelope with optional detail descriptors.
func fail(c echo.Context, status int, msg string, errs ...ErrorDetail) error {
	return c.JSON(status, envelope{
		Success:   false,
		Message:   msg,
		Errors:    errs,
		Timestamp: time.Now().UTC(),
	})
}

// forbidden writes a 403 naming the permissions the operation
// required and the ones the caller actually held. Resource data is
// never echoed back here.
func forbidden(c echo.Context, caller auth.Caller, required ...string) error {
	return fail(c, http.StatusForbidden, "insufficient permissions",
		ErrorDetail{Field: "required", Message: strings.Join(required, ", ")},
		ErrorDetail{Field: "held", Message: strings.Join(caller.Permissions.Slice(), ", ")},
	)
}

// callerFrom extracts the authenticated caller attached by the JWT
// middleware. The bool is false on routes that skipped it.
func callerFrom(c echo.Context) (auth.Caller, bool) {
	cl, ok := c.Get(auth.CallerKey).(auth.Caller)
	return cl, ok
}

// pathID parses the numeric :id path parameter.
func pathID(c echo.Context) (uint64, error) {
	return strconv.ParseUint(c.Param("id"), 10, 64)
}

// queryInt parses an optional integer query parameter, falling back
// to def when absent or malformed.
func queryInt(c echo.Context, name string, def int) int {
	v := c.QueryParam(name)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}
