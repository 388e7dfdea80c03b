package handler

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/payment-workflow/internal/config"
	"github.com/iliyamo/payment-workflow/internal/model"
	"github.com/iliyamo/payment-workflow/internal/repository"
	"github.com/iliyamo/payment-workflow/internal/utils"
)

// tokenStore is the slice of the refresh-token repository the auth
// endpoints use. *repository.TokenRepo satisfies it; tests substitute
// in-memory fakes.
type tokenStore interface {
	StoreRefresh(ctx context.Context, userID uint64, tokenHash string, exp time.Time) error
	FindByHash(ctx context.Context, tokenHash string) (model.RefreshToken, error)
	DeleteByHash(ctx context.Context, tokenHash string) error
}

// AuthHandler bundles dependencies for auth endpoints.
type AuthHandler struct {
	Cfg    config.Config
	Users  *repository.UserRepo
	Roles  *repository.RoleRepo
	Tokens tokenStore
}

func NewAuthHandler(cfg config.Config, u *repository.UserRepo, r *repository.RoleRepo, t *repository.TokenRepo) *AuthHandler {
	return &AuthHandler{Cfg: cfg, Users: u, Roles: r, Tokens: t}
}

var emailRx = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// ----- DTOs -----

type registerReq struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}
type loginReq struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}
type refreshReq struct {
	RefreshToken string `json:"refresh_token"`
}

type tokenPart struct {
	Token   string    `json:"token"`
	Expires time.Time `json:"expires"`
}
type authResp struct {
	User    userView  `json:"user"`
	Access  tokenPart `json:"access"`
	Refresh tokenPart `json:"refresh"`
}

// Register creates a user under the default role and returns a token
// pair immediately.
func (h *AuthHandler) Register(c echo.Context) error {
	var req registerReq
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "invalid body")
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	var errs []ErrorDetail
	if !emailRx.MatchString(req.Email) {
		errs = append(errs, ErrorDetail{Field: "email", Message: "must be a valid email address"})
	}
	if len(req.Password) < 8 {
		errs = append(errs, ErrorDetail{Field: "password", Message: "must be at least 8 characters"})
	}
	if len(errs) > 0 {
		return fail(c, http.StatusBadRequest, "validation failed", errs...)
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	role, err := h.Roles.GetByName(ctx, defaultRoleName)
	if err != nil {
		return fail(c, http.StatusInternalServerError, "default role missing")
	}
	hash, err := utils.HashPassword(req.Password, h.Cfg.BcryptCost)
	if err != nil {
		return fail(c, http.StatusInternalServerError, "hash password failed")
	}
	u := newUserRecord(req, hash, role.ID)
	if err := h.Users.Create(ctx, &u); err != nil {
		if errors.Is(err, repository.ErrEmailExists) {
			return fail(c, http.StatusConflict, "email already exists")
		}
		return fail(c, http.StatusInternalServerError, "create user failed")
	}
	_ = h.Users.TouchLastLogin(ctx, u.ID)

	resp, err := h.issuePair(ctx, u.ID, u.Email, role.ID)
	if err != nil {
		return fail(c, http.StatusInternalServerError, "issue tokens failed")
	}
	resp.User = viewUser(u)
	resp.User.RoleName = role.Name
	return respond(c, http.StatusCreated, "registered", resp)
}

// Login verifies credentials and returns a new token pair.
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginReq
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "invalid body")
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if req.Email == "" || req.Password == "" {
		return fail(c, http.StatusBadRequest, "email/password required")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	u, err := h.Users.GetByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return fail(c, http.StatusUnauthorized, "invalid credentials")
		}
		return fail(c, http.StatusInternalServerError, "query failed")
	}
	if !utils.VerifyPassword(u.PasswordHash, req.Password) {
		return fail(c, http.StatusUnauthorized, "invalid credentials")
	}
	if !u.IsActive {
		return fail(c, http.StatusForbidden, "account is deactivated")
	}
	_ = h.Users.TouchLastLogin(ctx, u.ID)

	resp, err := h.issuePair(ctx, u.ID, u.Email, u.RoleID)
	if err != nil {
		return fail(c, http.StatusInternalServerError, "issue tokens failed")
	}
	resp.User = viewUser(u)
	if role, err := h.Roles.GetByID(ctx, u.RoleID); err == nil {
		resp.User.RoleName = role.Name
	}
	return respond(c, http.StatusOK, "logged in", resp)
}

// Refresh validates a refresh token against both its signature and
// the persisted record, then returns a fresh access token. The
// refresh token itself is not rotated; the same token keeps working
// until it expires. An expired token is removed from storage on
// sight, whichever of the two expiry checks catches it first.
func (h *AuthHandler) Refresh(c echo.Context) error {
	var req refreshReq
	if err := c.Bind(&req); err != nil || strings.TrimSpace(req.RefreshToken) == "" {
		return fail(c, http.StatusBadRequest, "refresh_token required")
	}
	raw := strings.TrimSpace(req.RefreshToken)

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	userID, err := utils.ParseRefreshToken(h.Cfg.RefreshSecret, raw)
	if err != nil {
		if errors.Is(err, utils.ErrExpiredToken) {
			// The signed expiry and the persisted row expire at the
			// same instant, so an expired signature means a stale row;
			// drop it now instead of leaving it until logout.
			_ = h.Tokens.DeleteByHash(ctx, utils.HashRefreshRaw(raw))
			return fail(c, http.StatusUnauthorized, "refresh token expired")
		}
		return fail(c, http.StatusUnauthorized, "invalid refresh token")
	}

	hash := utils.HashRefreshRaw(raw)
	rec, err := h.Tokens.FindByHash(ctx, hash)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return fail(c, http.StatusUnauthorized, "refresh session not found")
		}
		return fail(c, http.StatusInternalServerError, "query failed")
	}
	if repository.Expired(rec) {
		// Record expiry can lead the signed expiry under clock skew.
		_ = h.Tokens.DeleteByHash(ctx, hash)
		return fail(c, http.StatusUnauthorized, "refresh session expired")
	}
	if rec.UserID != userID {
		return fail(c, http.StatusUnauthorized, "invalid refresh token")
	}

	u, err := h.Users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return fail(c, http.StatusUnauthorized, "invalid refresh token")
		}
		return fail(c, http.StatusInternalServerError, "load user failed")
	}
	if !u.IsActive {
		return fail(c, http.StatusForbidden, "account is deactivated")
	}

	access, err := utils.NewAccessToken(h.Cfg.AccessSecret, u.ID, u.Email, u.RoleID, h.Cfg.AccessTTLMin)
	if err != nil {
		return fail(c, http.StatusInternalServerError, "issue access failed")
	}
	return respond(c, http.StatusOK, "access token refreshed", echo.Map{
		"access": tokenPart{Token: access.Token, Expires: access.Exp},
	})
}

// Logout deletes the persisted record matching the supplied refresh
// token. A token with no matching record still logs out cleanly.
func (h *AuthHandler) Logout(c echo.Context) error {
	var req refreshReq
	if err := c.Bind(&req); err != nil || strings.TrimSpace(req.RefreshToken) == "" {
		return fail(c, http.StatusBadRequest, "refresh_token required")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	hash := utils.HashRefreshRaw(strings.TrimSpace(req.RefreshToken))
	if err := h.Tokens.DeleteByHash(ctx, hash); err != nil {
		return fail(c, http.StatusInternalServerError, "logout failed")
	}
	return respond(c, http.StatusOK, "logged out", nil)
}

// Me returns the authenticated caller's profile and resolved
// permission snapshot.
func (h *AuthHandler) Me(c echo.Context) error {
	caller, ok := callerFrom(c)
	if !ok {
		return fail(c, http.StatusUnauthorized, "unauthenticated")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	u, err := h.Users.GetByID(ctx, caller.ID)
	if err != nil {
		return fail(c, http.StatusInternalServerError, "load user failed")
	}
	view := viewUser(u)
	view.RoleName = caller.RoleName
	return respond(c, http.StatusOK, "ok", echo.Map{
		"user":        view,
		"permissions": caller.Permissions.Slice(),
	})
}

// issuePair creates an access/refresh token pair and persists the
// refresh token hash.
func (h *AuthHandler) issuePair(ctx context.Context, userID uint64, email string, roleID uint64) (authResp, error) {
	access, err := utils.NewAccessToken(h.Cfg.AccessSecret, userID, email, roleID, h.Cfg.AccessTTLMin)
	if err != nil {
		return authResp{}, err
	}
	refresh, err := utils.NewRefreshToken(h.Cfg.RefreshSecret, userID, h.Cfg.RefreshTTLDays)
	if err != nil {
		return authResp{}, err
	}
	if err := h.Tokens.StoreRefresh(ctx, userID, utils.HashRefreshRaw(refresh.Token), refresh.Exp); err != nil {
		return authResp{}, err
	}
	return authResp{
		Access:  tokenPart{Token: access.Token, Expires: access.Exp},
		Refresh: tokenPart{Token: refresh.Token, Expires: refresh.Exp}, // raw back to client
	}, nil
}
