package handler

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/payment-workflow/internal/auth"
	"github.com/iliyamo/payment-workflow/internal/model"
	"github.com/iliyamo/payment-workflow/internal/repository"
)

// defaultRoleName is the role attached to every new registration.
const defaultRoleName = auth.RoleUser

// UserHandler bundles dependencies for user management endpoints.
type UserHandler struct {
	Users  *repository.UserRepo
	Roles  *repository.RoleRepo
	Tokens *repository.TokenRepo
}

func NewUserHandler(u *repository.UserRepo, r *repository.RoleRepo, t *repository.TokenRepo) *UserHandler {
	return &UserHandler{Users: u, Roles: r, Tokens: t}
}

// userView is the outward representation of a user. The password
// hash never appears here.
type userView struct {
	ID          uint64     `json:"id"`
	Email       string     `json:"email"`
	FirstName   string     `json:"first_name"`
	LastName    string     `json:"last_name"`
	RoleID      uint64     `json:"role_id"`
	RoleName    string     `json:"role_name,omitempty"`
	IsActive    bool       `json:"is_active"`
	LastLoginAt *time.Time `json:"last_login_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

func viewUser(u model.User) userView {
	return userView{
		ID:          u.ID,
		Email:       u.Email,
		FirstName:   u.FirstName,
		LastName:    u.LastName,
		RoleID:      u.RoleID,
		IsActive:    u.IsActive,
		LastLoginAt: u.LastLoginAt,
		CreatedAt:   u.CreatedAt,
	}
}

func newUserRecord(req registerReq, hash string, roleID uint64) model.User {
	return model.User{
		Email:        req.Email,
		PasswordHash: hash,
		FirstName:    strings.TrimSpace(req.FirstName),
		LastName:     strings.TrimSpace(req.LastName),
		RoleID:       roleID,
		IsActive:     true,
	}
}

type updateUserReq struct {
	Email     *string `json:"email"`
	FirstName *string `json:"first_name"`
	LastName  *string `json:"last_name"`
	IsActive  *bool   `json:"is_active"`
}

type changeRoleReq struct {
	RoleID uint64 `json:"role_id"`
}

type listMeta struct {
	Page    int `json:"page"`
	PerPage int `json:"per_page"`
	Total   int `json:"total"`
}

// List returns a filtered, paginated user listing. Requires the
// users:read permission.
func (h *UserHandler) List(c echo.Context) error {
	caller, ok := callerFrom(c)
	if !ok {
		return fail(c, http.StatusUnauthorized, "unauthenticated")
	}
	if !auth.HasAny(caller.Permissions, auth.PermUsersRead) {
		return forbidden(c, caller, auth.PermUsersRead)
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	filter := repository.UserFilter{
		RoleID:  uint64(queryInt(c, "role_id", 0)),
		Search:  c.QueryParam("search"),
		Page:    queryInt(c, "page", 1),
		PerPage: queryInt(c, "per_page", 20),
	}
	users, total, err := h.Users.List(ctx, filter)
	if err != nil {
		return fail(c, http.StatusInternalServerError, "list users failed")
	}
	views := make([]userView, 0, len(users))
	for _, u := range users {
		views = append(views, viewUser(u))
	}
	return respond(c, http.StatusOK, "ok", echo.Map{
		"users": views,
		"meta":  listMeta{Page: filter.Page, PerPage: filter.PerPage, Total: total},
	})
}

// Get returns a single user. Callers may always read their own
// record; reading anyone else requires users:read.
func (h *UserHandler) Get(c echo.Context) error {
	caller, ok := callerFrom(c)
	if !ok {
		return fail(c, http.StatusUnauthorized, "unauthenticated")
	}
	id, err := pathID(c)
	if err != nil {
		return fail(c, http.StatusBadRequest, "invalid user id")
	}
	if !auth.IsOwnerOrPermitted(id, caller.ID, caller.Permissions, auth.PermUsersRead) {
		return forbidden(c, caller, auth.PermUsersRead)
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	u, err := h.Users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return fail(c, http.StatusNotFound, "user not found")
		}
		return fail(c, http.StatusInternalServerError, "load user failed")
	}
	view := viewUser(u)
	if role, err := h.Roles.GetByID(ctx, u.RoleID); err == nil {
		view.RoleName = role.Name
	}
	return respond(c, http.StatusOK, "ok", view)
}

// Update modifies profile fields. Callers may update their own
// profile; updating anyone else requires users:write. Changing the
// active-status flag always requires users:write, even on the
// caller's own record.
func (h *UserHandler) Update(c echo.Context) error {
	caller, ok := callerFrom(c)
	if !ok {
		return fail(c, http.StatusUnauthorized, "unauthenticated")
	}
	id, err := pathID(c)
	if err != nil {
		return fail(c, http.StatusBadRequest, "invalid user id")
	}
	if !auth.IsOwnerOrPermitted(id, caller.ID, caller.Permissions, auth.PermUsersWrite) {
		return forbidden(c, caller, auth.PermUsersWrite)
	}

	var req updateUserReq
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "invalid body")
	}
	if req.IsActive != nil && !auth.HasAny(caller.Permissions, auth.PermUsersWrite) {
		return fail(c, http.StatusForbidden, "cannot change own active status",
			ErrorDetail{Field: "is_active", Message: "requires " + auth.PermUsersWrite})
	}
	if req.Email != nil {
		normalized := strings.ToLower(strings.TrimSpace(*req.Email))
		if !emailRx.MatchString(normalized) {
			return fail(c, http.StatusBadRequest, "validation failed",
				ErrorDetail{Field: "email", Message: "must be a valid email address"})
		}
		req.Email = &normalized
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	u, err := h.Users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return fail(c, http.StatusNotFound, "user not found")
		}
		return fail(c, http.StatusInternalServerError, "load user failed")
	}
	if req.Email != nil {
		u.Email = *req.Email
	}
	if req.FirstName != nil {
		u.FirstName = strings.TrimSpace(*req.FirstName)
	}
	if req.LastName != nil {
		u.LastName = strings.TrimSpace(*req.LastName)
	}
	if req.IsActive != nil {
		u.IsActive = *req.IsActive
	}
	if err := h.Users.Update(ctx, &u); err != nil {
		if errors.Is(err, repository.ErrEmailExists) {
			return fail(c, http.StatusConflict, "email already exists")
		}
		return fail(c, http.StatusInternalServerError, "update user failed")
	}
	return respond(c, http.StatusOK, "user updated", viewUser(u))
}

// Delete removes a user account. Self-deletion is refused before any
// permission evaluation; deleting anyone else requires users:delete.
// The user's refresh tokens are removed with the account.
func (h *UserHandler) Delete(c echo.Context) error {
	caller, ok := callerFrom(c)
	if !ok {
		return fail(c, http.StatusUnauthorized, "unauthenticated")
	}
	id, err := pathID(c)
	if err != nil {
		return fail(c, http.StatusBadRequest, "invalid user id")
	}
	if id == caller.ID {
		return fail(c, http.StatusForbidden, "cannot delete own account")
	}
	if !auth.HasAny(caller.Permissions, auth.PermUsersDelete) {
		return forbidden(c, caller, auth.PermUsersDelete)
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := h.Users.Delete(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return fail(c, http.StatusNotFound, "user not found")
		}
		return fail(c, http.StatusInternalServerError, "delete user failed")
	}
	_ = h.Tokens.DeleteAllForUser(ctx, id)
	return respond(c, http.StatusOK, "user deleted", nil)
}

// ChangeRole reassigns a user to a different role. Changing one's
// own role is refused before any permission evaluation; changing
// anyone else requires roles:assign.
func (h *UserHandler) ChangeRole(c echo.Context) error {
	caller, ok := callerFrom(c)
	if !ok {
		return fail(c, http.StatusUnauthorized, "unauthenticated")
	}
	id, err := pathID(c)
	if err != nil {
		return fail(c, http.StatusBadRequest, "invalid user id")
	}
	if id == caller.ID {
		return fail(c, http.StatusForbidden, "cannot change own role")
	}
	if !auth.HasAny(caller.Permissions, auth.PermRolesAssign) {
		return forbidden(c, caller, auth.PermRolesAssign)
	}

	var req changeRoleReq
	if err := c.Bind(&req); err != nil || req.RoleID == 0 {
		return fail(c, http.StatusBadRequest, "role_id required")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	role, err := h.Roles.GetByID(ctx, req.RoleID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return fail(c, http.StatusNotFound, "role not found")
		}
		return fail(c, http.StatusInternalServerError, "load role failed")
	}
	u, err := h.Users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return fail(c, http.StatusNotFound, "user not found")
		}
		return fail(c, http.StatusInternalServerError, "load user failed")
	}
	if err := h.Users.UpdateRole(ctx, u.ID, role.ID); err != nil {
		return fail(c, http.StatusInternalServerError, "change role failed")
	}
	u.RoleID = role.ID
	view := viewUser(u)
	view.RoleName = role.Name
	return respond(c, http.StatusOK, "role changed", view)
}
