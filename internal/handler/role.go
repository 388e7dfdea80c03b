package handler

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/payment-workflow/internal/config"
	"github.com/iliyamo/payment-workflow/internal/middleware"
	"github.com/iliyamo/payment-workflow/internal/model"
	"github.com/iliyamo/payment-workflow/internal/repository"
)

// rolesListPath is the route whose responses are served through the
// shared Redis cache; mutations drop its cache entry.
const rolesListPath = "/v1/roles"

// roleStore is the slice of repository.RoleRepo these endpoints use.
type roleStore interface {
	List(ctx context.Context) ([]model.Role, error)
	GetByID(ctx context.Context, id uint64) (model.Role, error)
	Create(ctx context.Context, role *model.Role) error
	Update(ctx context.Context, role *model.Role) error
	Delete(ctx context.Context, id uint64) error
}

// roleUserCounter counts users referencing a role, backing the
// referential delete guard.
type roleUserCounter interface {
	CountByRole(ctx context.Context, roleID uint64) (int, error)
}

// RoleHandler bundles dependencies for role management endpoints.
// Permission gates for these routes are applied by the router via the
// RequirePermission middleware; there is no ownership nuance on
// roles.
type RoleHandler struct {
	Roles roleStore
	Users roleUserCounter
	// DropListingCache removes the cached role listing after a
	// successful mutation. Nil disables invalidation.
	DropListingCache func(ctx context.Context)
}

func NewRoleHandler(r *repository.RoleRepo, u *repository.UserRepo, rdb *redis.Client, cacheCfg config.CacheConfig) *RoleHandler {
	h := &RoleHandler{Roles: r, Users: u}
	if rdb != nil {
		key := middleware.CacheKey(cacheCfg, rolesListPath, "")
		h.DropListingCache = func(ctx context.Context) { _ = rdb.Del(ctx, key).Err() }
	}
	return h
}

func (h *RoleHandler) dropListing(ctx context.Context) {
	if h.DropListingCache != nil {
		h.DropListingCache(ctx)
	}
}

type roleView struct {
	ID          uint64    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Permissions []string  `json:"permissions"`
	UserCount   *int      `json:"user_count,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

func viewRole(r model.Role) roleView {
	perms := r.Permissions
	if perms == nil {
		perms = []string{}
	}
	return roleView{
		ID:          r.ID,
		Name:        r.Name,
		Description: r.Description,
		Permissions: perms,
		CreatedAt:   r.CreatedAt,
	}
}

type roleReq struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Permissions []string `json:"permissions"`
}

func (r roleReq) validate() []ErrorDetail {
	var errs []ErrorDetail
	if strings.TrimSpace(r.Name) == "" {
		errs = append(errs, ErrorDetail{Field: "name", Message: "required"})
	}
	for _, p := range r.Permissions {
		if !strings.Contains(p, ":") {
			errs = append(errs, ErrorDetail{Field: "permissions", Message: "permission " + p + " is not of shape resource:action"})
		}
	}
	return errs
}

// List returns all roles.
func (h *RoleHandler) List(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	roles, err := h.Roles.List(ctx)
	if err != nil {
		return fail(c, http.StatusInternalServerError, "list roles failed")
	}
	views := make([]roleView, 0, len(roles))
	for _, r := range roles {
		views = append(views, viewRole(r))
	}
	return respond(c, http.StatusOK, "ok", views)
}

// Get returns a single role together with the number of users that
// reference it.
func (h *RoleHandler) Get(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return fail(c, http.StatusBadRequest, "invalid role id")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	role, err := h.Roles.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return fail(c, http.StatusNotFound, "role not found")
		}
		return fail(c, http.StatusInternalServerError, "load role failed")
	}
	count, err := h.Users.CountByRole(ctx, role.ID)
	if err != nil {
		return fail(c, http.StatusInternalServerError, "count users failed")
	}
	view := viewRole(role)
	view.UserCount = &count
	return respond(c, http.StatusOK, "ok", view)
}

// Create adds a new role with its permission set.
func (h *RoleHandler) Create(c echo.Context) error {
	var req roleReq
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "invalid body")
	}
	if errs := req.validate(); len(errs) > 0 {
		return fail(c, http.StatusBadRequest, "validation failed", errs...)
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	role := model.Role{
		Name:        strings.TrimSpace(req.Name),
		Description: req.Description,
		Permissions: req.Permissions,
	}
	if err := h.Roles.Create(ctx, &role); err != nil {
		if errors.Is(err, repository.ErrRoleExists) {
			return fail(c, http.StatusConflict, "role name already exists")
		}
		return fail(c, http.StatusInternalServerError, "create role failed")
	}
	h.dropListing(ctx)
	return respond(c, http.StatusCreated, "role created", viewRole(role))
}

// Update replaces a role's name, description and permission set. The
// new permission set takes effect for every referencing user on their
// next request, since permissions are resolved per request.
func (h *RoleHandler) Update(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return fail(c, http.StatusBadRequest, "invalid role id")
	}
	var req roleReq
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "invalid body")
	}
	if errs := req.validate(); len(errs) > 0 {
		return fail(c, http.StatusBadRequest, "validation failed", errs...)
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	role, err := h.Roles.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return fail(c, http.StatusNotFound, "role not found")
		}
		return fail(c, http.StatusInternalServerError, "load role failed")
	}
	role.Name = strings.TrimSpace(req.Name)
	role.Description = req.Description
	role.Permissions = req.Permissions
	if err := h.Roles.Update(ctx, &role); err != nil {
		if errors.Is(err, repository.ErrRoleExists) {
			return fail(c, http.StatusConflict, "role name already exists")
		}
		return fail(c, http.StatusInternalServerError, "update role failed")
	}
	h.dropListing(ctx)
	return respond(c, http.StatusOK, "role updated", viewRole(role))
}

// Delete removes a role. The delete is refused while any user still
// references the role; reassign those users first.
func (h *RoleHandler) Delete(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return fail(c, http.StatusBadRequest, "invalid role id")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	count, err := h.Users.CountByRole(ctx, id)
	if err != nil {
		return fail(c, http.StatusInternalServerError, "count users failed")
	}
	if count > 0 {
		return fail(c, http.StatusConflict, repository.ErrRoleReferenced.Error(),
			ErrorDetail{Field: "user_count", Message: "reassign referencing users before deleting"})
	}
	if err := h.Roles.Delete(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return fail(c, http.StatusNotFound, "role not found")
		}
		return fail(c, http.StatusInternalServerError, "delete role failed")
	}
	h.dropListing(ctx)
	return respond(c, http.StatusOK, "role deleted", nil)
}
