package handler

import (
	"context"
	"database/sql"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/payment-workflow/internal/model"
	"github.com/iliyamo/payment-workflow/internal/repository"
)

// fakeRoleStore is an in-memory roleStore.
type fakeRoleStore struct {
	roles   map[uint64]model.Role
	created int
	updated int
	deleted int
}

func (f *fakeRoleStore) List(context.Context) ([]model.Role, error) {
	out := make([]model.Role, 0, len(f.roles))
	for _, r := range f.roles {
		out = append(out, r)
	}
	return out, nil
}

func (f *fakeRoleStore) GetByID(_ context.Context, id uint64) (model.Role, error) {
	r, ok := f.roles[id]
	if !ok {
		return model.Role{}, sql.ErrNoRows
	}
	return r, nil
}

func (f *fakeRoleStore) Create(_ context.Context, role *model.Role) error {
	f.created++
	role.ID = 7
	return nil
}

func (f *fakeRoleStore) Update(context.Context, *model.Role) error {
	f.updated++
	return nil
}

func (f *fakeRoleStore) Delete(context.Context, uint64) error {
	f.deleted++
	return nil
}

type fakeUserCounter struct{ n int }

func (f fakeUserCounter) CountByRole(context.Context, uint64) (int, error) { return f.n, nil }

func TestDeleteRoleBlockedWhileReferenced(t *testing.T) {
	store := &fakeRoleStore{roles: map[uint64]model.Role{5: {ID: 5, Name: "ops"}}}
	dropped := 0
	h := &RoleHandler{
		Roles:            store,
		Users:            fakeUserCounter{n: 3},
		DropListingCache: func(context.Context) { dropped++ },
	}

	c, rec := newJSONContext(t, http.MethodDelete, "/v1/roles/5", "")
	c.SetParamNames("id")
	c.SetParamValues("5")
	require.NoError(t, h.Delete(c))

	assert.Equal(t, http.StatusConflict, rec.Code)
	body := decodeEnvelope(t, rec)
	assert.Equal(t, repository.ErrRoleReferenced.Error(), body["message"])
	assert.Zero(t, store.deleted)
	assert.Zero(t, dropped)
}

func TestRoleMutationsDropListingCache(t *testing.T) {
	store := &fakeRoleStore{roles: map[uint64]model.Role{5: {ID: 5, Name: "ops"}}}
	dropped := 0
	h := &RoleHandler{
		Roles:            store,
		Users:            fakeUserCounter{},
		DropListingCache: func(context.Context) { dropped++ },
	}

	c, rec := newJSONContext(t, http.MethodPost, "/v1/roles",
		`{"name":"auditor","permissions":["payments:read_all"]}`)
	require.NoError(t, h.Create(c))
	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, 1, dropped)

	c, rec = newJSONContext(t, http.MethodPut, "/v1/roles/5",
		`{"name":"auditor","permissions":["payments:read_all"]}`)
	c.SetParamNames("id")
	c.SetParamValues("5")
	require.NoError(t, h.Update(c))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 2, dropped)

	c, rec = newJSONContext(t, http.MethodDelete, "/v1/roles/5", "")
	c.SetParamNames("id")
	c.SetParamValues("5")
	require.NoError(t, h.Delete(c))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 3, dropped)

	// A rejected mutation must not touch the cache.
	c, rec = newJSONContext(t, http.MethodPost, "/v1/roles", `{"name":""}`)
	require.NoError(t, h.Create(c))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, 3, dropped)
}
