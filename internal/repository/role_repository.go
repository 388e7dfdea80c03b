package repository

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/iliyamo/payment-workflow/internal/model"
)

// RoleRepo provides CRUD operations over the `roles` table. The
// permission set is stored as a JSON array in the permissions column;
// encoding and decoding happen here so callers only ever see
// []string.
type RoleRepo struct{ DB *sql.DB }

func NewRoleRepo(db *sql.DB) *RoleRepo { return &RoleRepo{DB: db} }

const roleColumns = "id,name,description,permissions,created_at,updated_at"

// Create inserts a role and populates its generated ID. A duplicate
// name is translated into ErrRoleExists.
func (r *RoleRepo) Create(ctx context.Context, role *model.Role) error {
	perms, err := encodePerms(role.Permissions)
	if err != nil {
		return err
	}
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO roles (name, description, permissions) VALUES (?,?,?)",
		role.Name, role.Description, perms)
	if err != nil {
		if isDuplicateKey(err) {
			return ErrRoleExists
		}
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	role.ID = uint64(id)
	return nil
}

// GetByID fetches a role by id.
func (r *RoleRepo) GetByID(ctx context.Context, id uint64) (model.Role, error) {
	row := r.DB.QueryRowContext(ctx,
		"SELECT "+roleColumns+" FROM roles WHERE id=? LIMIT 1", id)
	return scanRole(row)
}

// GetByName fetches a role by its unique name.
func (r *RoleRepo) GetByName(ctx context.Context, name string) (model.Role, error) {
	row := r.DB.QueryRowContext(ctx,
		"SELECT "+roleColumns+" FROM roles WHERE name=? LIMIT 1", name)
	return scanRole(row)
}

// List returns all roles ordered by id. The role table is small by
// construction so no paging is applied.
func (r *RoleRepo) List(ctx context.Context) ([]model.Role, error) {
	rows, err := r.DB.QueryContext(ctx,
		"SELECT "+roleColumns+" FROM roles ORDER BY id")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	roles := []model.Role{}
	for rows.Next() {
		role, err := scanRole(rows)
		if err != nil {
			return nil, err
		}
		roles = append(roles, role)
	}
	return roles, rows.Err()
}

// Update replaces a role's name, description and permission set.
func (r *RoleRepo) Update(ctx context.Context, role *model.Role) error {
	perms, err := encodePerms(role.Permissions)
	if err != nil {
		return err
	}
	res, err := r.DB.ExecContext(ctx,
		"UPDATE roles SET name=?, description=?, permissions=? WHERE id=?",
		role.Name, role.Description, perms, role.ID)
	if err != nil {
		if isDuplicateKey(err) {
			return ErrRoleExists
		}
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		// Distinguish a missing row from an update that changed nothing.
		if _, err := r.GetByID(ctx, role.ID); err != nil {
			return err
		}
	}
	return nil
}

// Delete removes a role row. The referential guard (no delete while
// users reference the role) is enforced by the handler via
// UserRepo.CountByRole before calling this.
func (r *RoleRepo) Delete(ctx context.Context, id uint64) error {
	res, err := r.DB.ExecContext(ctx, "DELETE FROM roles WHERE id=?", id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func scanRole(s scanner) (model.Role, error) {
	var role model.Role
	var perms []byte
	err := s.Scan(&role.ID, &role.Name, &role.Description, &perms,
		&role.CreatedAt, &role.UpdatedAt)
	if err != nil {
		return model.Role{}, err
	}
	if len(perms) > 0 {
		if err := json.Unmarshal(perms, &role.Permissions); err != nil {
			return model.Role{}, err
		}
	}
	return role, nil
}

func encodePerms(perms []string) ([]byte, error) {
	if perms == nil {
		perms = []string{}
	}
	return json.Marshal(perms)
}
