package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/iliyamo/payment-workflow/internal/auth"
	"github.com/iliyamo/payment-workflow/internal/model"
	"github.com/iliyamo/payment-workflow/internal/repository"
)

// SeedDefaultRoles makes sure the three default roles exist, creating
// any that are missing from the static registry. Existing roles are
// never modified, so permission sets edited through the API survive
// restarts. Safe to call on every startup.
func SeedDefaultRoles(ctx context.Context, roles *repository.RoleRepo) error {
	for _, name := range []string{auth.RoleUser, auth.RoleManager, auth.RoleAdmin} {
		_, err := roles.GetByName(ctx, name)
		if err == nil {
			continue
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("lookup role %s: %w", name, err)
		}
		role := model.Role{
			Name:        name,
			Description: auth.DefaultRoleDescriptions[name],
			Permissions: auth.DefaultRolePermissions[name],
		}
		if err := roles.Create(ctx, &role); err != nil {
			// A concurrent instance may have created it first.
			if errors.Is(err, repository.ErrRoleExists) {
				continue
			}
			return fmt.Errorf("seed role %s: %w", name, err)
		}
	}
	return nil
}
