// Package repository defines error types that are reused across multiple
// repositories. These sentinel values allow higher layers such as
// handlers to distinguish between different failure scenarios. For
// example, ErrRoleReferenced indicates that a role cannot be deleted
// while users still reference it, while TransitionError signals that
// a payment workflow move was attempted from an illegal source state.
package repository

import (
	"errors"
	"fmt"

	"github.com/iliyamo/payment-workflow/internal/model"
)

// ErrEmailExists is returned when an insert or update would violate
// the unique email constraint. Handlers translate this into HTTP 409.
var ErrEmailExists = errors.New("email already exists")

// ErrRoleExists is returned when a role with the requested name
// already exists. Handlers translate this into HTTP 409.
var ErrRoleExists = errors.New("role name already exists")

// ErrRoleReferenced is returned when a role delete is blocked because
// users still reference the role. Handlers translate this into HTTP 409.
var ErrRoleReferenced = errors.New("role is referenced by existing users")

// ErrConflict is returned when a delete or update cannot be performed
// because of conflicting state. Handlers translate this into HTTP 409.
var ErrConflict = errors.New("conflict")

// TransitionError reports a payment workflow move attempted from a
// state that is not a legal source for it. Current names the status
// the record actually held, so the client can see why the trigger was
// refused. No mutation occurs when this error is returned.
type TransitionError struct {
	Trigger string
	Current model.PaymentStatus
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("cannot %s payment in status %q", e.Trigger, e.Current)
}
