// Package repository defines error types that are reused across multiple
// repositories. These sentinel values allow higher layers such as
// services to distinguish between different failure scenarios. For
// example, ErrForbidden indicates that the current user is not
// authorized to operate on an order owned by someone else.
package repository

import "errors"

// ErrForbidden is returned when the caller attempts an operation
// on a resource they do not own. The service layer translates this
// into its own ownership error.
var ErrForbidden = errors.New("forbidden")
