package chat

import "errors"

var (
	// ErrNotFound indicates the referenced room, message, user or
	// notification does not exist.
	ErrNotFound = errors.New("not found")
	// ErrForbidden indicates the actor may not mutate the resource.
	ErrForbidden = errors.New("forbidden")
	// ErrValidation indicates missing or empty required input.
	ErrValidation = errors.New("validation failed")
	// ErrNoAdminAvailable indicates the hub room cannot be created
	// because no administrator account exists yet.
	ErrNoAdminAvailable = errors.New("no administrator account available")
)
