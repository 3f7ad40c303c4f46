package chat

import (
	"database/sql"
	"errors"

	"github.com/commhub/chatserver/internal/types"
)

// AuthzResult is the tagged outcome of a message mutation check. Both the
// HTTP handlers and the socket handlers consume it, so the two transports
// cannot drift apart in what they allow.
type AuthzResult int

const (
	AuthzOK AuthzResult = iota
	AuthzNotFound
	AuthzForbidden
)

// Authorize decides whether actor may mutate a message owned by ownerId.
// fetchErr is the error from loading the message: sql.ErrNoRows maps to
// AuthzNotFound, any other error is returned untouched for the caller to
// surface as an internal failure. When adminOverride is set an admin
// actor passes even if they are not the owner.
func Authorize(actor types.User, ownerId string, fetchErr error, adminOverride bool) (AuthzResult, error) {
	if fetchErr != nil {
		if errors.Is(fetchErr, sql.ErrNoRows) {
			return AuthzNotFound, nil
		}
		return AuthzForbidden, fetchErr
	}

	if actor.Id == ownerId {
		return AuthzOK, nil
	}

	if adminOverride {
		switch actor.Role {
		case types.RoleAdmin:
			return AuthzOK, nil
		case types.RoleMember:
			return AuthzForbidden, nil
		}
	}

	return AuthzForbidden, nil
}

// Err converts a non-OK result into the corresponding sentinel error.
func (r AuthzResult) Err() error {
	switch r {
	case AuthzNotFound:
		return ErrNotFound
	case AuthzForbidden:
		return ErrForbidden
	}
	return nil
}
