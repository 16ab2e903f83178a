package platform

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned when the user does not exist on the platform.
var ErrNotFound = errors.New("user not found")

// Error reports a failed fetch for a user on a platform.
type Error struct {
	Platform Platform
	Username string
	Err      error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s user %q: %v", e.Platform, e.Username, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// IsNotFound reports whether err means the user does not exist.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

func fail(p Platform, username string, err error) error {
	return &Error{Platform: p, Username: username, Err: err}
}
