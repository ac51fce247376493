package handlers

import "errors"

// ErrForbidden is returned when a caller touches another user's resource.
var ErrForbidden = errors.New("access denied")
