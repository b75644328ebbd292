package models

import "errors"

// Sentinel errors for caller-input problems. Handlers translate these to 400s;
// anything else on the publish path is infrastructure and is absorbed.
var (
	ErrInvalidCategory = errors.New("invalid category: must be ORDER, LIBRARY, HOUSING, or EMAIL")
	ErrMissingUserID   = errors.New("user_id must not be empty")
	ErrMissingEmail    = errors.New("email is required for EMAIL notifications")
	ErrDetailMismatch  = errors.New("detail variant does not match category")
)
