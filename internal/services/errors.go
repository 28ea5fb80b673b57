package services

import "errors"

var (
	// ErrValidation wraps every input problem; the message says which field
	ErrValidation = errors.New("validation failed")
	// ErrLocationInUse is returned when a location still has children or items
	ErrLocationInUse = errors.New("location still contains items or sub-locations")
	// ErrLocationCycle is returned when a location would become its own ancestor
	ErrLocationCycle = errors.New("location cannot be placed inside itself")
	// ErrSignupClosed is returned once the first account exists
	ErrSignupClosed = errors.New("signup is closed, ask an admin for an account")
	// ErrBackupUploadDisabled is returned when no bucket is configured
	ErrBackupUploadDisabled = errors.New("backup upload is not configured")
)
