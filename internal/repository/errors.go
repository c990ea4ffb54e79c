package repository

import "errors"

var (
	ErrDBNotReady = errors.New("database not initialized")

	// ErrDuplicateNumber surfaces a (queue_id, number) unique-index violation
	// so the service layer can re-run the numbering transaction.
	ErrDuplicateNumber = errors.New("duplicate queue number")
)
