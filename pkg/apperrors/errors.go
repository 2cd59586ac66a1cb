package apperrors

import "errors"

var (
	ErrNotFound = errors.New("not found")
	ErrConflict = errors.New("conflict")

	// ErrProjectEmptyAfterDelete marks the documented reimport risk window:
	// the delete phase succeeded but the insert phase did not, so the project
	// currently has no batch-tagged equipment. The operator must retry the
	// import to recover.
	ErrProjectEmptyAfterDelete = errors.New("project equipment deleted but reimport failed, retry required")
)
