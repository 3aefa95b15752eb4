package services

import (
	"errors"
	"fmt"

	"gorm.io/gorm"
)

// Error taxonomy returned by every service. Callers match with errors.Is; the
// wrapped message is safe to show to the user.
var (
	ErrValidation = errors.New("validation failed")
	ErrConflict   = errors.New("already exists")
	ErrAuth       = errors.New("invalid credentials")
	ErrNotFound   = errors.New("not found")
	ErrPermission = errors.New("permission denied")
)

// notFound maps gorm's missing-row error onto ErrNotFound and leaves other
// errors as storage faults.
func notFound(err error, what string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%w: %s", ErrNotFound, what)
	}
	return fmt.Errorf("load %s: %w", what, err)
}

// IsDomainError reports whether err belongs to the taxonomy above. Anything else is a
// storage or programming fault.
func IsDomainError(err error) bool {
	for _, target := range []error{ErrValidation, ErrConflict, ErrAuth, ErrNotFound, ErrPermission} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
