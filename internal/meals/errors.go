package meals

import (
	"fmt"

	"github.com/pkg/errors"
)

var (
	// ErrEmptyList is returned when an operation needs at least one meal.
	ErrEmptyList = errors.New("meal list is empty")
	// ErrNoMatch is returned when no stored meal is a reasonable match for a query.
	ErrNoMatch = errors.New("no matching meal")
)

// StorageError reports a failure to read, parse or write the meal document.
type StorageError struct {
	Op   string
	Path string
	Err  error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("meals: %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}
