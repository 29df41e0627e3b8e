package dao

import (
	"errors"
	"fmt"
)

// Common, reusable DAO errors. Callers detect them with errors.Is.
var (
	// ErrNotFound is returned when the requested entity does not exist in the
	// underlying storage.
	ErrNotFound = errors.New("dao: not found")

	// ErrInvalidID indicates that the supplied key is empty.
	ErrInvalidID = errors.New("dao: invalid id")

	// ErrNilEntity is returned when the caller attempts to persist a nil
	// pointer.
	ErrNilEntity = errors.New("dao: nil entity")

	// ErrConflict is returned when a save would overwrite a newer version.
	ErrConflict = errors.New("dao: version conflict")
)

// CheckVersion rejects an incoming version that does not advance the stored one.
func CheckVersion(stored, incoming uint64) error {
	if incoming <= stored {
		return fmt.Errorf("stored version %d, incoming %d: %w", stored, incoming, ErrConflict)
	}
	return nil
}

// CheckNext rejects an incoming version that is not the one right after stored.
func CheckNext(stored, incoming uint64) error {
	if incoming != stored+1 {
		return fmt.Errorf("stored version %d, incoming %d: %w", stored, incoming, ErrConflict)
	}
	return nil
}
