package repository

import "errors"

var (
	// ErrNotFound is returned when a requested entity does not exist.
	ErrNotFound = errors.New("entity not found")

	// ErrVersionConflict is returned when a conditional write lost a race
	// against a concurrent writer (stale version or capacity predicate failed).
	ErrVersionConflict = errors.New("concurrent modification")

	// ErrOverlappingGroup is returned when the store rejects a ride group
	// because the vehicle is already committed in an overlapping window.
	ErrOverlappingGroup = errors.New("overlapping ride group for vehicle")

	// ErrStateConflict is returned when a conditional write found the entity
	// in a state the write may not move it out of.
	ErrStateConflict = errors.New("entity not in expected state")

	// ErrDuplicate is returned when a uniqueness constraint rejects a write.
	ErrDuplicate = errors.New("duplicate entity")
)
