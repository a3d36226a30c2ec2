package repository

import "errors"

var (
	// ErrDuplicateItem is returned when an item with the same (owner, title)
	// already exists.
	ErrDuplicateItem = errors.New("item already exists for owner and title")

	// ErrItemNotFound is returned when a rule references an item that no
	// longer exists. The cycle treats this as a per-rule data problem,
	// not a store outage.
	ErrItemNotFound = errors.New("item not found")

	// ErrDuplicateTask is returned when a notification task for the same
	// (recipient, item title, day) occurrence was already created. The
	// evaluator treats this as "already deduplicated", not as a failure.
	ErrDuplicateTask = errors.New("notification task already exists for occurrence")
)
