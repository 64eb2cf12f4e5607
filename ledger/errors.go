package ledger

import "errors"

// Sentinel errors for ledger operations.
var (
	// ErrNotFound is returned when a requested task or workflow record
	// does not exist, exactly or by prefix.
	ErrNotFound = errors.New("ledger: record not found")

	// ErrPersist wraps any failure to write a document to disk. Callers in
	// the Iteration Engine treat this as a PersistenceError: log it, leave
	// task status unchanged, and keep going.
	ErrPersist = errors.New("ledger: persist failed")

	// ErrLoad wraps any failure to read or decode a document from disk.
	ErrLoad = errors.New("ledger: load failed")
)
