package store

import "errors"

// Sentinel errors returned by repository methods to signal well-known failure
// conditions. Callers should use [errors.Is] to match against these values.
var (
	// ErrStorage wraps every failure of the underlying storage engine
	// (connection, query, scan, commit). It is distinct from
	// ErrRecordNotFound and is fatal to the operation that hit it.
	ErrStorage = errors.New("local storage error")

	// ErrRecordNotFound is returned when a record is absent from a
	// collection or only present as a tombstone.
	ErrRecordNotFound = errors.New("record was not found")

	// ErrQueueItemNotFound is returned when a queue item addressed by id no
	// longer exists.
	ErrQueueItemNotFound = errors.New("sync queue item was not found")

	// ErrInvalidRecord is returned when a record cannot be stored as given
	// (missing collection or id, data that is not a JSON object).
	ErrInvalidRecord = errors.New("invalid record")

	// ErrInvalidFilter is returned when a filter or ordering field is not a
	// plain identifier.
	ErrInvalidFilter = errors.New("invalid record filter")
)

// Low-level database operation errors. These are wrapped together with
// [ErrStorage] when a SQL-level operation fails before any domain logic can
// be applied.
var (
	// ErrBuildingSQLQuery is returned when constructing a parameterised SQL
	// query fails.
	ErrBuildingSQLQuery = errors.New("error building sql query")

	// ErrBeginningTransaction is returned when the database driver cannot
	// start a new transaction.
	ErrBeginningTransaction = errors.New("failed to begin transaction")

	// ErrCommitingTransaction is returned when committing an open transaction
	// fails. The transaction is considered rolled back at this point.
	ErrCommitingTransaction = errors.New("failed to commit transaction")
)
