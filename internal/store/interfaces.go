package store

import "context"

// Tx is an opaque transaction handle threaded through nested Store calls.
// Callers never inspect it; it exists only so a call made inside
// ExecuteTransaction's fn can be distinguished from one made outside it.
type Tx interface {
	txMarker()
}

// Store is the polymorphic record store this module persists its five
// tables through. Every method accepts a Tx; pass nil to run the call in
// its own ad-hoc connection outside any transaction.
type Store interface {
	// CreateStatusCredential inserts a new row; fails WriteConflict on a
	// duplicate id.
	CreateStatusCredential(ctx context.Context, tx Tx, rec *StatusCredentialRecord) error
	// UpdateStatusCredential overwrites the row identified by id.
	UpdateStatusCredential(ctx context.Context, tx Tx, id string, rec *StatusCredentialRecord) error
	// GetStatusCredentialByID returns (nil, nil) if no row matches.
	GetStatusCredentialByID(ctx context.Context, tx Tx, id string) (*StatusCredentialRecord, error)
	// GetAnyStatusCredentialByPurpose returns an arbitrary row with the
	// given purpose; (nil, nil) if none.
	GetAnyStatusCredentialByPurpose(ctx context.Context, tx Tx, purpose string) (*StatusCredentialRecord, error)
	// GetAllStatusCredentialsByPurpose lists every row of a purpose.
	GetAllStatusCredentialsByPurpose(ctx context.Context, tx Tx, purpose string) ([]*StatusCredentialRecord, error)

	// CreateUserCredential inserts a new row; fails WriteConflict on a
	// duplicate id.
	CreateUserCredential(ctx context.Context, tx Tx, rec *UserCredentialRecord) error
	// UpdateUserCredential overwrites the row identified by id.
	UpdateUserCredential(ctx context.Context, tx Tx, id string, rec *UserCredentialRecord) error
	// GetUserCredentialByID returns (nil, nil) if no row matches.
	GetUserCredentialByID(ctx context.Context, tx Tx, id string) (*UserCredentialRecord, error)
	// CountUserCredentials returns the number of UserCredential rows.
	CountUserCredentials(ctx context.Context, tx Tx) (int, error)

	// CreateEvent appends a new event row.
	CreateEvent(ctx context.Context, tx Tx, rec *EventRecord) error

	// CreateCredentialEvent inserts the first index row for a credential id.
	CreateCredentialEvent(ctx context.Context, tx Tx, rec *CredentialEventRecord) error
	// ReplaceCredentialEvent overwrites the index row for a credential id.
	ReplaceCredentialEvent(ctx context.Context, tx Tx, rec *CredentialEventRecord) error
	// GetCredentialEventByCredentialID returns (nil, nil) if no row matches.
	GetCredentialEventByCredentialID(ctx context.Context, tx Tx, credentialID string) (*CredentialEventRecord, error)

	// CreateConfig inserts the singleton Config row.
	CreateConfig(ctx context.Context, tx Tx, rec *ConfigRecord) error
	// UpdateConfig overwrites the singleton Config row.
	UpdateConfig(ctx context.Context, tx Tx, rec *ConfigRecord) error
	// GetConfig returns (nil, nil) if the Config row hasn't been created yet.
	GetConfig(ctx context.Context, tx Tx) (*ConfigRecord, error)

	// ExecuteTransaction runs fn inside a transaction, retrying on
	// WriteConflict/InvalidDatabaseTransaction/StatusListCapacity with a
	// random [0,1000)ms backoff between attempts.
	ExecuteTransaction(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error

	// DatabaseExists reports whether the backing database is reachable.
	DatabaseExists(ctx context.Context) (bool, error)
	// TableExists reports whether the named table is present.
	TableExists(ctx context.Context, table string) (bool, error)
	// TableEmpty reports whether the named table has zero rows.
	TableEmpty(ctx context.Context, table string) (bool, error)
	// CreateDatabase is a no-op for engines that create databases
	// implicitly on first connection.
	CreateDatabase(ctx context.Context) error
	// CreateTable is a no-op for engines that create tables implicitly;
	// SQLite creates its schema eagerly in the constructor instead.
	CreateTable(ctx context.Context, table string) error

	// Close releases the backing connection pool.
	Close() error
}
