package store

import "github.com/ParichayaHQ/credence/internal/merrors"

// Config configures which Store backend New builds and where its data
// lives. The SQLite backend is always available; RocksDB requires the
// 'rocksdb' build tag.
type Config struct {
	// Backend selects the storage engine: "sqlite" (default) or "rocksdb".
	Backend string `json:"backend"`

	// DataDir is the directory the backend's database file(s) live under.
	DataDir string `json:"dataDir"`

	// ConcurrencyLimit sizes the SQLite connection pool
	// (ConcurrencyLimit + 100), mirroring internal/statusmanager's
	// in-process concurrency limiter so neither is the bottleneck.
	ConcurrencyLimit int `json:"concurrencyLimit"`

	// DatabaseName names the SQLite database file (without extension).
	// Ignored by the RocksDB backend, which keys its column families off
	// DataDir alone.
	DatabaseName string `json:"databaseName,omitempty"`

	// DatabaseURL, and the DatabaseHost/Port/Username/Password group
	// below, are spec §6 bootstrap options carried over from this
	// project's original MongoDB-backed implementation. Neither the
	// SQLite nor the RocksDB backend this module ships talks to a
	// database server, so these are recognized and validated but have
	// no effect on either backend; see DESIGN.md.
	DatabaseURL      string `json:"databaseUrl,omitempty"`
	DatabaseHost     string `json:"databaseHost,omitempty"`
	DatabasePort     int    `json:"databasePort,omitempty"`
	DatabaseUsername string `json:"databaseUsername,omitempty"`
	DatabasePassword string `json:"databasePassword,omitempty"`

	// StatusCredentialTableName, UserCredentialTableName,
	// EventTableName, CredentialEventTableName, and ConfigTableName
	// override the physical table each logical record kind is stored
	// under. Only honored by the SQLite backend; empty fields fall back
	// to DefaultTableNames. RocksDB's column families remain fixed
	// (see DESIGN.md).
	StatusCredentialTableName string `json:"statusCredentialTableName,omitempty"`
	UserCredentialTableName   string `json:"userCredentialTableName,omitempty"`
	EventTableName            string `json:"eventTableName,omitempty"`
	CredentialEventTableName  string `json:"credentialEventTableName,omitempty"`
	ConfigTableName           string `json:"configTableName,omitempty"`
}

// DefaultConfig returns sensible defaults for storage configuration.
func DefaultConfig() *Config {
	names := DefaultTableNames()
	return &Config{
		Backend:                   "sqlite",
		DataDir:                   "./data/credentialStatus",
		ConcurrencyLimit:          200,
		DatabaseName:              "credentialStatus",
		StatusCredentialTableName: names.StatusCredential,
		UserCredentialTableName:   names.UserCredential,
		EventTableName:            names.Event,
		CredentialEventTableName:  names.CredentialEvent,
		ConfigTableName:           names.Config,
	}
}

// Validate checks the configuration for obvious mistakes.
func (c *Config) Validate() error {
	if c.DataDir == "" {
		return merrors.New(merrors.KindBadRequest, "store.Config.Validate", "dataDir cannot be empty")
	}
	if c.ConcurrencyLimit <= 0 {
		return merrors.New(merrors.KindBadRequest, "store.Config.Validate", "concurrencyLimit must be positive")
	}
	switch c.Backend {
	case "sqlite", "rocksdb":
	default:
		return merrors.New(merrors.KindBadRequest, "store.Config.Validate", "backend must be sqlite or rocksdb, got "+c.Backend)
	}
	if c.DatabaseURL != "" && (c.DatabaseHost != "" || c.DatabaseUsername != "" || c.DatabasePassword != "") {
		return merrors.New(merrors.KindBadRequest, "store.Config.Validate", "databaseUrl is mutually exclusive with databaseHost/databaseUsername/databasePassword")
	}
	return nil
}

// tableNames collects the per-logical-table overrides into a TableNames
// value for the SQLite backend; zero fields fall back to their default.
func (c *Config) tableNames() TableNames {
	return TableNames{
		StatusCredential: c.StatusCredentialTableName,
		UserCredential:   c.UserCredentialTableName,
		Event:            c.EventTableName,
		CredentialEvent:  c.CredentialEventTableName,
		Config:           c.ConfigTableName,
	}
}

// New builds the Store configured by cfg, creating DataDir if needed.
func New(cfg *Config) (Store, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := ensureDir(cfg.DataDir); err != nil {
		return nil, err
	}
	switch cfg.Backend {
	case "rocksdb":
		return NewRocksDBStore(cfg.DataDir)
	default:
		return NewSQLiteStoreWithOptions(cfg.DataDir, cfg.ConcurrencyLimit, cfg.DatabaseName, cfg.tableNames())
	}
}
