// Package statusmanager is the status-manager facade: it bootstraps the
// store, signing adapter, allocator, updater and integrity checker behind
// a single Options value, and exposes spec §6's programmatic surface
// (allocateStatus, revokeCredential, updateStatus, getStatus,
// getDatabaseState, ...).
//
// Grounded on cmd/fullnode/main.go's env-var-with-defaults bootstrap
// style, generalized from a single global main() into a reusable
// constructor a caller (or cmd/statusmanagerd) can invoke directly.
package statusmanager

import (
	"os"
	"strconv"

	"github.com/go-playground/validator/v10"

	"github.com/ParichayaHQ/credence/internal/alloc"
	"github.com/ParichayaHQ/credence/internal/merrors"
	"github.com/ParichayaHQ/credence/internal/store"
)

const op = "statusmanager"

// Options is spec §6's bootstrap configuration.
type Options struct {
	StatusCredentialSiteOrigin string `validate:"required,url"`

	// Backend selects the store engine: "sqlite" (default) or "rocksdb".
	Backend string `validate:"omitempty,oneof=sqlite rocksdb"`
	// DataDir is where the backend persists its database file(s).
	DataDir string `validate:"required"`

	// DIDMethod selects the signing adapter: "key" or "web".
	DIDMethod string `validate:"required,oneof=key web"`
	// DIDSeed is the multibase-encoded, >=32-byte seed the signing
	// adapter derives the issuer keypair from.
	DIDSeed string `validate:"required"`
	// DIDWebURL is required when DIDMethod == "web".
	DIDWebURL string `validate:"required_if=DIDMethod web"`

	// SignStatusCredential re-signs status credentials on every
	// allocation roll-over and bit flip. LoadOptionsFromEnv defaults it
	// to true; the struct's zero value is false.
	SignStatusCredential bool
	// SignUserCredential signs the caller's credential before returning
	// it from allocate. Defaults false.
	SignUserCredential bool

	// IndexAllocation selects the Allocator's index-picking strategy:
	// "sequential" (default) or "random".
	IndexAllocation alloc.IndexAllocation

	// ConcurrencyLimit bounds in-flight transactions. Defaults 200.
	ConcurrencyLimit int

	// DatabaseName names the backing SQLite database file. Defaults to
	// "credentialStatus".
	DatabaseName string

	// DatabaseURL, and the DatabaseHost/Port/Username/Password group
	// below, are spec §6 bootstrap options inherited from this project's
	// original MongoDB-backed implementation. The embedded SQLite and
	// RocksDB backends this module ships have no database server to
	// connect to, so these are accepted and validated (mutually
	// exclusive with each other, per spec) but otherwise inert; see
	// DESIGN.md.
	DatabaseURL      string
	DatabaseHost     string
	DatabasePort     int
	DatabaseUsername string
	DatabasePassword string

	// StatusCredentialTableName, UserCredentialTableName,
	// EventTableName, CredentialEventTableName, and ConfigTableName
	// override the SQLite table each logical record kind is stored
	// under. Empty fields fall back to store.DefaultTableNames.
	StatusCredentialTableName string
	UserCredentialTableName   string
	EventTableName            string
	CredentialEventTableName  string
	ConfigTableName           string
}

var optionsValidator = validator.New()

// Validate checks Options for obvious mistakes, matching the
// early-return style of store.Config.Validate.
func (o *Options) Validate() error {
	if o.Backend == "" {
		o.Backend = "sqlite"
	}
	if o.ConcurrencyLimit <= 0 {
		o.ConcurrencyLimit = 200
	}
	if o.IndexAllocation == "" {
		o.IndexAllocation = alloc.IndexAllocationSequential
	}
	if o.DatabaseName == "" {
		o.DatabaseName = "credentialStatus"
	}
	if err := optionsValidator.Struct(o); err != nil {
		return merrors.Wrap(merrors.KindBadRequest, op+".Options.Validate", "invalid bootstrap options", err)
	}
	if o.DatabaseURL != "" && (o.DatabaseHost != "" || o.DatabaseUsername != "" || o.DatabasePassword != "") {
		return merrors.New(merrors.KindBadRequest, op+".Options.Validate", "databaseUrl is mutually exclusive with databaseHost/databaseUsername/databasePassword")
	}
	return nil
}

// LoadOptionsFromEnv reads bootstrap options from the process
// environment, mirroring cmd/fullnode/main.go's os.Getenv-with-defaults
// style. Callers may still override individual fields before calling New.
func LoadOptionsFromEnv() *Options {
	opts := &Options{
		StatusCredentialSiteOrigin: os.Getenv("STATUSMANAGER_ORIGIN"),
		Backend:                    envOr("STATUSMANAGER_BACKEND", "sqlite"),
		DataDir:                    envOr("STATUSMANAGER_DATA_DIR", "./data/credentialStatus"),
		DIDMethod:                  envOr("STATUSMANAGER_DID_METHOD", "key"),
		DIDSeed:                    os.Getenv("STATUSMANAGER_DID_SEED"),
		DIDWebURL:                  os.Getenv("STATUSMANAGER_DID_WEB_URL"),
		SignStatusCredential:       envBool("STATUSMANAGER_SIGN_STATUS_CREDENTIAL", true),
		SignUserCredential:         envBool("STATUSMANAGER_SIGN_USER_CREDENTIAL", false),
		IndexAllocation:            alloc.IndexAllocation(envOr("STATUSMANAGER_INDEX_ALLOCATION", string(alloc.IndexAllocationSequential))),
		ConcurrencyLimit:           envInt("STATUSMANAGER_CONCURRENCY_LIMIT", 200),

		DatabaseName:     envOr("STATUSMANAGER_DATABASE_NAME", "credentialStatus"),
		DatabaseURL:      os.Getenv("STATUSMANAGER_DATABASE_URL"),
		DatabaseHost:     os.Getenv("STATUSMANAGER_DATABASE_HOST"),
		DatabasePort:     envInt("STATUSMANAGER_DATABASE_PORT", 0),
		DatabaseUsername: os.Getenv("STATUSMANAGER_DATABASE_USERNAME"),
		DatabasePassword: os.Getenv("STATUSMANAGER_DATABASE_PASSWORD"),

		StatusCredentialTableName: os.Getenv("STATUSMANAGER_STATUS_CREDENTIAL_TABLE_NAME"),
		UserCredentialTableName:   os.Getenv("STATUSMANAGER_USER_CREDENTIAL_TABLE_NAME"),
		EventTableName:            os.Getenv("STATUSMANAGER_EVENT_TABLE_NAME"),
		CredentialEventTableName:  os.Getenv("STATUSMANAGER_CREDENTIAL_EVENT_TABLE_NAME"),
		ConfigTableName:           os.Getenv("STATUSMANAGER_CONFIG_TABLE_NAME"),
	}
	return opts
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return parsed
}

func envInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return parsed
}

func storeConfig(opts *Options) *store.Config {
	return &store.Config{
		Backend:          opts.Backend,
		DataDir:          opts.DataDir,
		ConcurrencyLimit: opts.ConcurrencyLimit,

		DatabaseName:     opts.DatabaseName,
		DatabaseURL:      opts.DatabaseURL,
		DatabaseHost:     opts.DatabaseHost,
		DatabasePort:     opts.DatabasePort,
		DatabaseUsername: opts.DatabaseUsername,
		DatabasePassword: opts.DatabasePassword,

		StatusCredentialTableName: opts.StatusCredentialTableName,
		UserCredentialTableName:   opts.UserCredentialTableName,
		EventTableName:            opts.EventTableName,
		CredentialEventTableName:  opts.CredentialEventTableName,
		ConfigTableName:           opts.ConfigTableName,
	}
}
