package store

import (
	"context"
	"database/sql"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"sync"
	"time"

	json "github.com/goccy/go-json"
	_ "modernc.org/sqlite"

	"github.com/ParichayaHQ/credence/internal/merrors"
	"github.com/ParichayaHQ/credence/internal/statuslog"
)

const op = "store.sqlite"

var log = statuslog.For("store")

// TableNames overrides the physical SQLite table backing each of the
// five logical tables spec §6 calls statusCredentialTableName,
// userCredentialTableName, eventTableName, credentialEventTableName,
// and configTableName. Empty fields fall back to DefaultTableNames.
type TableNames struct {
	StatusCredential string
	UserCredential   string
	Event            string
	CredentialEvent  string
	Config           string
}

// DefaultTableNames returns this backend's snake_case physical table
// names for the five logical tables.
func DefaultTableNames() TableNames {
	return TableNames{
		StatusCredential: "status_credential",
		UserCredential:   "user_credential",
		Event:            "event",
		CredentialEvent:  "credential_event",
		Config:           "config",
	}
}

func (t TableNames) withDefaults() TableNames {
	d := DefaultTableNames()
	if t.StatusCredential == "" {
		t.StatusCredential = d.StatusCredential
	}
	if t.UserCredential == "" {
		t.UserCredential = d.UserCredential
	}
	if t.Event == "" {
		t.Event = d.Event
	}
	if t.CredentialEvent == "" {
		t.CredentialEvent = d.CredentialEvent
	}
	if t.Config == "" {
		t.Config = d.Config
	}
	return t
}

// SQLiteStore implements Store over a single SQLite database file, the
// default and always-built backend. Each of the five tables is a (unique
// key column(s), data TEXT) pair: the full record is round-tripped as a
// JSON blob in `data`, the indexed columns exist only so uniqueness and
// by-field lookups can use a SQLite index instead of a full scan.
type SQLiteStore struct {
	db     *sql.DB
	tables TableNames

	mu     sync.RWMutex
	closed bool
}

// sqliteTx wraps a *sql.Tx to satisfy the Tx marker interface.
type sqliteTx struct {
	tx *sql.Tx
}

func (*sqliteTx) txMarker() {}

// NewSQLiteStore opens (creating if absent) the SQLite database at
// dbDir/credentialStatus.db and creates the five tables if they don't
// already exist, using the default database name and table names.
func NewSQLiteStore(dbDir string, concurrencyLimit int) (*SQLiteStore, error) {
	return NewSQLiteStoreWithOptions(dbDir, concurrencyLimit, "", TableNames{})
}

// NewSQLiteStoreWithOptions is NewSQLiteStore generalized over spec §6's
// databaseName and per-table name overrides. An empty databaseName or
// zero-value TableNames field falls back to its default.
func NewSQLiteStoreWithOptions(dbDir string, concurrencyLimit int, databaseName string, tables TableNames) (*SQLiteStore, error) {
	if databaseName == "" {
		databaseName = "credentialStatus"
	}
	dbPath := filepath.Join(dbDir, databaseName+".db")

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, merrors.Wrap(merrors.KindInternalServer, op, "failed to open sqlite database", err)
	}
	db.SetMaxOpenConns(concurrencyLimit + 100)

	s := &SQLiteStore{db: db, tables: tables.withDefaults()}
	if err := s.initSchema(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *SQLiteStore) initSchema() error {
	schema := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %[1]s (
			id      TEXT PRIMARY KEY,
			purpose TEXT NOT NULL,
			data    TEXT NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_%[1]s_purpose ON %[1]s(purpose);

		CREATE TABLE IF NOT EXISTS %[2]s (
			id   TEXT PRIMARY KEY,
			data TEXT NOT NULL
		);

		CREATE TABLE IF NOT EXISTS %[3]s (
			id            TEXT PRIMARY KEY,
			credential_id TEXT NOT NULL,
			data          TEXT NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_%[3]s_credential_id ON %[3]s(credential_id);

		CREATE TABLE IF NOT EXISTS %[4]s (
			credential_id TEXT PRIMARY KEY,
			data          TEXT NOT NULL
		);

		CREATE TABLE IF NOT EXISTS %[5]s (
			id   TEXT PRIMARY KEY,
			data TEXT NOT NULL
		);
	`, s.tables.StatusCredential, s.tables.UserCredential, s.tables.Event, s.tables.CredentialEvent, s.tables.Config)
	if _, err := s.db.Exec(schema); err != nil {
		return merrors.Wrap(merrors.KindInternalServer, op, "failed to initialize schema", err)
	}
	return nil
}

// tableFor maps one of the record.go Table* logical names to this
// store's configured physical table name.
func (s *SQLiteStore) tableFor(logical string) string {
	switch logical {
	case TableStatusCredential:
		return s.tables.StatusCredential
	case TableUserCredential:
		return s.tables.UserCredential
	case TableEvent:
		return s.tables.Event
	case TableCredentialEvent:
		return s.tables.CredentialEvent
	case TableConfig:
		return s.tables.Config
	default:
		return logical
	}
}

// querier is satisfied by both *sql.DB and *sql.Tx, letting every CRUD
// helper below run identically whether or not it's inside a transaction.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
}

func (s *SQLiteStore) conn(tx Tx) querier {
	if tx == nil {
		return s.db
	}
	if sqTx, ok := tx.(*sqliteTx); ok {
		return sqTx.tx
	}
	return s.db
}

func marshalRecord(rec interface{}) (string, error) {
	data, err := json.Marshal(rec)
	if err != nil {
		return "", merrors.Wrap(merrors.KindInternalServer, op, "failed to marshal record", err)
	}
	return string(data), nil
}

func unmarshalRecord(data string, out interface{}) error {
	if err := json.Unmarshal([]byte(data), out); err != nil {
		return merrors.Wrap(merrors.KindInternalServer, op, "failed to unmarshal record", err)
	}
	return nil
}

// --- StatusCredential ---

func (s *SQLiteStore) CreateStatusCredential(ctx context.Context, tx Tx, rec *StatusCredentialRecord) error {
	data, err := marshalRecord(rec)
	if err != nil {
		return err
	}
	_, err = s.conn(tx).ExecContext(ctx,
		fmt.Sprintf("INSERT INTO %s (id, purpose, data) VALUES (?, ?, ?)", s.tables.StatusCredential),
		rec.ID, rec.Purpose, data)
	if err != nil {
		return classifyTxError(op+".CreateStatusCredential", err)
	}
	return nil
}

func (s *SQLiteStore) UpdateStatusCredential(ctx context.Context, tx Tx, id string, rec *StatusCredentialRecord) error {
	data, err := marshalRecord(rec)
	if err != nil {
		return err
	}
	res, err := s.conn(tx).ExecContext(ctx,
		fmt.Sprintf("UPDATE %s SET purpose = ?, data = ? WHERE id = ?", s.tables.StatusCredential),
		rec.Purpose, data, id)
	if err != nil {
		return classifyTxError(op+".UpdateStatusCredential", err)
	}
	return requireRowsAffected(res, op+".UpdateStatusCredential", id)
}

func (s *SQLiteStore) GetStatusCredentialByID(ctx context.Context, tx Tx, id string) (*StatusCredentialRecord, error) {
	var data string
	err := s.conn(tx).QueryRowContext(ctx,
		fmt.Sprintf("SELECT data FROM %s WHERE id = ?", s.tables.StatusCredential), id).Scan(&data)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, classifyTxError(op+".GetStatusCredentialByID", err)
	}
	var rec StatusCredentialRecord
	if err := unmarshalRecord(data, &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

func (s *SQLiteStore) GetAnyStatusCredentialByPurpose(ctx context.Context, tx Tx, purpose string) (*StatusCredentialRecord, error) {
	var data string
	err := s.conn(tx).QueryRowContext(ctx,
		fmt.Sprintf("SELECT data FROM %s WHERE purpose = ? LIMIT 1", s.tables.StatusCredential), purpose).Scan(&data)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, classifyTxError(op+".GetAnyStatusCredentialByPurpose", err)
	}
	var rec StatusCredentialRecord
	if err := unmarshalRecord(data, &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

func (s *SQLiteStore) GetAllStatusCredentialsByPurpose(ctx context.Context, tx Tx, purpose string) ([]*StatusCredentialRecord, error) {
	rows, err := s.conn(tx).QueryContext(ctx,
		fmt.Sprintf("SELECT data FROM %s WHERE purpose = ?", s.tables.StatusCredential), purpose)
	if err != nil {
		return nil, classifyTxError(op+".GetAllStatusCredentialsByPurpose", err)
	}
	defer rows.Close()

	var result []*StatusCredentialRecord
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, classifyTxError(op+".GetAllStatusCredentialsByPurpose", err)
		}
		var rec StatusCredentialRecord
		if err := unmarshalRecord(data, &rec); err != nil {
			return nil, err
		}
		result = append(result, &rec)
	}
	return result, rows.Err()
}

// --- UserCredential ---

func (s *SQLiteStore) CreateUserCredential(ctx context.Context, tx Tx, rec *UserCredentialRecord) error {
	data, err := marshalRecord(rec)
	if err != nil {
		return err
	}
	_, err = s.conn(tx).ExecContext(ctx,
		fmt.Sprintf("INSERT INTO %s (id, data) VALUES (?, ?)", s.tables.UserCredential), rec.ID, data)
	if err != nil {
		return classifyTxError(op+".CreateUserCredential", err)
	}
	return nil
}

func (s *SQLiteStore) UpdateUserCredential(ctx context.Context, tx Tx, id string, rec *UserCredentialRecord) error {
	data, err := marshalRecord(rec)
	if err != nil {
		return err
	}
	res, err := s.conn(tx).ExecContext(ctx,
		fmt.Sprintf("UPDATE %s SET data = ? WHERE id = ?", s.tables.UserCredential), data, id)
	if err != nil {
		return classifyTxError(op+".UpdateUserCredential", err)
	}
	return requireRowsAffected(res, op+".UpdateUserCredential", id)
}

func (s *SQLiteStore) GetUserCredentialByID(ctx context.Context, tx Tx, id string) (*UserCredentialRecord, error) {
	var data string
	err := s.conn(tx).QueryRowContext(ctx,
		fmt.Sprintf("SELECT data FROM %s WHERE id = ?", s.tables.UserCredential), id).Scan(&data)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, classifyTxError(op+".GetUserCredentialByID", err)
	}
	var rec UserCredentialRecord
	if err := unmarshalRecord(data, &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

func (s *SQLiteStore) CountUserCredentials(ctx context.Context, tx Tx) (int, error) {
	var count int
	err := s.conn(tx).QueryRowContext(ctx,
		fmt.Sprintf("SELECT COUNT(*) FROM %s", s.tables.UserCredential)).Scan(&count)
	if err != nil {
		return 0, classifyTxError(op+".CountUserCredentials", err)
	}
	return count, nil
}

// --- Event / CredentialEvent ---

func (s *SQLiteStore) CreateEvent(ctx context.Context, tx Tx, rec *EventRecord) error {
	data, err := marshalRecord(rec)
	if err != nil {
		return err
	}
	_, err = s.conn(tx).ExecContext(ctx,
		fmt.Sprintf("INSERT INTO %s (id, credential_id, data) VALUES (?, ?, ?)", s.tables.Event),
		rec.ID, rec.CredentialID, data)
	if err != nil {
		return classifyTxError(op+".CreateEvent", err)
	}
	return nil
}

func (s *SQLiteStore) CreateCredentialEvent(ctx context.Context, tx Tx, rec *CredentialEventRecord) error {
	data, err := marshalRecord(rec)
	if err != nil {
		return err
	}
	_, err = s.conn(tx).ExecContext(ctx,
		fmt.Sprintf("INSERT INTO %s (credential_id, data) VALUES (?, ?)", s.tables.CredentialEvent),
		rec.CredentialID, data)
	if err != nil {
		return classifyTxError(op+".CreateCredentialEvent", err)
	}
	return nil
}

func (s *SQLiteStore) ReplaceCredentialEvent(ctx context.Context, tx Tx, rec *CredentialEventRecord) error {
	data, err := marshalRecord(rec)
	if err != nil {
		return err
	}
	_, err = s.conn(tx).ExecContext(ctx,
		fmt.Sprintf("INSERT OR REPLACE INTO %s (credential_id, data) VALUES (?, ?)", s.tables.CredentialEvent),
		rec.CredentialID, data)
	if err != nil {
		return classifyTxError(op+".ReplaceCredentialEvent", err)
	}
	return nil
}

func (s *SQLiteStore) GetCredentialEventByCredentialID(ctx context.Context, tx Tx, credentialID string) (*CredentialEventRecord, error) {
	var data string
	err := s.conn(tx).QueryRowContext(ctx,
		fmt.Sprintf("SELECT data FROM %s WHERE credential_id = ?", s.tables.CredentialEvent), credentialID).Scan(&data)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, classifyTxError(op+".GetCredentialEventByCredentialID", err)
	}
	var rec CredentialEventRecord
	if err := unmarshalRecord(data, &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

// --- Config ---

func (s *SQLiteStore) CreateConfig(ctx context.Context, tx Tx, rec *ConfigRecord) error {
	data, err := marshalRecord(rec)
	if err != nil {
		return err
	}
	_, err = s.conn(tx).ExecContext(ctx,
		fmt.Sprintf("INSERT INTO %s (id, data) VALUES (?, ?)", s.tables.Config), rec.ID, data)
	if err != nil {
		return classifyTxError(op+".CreateConfig", err)
	}
	return nil
}

func (s *SQLiteStore) UpdateConfig(ctx context.Context, tx Tx, rec *ConfigRecord) error {
	data, err := marshalRecord(rec)
	if err != nil {
		return err
	}
	res, err := s.conn(tx).ExecContext(ctx,
		fmt.Sprintf("UPDATE %s SET data = ? WHERE id = ?", s.tables.Config), data, rec.ID)
	if err != nil {
		return classifyTxError(op+".UpdateConfig", err)
	}
	return requireRowsAffected(res, op+".UpdateConfig", rec.ID)
}

func (s *SQLiteStore) GetConfig(ctx context.Context, tx Tx) (*ConfigRecord, error) {
	var data string
	err := s.conn(tx).QueryRowContext(ctx,
		fmt.Sprintf("SELECT data FROM %s LIMIT 1", s.tables.Config)).Scan(&data)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, classifyTxError(op+".GetConfig", err)
	}
	var rec ConfigRecord
	if err := unmarshalRecord(data, &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

func requireRowsAffected(res sql.Result, opName, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return merrors.Wrap(merrors.KindInternalServer, opName, "failed to read rows affected", err)
	}
	if n == 0 {
		return merrors.New(merrors.KindNotFound, opName, "no row with id "+id)
	}
	return nil
}

// --- Transactions ---

// ExecuteTransaction opens a transaction with sql.DB.BeginTx (SQLite's
// default deferred BEGIN, which takes the write lock at the first write
// rather than up front; a lock that cannot be taken surfaces as
// WriteConflict) and retries fn on WriteConflict/InvalidDatabaseTransaction/
// StatusListCapacity with a random [0,1000)ms backoff, per spec §5.
func (s *SQLiteStore) ExecuteTransaction(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Minute)
	defer cancel()

	for {
		err := s.attemptTransaction(ctx, fn)
		if err == nil {
			return nil
		}
		if !merrors.Retryable(err) {
			return err
		}
		select {
		case <-ctx.Done():
			return merrors.Wrap(merrors.KindInvalidDatabaseTransaction, op, "transaction timed out during retry backoff", ctx.Err())
		case <-time.After(time.Duration(rand.Intn(1000)) * time.Millisecond):
		}
	}
}

func (s *SQLiteStore) attemptTransaction(ctx context.Context, fn func(ctx context.Context, tx Tx) error) (err error) {
	s.mu.RLock()
	closed := s.closed
	s.mu.RUnlock()
	if closed {
		return merrors.New(merrors.KindInternalServer, op, "store is closed")
	}

	sqlTx, beginErr := s.db.BeginTx(ctx, nil)
	if beginErr != nil {
		return classifyTxError(op+".ExecuteTransaction", beginErr)
	}

	defer func() {
		if p := recover(); p != nil {
			sqlTx.Rollback()
			panic(p)
		}
	}()

	if err = fn(ctx, &sqliteTx{tx: sqlTx}); err != nil {
		if rbErr := sqlTx.Rollback(); rbErr != nil {
			log.WithError(rbErr).Warn("rollback after fn error also failed")
		}
		return err
	}

	if err = sqlTx.Commit(); err != nil {
		return classifyTxError(op+".ExecuteTransaction", err)
	}
	return nil
}

// --- Bootstrap primitives ---

func (s *SQLiteStore) DatabaseExists(ctx context.Context) (bool, error) {
	if err := s.db.PingContext(ctx); err != nil {
		return false, nil
	}
	return true, nil
}

func (s *SQLiteStore) TableExists(ctx context.Context, table string) (bool, error) {
	var name string
	err := s.db.QueryRowContext(ctx,
		"SELECT name FROM sqlite_master WHERE type = 'table' AND name = ?", s.tableFor(table)).Scan(&name)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, merrors.Wrap(merrors.KindInternalServer, op+".TableExists", "failed to query sqlite_master", err)
	}
	return true, nil
}

func (s *SQLiteStore) TableEmpty(ctx context.Context, table string) (bool, error) {
	var count int
	err := s.db.QueryRowContext(ctx, fmt.Sprintf("SELECT COUNT(*) FROM %s", s.tableFor(table))).Scan(&count)
	if err != nil {
		return false, merrors.Wrap(merrors.KindInternalServer, op+".TableEmpty", "failed to count rows", err)
	}
	return count == 0, nil
}

// CreateDatabase is a no-op: sql.Open lazily creates the SQLite file, and
// NewSQLiteStore already ran initSchema.
func (s *SQLiteStore) CreateDatabase(ctx context.Context) error { return nil }

// CreateTable is a no-op: initSchema already created every table with
// CREATE TABLE IF NOT EXISTS.
func (s *SQLiteStore) CreateTable(ctx context.Context, table string) error { return nil }

func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	return s.db.Close()
}

// ensureDir creates dir (and parents) if it doesn't already exist.
func ensureDir(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return merrors.Wrap(merrors.KindInternalServer, op, "failed to create data directory", err)
	}
	return nil
}

// sqlTableName maps the spec's CamelCase table names to this backend's
// snake_case physical table names.
func sqlTableName(table string) string {
	switch table {
	case TableStatusCredential:
		return "status_credential"
	case TableUserCredential:
		return "user_credential"
	case TableEvent:
		return "event"
	case TableCredentialEvent:
		return "credential_event"
	case TableConfig:
		return "config"
	default:
		return table
	}
}
