//go:build rocksdb

package store

import (
	"context"
	"math/rand"
	"time"

	json "github.com/goccy/go-json"
	"github.com/linxGnu/grocksdb"

	"github.com/ParichayaHQ/credence/internal/merrors"
)

const rocksOp = "store.rocksdb"

// cfNames are the physical column families backing the five tables.
var cfNames = []string{"default", "status_credential", "user_credential", "event", "credential_event", "config"}

// RocksDBStore implements Store using grocksdb's OptimisticTransactionDB:
// every ExecuteTransaction call opens an optimistic transaction and
// relies on RocksDB's snapshot-based conflict detection at Commit time,
// surfacing a conflict as merrors.KindWriteConflict so the caller retries.
type RocksDBStore struct {
	db   *grocksdb.OptimisticTransactionDB
	opts *grocksdb.Options
	cfs  map[string]*grocksdb.ColumnFamilyHandle

	readOpts  *grocksdb.ReadOptions
	writeOpts *grocksdb.WriteOptions
}

// rocksTx wraps the active optimistic transaction.
type rocksTx struct {
	txn *grocksdb.Transaction
}

func (*rocksTx) txMarker() {}

// NewRocksDBStore opens (creating if absent) the RocksDB database at dbDir.
func NewRocksDBStore(dbDir string) (*RocksDBStore, error) {
	opts := grocksdb.NewDefaultOptions()
	opts.SetCreateIfMissing(true)
	opts.SetCreateIfMissingColumnFamilies(true)

	cfOpts := make([]*grocksdb.Options, len(cfNames))
	for i := range cfNames {
		cfOpts[i] = grocksdb.NewDefaultOptions()
	}

	db, cfHandles, err := grocksdb.OpenOptimisticTransactionDbColumnFamilies(opts, dbDir, cfNames, cfOpts)
	if err != nil {
		return nil, merrors.Wrap(merrors.KindInternalServer, rocksOp, "failed to open rocksdb", err)
	}

	cfs := make(map[string]*grocksdb.ColumnFamilyHandle, len(cfNames))
	for i, name := range cfNames {
		cfs[name] = cfHandles[i]
	}

	return &RocksDBStore{
		db:        db,
		opts:      opts,
		cfs:       cfs,
		readOpts:  grocksdb.NewDefaultReadOptions(),
		writeOpts: grocksdb.NewDefaultWriteOptions(),
	}, nil
}

func (s *RocksDBStore) cf(table string) *grocksdb.ColumnFamilyHandle {
	return s.cfs[sqlTableName(table)]
}

// ExecuteTransaction opens an optimistic transaction, runs fn, and
// attempts to commit; a commit-time conflict (another writer touched the
// same keys first) is surfaced as WriteConflict for the caller to retry.
func (s *RocksDBStore) ExecuteTransaction(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error {
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
			return merrors.Wrap(merrors.KindInvalidDatabaseTransaction, rocksOp, "transaction timed out during retry backoff", ctx.Err())
		case <-time.After(time.Duration(rand.Intn(1000)) * time.Millisecond):
		}
	}
}

func (s *RocksDBStore) attemptTransaction(ctx context.Context, fn func(ctx context.Context, tx Tx) error) (err error) {
	txnOpts := grocksdb.NewDefaultTransactionOptions()
	txn := s.db.TransactionBegin(s.writeOpts, txnOpts, nil)
	defer txn.Destroy()

	if err = fn(ctx, &rocksTx{txn: txn}); err != nil {
		txn.Rollback()
		return err
	}

	if err = txn.Commit(); err != nil {
		return merrors.Wrap(merrors.KindWriteConflict, rocksOp, "optimistic transaction conflict", err)
	}
	return nil
}

func (s *RocksDBStore) get(tx Tx, table, key string, out interface{}) (bool, error) {
	txn, _ := tx.(*rocksTx)
	var slice *grocksdb.Slice
	var err error
	if txn != nil {
		slice, err = txn.txn.GetCF(s.readOpts, s.cf(table), []byte(key))
	} else {
		slice, err = s.db.GetCF(s.readOpts, s.cf(table), []byte(key))
	}
	if err != nil {
		return false, merrors.Wrap(merrors.KindInternalServer, rocksOp, "get failed", err)
	}
	defer slice.Free()
	if !slice.Exists() {
		return false, nil
	}
	if err := json.Unmarshal(slice.Data(), out); err != nil {
		return false, merrors.Wrap(merrors.KindInternalServer, rocksOp, "failed to unmarshal record", err)
	}
	return true, nil
}

func (s *RocksDBStore) put(tx Tx, table, key string, value interface{}, failIfExists bool) error {
	txn, ok := tx.(*rocksTx)
	if !ok {
		return merrors.New(merrors.KindInternalServer, rocksOp, "rocksdb writes must run inside ExecuteTransaction")
	}
	if failIfExists {
		existing, err := txn.txn.GetForUpdateCF(s.readOpts, s.cf(table), []byte(key))
		if err != nil {
			return merrors.Wrap(merrors.KindInternalServer, rocksOp, "get-for-update failed", err)
		}
		defer existing.Free()
		if existing.Exists() {
			return merrors.New(merrors.KindWriteConflict, rocksOp, "duplicate key "+key)
		}
	}
	data, err := json.Marshal(value)
	if err != nil {
		return merrors.Wrap(merrors.KindInternalServer, rocksOp, "failed to marshal record", err)
	}
	if err := txn.txn.PutCF(s.cf(table), []byte(key), data); err != nil {
		return merrors.Wrap(merrors.KindInternalServer, rocksOp, "put failed", err)
	}
	return nil
}

// --- StatusCredential ---

func (s *RocksDBStore) CreateStatusCredential(ctx context.Context, tx Tx, rec *StatusCredentialRecord) error {
	return s.put(tx, TableStatusCredential, rec.ID, rec, true)
}

func (s *RocksDBStore) UpdateStatusCredential(ctx context.Context, tx Tx, id string, rec *StatusCredentialRecord) error {
	return s.put(tx, TableStatusCredential, id, rec, false)
}

func (s *RocksDBStore) GetStatusCredentialByID(ctx context.Context, tx Tx, id string) (*StatusCredentialRecord, error) {
	var rec StatusCredentialRecord
	ok, err := s.get(tx, TableStatusCredential, id, &rec)
	if err != nil || !ok {
		return nil, err
	}
	return &rec, nil
}

// GetAnyStatusCredentialByPurpose and GetAllStatusCredentialsByPurpose
// iterate the column family: RocksDB has no secondary index here, so a
// by-purpose query is a prefix-free full scan filtered in process. This
// mirrors the SQLite backend's semantics exactly; it is simply not
// index-accelerated for this backend.
func (s *RocksDBStore) GetAnyStatusCredentialByPurpose(ctx context.Context, tx Tx, purpose string) (*StatusCredentialRecord, error) {
	all, err := s.GetAllStatusCredentialsByPurpose(ctx, tx, purpose)
	if err != nil || len(all) == 0 {
		return nil, err
	}
	return all[0], nil
}

func (s *RocksDBStore) GetAllStatusCredentialsByPurpose(ctx context.Context, tx Tx, purpose string) ([]*StatusCredentialRecord, error) {
	it := s.db.NewIteratorCF(s.readOpts, s.cf(TableStatusCredential))
	defer it.Close()

	var result []*StatusCredentialRecord
	for it.SeekToFirst(); it.Valid(); it.Next() {
		var rec StatusCredentialRecord
		value := it.Value()
		err := json.Unmarshal(value.Data(), &rec)
		value.Free()
		if err != nil {
			return nil, merrors.Wrap(merrors.KindInternalServer, rocksOp, "failed to unmarshal record", err)
		}
		if rec.Purpose == purpose {
			result = append(result, &rec)
		}
	}
	return result, nil
}

// --- UserCredential ---

func (s *RocksDBStore) CreateUserCredential(ctx context.Context, tx Tx, rec *UserCredentialRecord) error {
	return s.put(tx, TableUserCredential, rec.ID, rec, true)
}

func (s *RocksDBStore) UpdateUserCredential(ctx context.Context, tx Tx, id string, rec *UserCredentialRecord) error {
	return s.put(tx, TableUserCredential, id, rec, false)
}

func (s *RocksDBStore) GetUserCredentialByID(ctx context.Context, tx Tx, id string) (*UserCredentialRecord, error) {
	var rec UserCredentialRecord
	ok, err := s.get(tx, TableUserCredential, id, &rec)
	if err != nil || !ok {
		return nil, err
	}
	return &rec, nil
}

func (s *RocksDBStore) CountUserCredentials(ctx context.Context, tx Tx) (int, error) {
	it := s.db.NewIteratorCF(s.readOpts, s.cf(TableUserCredential))
	defer it.Close()
	count := 0
	for it.SeekToFirst(); it.Valid(); it.Next() {
		count++
	}
	return count, nil
}

// --- Event / CredentialEvent ---

func (s *RocksDBStore) CreateEvent(ctx context.Context, tx Tx, rec *EventRecord) error {
	return s.put(tx, TableEvent, rec.ID, rec, true)
}

func (s *RocksDBStore) CreateCredentialEvent(ctx context.Context, tx Tx, rec *CredentialEventRecord) error {
	return s.put(tx, TableCredentialEvent, rec.CredentialID, rec, true)
}

func (s *RocksDBStore) ReplaceCredentialEvent(ctx context.Context, tx Tx, rec *CredentialEventRecord) error {
	return s.put(tx, TableCredentialEvent, rec.CredentialID, rec, false)
}

func (s *RocksDBStore) GetCredentialEventByCredentialID(ctx context.Context, tx Tx, credentialID string) (*CredentialEventRecord, error) {
	var rec CredentialEventRecord
	ok, err := s.get(tx, TableCredentialEvent, credentialID, &rec)
	if err != nil || !ok {
		return nil, err
	}
	return &rec, nil
}

// --- Config ---

func (s *RocksDBStore) CreateConfig(ctx context.Context, tx Tx, rec *ConfigRecord) error {
	return s.put(tx, TableConfig, rec.ID, rec, true)
}

func (s *RocksDBStore) UpdateConfig(ctx context.Context, tx Tx, rec *ConfigRecord) error {
	return s.put(tx, TableConfig, rec.ID, rec, false)
}

func (s *RocksDBStore) GetConfig(ctx context.Context, tx Tx) (*ConfigRecord, error) {
	it := s.db.NewIteratorCF(s.readOpts, s.cf(TableConfig))
	defer it.Close()
	it.SeekToFirst()
	if !it.Valid() {
		return nil, nil
	}
	var rec ConfigRecord
	value := it.Value()
	err := json.Unmarshal(value.Data(), &rec)
	value.Free()
	if err != nil {
		return nil, merrors.Wrap(merrors.KindInternalServer, rocksOp, "failed to unmarshal record", err)
	}
	return &rec, nil
}

// --- Bootstrap primitives ---

func (s *RocksDBStore) DatabaseExists(ctx context.Context) (bool, error) { return s.db != nil, nil }

func (s *RocksDBStore) TableExists(ctx context.Context, table string) (bool, error) {
	_, ok := s.cfs[sqlTableName(table)]
	return ok, nil
}

func (s *RocksDBStore) TableEmpty(ctx context.Context, table string) (bool, error) {
	it := s.db.NewIteratorCF(s.readOpts, s.cf(table))
	defer it.Close()
	it.SeekToFirst()
	return !it.Valid(), nil
}

func (s *RocksDBStore) CreateDatabase(ctx context.Context) error { return nil }
func (s *RocksDBStore) CreateTable(ctx context.Context, table string) error { return nil }

func (s *RocksDBStore) Close() error {
	s.db.Close()
	return nil
}
