//go:build !rocksdb

package store

import (
	"context"

	"github.com/ParichayaHQ/credence/internal/merrors"
)

// RocksDBStore is a stub when the repo is built without the 'rocksdb' tag
// (the default). NewRocksDBStore returns an error directing the operator
// to rebuild with -tags rocksdb, which also requires librocksdb to be
// installed for grocksdb's cgo bindings.
type RocksDBStore struct{}

func NewRocksDBStore(dbDir string) (*RocksDBStore, error) {
	return nil, merrors.New(merrors.KindInternalServer, "store.rocksdb",
		"RocksDB backend not compiled in - rebuild with -tags rocksdb")
}

func (s *RocksDBStore) CreateStatusCredential(ctx context.Context, tx Tx, rec *StatusCredentialRecord) error {
	return merrors.New(merrors.KindInternalServer, "store.rocksdb", "not available")
}
func (s *RocksDBStore) UpdateStatusCredential(ctx context.Context, tx Tx, id string, rec *StatusCredentialRecord) error {
	return merrors.New(merrors.KindInternalServer, "store.rocksdb", "not available")
}
func (s *RocksDBStore) GetStatusCredentialByID(ctx context.Context, tx Tx, id string) (*StatusCredentialRecord, error) {
	return nil, merrors.New(merrors.KindInternalServer, "store.rocksdb", "not available")
}
func (s *RocksDBStore) GetAnyStatusCredentialByPurpose(ctx context.Context, tx Tx, purpose string) (*StatusCredentialRecord, error) {
	return nil, merrors.New(merrors.KindInternalServer, "store.rocksdb", "not available")
}
func (s *RocksDBStore) GetAllStatusCredentialsByPurpose(ctx context.Context, tx Tx, purpose string) ([]*StatusCredentialRecord, error) {
	return nil, merrors.New(merrors.KindInternalServer, "store.rocksdb", "not available")
}
func (s *RocksDBStore) CreateUserCredential(ctx context.Context, tx Tx, rec *UserCredentialRecord) error {
	return merrors.New(merrors.KindInternalServer, "store.rocksdb", "not available")
}
func (s *RocksDBStore) UpdateUserCredential(ctx context.Context, tx Tx, id string, rec *UserCredentialRecord) error {
	return merrors.New(merrors.KindInternalServer, "store.rocksdb", "not available")
}
func (s *RocksDBStore) GetUserCredentialByID(ctx context.Context, tx Tx, id string) (*UserCredentialRecord, error) {
	return nil, merrors.New(merrors.KindInternalServer, "store.rocksdb", "not available")
}
func (s *RocksDBStore) CountUserCredentials(ctx context.Context, tx Tx) (int, error) {
	return 0, merrors.New(merrors.KindInternalServer, "store.rocksdb", "not available")
}
func (s *RocksDBStore) CreateEvent(ctx context.Context, tx Tx, rec *EventRecord) error {
	return merrors.New(merrors.KindInternalServer, "store.rocksdb", "not available")
}
func (s *RocksDBStore) CreateCredentialEvent(ctx context.Context, tx Tx, rec *CredentialEventRecord) error {
	return merrors.New(merrors.KindInternalServer, "store.rocksdb", "not available")
}
func (s *RocksDBStore) ReplaceCredentialEvent(ctx context.Context, tx Tx, rec *CredentialEventRecord) error {
	return merrors.New(merrors.KindInternalServer, "store.rocksdb", "not available")
}
func (s *RocksDBStore) GetCredentialEventByCredentialID(ctx context.Context, tx Tx, credentialID string) (*CredentialEventRecord, error) {
	return nil, merrors.New(merrors.KindInternalServer, "store.rocksdb", "not available")
}
func (s *RocksDBStore) CreateConfig(ctx context.Context, tx Tx, rec *ConfigRecord) error {
	return merrors.New(merrors.KindInternalServer, "store.rocksdb", "not available")
}
func (s *RocksDBStore) UpdateConfig(ctx context.Context, tx Tx, rec *ConfigRecord) error {
	return merrors.New(merrors.KindInternalServer, "store.rocksdb", "not available")
}
func (s *RocksDBStore) GetConfig(ctx context.Context, tx Tx) (*ConfigRecord, error) {
	return nil, merrors.New(merrors.KindInternalServer, "store.rocksdb", "not available")
}
func (s *RocksDBStore) ExecuteTransaction(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error {
	return merrors.New(merrors.KindInternalServer, "store.rocksdb", "not available")
}
func (s *RocksDBStore) DatabaseExists(ctx context.Context) (bool, error) { return false, nil }
func (s *RocksDBStore) TableExists(ctx context.Context, table string) (bool, error) {
	return false, nil
}
func (s *RocksDBStore) TableEmpty(ctx context.Context, table string) (bool, error) {
	return true, nil
}
func (s *RocksDBStore) CreateDatabase(ctx context.Context) error          { return nil }
func (s *RocksDBStore) CreateTable(ctx context.Context, table string) error { return nil }
func (s *RocksDBStore) Close() error                                     { return nil }
