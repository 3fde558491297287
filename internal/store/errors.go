package store

import (
	"database/sql/driver"
	"errors"
	"strings"

	sqlite "modernc.org/sqlite"

	"github.com/ParichayaHQ/credence/internal/merrors"
)

// classifyTxError maps a driver-level error raised inside a transaction
// attempt to the merrors.Kind the retry loop branches on. SQLite reports
// both "UNIQUE constraint failed" (a colliding Create) and SQLITE_BUSY /
// SQLITE_LOCKED (lost the write lock to a concurrent writer) as plain
// *sqlite.Error; both are treated as WriteConflict so ExecuteTransaction
// retries them per spec §5.
func classifyTxError(op string, err error) error {
	if err == nil {
		return nil
	}
	var merr *merrors.Error
	if errors.As(err, &merr) {
		return err
	}

	var sqliteErr *sqlite.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.Code() {
		case sqliteBusy, sqliteLocked, sqliteConstraintUnique:
			return merrors.Wrap(merrors.KindWriteConflict, op, "concurrent write lost the race", err)
		}
	}
	if strings.Contains(err.Error(), "UNIQUE constraint failed") {
		return merrors.Wrap(merrors.KindWriteConflict, op, "duplicate unique key", err)
	}
	if errors.Is(err, driver.ErrBadConn) {
		return merrors.Wrap(merrors.KindInvalidDatabaseTransaction, op, "connection lost mid-transaction", err)
	}
	return merrors.Wrap(merrors.KindInternalServer, op, "store operation failed", err)
}

// SQLite result codes, mirrored here rather than imported from
// modernc.org/sqlite's internal lib package (unexported there).
const (
	sqliteBusy             = 5
	sqliteLocked           = 6
	sqliteConstraintUnique = 2067 // SQLITE_CONSTRAINT | (SQLITE_CONSTRAINT_UNIQUE << 8)
)
