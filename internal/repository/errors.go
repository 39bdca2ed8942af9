// Package repository implements data access over MySQL. The domain
// error taxonomy lives in the model package; repositories translate raw
// driver errors (missing rows, duplicate keys, zero-row conditional
// updates) into those sentinels so handlers never inspect SQL errors.
package repository

import (
	"errors"

	"github.com/go-sql-driver/mysql"
)

// mysqlDuplicateEntry is the server error number raised when an insert
// violates a unique index.
const mysqlDuplicateEntry = 1062

// isDuplicateKey reports whether err is a unique-index violation. The
// compound unique keys on (event_id, staff_id) back the one-application
// and one-attendance-per-pair invariants, so several call sites map this
// condition to a domain error or treat it as idempotent success.
func isDuplicateKey(err error) bool {
	var me *mysql.MySQLError
	return errors.As(err, &me) && me.Number == mysqlDuplicateEntry
}
