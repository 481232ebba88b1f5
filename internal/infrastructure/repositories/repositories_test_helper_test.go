package repositories

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s_%d?mode=memory&cache=shared", t.Name(), time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err, "open sqlite")
	return db
}

func mustExec(t *testing.T, db *gorm.DB, q string, args ...interface{}) {
	t.Helper()
	require.NoError(t, db.Exec(q, args...).Error, "exec failed: query=%s", q)
}

func createTransactionRecordTable(t *testing.T, db *gorm.DB) {
	mustExec(t, db, `CREATE TABLE transaction_records (
		id TEXT PRIMARY KEY,
		hash TEXT NOT NULL,
		type TEXT NOT NULL,
		from_address TEXT,
		to_address TEXT,
		amount TEXT,
		encrypted_amount TEXT,
		status TEXT NOT NULL,
		timestamp INTEGER NOT NULL,
		block_number INTEGER,
		network TEXT,
		metadata TEXT,
		created_at DATETIME,
		updated_at DATETIME
	);`)
}
