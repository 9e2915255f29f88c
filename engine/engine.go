package engine

import (
	"database/sql"
	"strconv"
	"strings"

	_ "modernc.org/sqlite" // register pure-Go SQLite driver
)

// BusyTimeoutMillis is applied to file databases opened with Open so that
// pooled connections wait for each other's write locks instead of failing.
const BusyTimeoutMillis = 5000

// Open opens a SQLite database using the modernc.org/sqlite driver with the
// nn_* distance functions registered.
//
// For file-based databases, pass a path like "./index.db"; a busy timeout
// pragma is added unless the DSN already sets one. For in-memory databases,
// pass ":memory:"; every pooled connection then sees its own database, so
// callers usually pair it with SetMaxOpenConns(1).
func Open(dsn string) (*sql.DB, error) {
	if err := RegisterDistanceFunctions(); err != nil {
		return nil, err
	}
	return sql.Open("sqlite", withBusyTimeout(dsn))
}

func withBusyTimeout(dsn string) string {
	if dsn == ":memory:" || strings.Contains(dsn, "busy_timeout") {
		return dsn
	}
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	return dsn + sep + "_pragma=busy_timeout(" + strconv.Itoa(BusyTimeoutMillis) + ")"
}
