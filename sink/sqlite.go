package sink

import (
	_ "modernc.org/sqlite"
)

// sqliteDSN opens the file in WAL mode with a busy timeout so loads
// tolerate concurrent readers.
func sqliteDSN(path string) string {
	return path + "?_journal_mode=WAL&_busy_timeout=5000"
}
