package sink

import (
	"fmt"

	_ "github.com/lib/pq"
)

// PostgresDSN constructs a Postgres connection string.
func PostgresDSN(host string, port int, user, password, dbname string) string {
	if port == 0 {
		port = 5432
	}
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		host, port, user, password, dbname)
}
