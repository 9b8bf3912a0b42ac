package sink

import (
	"fmt"

	_ "github.com/go-sql-driver/mysql"
)

// MySQLDSN constructs a MySQL connection string.
// Format: user:password@tcp(host:port)/dbname?parseTime=true
func MySQLDSN(host string, port int, user, password, dbname string) string {
	if port == 0 {
		port = 3306
	}
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?parseTime=true&charset=utf8mb4",
		user, password, host, port, dbname)
}
