// Package sink loads record streams into relational tables.
package sink

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/joiningdata/tabio/formats"
	"github.com/joiningdata/tabio/schema"
)

// ErrUnsupportedDriver indicates a driver name outside the supported set.
var ErrUnsupportedDriver = errors.New("tabio/sink: unsupported driver")

// batchSize is how many inserts share one transaction.
const batchSize = 500

// DB is an open destination database.
type DB struct {
	db     *sql.DB
	driver string
}

// Open connects to the destination. Supported drivers are "sqlite",
// "postgres", and "mysql"; the DSN is driver-specific.
func Open(driver, dsn string) (*DB, error) {
	switch driver {
	case "sqlite":
		dsn = sqliteDSN(dsn)
	case "postgres", "mysql":
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedDriver, driver)
	}
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", driver, err)
	}
	db.SetMaxOpenConns(5)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(10 * time.Minute)
	return &DB{db: db, driver: driver}, nil
}

// Close releases the connection pool.
func (s *DB) Close() error { return s.db.Close() }

// Ping verifies the connection is usable.
func (s *DB) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	return s.db.PingContext(ctx)
}

// quoteIdent quotes a table or column name for the driver.
func (s *DB) quoteIdent(name string) string {
	if s.driver == "mysql" {
		return "`" + strings.ReplaceAll(name, "`", "``") + "`"
	}
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// placeholder returns the i-th (1-based) statement parameter.
func (s *DB) placeholder(i int) string {
	if s.driver == "postgres" {
		return fmt.Sprintf("$%d", i)
	}
	return "?"
}

// columnType maps a declared datatype to a SQL column type for the
// driver. Untyped and constrained-text fields become plain text.
func (s *DB) columnType(t *schema.Type) string {
	name := ""
	if t != nil {
		name = t.Name
	}
	switch name {
	case "int8", "int16", "int32", "uint8", "uint16":
		return "integer"
	case "int64", "uint32", "uint64":
		return "bigint"
	case "real":
		if s.driver == "mysql" {
			return "double"
		}
		return "double precision"
	case "boolean":
		return "boolean"
	case "date":
		return "date"
	case "datetime":
		if s.driver == "postgres" {
			return "timestamp"
		}
		return "datetime"
	}
	// enum(...), regex(...), uri, ref, token, string, duration, time
	return "text"
}

// CreateTable creates the destination table from the schema's field
// declarations. It is not an error for the table to already exist.
func (s *DB) CreateTable(ctx context.Context, table string, sch *schema.Schema) error {
	fields := sch.Fields()
	if len(fields) == 0 {
		return errors.New("tabio/sink: empty schema")
	}
	var cols []string
	for _, f := range fields {
		col := s.quoteIdent(f.Name) + " " + s.columnType(f.Type)
		if f.Repetition.Required() {
			col += " NOT NULL"
		}
		cols = append(cols, col)
	}
	q := "CREATE TABLE IF NOT EXISTS " + s.quoteIdent(table) +
		" (" + strings.Join(cols, ", ") + ");"
	_, err := s.db.ExecContext(ctx, q)
	if err != nil {
		return fmt.Errorf("create table %s: %w", table, err)
	}
	return nil
}

// insertQuery builds the parameterized insert for the column set.
func (s *DB) insertQuery(table string, columns []string) string {
	names := make([]string, len(columns))
	params := make([]string, len(columns))
	for i, c := range columns {
		names[i] = s.quoteIdent(c)
		params[i] = s.placeholder(i + 1)
	}
	return "INSERT INTO " + s.quoteIdent(table) +
		" (" + strings.Join(names, ", ") + ") VALUES (" +
		strings.Join(params, ", ") + ");"
}

// Load streams every record of r into the table, committing in batches.
// The first record fixes the column set; later records are inserted by
// field name, with "" for any field they lack. Returns the number of
// rows inserted.
func (s *DB) Load(ctx context.Context, table string, r formats.Reader) (int, error) {
	var columns []string
	var stmt *sql.Stmt
	var tx *sql.Tx
	total, pending := 0, 0

	commit := func() error {
		if tx == nil {
			return nil
		}
		stmt.Close()
		err := tx.Commit()
		tx, stmt = nil, nil
		pending = 0
		return err
	}

	for {
		rec, err := r.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			if tx != nil {
				tx.Rollback()
			}
			return total, fmt.Errorf("tabio/sink: read: %w", err)
		}

		if columns == nil {
			columns = append(columns, rec.Fields...)
		}
		if tx == nil {
			tx, err = s.db.BeginTx(ctx, nil)
			if err != nil {
				return total, err
			}
			stmt, err = tx.PrepareContext(ctx, s.insertQuery(table, columns))
			if err != nil {
				tx.Rollback()
				return total, fmt.Errorf("tabio/sink: prepare: %w", err)
			}
		}

		m := rec.Map()
		args := make([]interface{}, len(columns))
		for i, c := range columns {
			args[i] = m[c]
		}
		if _, err := stmt.ExecContext(ctx, args...); err != nil {
			tx.Rollback()
			return total, fmt.Errorf("tabio/sink: insert: %w", err)
		}
		total++
		pending++
		if pending >= batchSize {
			if err := commit(); err != nil {
				return total, err
			}
		}
	}
	return total, commit()
}
