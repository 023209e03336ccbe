package sqlstore

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"net"
	"strconv"
	"strings"

	"github.com/lib/pq"
	"github.com/pressly/goose/v3"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/kailas-cloud/agentmart/internal/db"
)

// Supported drivers.
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// dialect isolates the SQL differences between PostgreSQL and SQLite.
type dialect interface {
	driverName() string
	gooseDialect() goose.Dialect
	migrationsDir() string
	placeholder(n int) string
	// contains returns a case-insensitive substring predicate on expr.
	contains(expr, ph string) string
	// anyOf returns a membership predicate on expr for values.
	anyOf(expr string, a *args, values []string) string
	classify(op string, err error) error
}

func dialectFor(driverName string) (dialect, error) {
	switch driverName {
	case DriverPostgres:
		return postgresDialect{}, nil
	case DriverSQLite:
		return sqliteDialect{}, nil
	default:
		return nil, errors.New("unsupported driver: " + driverName)
	}
}

// args accumulates positional query arguments and hands out placeholders.
type args struct {
	d    dialect
	vals []any
}

func (a *args) add(v any) string {
	a.vals = append(a.vals, v)
	return a.d.placeholder(len(a.vals))
}

// --- PostgreSQL ---

type postgresDialect struct{}

func (postgresDialect) driverName() string          { return DriverPostgres }
func (postgresDialect) gooseDialect() goose.Dialect { return goose.DialectPostgres }
func (postgresDialect) migrationsDir() string       { return "migrations/postgres" }
func (postgresDialect) placeholder(n int) string    { return "$" + strconv.Itoa(n) }

func (postgresDialect) contains(expr, ph string) string {
	return expr + ` ILIKE '%' || ` + ph + ` || '%' ESCAPE '\'`
}

func (postgresDialect) anyOf(expr string, a *args, values []string) string {
	return expr + " = ANY(" + a.add(pq.Array(values)) + ")"
}

// PostgreSQL SQLSTATE codes and classes.
const (
	pqClassConnection  = "08"
	pqClassResources   = "53"
	pqQueryCanceled    = "57014"
	pqAdminShutdown    = "57P01"
	pqCannotConnectNow = "57P03"
)

func (postgresDialect) classify(op string, err error) error {
	if err == nil {
		return nil
	}
	var pe *pq.Error
	if errors.As(err, &pe) {
		switch {
		case pe.Code == pqQueryCanceled:
			return db.NewError(db.KindTimeout, op, pe.Message, err)
		case pe.Code.Class() == pqClassConnection,
			pe.Code.Class() == pqClassResources,
			pe.Code == pqAdminShutdown,
			pe.Code == pqCannotConnectNow:
			return db.NewError(db.KindConnection, op, pe.Message, err)
		default:
			return db.NewError(db.KindQuery, op, pe.Message, err)
		}
	}
	return classifyCommon(op, err)
}

// --- SQLite ---

type sqliteDialect struct{}

func (sqliteDialect) driverName() string          { return DriverSQLite }
func (sqliteDialect) gooseDialect() goose.Dialect { return goose.DialectSQLite3 }
func (sqliteDialect) migrationsDir() string       { return "migrations/sqlite" }
func (sqliteDialect) placeholder(n int) string    { return "?" + strconv.Itoa(n) }

// SQLite LIKE is case-insensitive for ASCII.
func (sqliteDialect) contains(expr, ph string) string {
	return expr + ` LIKE '%' || ` + ph + ` || '%' ESCAPE '\'`
}

func (sqliteDialect) anyOf(expr string, a *args, values []string) string {
	phs := make([]string, len(values))
	for i, v := range values {
		phs[i] = a.add(v)
	}
	return expr + " IN (" + strings.Join(phs, ", ") + ")"
}

func (sqliteDialect) classify(op string, err error) error {
	if err == nil {
		return nil
	}
	var se *sqlite.Error
	if errors.As(err, &se) {
		switch se.Code() & 0xff {
		case sqlite3.SQLITE_INTERRUPT:
			return db.NewError(db.KindTimeout, op, "interrupted", err)
		case sqlite3.SQLITE_BUSY, sqlite3.SQLITE_LOCKED, sqlite3.SQLITE_CANTOPEN, sqlite3.SQLITE_IOERR:
			return db.NewError(db.KindConnection, op, "database unavailable", err)
		default:
			return db.NewError(db.KindQuery, op, "", err)
		}
	}
	return classifyCommon(op, err)
}

// classifyCommon handles driver-independent failures.
func classifyCommon(op string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return db.NewError(db.KindTimeout, op, "", err)
	}
	var ne net.Error
	if errors.Is(err, driver.ErrBadConn) || errors.Is(err, sql.ErrConnDone) || errors.As(err, &ne) {
		return db.NewError(db.KindConnection, op, "", err)
	}
	return db.Wrap(op, err)
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// escapeLike makes s match literally inside a LIKE pattern.
func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
