package database

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
)

// ErrUnsupportedDriver is returned for a driver name outside mysql/postgres/sqlite3.
var ErrUnsupportedDriver = errors.New("database: unsupported driver")

// Dialect identifies the SQL flavour behind a connection.
type Dialect string

// Supported dialects. The values match the config driver names.
const (
	MySQL    Dialect = "mysql"
	Postgres Dialect = "postgres"
	SQLite   Dialect = "sqlite3"
)

// Default ports for network databases.
const (
	defaultMySQLPort    = 3306
	defaultPostgresPort = 5432
)

// DialectFor resolves a config driver name.
func DialectFor(driver string) (Dialect, error) {
	switch d := Dialect(driver); d {
	case MySQL, Postgres, SQLite:
		return d, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedDriver, driver)
	}
}

// DriverName returns the database/sql driver registered for the dialect.
func (d Dialect) DriverName() string {
	if d == Postgres {
		return "pgx"
	}
	return string(d)
}

// MigrationsDir returns the directory of dialect-specific migration files.
func (d Dialect) MigrationsDir() string {
	switch d {
	case Postgres:
		return "postgres"
	case MySQL:
		return "mysql"
	default:
		return "sqlite"
	}
}

// Rebind rewrites ? placeholders to $1..$n for postgres.
// Question marks inside single-quoted literals are left alone.
func (d Dialect) Rebind(query string) string {
	if d != Postgres || !strings.Contains(query, "?") {
		return query
	}

	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	inQuote := false
	for _, r := range query {
		switch {
		case r == '\'':
			inQuote = !inQuote
			b.WriteRune(r)
		case r == '?' && !inQuote:
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

// BuildDSN returns the driver connection string for cfg.
func BuildDSN(cfg Config) (string, error) {
	dialect, err := DialectFor(cfg.Driver)
	if err != nil {
		return "", err
	}

	switch dialect {
	case MySQL:
		return mysqlDSN(cfg), nil
	case Postgres:
		return postgresDSN(cfg), nil
	default:
		if cfg.Path == "" {
			return "", errors.New("database: sqlite3 requires a path")
		}
		// See: https://github.com/mattn/go-sqlite3#connection-string
		return fmt.Sprintf("file:%s?_busy_timeout=5000&_journal_mode=WAL&_synchronous=NORMAL", cfg.Path), nil
	}
}

// mysqlDSN builds a go-sql-driver DSN. Timestamps are parsed into
// time.Time and interpreted as UTC.
func mysqlDSN(cfg Config) string {
	port := cfg.Port
	if port == 0 {
		port = defaultMySQLPort
	}

	mc := mysql.NewConfig()
	mc.User = cfg.User
	mc.Passwd = cfg.Password
	mc.Net = "tcp"
	mc.Addr = net.JoinHostPort(cfg.Host, strconv.Itoa(port))
	mc.DBName = cfg.Database
	mc.ParseTime = true
	mc.Loc = time.UTC
	mc.Timeout = cfg.ConnectTimeout
	return mc.FormatDSN()
}

// postgresDSN builds a postgres URL understood by pgx.
func postgresDSN(cfg Config) string {
	port := cfg.Port
	if port == 0 {
		port = defaultPostgresPort
	}

	connURL := url.URL{
		Scheme: "postgres",
		Host:   net.JoinHostPort(cfg.Host, strconv.Itoa(port)),
		Path:   "/" + cfg.Database,
	}

	if cfg.User != "" {
		if cfg.Password != "" {
			connURL.User = url.UserPassword(cfg.User, cfg.Password)
		} else {
			connURL.User = url.User(cfg.User)
		}
	}

	query := connURL.Query()
	sslMode := cfg.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}
	query.Set("sslmode", sslMode)
	query.Set("timezone", "UTC")
	if secs := int(cfg.ConnectTimeout.Seconds()); secs > 0 {
		query.Set("connect_timeout", strconv.Itoa(secs))
	}
	connURL.RawQuery = query.Encode()

	return connURL.String()
}
