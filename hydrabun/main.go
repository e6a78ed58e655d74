// Package hydrabun binds hydra to Bun: entity metadata is read from Bun
// table schemas and associations are resolved with Bun select queries.
package hydrabun

import (
	"database/sql"
	"fmt"
	"strings"

	"github.com/go-sql-driver/mysql"
	"github.com/lemmego/hydra"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/mysqldialect"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/extra/bundebug"
)

// =====================================
// Connection
// =====================================

// SupportedDrivers lists the driver names accepted by Open.
var SupportedDrivers = []string{"postgres", "postgresql", "pg", "mysql", "sqlite", "sqlite3"}

// Open connects to the database described by config.
//
// "postgres" goes through lib/pq and "pg" through Bun's own pgdriver.
// Options["bun"]["log_level"] other than "silent" installs a bundebug
// query hook; "debug" logs every query.
func Open(config hydra.Config) (*bun.DB, error) {
	var sqlDB *sql.DB
	var err error

	driver := strings.ToLower(config.Driver)
	switch driver {
	case "postgres", "postgresql":
		sqlDB, err = createPostgresConnection(config)
	case "pg":
		sqlDB = createPgDriverConnection(config)
	case "mysql":
		sqlDB, err = createMySQLConnection(config)
	case "sqlite", "sqlite3":
		sqlDB, err = createSQLiteConnection(config)
	default:
		return nil, hydra.NewError(hydra.ErrorTypeUnsupported, fmt.Sprintf("unsupported driver: %s", config.Driver))
	}
	if err != nil {
		return nil, hydra.NewErrorWithCause(hydra.ErrorTypeConnection, "failed to connect to database", err)
	}

	if config.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(config.MaxOpenConns)
	}
	if config.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(config.MaxIdleConns)
	}
	if config.ConnMaxLifetime > 0 {
		sqlDB.SetConnMaxLifetime(config.ConnMaxLifetime)
	}
	if config.ConnMaxIdleTime > 0 {
		sqlDB.SetConnMaxIdleTime(config.ConnMaxIdleTime)
	}

	var db *bun.DB
	switch driver {
	case "postgres", "postgresql", "pg":
		db = bun.NewDB(sqlDB, pgdialect.New())
	case "mysql":
		db = bun.NewDB(sqlDB, mysqldialect.New())
	default:
		db = bun.NewDB(sqlDB, sqlitedialect.New())
	}

	if options, ok := config.Options["bun"]; ok {
		if bunOpts, ok := options.(map[string]interface{}); ok {
			if logLevel, ok := bunOpts["log_level"].(string); ok && logLevel != "silent" {
				db.AddQueryHook(bundebug.NewQueryHook(
					bundebug.WithVerbose(logLevel == "debug"),
				))
			}
		}
	}

	return db, nil
}

// =====================================
// Connection Helpers
// =====================================

// createPostgresConnection creates a PostgreSQL connection
func createPostgresConnection(config hydra.Config) (*sql.DB, error) {
	return sql.Open("postgres", buildPostgresDSN(config))
}

// createPgDriverConnection creates a PostgreSQL connection using pgdriver
func createPgDriverConnection(config hydra.Config) *sql.DB {
	connector := pgdriver.NewConnector(pgdriver.WithDSN(buildPostgresDSN(config)))
	return sql.OpenDB(connector)
}

// createMySQLConnection creates a MySQL connection
func createMySQLConnection(config hydra.Config) (*sql.DB, error) {
	if config.ConnectionURL != "" {
		return sql.Open("mysql", config.ConnectionURL)
	}

	mysqlConfig := mysql.Config{
		User:                 config.Username,
		Passwd:               config.Password,
		Net:                  "tcp",
		Addr:                 fmt.Sprintf("%s:%d", config.Host, config.Port),
		DBName:               config.Database,
		ParseTime:            true,
		AllowNativePasswords: true,
	}
	if config.SSL.Enabled {
		mysqlConfig.TLSConfig = config.SSL.Mode
	}

	return sql.Open("mysql", mysqlConfig.FormatDSN())
}

// createSQLiteConnection creates a SQLite connection
func createSQLiteConnection(config hydra.Config) (*sql.DB, error) {
	return sql.Open("sqlite3", config.Database)
}

// buildPostgresDSN builds a PostgreSQL URL
func buildPostgresDSN(config hydra.Config) string {
	if config.ConnectionURL != "" {
		return config.ConnectionURL
	}

	dsn := fmt.Sprintf("postgres://%s:%s@%s:%d/%s",
		config.Username, config.Password, config.Host, config.Port, config.Database)

	params := []string{"sslmode=disable"}
	if config.SSL.Enabled {
		params = []string{"sslmode=" + config.SSL.Mode}
		if config.SSL.CertFile != "" {
			params = append(params, "sslcert="+config.SSL.CertFile)
		}
		if config.SSL.KeyFile != "" {
			params = append(params, "sslkey="+config.SSL.KeyFile)
		}
		if config.SSL.CAFile != "" {
			params = append(params, "sslrootcert="+config.SSL.CAFile)
		}
	}
	return dsn + "?" + strings.Join(params, "&")
}

// =====================================
// Error Conversion
// =====================================

// convertBunError converts Bun and driver errors to hydra errors.
// sql.ErrNoRows is handled by the callers and never reaches this function.
func convertBunError(err error) error {
	if err == nil {
		return nil
	}

	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "timeout"), strings.Contains(msg, "deadline"):
		return hydra.NewErrorWithCause(hydra.ErrorTypeTimeout, "operation timeout", err)
	case strings.Contains(msg, "connection"):
		return hydra.NewErrorWithCause(hydra.ErrorTypeConnection, "connection error", err)
	default:
		return hydra.NewErrorWithCause(hydra.ErrorTypeStore, "database operation failed", err)
	}
}
