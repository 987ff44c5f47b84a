// Package database provides the core functionality for creating and managing
// database connections in a clean, isolated manner.
package database

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/siteguard/widget-go/internal/infrastructure/observability/logging"
	_ "github.com/tursodatabase/libsql-client-go/libsql"
)

// Supported driver names.
const (
	DriverSQLite = "sqlite3"
	DriverLibSQL = "libsql"
)

const slowConnectThreshold = 500 * time.Millisecond

// DB represents a wrapper around the standard SQL database connection.
type DB struct {
	*sql.DB
	Driver string
}

// NewConnection establishes a new database connection for the specified driver.
func NewConnection(driverName, dataSourceName string) (*DB, error) {
	if driverName != DriverSQLite && driverName != DriverLibSQL {
		return nil, fmt.Errorf("unsupported database driver %q", driverName)
	}

	db, err := sql.Open(driverName, dataSourceName)
	if err != nil {
		return nil, err
	}

	if driverName == DriverSQLite {
		// sqlite serializes writers; one connection avoids SQLITE_BUSY under load
		// and keeps ":memory:" databases alive across calls.
		db.SetMaxOpenConns(1)
	}

	if err = db.Ping(); err != nil {
		db.Close()
		return nil, err
	}

	return &DB{DB: db, Driver: driverName}, nil
}

// NewConnectionWithLogger establishes a new database connection for the specified driver with logging.
func NewConnectionWithLogger(driverName, dataSourceName string, logger *logging.ChanneledLogger) (*DB, error) {
	start := time.Now()
	logger.Database().Debug("Creating new database connection", "driverName", driverName)

	db, err := NewConnection(driverName, dataSourceName)
	if err != nil {
		logger.Database().Error("Failed to open database connection", "error", err.Error(), "driverName", driverName)
		return nil, err
	}

	duration := time.Since(start)
	logger.Database().Info("Database connection established", "driverName", driverName, "duration", duration)
	if duration > slowConnectThreshold {
		logger.Database().Warn("Slow database connection", "driverName", driverName, "duration", duration)
	}

	return db, nil
}
