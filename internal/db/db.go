package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

type Database struct {
	Conn    *sql.DB
	Dialect Dialect
}

// NewDatabase opens a pool for the named driver ("postgres" or "sqlite") and
// verifies it with a ping.
func NewDatabase(driver, dsn string) (*Database, error) {
	dialect, err := LookupDialect(driver)
	if err != nil {
		return nil, err
	}

	conn, err := sql.Open(dialect.DriverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := conn.PingContext(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("ping db: %w", err)
	}

	if dialect.SingleConn {
		// SQLite allows one writer; an in-memory database also lives and dies
		// with its connection.
		conn.SetMaxOpenConns(1)
		conn.SetMaxIdleConns(1)
	} else {
		conn.SetMaxOpenConns(25)
		conn.SetMaxIdleConns(25)
		conn.SetConnMaxLifetime(5 * time.Minute)
	}
	return &Database{Conn: conn, Dialect: dialect}, nil
}

func (d *Database) AutoMigrate(ctx context.Context) error {
	for _, query := range d.Dialect.Schema {
		if _, err := d.Conn.ExecContext(ctx, query); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
	}
	return nil
}

func (d *Database) Close() error {
	return d.Conn.Close()
}

// WithTx runs fn inside a transaction, committing on nil and rolling back on
// any error or panic.
func WithTx(ctx context.Context, conn *sql.DB, fn func(tx *sql.Tx) error) (err error) {
	tx, err := conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if err = fn(tx); err != nil {
		return err
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}
