package db

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/ncruces/go-sqlite3"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"
)

// Dialect captures what differs between the supported engines. Queries
// themselves are written once with $n placeholders, which both accept.
type Dialect struct {
	Name       string
	DriverName string
	SingleConn bool
	// Like is the case-insensitive pattern operator.
	Like   string
	Schema []string
}

func LookupDialect(name string) (Dialect, error) {
	switch name {
	case "postgres", "":
		return Postgres, nil
	case "sqlite":
		return SQLite, nil
	default:
		return Dialect{}, fmt.Errorf("unknown db driver %q", name)
	}
}

// IsUniqueViolation reports whether err came from a unique or primary key
// constraint on either engine.
func IsUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return errors.Is(err, sqlite3.CONSTRAINT_UNIQUE) || errors.Is(err, sqlite3.CONSTRAINT_PRIMARYKEY)
}

var Postgres = Dialect{
	Name:       "postgres",
	DriverName: "pgx",
	Like:       "ILIKE",
	Schema: []string{
		`CREATE TABLE IF NOT EXISTS members (
            id SERIAL PRIMARY KEY,
            email VARCHAR(255) UNIQUE NOT NULL,
            username VARCHAR(50) UNIQUE NOT NULL,
            password VARCHAR(255) NOT NULL,
            created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
        )`,

		`CREATE TABLE IF NOT EXISTS contacts (
            id SERIAL PRIMARY KEY,
            member_a INT NOT NULL REFERENCES members(id) ON DELETE CASCADE,
            member_b INT NOT NULL REFERENCES members(id) ON DELETE CASCADE,
            verified BOOLEAN NOT NULL DEFAULT FALSE,
            created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
            CHECK (member_a <> member_b)
        )`,

		`CREATE UNIQUE INDEX IF NOT EXISTS contacts_pair_idx
            ON contacts (LEAST(member_a, member_b), GREATEST(member_a, member_b))`,

		`CREATE TABLE IF NOT EXISTS chats (
            id SERIAL PRIMARY KEY,
            name VARCHAR(255) NOT NULL,
            owner_email VARCHAR(255) NOT NULL,
            created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
        )`,

		`CREATE TABLE IF NOT EXISTS chat_members (
            chat_id INT NOT NULL REFERENCES chats(id),
            member_id INT NOT NULL REFERENCES members(id) ON DELETE CASCADE,
            joined_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
            PRIMARY KEY (chat_id, member_id)
        )`,

		`CREATE TABLE IF NOT EXISTS messages (
            id SERIAL PRIMARY KEY,
            chat_id INT NOT NULL REFERENCES chats(id),
            member_id INT NOT NULL REFERENCES members(id) ON DELETE CASCADE,
            content TEXT NOT NULL,
            created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
        )`,

		`CREATE TABLE IF NOT EXISTS push_tokens (
            member_id INT PRIMARY KEY REFERENCES members(id) ON DELETE CASCADE,
            token VARCHAR(255) NOT NULL,
            updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
        )`,
	},
}

var SQLite = Dialect{
	Name:       "sqlite",
	DriverName: "sqlite3",
	SingleConn: true,
	Like:       "LIKE",
	Schema: []string{
		`PRAGMA foreign_keys = ON`,

		`CREATE TABLE IF NOT EXISTS members (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            email TEXT UNIQUE NOT NULL,
            username TEXT UNIQUE NOT NULL,
            password TEXT NOT NULL,
            created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
        )`,

		`CREATE TABLE IF NOT EXISTS contacts (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            member_a INTEGER NOT NULL REFERENCES members(id) ON DELETE CASCADE,
            member_b INTEGER NOT NULL REFERENCES members(id) ON DELETE CASCADE,
            verified BOOLEAN NOT NULL DEFAULT FALSE,
            created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
            CHECK (member_a <> member_b)
        )`,

		`CREATE UNIQUE INDEX IF NOT EXISTS contacts_pair_idx
            ON contacts (min(member_a, member_b), max(member_a, member_b))`,

		`CREATE TABLE IF NOT EXISTS chats (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            name TEXT NOT NULL,
            owner_email TEXT NOT NULL,
            created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
        )`,

		`CREATE TABLE IF NOT EXISTS chat_members (
            chat_id INTEGER NOT NULL REFERENCES chats(id),
            member_id INTEGER NOT NULL REFERENCES members(id) ON DELETE CASCADE,
            joined_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
            PRIMARY KEY (chat_id, member_id)
        )`,

		`CREATE TABLE IF NOT EXISTS messages (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            chat_id INTEGER NOT NULL REFERENCES chats(id),
            member_id INTEGER NOT NULL REFERENCES members(id) ON DELETE CASCADE,
            content TEXT NOT NULL,
            created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
        )`,

		`CREATE TABLE IF NOT EXISTS push_tokens (
            member_id INTEGER PRIMARY KEY REFERENCES members(id) ON DELETE CASCADE,
            token TEXT NOT NULL,
            updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
        )`,
	},
}
