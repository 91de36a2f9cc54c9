// Package testutil holds fixtures shared by repository and handler tests.
package testutil

import (
	"context"
	"testing"

	"group-chat/internal/db"

	"github.com/stretchr/testify/require"
)

// NewDB returns a migrated in-memory SQLite database closed at test end.
func NewDB(t *testing.T) *db.Database {
	t.Helper()
	database, err := db.NewDatabase("sqlite", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { database.Close() })

	require.NoError(t, database.AutoMigrate(context.Background()))
	return database
}

// InsertMember adds a member row directly and returns its id.
func InsertMember(t *testing.T, database *db.Database, email, username string) int {
	t.Helper()
	var id int
	err := database.Conn.QueryRowContext(context.Background(),
		"INSERT INTO members (email, username, password) VALUES ($1, $2, $3) RETURNING id",
		email, username, "x").Scan(&id)
	require.NoError(t, err)
	return id
}
