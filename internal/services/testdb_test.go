package services

import (
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/rshakya/taskhub-be/internal/auth"
	"github.com/rshakya/taskhub-be/internal/database"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func newTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := database.New(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	t.Cleanup(func() { db.Close() })
	return db
}

func newTestUserService(t *testing.T) (*UserService, *sql.DB) {
	t.Helper()
	db := newTestDB(t)
	tokens := auth.NewManager("test-secret", time.Hour)
	// MinCost keeps the hashing in tests cheap.
	return NewUserService(db, tokens, bcrypt.MinCost), db
}
