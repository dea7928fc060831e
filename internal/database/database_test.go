package database

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/require"
)

func TestIsUniqueViolation(t *testing.T) {
	t.Parallel()

	unique := &pgconn.PgError{Code: "23505", ConstraintName: "vendors_username_key"}
	require.True(t, IsUniqueViolation(unique))
	require.True(t, IsUniqueViolation(fmt.Errorf("create vendor: %w", unique)))
	require.False(t, IsUniqueViolation(&pgconn.PgError{Code: "23503"}))
	require.False(t, IsUniqueViolation(errors.New("boom")))
	require.False(t, IsUniqueViolation(nil))
}

func TestRequiredTablesAreCreatedByMigration(t *testing.T) {
	t.Parallel()

	for _, table := range requiredTables {
		require.Contains(t, initialMigrationSQL, "CREATE TABLE IF NOT EXISTS "+table+" (", table)
	}
}
