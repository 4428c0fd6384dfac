package database

import (
	"context"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tableExists(t *testing.T, conn *pgx.Conn) bool {
	t.Helper()

	var exists bool
	err := conn.QueryRow(context.Background(),
		"SELECT to_regclass('public.services') IS NOT NULL").Scan(&exists)
	require.NoError(t, err)
	return exists
}

func TestMigrationsAgainstPostgres(t *testing.T) {
	t.Parallel()

	db := SetupTestDB(t)
	ctx := context.Background()

	conn, err := pgx.Connect(ctx, db.ConnString)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close(ctx) })

	m, err := NewFromConnectionString(db.ConnString)
	require.NoError(t, err)
	t.Cleanup(func() { _ = Close(m) })

	version, dirty, err := CurrentVersion(m)
	require.NoError(t, err)
	assert.Equal(t, uint(3), version)
	assert.False(t, dirty)
	assert.True(t, tableExists(t, conn))

	// Two records may share one place.
	_, err = conn.Exec(ctx, `INSERT INTO services (id, name, category, lat, lng, external_ref) VALUES
		(gen_random_uuid(), 'Library Desk', 'Study', 12.97, 79.15, 'ChIJsame'),
		(gen_random_uuid(), 'Library Cafe', 'Food', 12.97, 79.15, 'ChIJsame')`)
	require.NoError(t, err)
	_, err = conn.Exec(ctx, "TRUNCATE services")
	require.NoError(t, err)

	require.NoError(t, Up(m), "an up-to-date schema is not an error")

	require.NoError(t, Down(m, 0))
	version, _, err = CurrentVersion(m)
	require.NoError(t, err)
	assert.Zero(t, version)
	assert.False(t, tableExists(t, conn))

	require.NoError(t, Down(m, 1), "reverting an empty schema is not an error")

	require.NoError(t, Up(m))
	version, _, err = CurrentVersion(m)
	require.NoError(t, err)
	assert.Equal(t, uint(3), version)
}
