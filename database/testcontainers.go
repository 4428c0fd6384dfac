package database

import (
	"context"
	"net"
	"strconv"
	"testing"

	"github.com/stretchr/testify/require"
	tc "github.com/testcontainers/testcontainers-go"
	tclog "github.com/testcontainers/testcontainers-go/log"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
)

type nopLogger struct{}

func (*nopLogger) Printf(_ string, _ ...any) {}

var _ tclog.Logger = (*nopLogger)(nil)

// TestDB describes a throwaway Postgres started for a test
type TestDB struct {
	ConnString string
	Host       string
	Port       int
	User       string
	Password   string
	Database   string
}

// SetupTestDB starts a Postgres container, migrates it up, rolls the newest
// migration back and applies it again, so every test also exercises the down
// scripts. The container is removed when the test ends. Tests are skipped
// in -short mode and when no container runtime is reachable.
func SetupTestDB(t *testing.T) *TestDB {
	t.Helper()

	if testing.Short() {
		t.Skip("skipping Postgres container in -short mode")
	}
	tc.SkipIfProviderIsNotHealthy(t)

	ctx := context.Background()
	db := &TestDB{User: "campus", Password: "campus-pass", Database: "directory"}

	container, err := postgres.Run(
		ctx,
		"postgres:16-alpine",
		postgres.WithDatabase(db.Database),
		postgres.WithUsername(db.User),
		postgres.WithPassword(db.Password),
		postgres.BasicWaitStrategies(),
		tc.WithLogger(&nopLogger{}),
	)
	tc.CleanupContainer(t, container)
	require.NoError(t, err)

	db.ConnString, err = container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	endpoint, err := container.PortEndpoint(ctx, "5432/tcp", "")
	require.NoError(t, err)
	host, port, err := net.SplitHostPort(endpoint)
	require.NoError(t, err)
	db.Host = host
	db.Port, err = strconv.Atoi(port)
	require.NoError(t, err)

	m, err := NewFromConnectionString(db.ConnString)
	require.NoError(t, err)
	defer func() { _ = Close(m) }()

	require.NoError(t, Up(m))
	require.NoError(t, Down(m, 1))
	require.NoError(t, Up(m))

	return db
}
