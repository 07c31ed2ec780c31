//go:build integration

package testutil

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"foodcourt/internal/store"
)

const (
	// PostgresImage is pinned so test runs are reproducible across machines.
	PostgresImage = "postgres:16-alpine"

	// PostgresPort is the port Postgres listens on inside the container.
	PostgresPort = "5432/tcp"

	testDBName     = "foodcourt_test"
	testDBUser     = "foodcourt"
	testDBPassword = "foodcourt"

	// StartupTimeout accounts for cold image pulls on CI runners.
	StartupTimeout = 300 * time.Second
)

// PostgresContainer holds testcontainer configuration and state.
type PostgresContainer struct {
	Container testcontainers.Container
	DSN       string
}

// StartPostgresContainer launches a Postgres instance and waits until it
// accepts connections.
func StartPostgresContainer(ctx context.Context) (*PostgresContainer, error) {
	req := testcontainers.ContainerRequest{
		Image:        PostgresImage,
		ExposedPorts: []string{PostgresPort},
		Env: map[string]string{
			"POSTGRES_DB":       testDBName,
			"POSTGRES_USER":     testDBUser,
			"POSTGRES_PASSWORD": testDBPassword,
		},
		WaitingFor: wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).
			WithStartupTimeout(StartupTimeout),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		return nil, fmt.Errorf("starting postgres container: %w", err)
	}

	host, err := container.Host(ctx)
	if err != nil {
		return nil, fmt.Errorf("resolving container host: %w", err)
	}
	port, err := container.MappedPort(ctx, PostgresPort)
	if err != nil {
		return nil, fmt.Errorf("resolving mapped port: %w", err)
	}

	dsn := fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable",
		testDBUser, testDBPassword, host, port.Port(), testDBName)

	return &PostgresContainer{Container: container, DSN: dsn}, nil
}

// OpenStore opens a migrated *store.Store against the container. The caller
// owns test data isolation; tables are shared across tests in one run.
func (p *PostgresContainer) OpenStore(t *testing.T) *store.Store {
	t.Helper()
	st, err := store.Open("postgres", p.DSN)
	if err != nil {
		t.Fatalf("opening store: %v", err)
	}
	if err := st.Migrate(context.Background()); err != nil {
		t.Fatalf("migrating schema: %v", err)
	}
	t.Cleanup(func() { st.Close() })
	return st
}

// Stop terminates the container.
func (p *PostgresContainer) Stop(ctx context.Context) error {
	if p.Container == nil {
		return nil
	}
	return p.Container.Terminate(ctx)
}
