// Package testhelpers starts throwaway infrastructure for integration tests.
//
// These helpers need a running Docker daemon. Tests that use them are
// guarded by the integration build tag:
//
//	go test -tags integration ./...
package testhelpers

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

const (
	postgresImage    = "postgres:16-alpine"
	postgresUser     = "planx"
	postgresPassword = "planx"
	postgresDB       = "planx"
)

// Postgres is a disposable PostgreSQL server
type Postgres struct {
	Container testcontainers.Container

	// DSN connects to the empty database with the pgx driver
	DSN string
}

// StartPostgres runs a PostgreSQL container for the duration of the test.
// The container is terminated by t.Cleanup.
func StartPostgres(t *testing.T) *Postgres {
	t.Helper()
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        postgresImage,
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     postgresUser,
			"POSTGRES_PASSWORD": postgresPassword,
			"POSTGRES_DB":       postgresDB,
		},
		// the server restarts once after init, so the line shows up twice
		WaitingFor: wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).
			WithStartupTimeout(90 * time.Second),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		t.Fatalf("Failed to start postgres container: %v", err)
	}
	t.Cleanup(func() {
		if err := container.Terminate(context.Background()); err != nil {
			t.Logf("Failed to terminate postgres container: %v", err)
		}
	})

	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("Failed to get postgres host: %v", err)
	}
	port, err := container.MappedPort(ctx, "5432")
	if err != nil {
		t.Fatalf("Failed to get postgres port: %v", err)
	}

	dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		host, port.Int(), postgresUser, postgresPassword, postgresDB)
	t.Logf("postgres started: %s:%d", host, port.Int())

	return &Postgres{Container: container, DSN: dsn}
}
