// Package testutil starts throwaway infrastructure for integration tests.
package testutil

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

const defaultPostgresImage = "postgres:16-alpine"

// PostgresContainer is a running PostgreSQL server for store tests.
type PostgresContainer struct {
	container        *postgres.PostgresContainer
	ConnectionString string
}

// NewPostgresContainer starts PostgreSQL with a "comms" database. The image
// can be overridden with COMMS_TEST_POSTGRES_IMAGE.
func NewPostgresContainer(ctx context.Context) (*PostgresContainer, error) {
	image := os.Getenv("COMMS_TEST_POSTGRES_IMAGE")
	if image == "" {
		image = defaultPostgresImage
	}

	c, err := postgres.Run(ctx, image,
		postgres.WithDatabase("comms"),
		postgres.WithUsername("comms"),
		postgres.WithPassword("comms"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("start postgres container: %w", err)
	}

	dsn, err := c.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		_ = c.Terminate(ctx)
		return nil, fmt.Errorf("get connection string: %w", err)
	}

	return &PostgresContainer{container: c, ConnectionString: dsn}, nil
}

// Terminate stops and removes the container.
func (p *PostgresContainer) Terminate(ctx context.Context) error {
	if err := p.container.Terminate(ctx); err != nil {
		return fmt.Errorf("terminate postgres container: %w", err)
	}
	return nil
}
