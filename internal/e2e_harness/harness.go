package e2e_harness

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/docker/go-connections/nat"
	_ "github.com/lib/pq"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// Credentials of the containers started by the harness.
const (
	PostgresUser     = "cofoundry"
	PostgresPassword = "cofoundry"
	PostgresDatabase = "cofoundry"

	S3AccessKey = "minio"
	S3SecretKey = "minio"
)

// TestHarness owns the Postgres and rustfs containers backing the E2E suite.
type TestHarness struct {
	PGContainer testcontainers.Container
	PGDSN       string
	PGDB        *sql.DB
	S3Container testcontainers.Container
	S3Endpoint  string
}

type containerSpec struct {
	image string
	port  string
	env   map[string]string
}

// start runs the container and resolves host:port for its single exposed port.
func (s containerSpec) start(ctx context.Context) (testcontainers.Container, string, error) {
	tcp := nat.Port(s.port + "/tcp")
	c, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        s.image,
			ExposedPorts: []string{string(tcp)},
			Env:          s.env,
			WaitingFor:   wait.ForListeningPort(tcp).WithStartupTimeout(30 * time.Second),
		},
		Started: true,
	})
	if err != nil {
		return nil, "", fmt.Errorf("start %s: %w", s.image, err)
	}
	host, err := c.Host(ctx)
	if err != nil {
		_ = c.Terminate(ctx)
		return nil, "", err
	}
	mapped, err := c.MappedPort(ctx, tcp)
	if err != nil {
		_ = c.Terminate(ctx)
		return nil, "", err
	}
	return c, fmt.Sprintf("%s:%s", host, mapped.Port()), nil
}

// StartPostgres starts Postgres and blocks until it accepts connections.
// Callers must call StopPostgres.
func (h *TestHarness) StartPostgres(ctx context.Context) (string, error) {
	c, addr, err := containerSpec{
		image: "postgres:16",
		port:  "5432",
		env: map[string]string{
			"POSTGRES_USER":     PostgresUser,
			"POSTGRES_PASSWORD": PostgresPassword,
			"POSTGRES_DB":       PostgresDatabase,
		},
	}.start(ctx)
	if err != nil {
		return "", err
	}
	h.PGContainer = c
	h.PGDSN = fmt.Sprintf("postgres://%s:%s@%s/%s?sslmode=disable", PostgresUser, PostgresPassword, addr, PostgresDatabase)

	db, err := sql.Open("postgres", h.PGDSN)
	if err != nil {
		return "", err
	}
	if err := waitForPing(ctx, db, 20*time.Second); err != nil {
		db.Close()
		return "", err
	}
	h.PGDB = db
	return h.PGDSN, nil
}

// The listening port opens before Postgres finishes its init scripts.
func waitForPing(ctx context.Context, db *sql.DB, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	for {
		err := db.PingContext(ctx)
		if err == nil {
			return nil
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("postgres did not become ready: %w", err)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(200 * time.Millisecond):
		}
	}
}

// StopPostgres closes the DB handle and terminates the container.
func (h *TestHarness) StopPostgres(ctx context.Context) error {
	if h.PGDB != nil {
		h.PGDB.Close()
		h.PGDB = nil
	}
	err := terminate(ctx, h.PGContainer)
	h.PGContainer = nil
	return err
}

// StartS3 starts rustfs and returns its http endpoint.
func (h *TestHarness) StartS3(ctx context.Context) (string, error) {
	c, addr, err := containerSpec{
		image: "rustfs/rustfs:latest",
		port:  "9000",
		env: map[string]string{
			"RUSTFS_ACCESS_KEY": S3AccessKey,
			"RUSTFS_SECRET_KEY": S3SecretKey,
		},
	}.start(ctx)
	if err != nil {
		return "", err
	}
	h.S3Container = c
	h.S3Endpoint = "http://" + addr
	return h.S3Endpoint, nil
}

func (h *TestHarness) StopS3(ctx context.Context) error {
	err := terminate(ctx, h.S3Container)
	h.S3Container = nil
	return err
}

func terminate(ctx context.Context, c testcontainers.Container) error {
	if c == nil {
		return nil
	}
	return c.Terminate(ctx)
}
