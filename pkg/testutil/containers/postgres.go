//go:build integration

package containers

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"testing"
	"time"

	_ "github.com/lib/pq"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
)

// schema mirrors migrations/schema.sql so integration suites are
// self-contained.
const schema = `
CREATE TABLE IF NOT EXISTS domains (
    id                   UUID PRIMARY KEY,
    organization_id      UUID        NOT NULL,
    domain               TEXT        NOT NULL,
    registrar_type       TEXT        NOT NULL,
    dns_provider         TEXT,
    spf_configured       BOOLEAN     NOT NULL DEFAULT FALSE,
    dkim_configured      BOOLEAN     NOT NULL DEFAULT FALSE,
    dkim_selector        TEXT,
    dmarc_configured     BOOLEAN     NOT NULL DEFAULT FALSE,
    bimi_configured      BOOLEAN     NOT NULL DEFAULT FALSE,
    health_status        TEXT        NOT NULL DEFAULT 'pending',
    last_health_check_at TIMESTAMPTZ,
    auto_purchased       BOOLEAN     NOT NULL DEFAULT FALSE,
    expires_at           TIMESTAMPTZ,
    created_at           TIMESTAMPTZ NOT NULL DEFAULT now(),
    updated_at           TIMESTAMPTZ NOT NULL DEFAULT now(),
    CONSTRAINT domains_org_domain_unique UNIQUE (organization_id, domain)
);

CREATE TABLE IF NOT EXISTS registrar_credentials (
    organization_id UUID        NOT NULL,
    registrar_type  TEXT        NOT NULL,
    api_key         TEXT        NOT NULL DEFAULT '',
    api_secret      TEXT        NOT NULL DEFAULT '',
    api_user        TEXT        NOT NULL DEFAULT '',
    username        TEXT        NOT NULL DEFAULT '',
    account_id      TEXT        NOT NULL DEFAULT '',
    client_ip       TEXT        NOT NULL DEFAULT '',
    sandbox         BOOLEAN     NOT NULL DEFAULT FALSE,
    updated_at      TIMESTAMPTZ NOT NULL DEFAULT now(),
    PRIMARY KEY (organization_id, registrar_type)
);
`

// PostgresContainer wraps a testcontainers Postgres instance with the
// provisioning schema applied.
type PostgresContainer struct {
	Container testcontainers.Container
	DB        *sql.DB
}

// NewPostgresContainer starts a Postgres container and applies the schema.
func NewPostgresContainer(t *testing.T) *PostgresContainer {
	t.Helper()

	ctx := context.Background()

	container, err := tcpostgres.Run(ctx, "postgres:16-alpine",
		tcpostgres.WithDatabase("coldforge_test"),
		tcpostgres.WithUsername("coldforge"),
		tcpostgres.WithPassword("coldforge"),
		tcpostgres.BasicWaitStrategies(),
	)
	if err != nil {
		t.Fatalf("failed to start postgres container: %v", err)
	}

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		_ = container.Terminate(ctx)
		t.Fatalf("failed to get postgres connection string: %v", err)
	}

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		_ = container.Terminate(ctx)
		t.Fatalf("failed to open postgres connection: %v", err)
	}
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		_ = container.Terminate(ctx)
		t.Fatalf("failed to ping postgres: %v", err)
	}

	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		_ = container.Terminate(ctx)
		t.Fatalf("failed to apply schema: %v", err)
	}

	pc := &PostgresContainer{Container: container, DB: db}
	t.Cleanup(func() {
		_ = pc.DB.Close()
		_ = pc.Container.Terminate(context.Background())
	})
	return pc
}

// TruncateTables clears the given tables between tests.
func (p *PostgresContainer) TruncateTables(ctx context.Context, tables ...string) error {
	if len(tables) == 0 {
		return nil
	}
	_, err := p.DB.ExecContext(ctx, fmt.Sprintf("TRUNCATE TABLE %s", strings.Join(tables, ", ")))
	return err
}
