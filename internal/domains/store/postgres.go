package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/UpmaxAutomation/coldforge-sub007/internal/domains/models"
	"github.com/UpmaxAutomation/coldforge-sub007/internal/registrar"
	id "github.com/UpmaxAutomation/coldforge-sub007/pkg/domain"
	"github.com/UpmaxAutomation/coldforge-sub007/pkg/platform/sentinel"
)

// uniqueViolation is the PostgreSQL error code for unique constraint
// violations; it maps the insert race on (organization_id, domain) to the
// same conflict outcome as the pre-check.
const uniqueViolation = "23505"

// PostgresStore persists domain rows in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const domainColumns = `id, organization_id, domain, registrar_type, dns_provider,
	spf_configured, dkim_configured, dkim_selector, dmarc_configured, bimi_configured,
	health_status, last_health_check_at, auto_purchased, expires_at, created_at, updated_at`

func (s *PostgresStore) Insert(ctx context.Context, d *models.Domain) error {
	query := `
		INSERT INTO domains (` + domainColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
	`
	_, err := s.db.ExecContext(ctx, query,
		uuid.UUID(d.ID), uuid.UUID(d.OrganizationID), d.Name, string(d.Registrar),
		nullString(d.DNSProvider),
		d.SPFConfigured, d.DKIMConfigured, nullString(d.DKIMSelector),
		d.DMARCConfigured, d.BIMIConfigured,
		string(d.HealthStatus), d.LastHealthCheckAt,
		d.AutoPurchased, d.ExpiresAt, d.CreatedAt, d.UpdatedAt,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && string(pqErr.Code) == uniqueViolation {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("insert domain: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetByID(ctx context.Context, orgID id.OrganizationID, domainID id.DomainID) (*models.Domain, error) {
	query := `SELECT ` + domainColumns + ` FROM domains WHERE organization_id = $1 AND id = $2`
	return s.scanOne(s.db.QueryRowContext(ctx, query, uuid.UUID(orgID), uuid.UUID(domainID)))
}

func (s *PostgresStore) GetByName(ctx context.Context, orgID id.OrganizationID, name string) (*models.Domain, error) {
	query := `SELECT ` + domainColumns + ` FROM domains WHERE organization_id = $1 AND domain = $2`
	return s.scanOne(s.db.QueryRowContext(ctx, query, uuid.UUID(orgID), name))
}

func (s *PostgresStore) ListByOrganization(ctx context.Context, orgID id.OrganizationID) ([]*models.Domain, error) {
	query := `SELECT ` + domainColumns + ` FROM domains WHERE organization_id = $1 ORDER BY domain`
	rows, err := s.db.QueryContext(ctx, query, uuid.UUID(orgID))
	if err != nil {
		return nil, fmt.Errorf("list domains: %w", err)
	}
	defer rows.Close()

	var domains []*models.Domain
	for rows.Next() {
		d, err := scanDomain(rows)
		if err != nil {
			return nil, fmt.Errorf("scan domain: %w", err)
		}
		domains = append(domains, d)
	}
	return domains, rows.Err()
}

// UpdateDNSOutcome writes only the configuration-outcome columns.
func (s *PostgresStore) UpdateDNSOutcome(ctx context.Context, domainID id.DomainID, update models.DNSOutcomeUpdate) error {
	query := `
		UPDATE domains SET
			dns_provider = $2,
			spf_configured = $3,
			dkim_configured = $4,
			dkim_selector = $5,
			dmarc_configured = $6,
			bimi_configured = $7,
			updated_at = now()
		WHERE id = $1
	`
	return s.exec(ctx, query,
		uuid.UUID(domainID), nullString(update.DNSProvider),
		update.SPFConfigured, update.DKIMConfigured, nullString(update.DKIMSelector),
		update.DMARCConfigured, update.BIMIConfigured,
	)
}

// UpdateHealth writes only the health columns.
func (s *PostgresStore) UpdateHealth(ctx context.Context, domainID id.DomainID, update models.HealthUpdate) error {
	query := `
		UPDATE domains SET
			health_status = $2,
			last_health_check_at = $3,
			updated_at = now()
		WHERE id = $1
	`
	return s.exec(ctx, query, uuid.UUID(domainID), string(update.Status), update.CheckedAt)
}

func (s *PostgresStore) exec(ctx context.Context, query string, args ...any) error {
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update domain: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *PostgresStore) scanOne(row *sql.Row) (*models.Domain, error) {
	d, err := scanDomain(row)
	if err == sql.ErrNoRows {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get domain: %w", err)
	}
	return d, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDomain(row rowScanner) (*models.Domain, error) {
	var (
		d                        models.Domain
		rowID, orgID             uuid.UUID
		registrarType, health    string
		dnsProvider, selector    sql.NullString
		lastCheck, expires       sql.NullTime
	)
	err := row.Scan(&rowID, &orgID, &d.Name, &registrarType, &dnsProvider,
		&d.SPFConfigured, &d.DKIMConfigured, &selector, &d.DMARCConfigured, &d.BIMIConfigured,
		&health, &lastCheck, &d.AutoPurchased, &expires, &d.CreatedAt, &d.UpdatedAt)
	if err != nil {
		return nil, err
	}

	d.ID = id.DomainID(rowID)
	d.OrganizationID = id.OrganizationID(orgID)
	d.Registrar = registrar.Type(registrarType)
	d.HealthStatus = models.HealthStatus(health)
	d.DNSProvider = dnsProvider.String
	d.DKIMSelector = selector.String
	if lastCheck.Valid {
		t := lastCheck.Time.UTC()
		d.LastHealthCheckAt = &t
	}
	if expires.Valid {
		t := expires.Time.UTC()
		d.ExpiresAt = &t
	}
	return &d, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
