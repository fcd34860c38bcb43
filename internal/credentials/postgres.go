package credentials

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/UpmaxAutomation/coldforge-sub007/internal/registrar"
	id "github.com/UpmaxAutomation/coldforge-sub007/pkg/domain"
	"github.com/UpmaxAutomation/coldforge-sub007/pkg/platform/sentinel"
)

// PostgresStore persists credential sets in PostgreSQL, one row per
// (organization, registrar).
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const credentialColumns = `registrar_type, api_key, api_secret, api_user, username, account_id, client_ip, sandbox`

func (s *PostgresStore) Get(ctx context.Context, orgID id.OrganizationID, typ registrar.Type) (registrar.Credentials, error) {
	query := `SELECT ` + credentialColumns + `
		FROM registrar_credentials
		WHERE organization_id = $1 AND registrar_type = $2`

	creds, err := scanCredentials(s.db.QueryRowContext(ctx, query, uuid.UUID(orgID), string(typ)))
	if err == sql.ErrNoRows {
		return registrar.Credentials{}, sentinel.ErrNoCredentials
	}
	if err != nil {
		return registrar.Credentials{}, fmt.Errorf("get credentials: %w", err)
	}
	return creds, nil
}

func (s *PostgresStore) List(ctx context.Context, orgID id.OrganizationID) ([]registrar.Credentials, error) {
	query := `SELECT ` + credentialColumns + `
		FROM registrar_credentials
		WHERE organization_id = $1
		ORDER BY registrar_type`

	rows, err := s.db.QueryContext(ctx, query, uuid.UUID(orgID))
	if err != nil {
		return nil, fmt.Errorf("list credentials: %w", err)
	}
	defer rows.Close()

	var all []registrar.Credentials
	for rows.Next() {
		creds, err := scanCredentials(rows)
		if err != nil {
			return nil, fmt.Errorf("scan credentials: %w", err)
		}
		all = append(all, creds)
	}
	return all, rows.Err()
}

func (s *PostgresStore) Put(ctx context.Context, orgID id.OrganizationID, creds registrar.Credentials) error {
	query := `
		INSERT INTO registrar_credentials
			(organization_id, registrar_type, api_key, api_secret, api_user, username, account_id, client_ip, sandbox, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, now())
		ON CONFLICT (organization_id, registrar_type) DO UPDATE SET
			api_key = EXCLUDED.api_key,
			api_secret = EXCLUDED.api_secret,
			api_user = EXCLUDED.api_user,
			username = EXCLUDED.username,
			account_id = EXCLUDED.account_id,
			client_ip = EXCLUDED.client_ip,
			sandbox = EXCLUDED.sandbox,
			updated_at = now()
	`
	_, err := s.db.ExecContext(ctx, query,
		uuid.UUID(orgID), string(creds.Type),
		creds.APIKey, creds.APISecret, creds.APIUser, creds.Username,
		creds.AccountID, creds.ClientIP, creds.Sandbox,
	)
	if err != nil {
		return fmt.Errorf("put credentials: %w", err)
	}
	return nil
}

func (s *PostgresStore) Delete(ctx context.Context, orgID id.OrganizationID, typ registrar.Type) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM registrar_credentials WHERE organization_id = $1 AND registrar_type = $2`,
		uuid.UUID(orgID), string(typ),
	)
	if err != nil {
		return fmt.Errorf("delete credentials: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCredentials(row rowScanner) (registrar.Credentials, error) {
	var creds registrar.Credentials
	var typ string
	err := row.Scan(&typ, &creds.APIKey, &creds.APISecret, &creds.APIUser,
		&creds.Username, &creds.AccountID, &creds.ClientIP, &creds.Sandbox)
	if err != nil {
		return registrar.Credentials{}, err
	}
	creds.Type = registrar.Type(typ)
	return creds, nil
}
