package repository

import (
	"context"
	"database/sql"
	"log/slog"
	"time"

	"github.com/maheshrc27/igscheduler/internal/models"
)

type CredentialRepository interface {
	GetByAccountID(ctx context.Context, accountID string) (*models.Credential, error)
	Upsert(ctx context.Context, c *models.Credential) error
	ListExpiring(ctx context.Context, before time.Time) ([]*models.Credential, error)
	SetToken(ctx context.Context, accountID, oldAccessToken, accessToken string, expiresAt time.Time) error
}

type credentialRepository struct {
	db *sql.DB
}

func NewCredentialRepository(db *sql.DB) CredentialRepository {
	return &credentialRepository{db: db}
}

func (r *credentialRepository) GetByAccountID(ctx context.Context, accountID string) (*models.Credential, error) {
	query := `SELECT account_id, username, access_token, expires_at, created_at, updated_at
		FROM instagram_credentials WHERE account_id = $1`

	var c models.Credential
	err := r.db.QueryRowContext(ctx, query, accountID).Scan(
		&c.AccountID, &c.Username, &c.AccessToken, &c.ExpiresAt, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		slog.Info(err.Error())
		return nil, err
	}
	return &c, nil
}

func (r *credentialRepository) Upsert(ctx context.Context, c *models.Credential) error {
	query := `
		INSERT INTO instagram_credentials (account_id, username, access_token, expires_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (account_id) DO UPDATE
		SET username = EXCLUDED.username,
			access_token = EXCLUDED.access_token,
			expires_at = EXCLUDED.expires_at,
			updated_at = CURRENT_TIMESTAMP
	`
	_, err := r.db.ExecContext(ctx, query, c.AccountID, c.Username, c.AccessToken, c.ExpiresAt)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}

// ListExpiring returns credentials whose token expires before the given time,
// including those already expired.
func (r *credentialRepository) ListExpiring(ctx context.Context, before time.Time) ([]*models.Credential, error) {
	query := `SELECT account_id, username, access_token, expires_at, created_at, updated_at
		FROM instagram_credentials WHERE expires_at < $1`
	rows, err := r.db.QueryContext(ctx, query, before)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer rows.Close()

	var credentials []*models.Credential
	for rows.Next() {
		var c models.Credential
		err := rows.Scan(&c.AccountID, &c.Username, &c.AccessToken, &c.ExpiresAt, &c.CreatedAt, &c.UpdatedAt)
		if err != nil {
			slog.Info(err.Error())
			return nil, err
		}
		credentials = append(credentials, &c)
	}

	if err := rows.Err(); err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	return credentials, nil
}

// SetToken swaps the stored token only if it still equals oldAccessToken, so a
// concurrent refresh cannot be overwritten by a stale one.
func (r *credentialRepository) SetToken(ctx context.Context, accountID, oldAccessToken, accessToken string, expiresAt time.Time) error {
	query := `
		UPDATE instagram_credentials
		SET access_token = $1,
			expires_at = $2,
			updated_at = CURRENT_TIMESTAMP
		WHERE account_id = $3 AND access_token = $4
	`
	result, err := r.db.ExecContext(ctx, query, accessToken, expiresAt, accountID, oldAccessToken)
	if err != nil {
		slog.Info(err.Error())
		return err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	if affected != 1 {
		slog.Info("no rows affected; token may have been refreshed already", "account_id", accountID)
		return ErrTokenChanged
	}
	return nil
}
