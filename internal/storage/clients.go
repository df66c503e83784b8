package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Client is a tenant's customer record. Every query is scoped by org_id.
type Client struct {
	ID        uuid.UUID `db:"id" json:"id"`
	OrgID     uuid.UUID `db:"org_id" json:"org_id"`
	Name      string    `db:"name" json:"name"`
	Email     string    `db:"email" json:"email,omitempty"`
	Phone     string    `db:"phone" json:"phone,omitempty"`
	Notes     string    `db:"notes" json:"notes,omitempty"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

func (s *PostgresStorage) SaveClient(ctx context.Context, client Client) (uuid.UUID, error) {
	const query = `
        INSERT INTO clients (id, org_id, name, email, phone, notes, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, NOW(), NOW())
        RETURNING id
    `

	if client.ID == uuid.Nil {
		client.ID = uuid.New()
	}

	var clientID uuid.UUID
	err := s.db.QueryRowContext(ctx, query,
		client.ID,
		client.OrgID,
		client.Name,
		client.Email,
		client.Phone,
		client.Notes,
	).Scan(&clientID)
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to save client: %w", err)
	}

	return clientID, nil
}

func (s *PostgresStorage) UpdateClient(ctx context.Context, client Client) error {
	const query = `
        UPDATE clients SET name = $1, email = $2, phone = $3, notes = $4, updated_at = NOW()
        WHERE id = $5 AND org_id = $6
    `

	res, err := s.db.ExecContext(ctx, query,
		client.Name,
		client.Email,
		client.Phone,
		client.Notes,
		client.ID,
		client.OrgID,
	)
	if err != nil {
		return fmt.Errorf("failed to update client: %w", err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read update result: %w", err)
	}
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStorage) GetClient(ctx context.Context, orgID, clientID uuid.UUID) (*Client, error) {
	const query = `SELECT * FROM clients WHERE id = $1 AND org_id = $2`

	var client Client
	err := s.db.GetContext(ctx, &client, query, clientID, orgID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get client: %w", err)
	}
	return &client, nil
}

func (s *PostgresStorage) ListClients(ctx context.Context, orgID uuid.UUID) ([]Client, error) {
	const query = `SELECT * FROM clients WHERE org_id = $1 ORDER BY name`

	var clients []Client
	err := s.db.SelectContext(ctx, &clients, query, orgID)
	if err != nil {
		return nil, fmt.Errorf("failed to list clients: %w", err)
	}
	return clients, nil
}

func (s *PostgresStorage) DeleteClient(ctx context.Context, orgID, clientID uuid.UUID) error {
	const query = `DELETE FROM clients WHERE id = $1 AND org_id = $2`

	res, err := s.db.ExecContext(ctx, query, clientID, orgID)
	if err != nil {
		return fmt.Errorf("failed to delete client: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read delete result: %w", err)
	}
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}
