package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/client-service/internal/domain"
)

// ClientRepository defines persistence access for client records.
type ClientRepository interface {
	Create(ctx context.Context, client *domain.Client) error
	Update(ctx context.Context, client *domain.Client) error
	GetByID(ctx context.Context, id int64) (*domain.Client, error)
	// List returns all clients, or only those created by ownerID when
	// ownerID is non-nil. Newest first.
	List(ctx context.Context, ownerID *int64) ([]domain.Client, error)
}

type clientRepository struct {
	pool *pgxpool.Pool
}

// NewClientRepository returns a Postgres-backed implementation.
func NewClientRepository(pool *pgxpool.Pool) ClientRepository {
	return &clientRepository{pool: pool}
}

const clientColumns = `id, first_name, last_name, to_char(dob, 'YYYY-MM-DD'), sex, created_by_user_id, created_at, updated_at`

func (r *clientRepository) Create(ctx context.Context, client *domain.Client) error {
	const query = `
        INSERT INTO clients (first_name, last_name, dob, sex, created_by_user_id)
        VALUES ($1, $2, $3::date, $4, $5)
        RETURNING id, created_at, updated_at`

	return r.pool.QueryRow(ctx, query,
		client.FirstName,
		client.LastName,
		client.DOB,
		string(client.Sex),
		client.CreatedByUserID,
	).Scan(&client.ID, &client.CreatedAt, &client.UpdatedAt)
}

func (r *clientRepository) Update(ctx context.Context, client *domain.Client) error {
	const query = `
        UPDATE clients SET first_name=$1, last_name=$2, dob=$3::date, sex=$4, updated_at=NOW()
        WHERE id=$5`

	cmd, err := r.pool.Exec(ctx, query,
		client.FirstName,
		client.LastName,
		client.DOB,
		string(client.Sex),
		client.ID,
	)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *clientRepository) GetByID(ctx context.Context, id int64) (*domain.Client, error) {
	const query = `
        SELECT ` + clientColumns + `
        FROM clients WHERE id=$1`

	var client domain.Client
	if err := scanClient(r.pool.QueryRow(ctx, query, id), &client); err != nil {
		return nil, err
	}
	return &client, nil
}

func (r *clientRepository) List(ctx context.Context, ownerID *int64) ([]domain.Client, error) {
	query := `
        SELECT ` + clientColumns + `
        FROM clients ORDER BY id DESC`
	args := []any{}
	if ownerID != nil {
		query = `
        SELECT ` + clientColumns + `
        FROM clients WHERE created_by_user_id=$1 ORDER BY id DESC`
		args = append(args, *ownerID)
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	clients := make([]domain.Client, 0)
	for rows.Next() {
		var client domain.Client
		if err := scanClient(rows, &client); err != nil {
			return nil, err
		}
		clients = append(clients, client)
	}
	return clients, rows.Err()
}

func scanClient(row pgx.Row, client *domain.Client) error {
	return row.Scan(
		&client.ID,
		&client.FirstName,
		&client.LastName,
		&client.DOB,
		&client.Sex,
		&client.CreatedByUserID,
		&client.CreatedAt,
		&client.UpdatedAt,
	)
}
