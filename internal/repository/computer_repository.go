package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/labdesk/lab-issue-service/internal/domain"
)

// ComputerRepository reads lab inventory.
type ComputerRepository interface {
	Create(ctx context.Context, computer *domain.Computer) error
	GetActiveByIP(ctx context.Context, ip string) (*domain.Computer, error)
}

type computerRepository struct {
	pool *pgxpool.Pool
}

// NewComputerRepository builds repository.
func NewComputerRepository(pool *pgxpool.Pool) ComputerRepository {
	return &computerRepository{pool: pool}
}

func (r *computerRepository) Create(ctx context.Context, computer *domain.Computer) error {
	const query = `
        INSERT INTO computers (ip_address, computer_name, lab_name, location, is_active)
        VALUES ($1,$2,$3,$4,$5)
        RETURNING id`
	return r.pool.QueryRow(ctx, query,
		computer.IPAddress,
		computer.ComputerName,
		computer.LabName,
		computer.Location,
		computer.IsActive,
	).Scan(&computer.ID)
}

func (r *computerRepository) GetActiveByIP(ctx context.Context, ip string) (*domain.Computer, error) {
	const query = `
        SELECT id, ip_address, computer_name, lab_name, location, is_active
        FROM computers WHERE ip_address=$1 AND is_active`
	var computer domain.Computer
	if err := r.pool.QueryRow(ctx, query, ip).Scan(
		&computer.ID,
		&computer.IPAddress,
		&computer.ComputerName,
		&computer.LabName,
		&computer.Location,
		&computer.IsActive,
	); err != nil {
		return nil, err
	}
	return &computer, nil
}
