package journal

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository persists submission attempts.
type Repository interface {
	Record(ctx context.Context, attempt Attempt) error
	ListBySlot(ctx context.Context, slot string, limit int) ([]Attempt, error)
}

// PostgresRepository stores attempts in PostgreSQL.
type PostgresRepository struct {
	db *pgxpool.Pool
}

// NewPostgresRepository builds a repository backed by PostgreSQL.
func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Record inserts an attempt.
func (r *PostgresRepository) Record(ctx context.Context, a Attempt) error {
	id, err := uuid.Parse(a.ID)
	if err != nil {
		return err
	}
	_, err = r.db.Exec(ctx, `INSERT INTO checkout_attempts (id, slot, card_type, last4, result, stage, receipt_id, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`, id, a.Slot, a.CardType, a.Last4, a.Result, a.Stage, a.ReceiptID, a.CreatedAt.UTC())
	return err
}

// ListBySlot returns the most recent attempts of a slot, newest first.
func (r *PostgresRepository) ListBySlot(ctx context.Context, slot string, limit int) ([]Attempt, error) {
	rows, err := r.db.Query(ctx, `SELECT id, slot, card_type, last4, result, stage, receipt_id, created_at
        FROM checkout_attempts WHERE slot = $1 ORDER BY created_at DESC LIMIT $2`, slot, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Attempt
	for rows.Next() {
		var (
			a         Attempt
			id        uuid.UUID
			createdAt time.Time
		)
		if err := rows.Scan(&id, &a.Slot, &a.CardType, &a.Last4, &a.Result, &a.Stage, &a.ReceiptID, &createdAt); err != nil {
			return nil, err
		}
		a.ID = id.String()
		a.CreatedAt = createdAt.UTC()
		out = append(out, a)
	}
	return out, rows.Err()
}
