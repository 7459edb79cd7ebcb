package journal

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

const schema = `CREATE TABLE IF NOT EXISTS checkout_attempts (
    id          UUID PRIMARY KEY,
    slot        TEXT NOT NULL,
    card_type   TEXT NOT NULL,
    last4       TEXT NOT NULL,
    result      TEXT NOT NULL,
    stage       TEXT NOT NULL DEFAULT '',
    receipt_id  TEXT NOT NULL DEFAULT '',
    created_at  TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS checkout_attempts_slot_created_idx ON checkout_attempts (slot, created_at DESC);`

// EnsureSchema creates the attempts table when missing.
func EnsureSchema(ctx context.Context, db *pgxpool.Pool) error {
	if _, err := db.Exec(ctx, schema); err != nil {
		return fmt.Errorf("ensure journal schema: %w", err)
	}
	return nil
}
