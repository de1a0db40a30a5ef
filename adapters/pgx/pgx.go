package pgx

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/lborres/agenda"
)

const DefaultTable = "agenda_tokens"

// Adapter keeps session tokens in a PostgreSQL table
type Adapter struct {
	pool  *pgxpool.Pool
	table string
}

var _ agenda.TokenStorage = (*Adapter)(nil)

func New(pool *pgxpool.Pool) *Adapter {
	return &Adapter{
		pool:  pool,
		table: DefaultTable,
	}
}

// EnsureSchema creates the token table if it does not exist
func (a *Adapter) EnsureSchema(ctx context.Context) error {
	query := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS public.%s (
	          key        TEXT PRIMARY KEY,
	          value      TEXT NOT NULL,
	          updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	          )`, a.table)

	if _, err := a.pool.Exec(ctx, query); err != nil {
		return fmt.Errorf("failed to create %s: %w", a.table, err)
	}
	return nil
}
