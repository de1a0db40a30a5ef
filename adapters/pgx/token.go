package pgx

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/lborres/agenda"
)

func (a *Adapter) Get(ctx context.Context, key string) (string, error) {
	query := fmt.Sprintf(`SELECT value FROM public.%s WHERE key = $1`, a.table)

	var value string
	err := a.pool.QueryRow(ctx, query, key).Scan(&value)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", agenda.ErrTokenNotFound
		}
		return "", err
	}

	return value, nil
}

func (a *Adapter) Set(ctx context.Context, key, value string) error {
	query := fmt.Sprintf(`INSERT INTO public.%s (key, value) VALUES ($1, $2)
	          ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = now()`, a.table)

	_, err := a.pool.Exec(ctx, query, key, value)
	return err
}

func (a *Adapter) Remove(ctx context.Context, key string) error {
	query := fmt.Sprintf(`DELETE FROM public.%s WHERE key = $1`, a.table)

	_, err := a.pool.Exec(ctx, query, key)
	return err
}
