package corpus

import (
	"context"
	"fmt"
	"net/url"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Aman-CERP/titlesearch/internal/errors"
)

// PostgresProvider reads every row of Table from a PostgreSQL database.
type PostgresProvider struct {
	DSN   string
	Table string
}

// Name implements Provider. Credentials are stripped.
func (p *PostgresProvider) Name() string {
	u, err := url.Parse(p.DSN)
	if err != nil {
		return "postgres"
	}
	u.User = nil
	return u.String()
}

// Load implements Provider.
func (p *PostgresProvider) Load(ctx context.Context) ([]Record, error) {
	pool, err := pgxpool.New(ctx, p.DSN)
	if err != nil {
		return nil, errors.CorpusError("failed to connect to "+p.Name(), err)
	}
	defer pool.Close()

	if err := errors.Retry(ctx, errors.DefaultRetryConfig(), func() error {
		return pool.Ping(ctx)
	}); err != nil {
		return nil, errors.CorpusError("failed to reach "+p.Name(), err)
	}

	rows, err := pool.Query(ctx, fmt.Sprintf("SELECT * FROM %s", p.Table))
	if err != nil {
		return nil, errors.CorpusError(fmt.Sprintf("failed to query table %s", p.Table), err)
	}
	defer rows.Close()

	fields := rows.FieldDescriptions()
	header := make([]string, len(fields))
	for i, f := range fields {
		header[i] = f.Name
	}

	var data [][]string
	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return nil, errors.CorpusError(fmt.Sprintf("failed to read row %d", len(data)+1), err)
		}
		row := make([]string, len(values))
		for i, v := range values {
			row[i] = cellString(v)
		}
		data = append(data, row)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.CorpusError("failed to read "+p.Name(), err)
	}

	return Normalize(header, data)
}
