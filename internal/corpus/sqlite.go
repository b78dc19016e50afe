package corpus

import (
	"context"
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite" // pure Go driver, registers "sqlite"

	"github.com/Aman-CERP/titlesearch/internal/errors"
)

// SQLiteProvider reads every row of Table from a SQLite file.
type SQLiteProvider struct {
	Path  string
	Table string
}

// Name implements Provider.
func (p *SQLiteProvider) Name() string { return "sqlite://" + p.Path }

// Load implements Provider.
func (p *SQLiteProvider) Load(ctx context.Context) ([]Record, error) {
	db, err := sql.Open("sqlite", p.Path)
	if err != nil {
		return nil, errors.CorpusError("failed to open "+p.Name(), err)
	}
	defer func() { _ = db.Close() }()

	rows, err := db.QueryContext(ctx, fmt.Sprintf("SELECT * FROM %s", p.Table))
	if err != nil {
		return nil, errors.CorpusError(fmt.Sprintf("failed to query table %s in %s", p.Table, p.Name()), err)
	}
	defer func() { _ = rows.Close() }()

	header, err := rows.Columns()
	if err != nil {
		return nil, errors.CorpusError("failed to read columns", err)
	}

	var data [][]string
	values := make([]any, len(header))
	ptrs := make([]any, len(header))
	for i := range values {
		ptrs[i] = &values[i]
	}
	for rows.Next() {
		if err := rows.Scan(ptrs...); err != nil {
			return nil, errors.CorpusError(fmt.Sprintf("failed to scan row %d", len(data)+1), err)
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
