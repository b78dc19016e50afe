package corpus

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"

	"github.com/Aman-CERP/titlesearch/internal/errors"
)

// CSVProvider reads a CSV file whose first row is the header.
type CSVProvider struct {
	Path string
}

// Name implements Provider.
func (p *CSVProvider) Name() string { return p.Path }

// Load implements Provider.
func (p *CSVProvider) Load(ctx context.Context) ([]Record, error) {
	f, err := os.Open(p.Path)
	if err != nil {
		return nil, errors.CorpusError("failed to open dataset "+p.Path, err)
	}
	defer func() { _ = f.Close() }()

	return ReadCSV(ctx, f)
}

// ReadCSV parses CSV data with a header row into records.
func ReadCSV(ctx context.Context, r io.Reader) ([]Record, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		return nil, errors.CorpusError("failed to read dataset header", err)
	}

	var rows [][]string
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.CorpusError(fmt.Sprintf("failed to read dataset row %d", len(rows)+1), err)
		}
		rows = append(rows, row)
	}
	return Normalize(header, rows)
}
