package corpus

import (
	"context"
	"database/sql/driver"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/Aman-CERP/titlesearch/internal/errors"
)

// Provider yields raw dataset rows as canonical records.
type Provider interface {
	// Name identifies the source in logs.
	Name() string
	// Load reads every record. It returns a corpus error rather than a
	// partial result when the source cannot be read completely.
	Load(ctx context.Context) ([]Record, error)
}

// DefaultTable is the table read by the SQL providers.
const DefaultTable = "jobs"

var identifier = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// NewProvider picks a provider from a dataset reference:
//
//	sample                     built-in six-row dataset
//	sqlite:///path/to/jobs.db  SQLite file (also *.db, *.sqlite)
//	postgres://user@host/db    PostgreSQL
//	path/to/jobs.csv           CSV file with a header row
func NewProvider(dataset, table string) (Provider, error) {
	if table == "" {
		table = DefaultTable
	}
	if !identifier.MatchString(table) {
		return nil, errors.ConfigError(fmt.Sprintf("invalid dataset table name %q", table), nil)
	}

	switch {
	case dataset == "":
		return nil, errors.ConfigError("no dataset configured", nil).
			WithSuggestion("pass --dataset or set index.dataset in the config file")
	case dataset == "sample":
		return SampleProvider{}, nil
	case strings.HasPrefix(dataset, "sqlite://"):
		return &SQLiteProvider{Path: strings.TrimPrefix(dataset, "sqlite://"), Table: table}, nil
	case strings.HasSuffix(dataset, ".db"), strings.HasSuffix(dataset, ".sqlite"):
		return &SQLiteProvider{Path: dataset, Table: table}, nil
	case strings.HasPrefix(dataset, "postgres://"), strings.HasPrefix(dataset, "postgresql://"):
		return &PostgresProvider{DSN: dataset, Table: table}, nil
	default:
		return &CSVProvider{Path: dataset}, nil
	}
}

// Load builds a corpus from p.
func Load(ctx context.Context, p Provider) (*Corpus, error) {
	records, err := p.Load(ctx)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, errors.CorpusError(fmt.Sprintf("dataset %s has no rows", p.Name()), nil)
	}
	return New(records)
}

// cellString renders a database value the way a CSV cell would hold it.
func cellString(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case []byte:
		return string(x)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(x), 'f', -1, 32)
	case int64:
		return strconv.FormatInt(x, 10)
	case int32:
		return strconv.FormatInt(int64(x), 10)
	case int:
		return strconv.Itoa(x)
	case driver.Valuer:
		// pgx returns NUMERIC columns as pgtype.Numeric.
		if v, err := x.Value(); err == nil {
			return cellString(v)
		}
		return fmt.Sprint(x)
	default:
		return fmt.Sprint(x)
	}
}
