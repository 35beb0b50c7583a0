package source

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spigell/internship-recommender/internal/catalog"
)

const defaultPostgresQuery = `SELECT internship_title, company_name, location, start_date, duration, stipend FROM internships ORDER BY id`

type PostgresConfig struct {
	// DSNFile holds the connection string when it should not live in the config.
	DSNFile string `mapstructure:"dsn-file"`
	Query   string `mapstructure:"query"`
}

// Postgres reads dataset rows from a SQL query. Result columns are matched by name.
type Postgres struct {
	DSN   string
	Query string
}

func (p *Postgres) Read(ctx context.Context) ([]catalog.RawRow, error) {
	pool, err := pgxpool.New(ctx, p.DSN)
	if err != nil {
		return nil, fmt.Errorf("pgxpool.New: %w", err)
	}
	defer pool.Close()

	query := strings.TrimSpace(p.Query)
	if query == "" {
		query = defaultPostgresQuery
	}

	rows, err := pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query dataset: %w", err)
	}
	defer rows.Close()

	return decodeRows(rows)
}

// resultRows is the part of pgx.Rows the dataset decoder reads.
type resultRows interface {
	FieldDescriptions() []pgconn.FieldDescription
	Next() bool
	Values() ([]any, error)
	Err() error
}

func decodeRows(rows resultRows) ([]catalog.RawRow, error) {
	fields := rows.FieldDescriptions()
	result := make([]catalog.RawRow, 0)

	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			result = append(result, catalog.RawRow{Malformed: err})
			continue
		}

		record := make(map[string]any, len(fields))
		for idx, field := range fields {
			if idx < len(values) {
				record[field.Name] = values[idx]
			}
		}
		result = append(result, catalog.DecodeRow(record))
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read dataset rows: %w", err)
	}

	return result, nil
}
