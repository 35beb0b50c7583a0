// Package source reads the raw internship dataset from a file, S3 compatible storage or PostgreSQL.
package source

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/spigell/internship-recommender/internal/catalog"
	"github.com/spigell/internship-recommender/internal/secrets"
)

const (
	SampleLocation = "sample"
	// PostgresLocation reads the DSN from data.postgres.dsn-file or INTERNSHIP_POSTGRES_DSN.
	PostgresLocation = "postgres"

	postgresDSNEnv = "INTERNSHIP_POSTGRES_DSN"
)

// Config selects and configures the dataset reader.
type Config struct {
	// Source is a file path, s3://bucket/key, a postgres:// DSN, "postgres" or "sample".
	Source       string         `mapstructure:"source"`
	CreateSample bool           `mapstructure:"create-sample"`
	Reload       string         `mapstructure:"reload"`
	S3           S3Config       `mapstructure:"s3"`
	Postgres     PostgresConfig `mapstructure:"postgres"`
}

// New picks a reader by the scheme of cfg.Source.
func New(ctx context.Context, cfg *Config, logger *zap.Logger) (catalog.Source, error) {
	if cfg == nil {
		return nil, fmt.Errorf("data configuration is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	location := strings.TrimSpace(cfg.Source)

	switch {
	case location == SampleLocation:
		logger.Info("using built-in sample dataset")
		return Sample{}, nil
	case strings.HasPrefix(location, "s3://"):
		logger.Info("using s3 dataset", zap.String("location", location))
		return NewS3Object(ctx, location, cfg.S3)
	case isPostgres(location) || location == PostgresLocation || (location == "" && cfg.Postgres.DSNFile != ""):
		inline := location
		if !isPostgres(inline) {
			inline = ""
		}
		dsn, err := secrets.Load(secrets.Source{
			Name:  "postgres dsn",
			Value: inline,
			File:  cfg.Postgres.DSNFile,
			Env:   postgresDSNEnv,
		})
		if err != nil {
			return nil, err
		}
		logger.Info("using postgres dataset")
		return &Postgres{DSN: dsn, Query: cfg.Postgres.Query}, nil
	case location == "":
		return nil, fmt.Errorf("data source is not configured")
	}

	if cfg.CreateSample {
		created, err := EnsureSample(location)
		if err != nil {
			return nil, err
		}
		if created {
			logger.Warn("data file not found, sample dataset created", zap.String("path", location))
		}
	}

	logger.Info("using csv dataset", zap.String("path", location))
	return &CSVFile{Path: location}, nil
}

func isPostgres(location string) bool {
	return strings.HasPrefix(location, "postgres://") || strings.HasPrefix(location, "postgresql://")
}
