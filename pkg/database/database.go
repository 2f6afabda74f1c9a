package database

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"egress-dispatcher/pkg/batch"
	"egress-dispatcher/pkg/models"

	"github.com/spf13/viper"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
)

type DB struct {
	*bun.DB
}

// DSN builds the postgres connection string from the database.* config keys
func DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		viper.GetString("database.user"),
		viper.GetString("database.password"),
		viper.GetString("database.host"),
		viper.GetInt("database.port"),
		viper.GetString("database.dbname"),
		viper.GetString("database.sslmode"),
	)
}

func open(dsn string) *bun.DB {
	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn)))
	return bun.NewDB(sqldb, pgdialect.New())
}

func NewDB() (*DB, error) {
	db := open(DSN())

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &DB{db}, nil
}

// InitSchema creates the necessary tables if they don't exist
func (db *DB) InitSchema(ctx context.Context) error {
	_, err := db.NewCreateTable().
		Model((*models.FetchRecord)(nil)).
		IfNotExists().
		Exec(ctx)

	if err != nil {
		return fmt.Errorf("failed to create table: %w", err)
	}

	for _, col := range []string{"run_id", "country"} {
		_, err = db.NewCreateIndex().
			Model((*models.FetchRecord)(nil)).
			Index("fetch_record_" + col + "_idx").
			IfNotExists().
			Column(col).
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("failed to create index on %s: %w", col, err)
		}
	}

	return nil
}

// InsertFetchRecords writes all records in one statement
func (db *DB) InsertFetchRecords(ctx context.Context, records []models.FetchRecord) error {
	if len(records) == 0 {
		return nil
	}

	_, err := db.NewInsert().
		Model(&records).
		Exec(ctx)

	if err != nil {
		return fmt.Errorf("error inserting fetch records: %w", err)
	}

	slog.Debug("Fetch records stored", "count", len(records))

	return nil
}

// RecordsFromOutcomes converts batch outcomes into rows tagged with runID
func RecordsFromOutcomes(runID, command string, outcomes []batch.Outcome) []models.FetchRecord {
	now := time.Now()
	records := make([]models.FetchRecord, 0, len(outcomes))
	for _, o := range outcomes {
		rec := models.FetchRecord{
			RunID:      runID,
			Command:    command,
			URL:        o.URL,
			Country:    o.Country,
			DurationMs: o.Duration.Milliseconds(),
			Time:       now,
		}
		if o.Result != nil {
			rec.StatusCode = o.Result.StatusCode
			rec.SizeBytes = len(o.Result.Body)
		}
		if o.Err != nil {
			rec.ErrorMsg = o.Err.Error()
		}
		records = append(records, rec)
	}
	return records
}
