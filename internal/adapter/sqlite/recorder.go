// Package sqlite keeps a durable log of served predictions in SQLite.
package sqlite

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/couchcryptid/air-quality-service/internal/domain"
)

//go:embed sql/schema.sql
var schemaSQL string

//go:embed sql/insert-prediction.sql
var insertPredictionSQL string

//go:embed sql/get-recent-predictions.sql
var getRecentPredictionsSQL string

// DefaultRecentLimit caps Recent when the caller passes a non-positive limit.
const DefaultRecentLimit = 50

// Recorder implements prediction.Recorder on a SQLite database.
type Recorder struct {
	db *sql.DB
}

// Open opens (creating if needed) the database at path and applies the
// schema. ":memory:" gives a private in-memory log.
func Open(ctx context.Context, path string) (*Recorder, error) {
	dsn := path
	if path != ":memory:" {
		if dir := filepath.Dir(path); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("mkdir %s: %w", dir, err)
			}
		}
		dsn = fmt.Sprintf("file:%s?_busy_timeout=5000&_journal_mode=WAL", path)
	}

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("db open: %w", err)
	}
	// One connection serializes writers and keeps ":memory:" a single database.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("db ping: %w", err)
	}
	if _, err := db.ExecContext(ctx, schemaSQL); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &Recorder{db: db}, nil
}

// Record appends one prediction.
func (r *Recorder) Record(ctx context.Context, res domain.PredictionResult) error {
	metrics, err := json.Marshal(res.Metrics)
	if err != nil {
		return fmt.Errorf("encode metrics: %w", err)
	}
	_, err = r.db.ExecContext(ctx, insertPredictionSQL,
		res.ID,
		res.Location.State,
		res.Location.County,
		res.Location.City,
		res.Date.Format(domain.DateLayout),
		res.OverallAQI,
		string(res.Category),
		string(metrics),
		res.PredictedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("insert prediction %s: %w", res.ID, err)
	}
	return nil
}

// Recent returns up to limit predictions, newest first.
func (r *Recorder) Recent(ctx context.Context, limit int) ([]domain.PredictionResult, error) {
	if limit <= 0 {
		limit = DefaultRecentLimit
	}
	rows, err := r.db.QueryContext(ctx, getRecentPredictionsSQL, limit)
	if err != nil {
		return nil, fmt.Errorf("query predictions: %w", err)
	}
	defer rows.Close()

	out := []domain.PredictionResult{}
	for rows.Next() {
		var (
			res                           domain.PredictionResult
			category, metrics, date, when string
		)
		if err := rows.Scan(&res.ID, &res.Location.State, &res.Location.County, &res.Location.City,
			&date, &res.OverallAQI, &category, &metrics, &when); err != nil {
			return nil, fmt.Errorf("scan prediction: %w", err)
		}
		res.Category = domain.AQICategory(category)
		if err := json.Unmarshal([]byte(metrics), &res.Metrics); err != nil {
			return nil, fmt.Errorf("decode metrics of %s: %w", res.ID, err)
		}
		if res.Date, err = time.Parse(domain.DateLayout, date); err != nil {
			return nil, fmt.Errorf("parse forecast date of %s: %w", res.ID, err)
		}
		if res.PredictedAt, err = time.Parse(time.RFC3339Nano, when); err != nil {
			return nil, fmt.Errorf("parse predicted_at of %s: %w", res.ID, err)
		}
		out = append(out, res)
	}
	return out, rows.Err()
}

// Close closes the database.
func (r *Recorder) Close() error {
	return r.db.Close()
}
