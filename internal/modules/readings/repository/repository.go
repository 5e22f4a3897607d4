package repository

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"log/slog"
	"time"

	"envirogram/internal/derived"
	"envirogram/internal/modules/readings/types"

	"github.com/google/uuid"
)

//go:embed sql/insert-reading.sql
var insertReadingSQL string

//go:embed sql/get-latest-readings.sql
var getLatestReadingsSQL string

//go:embed sql/get-readings.sql
var getReadingsSQL string

//go:embed sql/get-readings-count.sql
var getReadingsCountSQL string

// timeLayout is fixed width so recorded_at sorts and compares as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

type ReadingsRepository interface {
	InsertReading(ctx context.Context, rec derived.OutputRecord) (types.Reading, error)
	GetLatestReadings(ctx context.Context, limit int) ([]types.Reading, error)
	// GetReadings returns readings recorded in [from, to], oldest first. A zero bound is open.
	GetReadings(ctx context.Context, from time.Time, to time.Time, limit int, offset int) ([]types.Reading, error)
	GetReadingsCount(ctx context.Context, from time.Time, to time.Time) (int, error)
	Ping(ctx context.Context) error
}

type repositoryImpl struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) ReadingsRepository {
	return &repositoryImpl{db: db}
}

func (r *repositoryImpl) InsertReading(ctx context.Context, rec derived.OutputRecord) (types.Reading, error) {
	reading := types.FromRecord(uuid.NewString(), rec)
	if reading.Time.IsZero() {
		reading.Time = time.Now().UTC()
	}

	_, err := r.db.ExecContext(ctx, insertReadingSQL,
		reading.ID,
		reading.Location,
		nullable(reading.Temperature),
		nullable(reading.Humidity),
		nullable(reading.DewPoint),
		nullable(reading.AbsoluteHumidity),
		nullable(reading.DewPointDepression),
		reading.LocalTimestamp,
		reading.ISOTimestamp,
		reading.Time.Format(timeLayout),
	)
	if err != nil {
		return types.Reading{}, fmt.Errorf("insert reading: %w", err)
	}
	return reading, nil
}

func (r *repositoryImpl) GetLatestReadings(ctx context.Context, limit int) ([]types.Reading, error) {
	rows, err := r.db.QueryContext(ctx, getLatestReadingsSQL, limit)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := rows.Close(); err != nil {
			slog.Error("close latest readings rows", "error", err)
		}
	}()
	return scanReadings(rows)
}

func (r *repositoryImpl) GetReadings(ctx context.Context, from time.Time, to time.Time, limit int, offset int) ([]types.Reading, error) {
	rows, err := r.db.QueryContext(ctx, getReadingsSQL, bound(from), bound(to), limit, offset)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := rows.Close(); err != nil {
			slog.Error("close readings rows", "error", err)
		}
	}()
	return scanReadings(rows)
}

func (r *repositoryImpl) GetReadingsCount(ctx context.Context, from time.Time, to time.Time) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, getReadingsCountSQL, bound(from), bound(to)).Scan(&n)
	return n, err
}

func (r *repositoryImpl) Ping(ctx context.Context) error {
	var one int
	return r.db.QueryRowContext(ctx, "SELECT 1").Scan(&one)
}

func scanReadings(rows *sql.Rows) ([]types.Reading, error) {
	out := []types.Reading{}
	for rows.Next() {
		var (
			rec                                types.Reading
			temp, hum, dew, absHum, depression sql.NullFloat64
			recordedAt                         string
		)
		if err := rows.Scan(&rec.ID, &rec.Location, &temp, &hum, &dew, &absHum, &depression,
			&rec.LocalTimestamp, &rec.ISOTimestamp, &recordedAt); err != nil {
			return nil, err
		}
		t, err := time.Parse(time.RFC3339Nano, recordedAt)
		if err != nil {
			return nil, fmt.Errorf("parse recorded_at %q: %w", recordedAt, err)
		}
		rec.Time = t
		rec.Temperature = fromNull(temp)
		rec.Humidity = fromNull(hum)
		rec.DewPoint = fromNull(dew)
		rec.AbsoluteHumidity = fromNull(absHum)
		rec.DewPointDepression = fromNull(depression)
		out = append(out, rec)
	}
	return out, rows.Err()
}

func bound(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(timeLayout)
}

func nullable(v *float64) any {
	if v == nil {
		return nil
	}
	return *v
}

func fromNull(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}
