package repository

import (
	"context"
	"database/sql"
	"math"
	"testing"
	"time"

	"envirogram/internal/derived"
	"envirogram/internal/migrate"

	_ "github.com/mattn/go-sqlite3"
)

func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	// One connection keeps the in-memory database alive across calls.
	db.SetMaxOpenConns(1)
	t.Cleanup(func() {
		if closeErr := db.Close(); closeErr != nil {
			t.Errorf("close db: %v", closeErr)
		}
	})
	if _, err := migrate.Run(context.Background(), db, nil); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

var base = time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)

func record(minutes int, temp float64) derived.OutputRecord {
	at := base.Add(time.Duration(minutes) * time.Minute)
	return derived.OutputRecord{
		Temperature:        temp,
		Humidity:           65,
		DewPoint:           13.21,
		AbsoluteHumidity:   0.01,
		DewPointDepression: 6.79,
		LocalTimestamp:     at.Format(derived.LocalTimestampLayout),
		ISOTimestamp:       at.Format(derived.ISOTimestampLayout),
		Location:           "Berlin, Germany",
		Time:               at,
	}
}

func TestInsertReading_RoundTrip(t *testing.T) {
	ctx := context.Background()
	repo := NewRepository(setupTestDB(t))

	stored, err := repo.InsertReading(ctx, record(0, 20))
	if err != nil {
		t.Fatalf("InsertReading: %v", err)
	}
	if stored.ID == "" {
		t.Fatal("InsertReading returned empty id")
	}

	got, err := repo.GetLatestReadings(ctx, 1)
	if err != nil {
		t.Fatalf("GetLatestReadings: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("got %d readings, want 1", len(got))
	}
	r := got[0]
	if r.ID != stored.ID || r.Location != "Berlin, Germany" {
		t.Errorf("reading = %+v", r)
	}
	if r.Temperature == nil || *r.Temperature != 20 {
		t.Errorf("Temperature = %v, want 20", r.Temperature)
	}
	if r.DewPoint == nil || *r.DewPoint != 13.21 {
		t.Errorf("DewPoint = %v, want 13.21", r.DewPoint)
	}
	if !r.Time.Equal(base) {
		t.Errorf("Time = %v, want %v", r.Time, base)
	}
	if r.ISOTimestamp != "2026-03-14T09:00:00.000Z" || r.LocalTimestamp != "03/14/2026, 09:00:00" {
		t.Errorf("timestamps = %q, %q", r.LocalTimestamp, r.ISOTimestamp)
	}
}

func TestInsertReading_NonFiniteStoredAsNull(t *testing.T) {
	ctx := context.Background()
	repo := NewRepository(setupTestDB(t))

	rec := record(0, 20)
	rec.Humidity = 0
	rec.DewPoint = math.Inf(-1)
	rec.DewPointDepression = math.Inf(1)
	if _, err := repo.InsertReading(ctx, rec); err != nil {
		t.Fatalf("InsertReading: %v", err)
	}

	got, err := repo.GetLatestReadings(ctx, 1)
	if err != nil {
		t.Fatalf("GetLatestReadings: %v", err)
	}
	if got[0].DewPoint != nil || got[0].DewPointDepression != nil {
		t.Errorf("non-finite values = %v, %v; want nil", got[0].DewPoint, got[0].DewPointDepression)
	}
	if got[0].Humidity == nil || *got[0].Humidity != 0 {
		t.Errorf("Humidity = %v, want 0", got[0].Humidity)
	}
}

func TestGetLatestReadings_Order(t *testing.T) {
	ctx := context.Background()
	repo := NewRepository(setupTestDB(t))

	for i, temp := range []float64{18, 19, 20} {
		if _, err := repo.InsertReading(ctx, record(i, temp)); err != nil {
			t.Fatalf("InsertReading: %v", err)
		}
	}

	got, err := repo.GetLatestReadings(ctx, 2)
	if err != nil {
		t.Fatalf("GetLatestReadings: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d readings, want 2", len(got))
	}
	if *got[0].Temperature != 20 || *got[1].Temperature != 19 {
		t.Errorf("order = %v, %v; want newest first", *got[0].Temperature, *got[1].Temperature)
	}
}

func TestGetLatestReadings_Empty(t *testing.T) {
	repo := NewRepository(setupTestDB(t))

	got, err := repo.GetLatestReadings(context.Background(), 5)
	if err != nil {
		t.Fatalf("GetLatestReadings: %v", err)
	}
	if got == nil || len(got) != 0 {
		t.Errorf("got %#v, want empty non-nil slice", got)
	}
}

func TestGetReadings_Range(t *testing.T) {
	ctx := context.Background()
	repo := NewRepository(setupTestDB(t))

	// Sub-second instants must still order correctly against whole seconds.
	recs := []derived.OutputRecord{record(0, 10), record(10, 11), record(20, 12), record(30, 13)}
	recs[1].Time = recs[1].Time.Add(500 * time.Millisecond)
	for _, rec := range recs {
		if _, err := repo.InsertReading(ctx, rec); err != nil {
			t.Fatalf("InsertReading: %v", err)
		}
	}

	tests := []struct {
		name      string
		from, to  time.Time
		limit     int
		offset    int
		wantTemps []float64
		wantCount int
	}{
		{name: "open bounds", limit: 100, wantTemps: []float64{10, 11, 12, 13}, wantCount: 4},
		{name: "from only", from: base.Add(10 * time.Minute), limit: 100, wantTemps: []float64{11, 12, 13}, wantCount: 3},
		{name: "to only", to: base.Add(10 * time.Minute), limit: 100, wantTemps: []float64{10}, wantCount: 1},
		{name: "inclusive window", from: base, to: base.Add(20 * time.Minute), limit: 100, wantTemps: []float64{10, 11, 12}, wantCount: 3},
		{name: "limit and offset", limit: 2, offset: 1, wantTemps: []float64{11, 12}, wantCount: 4},
		{name: "empty window", from: base.Add(time.Hour), limit: 100, wantTemps: nil, wantCount: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := repo.GetReadings(ctx, tt.from, tt.to, tt.limit, tt.offset)
			if err != nil {
				t.Fatalf("GetReadings: %v", err)
			}
			if len(got) != len(tt.wantTemps) {
				t.Fatalf("got %d readings, want %d", len(got), len(tt.wantTemps))
			}
			for i, want := range tt.wantTemps {
				if *got[i].Temperature != want {
					t.Errorf("reading %d temperature = %v, want %v", i, *got[i].Temperature, want)
				}
			}

			n, err := repo.GetReadingsCount(ctx, tt.from, tt.to)
			if err != nil {
				t.Fatalf("GetReadingsCount: %v", err)
			}
			if n != tt.wantCount {
				t.Errorf("GetReadingsCount = %d, want %d", n, tt.wantCount)
			}
		})
	}
}

func TestPing(t *testing.T) {
	db := setupTestDB(t)
	repo := NewRepository(db)
	if err := repo.Ping(context.Background()); err != nil {
		t.Fatalf("Ping: %v", err)
	}

	_ = db.Close()
	if err := repo.Ping(context.Background()); err == nil {
		t.Fatal("Ping on closed db err = nil")
	}
}
