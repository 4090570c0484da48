package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/ClickHouse/clickhouse-go/v2" // registers the "clickhouse" database/sql driver
	"github.com/pressly/goose/v3"

	"github.com/navid-fn/skywatch/internal/models"
	"github.com/navid-fn/skywatch/internal/storage/migrations"
	tables "github.com/navid-fn/skywatch/internal/storage/models"
)

const (
	insertMovement = `
		INSERT INTO movements (
			capture_time, flight_id, movement_type, counterpart_iata,
			city, country, airline, terminal,
			actual_time, aircraft_model, registration, delay_minutes,
			category, event_signature, inserted_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	selectRecent = `
		SELECT
			capture_time, flight_id, movement_type, counterpart_iata,
			city, country, airline, terminal,
			actual_time, aircraft_model, registration, delay_minutes,
			category, event_signature
		FROM movements
		WHERE capture_time >= ?
		ORDER BY capture_time DESC
		LIMIT ?`
)

// ClickHouse stores movements in the movements table. It is its own
// Connector since the pool is opened once at startup.
type ClickHouse struct {
	db  *sql.DB
	loc *time.Location
	now func() time.Time
}

// OpenClickHouse opens a pool for dsn and verifies connectivity with a ping.
func OpenClickHouse(ctx context.Context, dsn string, loc *time.Location) (*ClickHouse, error) {
	db, err := sql.Open("clickhouse", dsn)
	if err != nil {
		return nil, err
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("clickhouse ping: %w", err)
	}
	return NewClickHouse(db, loc), nil
}

// NewClickHouse wraps an existing pool.
func NewClickHouse(db *sql.DB, loc *time.Location) *ClickHouse {
	if loc == nil {
		loc = time.UTC
	}
	return &ClickHouse{db: db, loc: loc, now: time.Now}
}

// DB returns the underlying pool, shared with the read API.
func (s *ClickHouse) DB() *sql.DB {
	return s.db
}

func (s *ClickHouse) Connect(ctx context.Context) (EventStore, error) {
	if err := s.Ping(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *ClickHouse) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Migrate applies the embedded goose migrations.
func (s *ClickHouse) Migrate(ctx context.Context) error {
	goose.SetBaseFS(migrations.FS)
	defer goose.SetBaseFS(nil)

	if err := goose.SetDialect("clickhouse"); err != nil {
		return err
	}
	return goose.UpContext(ctx, s.db, ".")
}

// ReadRecent selects the newest Rows rows captured at or after Since.
func (s *ClickHouse) ReadRecent(ctx context.Context, w Window) ([]models.Row, error) {
	limit := w.Rows
	if limit <= 0 {
		limit = 1500
	}

	rows, err := s.db.QueryContext(ctx, selectRecent, w.Since.UTC(), limit)
	if err != nil {
		return nil, fmt.Errorf("select recent movements: %w", err)
	}
	defer rows.Close()

	var out []models.Row
	for rows.Next() {
		var m tables.Movement
		if err := rows.Scan(
			&m.CaptureTime, &m.FlightID, &m.MovementType, &m.CounterpartIATA,
			&m.City, &m.Country, &m.Airline, &m.Terminal,
			&m.ActualTime, &m.AircraftModel, &m.Registration, &m.DelayMinutes,
			&m.Category, &m.EventSignature,
		); err != nil {
			return nil, fmt.Errorf("scan movement: %w", err)
		}
		out = append(out, m.Event().Row(s.loc))
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out, nil
}

// Append inserts the events in one transaction. The clickhouse driver sends
// a prepared statement inside a transaction as a single batch.
func (s *ClickHouse) Append(ctx context.Context, events []models.MovementEvent) error {
	if len(events) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	stmt, err := tx.PrepareContext(ctx, insertMovement)
	if err != nil {
		tx.Rollback()
		return err
	}
	defer stmt.Close()

	now := s.now().UTC()
	for _, e := range events {
		m := tables.FromEvent(e)
		if _, err := stmt.ExecContext(ctx,
			m.CaptureTime, m.FlightID, m.MovementType, m.CounterpartIATA,
			m.City, m.Country, m.Airline, m.Terminal,
			m.ActualTime, m.AircraftModel, m.Registration, m.DelayMinutes,
			m.Category, m.EventSignature, now,
		); err != nil {
			tx.Rollback()
			return fmt.Errorf("insert movement %s: %w", m.EventSignature, err)
		}
	}
	return tx.Commit()
}

// Close closes the pool.
func (s *ClickHouse) Close() error {
	return s.db.Close()
}
