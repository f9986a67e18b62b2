// Package store persists the terminal tuples of the pipeline in SQLite:
// reconstructed showers and the error signals of both stages.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/banshee-data/hillas.stream/internal/timeutil"
	"github.com/banshee-data/hillas.stream/internal/wire"
)

// Store is the terminal sink of the pipeline.
type Store struct {
	*sql.DB
	path  string
	clock timeutil.Clock
}

// Direction is one reconstructed arrival direction.
type Direction struct {
	AltDeg     float64
	AzDeg      float64
	RecordedAt time.Time
}

// Open opens (creating if needed) the database at path and applies every
// pending migration.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("%s: %w", pragma, err)
		}
	}

	s := &Store{DB: db, path: path, clock: timeutil.RealClock{}}
	if err := s.MigrateUp(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// SetClock replaces the clock used to stamp rows.
func (s *Store) SetClock(c timeutil.Clock) { s.clock = c }

// RecordReconstruction stores one serialized reconstruction result. The
// direction and core are copied into columns when present.
func (s *Store) RecordReconstruction(ctx context.Context, result map[string]any) error {
	body, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("encode reconstruction: %w", err)
	}

	valid, _ := result["is_valid"].(bool)
	_, err = s.ExecContext(ctx, `
		INSERT INTO reconstructions (alt_deg, az_deg, core_x_m, core_y_m, is_valid, n_tel, result_json, recorded_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		magnitude(result["alt"]),
		magnitude(result["az"]),
		magnitude(result["core_x"]),
		magnitude(result["core_y"]),
		valid,
		listLen(result["tel_ids"]),
		string(body),
		s.clock.Now().UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("insert reconstruction: %w", err)
	}
	return nil
}

// RecordError stores one error-stream signal.
func (s *Store) RecordError(ctx context.Context, stage string, value any) error {
	_, err := s.ExecContext(ctx,
		`INSERT INTO error_signals (stage, value, recorded_at) VALUES (?, ?, ?)`,
		stage, fmt.Sprint(value), s.clock.Now().UnixNano())
	if err != nil {
		return fmt.Errorf("insert %s error signal: %w", stage, err)
	}
	return nil
}

// Directions returns up to limit of the most recent reconstructed
// directions, newest first.
func (s *Store) Directions(ctx context.Context, limit int) ([]Direction, error) {
	rows, err := s.QueryContext(ctx, `
		SELECT alt_deg, az_deg, recorded_at FROM reconstructions
		WHERE alt_deg IS NOT NULL AND az_deg IS NOT NULL
		ORDER BY reco_id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query directions: %w", err)
	}
	defer rows.Close()

	var out []Direction
	for rows.Next() {
		var d Direction
		var ns int64
		if err := rows.Scan(&d.AltDeg, &d.AzDeg, &ns); err != nil {
			return nil, fmt.Errorf("scan direction: %w", err)
		}
		d.RecordedAt = time.Unix(0, ns).UTC()
		out = append(out, d)
	}
	return out, rows.Err()
}

// Counts returns the number of stored reconstructions and error signals
// per stage.
func (s *Store) Counts(ctx context.Context) (reconstructions int64, errs map[string]int64, err error) {
	if err := s.QueryRowContext(ctx, `SELECT COUNT(*) FROM reconstructions`).Scan(&reconstructions); err != nil {
		return 0, nil, fmt.Errorf("count reconstructions: %w", err)
	}
	rows, err := s.QueryContext(ctx, `SELECT stage, COUNT(*) FROM error_signals GROUP BY stage`)
	if err != nil {
		return 0, nil, fmt.Errorf("count error signals: %w", err)
	}
	defer rows.Close()

	errs = make(map[string]int64)
	for rows.Next() {
		var stage string
		var n int64
		if err := rows.Scan(&stage, &n); err != nil {
			return 0, nil, fmt.Errorf("scan error count: %w", err)
		}
		errs[stage] = n
	}
	return reconstructions, errs, rows.Err()
}

// magnitude extracts the number carried by a wire envelope. The NaN marker
// and anything that is not an envelope map to NULL.
func magnitude(v any) sql.NullFloat64 {
	env, ok := v.(map[string]any)
	if !ok {
		return sql.NullFloat64{}
	}
	f, ok := env[wire.ValueKey].(float64)
	if !ok {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: f, Valid: true}
}

func listLen(v any) int {
	switch x := v.(type) {
	case []int:
		return len(x)
	case []any:
		return len(x)
	default:
		return 0
	}
}
