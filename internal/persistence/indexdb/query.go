package indexdb

import (
	"context"
	"database/sql"
	"fmt"
	"os"
)

// Reader queries an index written by another process or by a closed
// SQLiteIndex. It never writes.
type Reader struct {
	db *sql.DB
}

func OpenReader(path string) (*Reader, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	for _, p := range []string{"PRAGMA busy_timeout=5000;", "PRAGMA query_only=1;"} {
		if _, err := db.Exec(p); err != nil {
			_ = db.Close()
			return nil, err
		}
	}
	return &Reader{db: db}, nil
}

func (r *Reader) Close() error { return r.db.Close() }

type TickRange struct {
	First, Last uint64
	Count       uint64
}

func (r *Reader) Ticks(ctx context.Context) (TickRange, error) {
	var first, last sql.NullInt64
	var n int64
	err := r.db.QueryRowContext(ctx, `SELECT MIN(tick), MAX(tick), COUNT(*) FROM ticks`).Scan(&first, &last, &n)
	if err != nil {
		return TickRange{}, err
	}
	return TickRange{First: uint64(first.Int64), Last: uint64(last.Int64), Count: uint64(n)}, nil
}

type TypeCount struct {
	Type  string
	Count uint64
}

// EventCounts tallies indexed events by type, most frequent first.
func (r *Reader) EventCounts(ctx context.Context) ([]TypeCount, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT type, COUNT(*) AS n FROM events GROUP BY type ORDER BY n DESC, type`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []TypeCount
	for rows.Next() {
		var tc TypeCount
		var n int64
		if err := rows.Scan(&tc.Type, &n); err != nil {
			return nil, err
		}
		tc.Count = uint64(n)
		out = append(out, tc)
	}
	return out, rows.Err()
}

type EventRow struct {
	Tick uint64
	Seq  int
	Type string
	JSON string
}

// Events lists events of one type (all types when typ is empty) at or after
// fromTick, oldest first.
func (r *Reader) Events(ctx context.Context, typ string, fromTick uint64, limit int) ([]EventRow, error) {
	if limit <= 0 {
		limit = 100
	}
	q := `SELECT tick, seq, type, raw_json FROM events WHERE tick >= ?`
	args := []any{int64(fromTick)}
	if typ != "" {
		q += ` AND type = ?`
		args = append(args, typ)
	}
	q += fmt.Sprintf(` ORDER BY tick, seq LIMIT %d`, limit)

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []EventRow
	for rows.Next() {
		var e EventRow
		var tick int64
		if err := rows.Scan(&tick, &e.Seq, &e.Type, &e.JSON); err != nil {
			return nil, err
		}
		e.Tick = uint64(tick)
		out = append(out, e)
	}
	return out, rows.Err()
}

type SnapshotRow struct {
	Tick     uint64
	Path     string
	RunID    string
	Entities int
	SavedAt  float64
}

func (r *Reader) Snapshots(ctx context.Context) ([]SnapshotRow, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT tick, path, COALESCE(run_id,''), entities, saved_at FROM snapshots ORDER BY tick`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []SnapshotRow
	for rows.Next() {
		var sr SnapshotRow
		var tick int64
		if err := rows.Scan(&tick, &sr.Path, &sr.RunID, &sr.Entities, &sr.SavedAt); err != nil {
			return nil, err
		}
		sr.Tick = uint64(tick)
		out = append(out, sr)
	}
	return out, rows.Err()
}

// TuningDigest returns the digest of the stored tuning, or "" when none.
func (r *Reader) TuningDigest(ctx context.Context) (string, error) {
	var d string
	err := r.db.QueryRowContext(ctx, `SELECT digest FROM config WHERE name='tuning'`).Scan(&d)
	if err == sql.ErrNoRows {
		return "", nil
	}
	return d, err
}

func (r *Reader) Runs(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT run_id FROM runs ORDER BY started_at`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}
