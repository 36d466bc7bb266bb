package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/banshee-data/trackinit/internal/initiation"
	"github.com/banshee-data/trackinit/internal/trackid"
	"github.com/banshee-data/trackinit/internal/tracker"
	"github.com/google/uuid"
)

// ErrNotFound is returned when a run id does not exist.
var ErrNotFound = errors.New("run not found")

// Run is a stored initiation result.
type Run struct {
	ID        string         `json:"run_id"`
	CreatedAt time.Time      `json:"created_at"`
	Source    string         `json:"source"`
	Result    tracker.Result `json:"result"`
}

// RunSummary is the listing view of a run.
type RunSummary struct {
	ID           string          `json:"run_id"`
	CreatedAt    time.Time       `json:"created_at"`
	Source       string          `json:"source"`
	Mode         initiation.Mode `json:"mode"`
	Processed    int             `json:"processed"`
	ActiveTracks int             `json:"active_tracks"`
	FirmTracks   int             `json:"firm_tracks"`
}

func unixToTime(v float64) time.Time {
	sec := int64(v)
	return time.Unix(sec, int64((v-float64(sec))*1e9)).UTC()
}

func timeToUnix(t time.Time) float64 {
	return float64(t.UnixNano()) / 1e9
}

// InsertRun stores res under a new run id and returns it.
func (db *DB) InsertRun(ctx context.Context, source string, res tracker.Result) (string, error) {
	id := uuid.NewString()

	firmJSON, err := json.Marshal(nonNilIDs(res.FirmIDs))
	if err != nil {
		return "", fmt.Errorf("failed to encode firm ids: %w", err)
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return "", err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `INSERT INTO runs (
			run_id, created_unix, source, mode, doppler_threshold, range_threshold,
			time_threshold, processed, created, confirmed, evicted, firm_ids_json
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id, timeToUnix(db.clock.Now()), source, res.Params.Mode.String(),
		res.Params.DopplerThreshold, res.Params.RangeThreshold, res.Params.TimeThreshold,
		res.Stats.Processed, res.Stats.Created, res.Stats.Confirmed, res.Stats.Evicted,
		string(firmJSON),
	)
	if err != nil {
		return "", fmt.Errorf("failed to insert run: %w", err)
	}

	for i, t := range res.Tracks {
		history, err := json.Marshal(t.History)
		if err != nil {
			return "", fmt.Errorf("failed to encode history of track %d: %w", t.ID, err)
		}
		if _, err := tx.ExecContext(ctx, `INSERT INTO run_tracks (
				run_id, track_id, position, slot_index, state, hits, misses, history_json
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			id, int(t.ID), i, t.Slot, t.State.String(), t.Hits, t.Misses, string(history),
		); err != nil {
			return "", fmt.Errorf("failed to insert track %d: %w", t.ID, err)
		}
	}

	for i, s := range res.Slots {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO run_slots (run_id, slot_index, track_id, status) VALUES (?, ?, ?, ?)`,
			id, i, int(s.ID), s.Status.String(),
		); err != nil {
			return "", fmt.Errorf("failed to insert slot %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return "", err
	}
	return id, nil
}

func nonNilIDs(ids []trackid.ID) []trackid.ID {
	if ids == nil {
		return []trackid.ID{}
	}
	return ids
}

// GetRun loads a run with its tracks and slots.
func (db *DB) GetRun(ctx context.Context, id string) (*Run, error) {
	var (
		run      = Run{ID: id}
		created  float64
		modeName string
		firmJSON string
		p        = &run.Result.Params
		st       = &run.Result.Stats
	)
	err := db.QueryRowContext(ctx, `SELECT created_unix, source, mode, doppler_threshold,
			range_threshold, time_threshold, processed, created, confirmed, evicted, firm_ids_json
		FROM runs WHERE run_id = ?`, id).Scan(
		&created, &run.Source, &modeName, &p.DopplerThreshold, &p.RangeThreshold,
		&p.TimeThreshold, &st.Processed, &st.Created, &st.Confirmed, &st.Evicted, &firmJSON,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	run.CreatedAt = unixToTime(created)
	if p.Mode, err = initiation.ParseMode(modeName); err != nil {
		return nil, fmt.Errorf("run %s: %w", id, err)
	}
	if err := json.Unmarshal([]byte(firmJSON), &run.Result.FirmIDs); err != nil {
		return nil, fmt.Errorf("run %s: failed to decode firm ids: %w", id, err)
	}

	if run.Result.Tracks, err = db.runTracks(ctx, id); err != nil {
		return nil, err
	}
	if run.Result.Slots, err = db.runSlots(ctx, id); err != nil {
		return nil, err
	}
	return &run, nil
}

func (db *DB) runTracks(ctx context.Context, id string) ([]initiation.Track, error) {
	rows, err := db.QueryContext(ctx, `SELECT track_id, slot_index, state, hits, misses, history_json
		FROM run_tracks WHERE run_id = ? ORDER BY position`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	tracks := []initiation.Track{}
	for rows.Next() {
		var (
			t         initiation.Track
			trackID   int
			stateName string
			history   string
		)
		if err := rows.Scan(&trackID, &t.Slot, &stateName, &t.Hits, &t.Misses, &history); err != nil {
			return nil, err
		}
		t.ID = trackid.ID(trackID)
		if err := t.State.UnmarshalText([]byte(stateName)); err != nil {
			return nil, fmt.Errorf("run %s track %d: %w", id, trackID, err)
		}
		if err := json.Unmarshal([]byte(history), &t.History); err != nil {
			return nil, fmt.Errorf("run %s track %d: failed to decode history: %w", id, trackID, err)
		}
		tracks = append(tracks, t)
	}
	return tracks, rows.Err()
}

func (db *DB) runSlots(ctx context.Context, id string) ([]trackid.Slot, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT track_id, status FROM run_slots WHERE run_id = ? ORDER BY slot_index`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	slots := []trackid.Slot{}
	for rows.Next() {
		var (
			s       trackid.Slot
			trackID int
			status  string
		)
		if err := rows.Scan(&trackID, &status); err != nil {
			return nil, err
		}
		s.ID = trackid.ID(trackID)
		if err := s.Status.UnmarshalText([]byte(status)); err != nil {
			return nil, fmt.Errorf("run %s: %w", id, err)
		}
		slots = append(slots, s)
	}
	return slots, rows.Err()
}

// ListRuns returns the most recent runs first. limit <= 0 means 100.
func (db *DB) ListRuns(ctx context.Context, limit int) ([]RunSummary, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := db.QueryContext(ctx, `SELECT r.run_id, r.created_unix, r.source, r.mode, r.processed,
			(SELECT COUNT(*) FROM run_tracks t WHERE t.run_id = r.run_id),
			(SELECT COUNT(*) FROM run_tracks t WHERE t.run_id = r.run_id AND t.state = ?)
		FROM runs r ORDER BY r.created_unix DESC LIMIT ?`, initiation.Firm.String(), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	runs := []RunSummary{}
	for rows.Next() {
		var (
			s        RunSummary
			created  float64
			modeName string
		)
		if err := rows.Scan(&s.ID, &created, &s.Source, &modeName, &s.Processed, &s.ActiveTracks, &s.FirmTracks); err != nil {
			return nil, err
		}
		s.CreatedAt = unixToTime(created)
		if s.Mode, err = initiation.ParseMode(modeName); err != nil {
			return nil, fmt.Errorf("run %s: %w", s.ID, err)
		}
		runs = append(runs, s)
	}
	return runs, rows.Err()
}

// DeleteRun removes a run and its tracks and slots.
func (db *DB) DeleteRun(ctx context.Context, id string) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, q := range []string{
		`DELETE FROM run_slots WHERE run_id = ?`,
		`DELETE FROM run_tracks WHERE run_id = ?`,
	} {
		if _, err := tx.ExecContext(ctx, q, id); err != nil {
			return err
		}
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM runs WHERE run_id = ?`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return tx.Commit()
}
