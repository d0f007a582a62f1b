package history

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Run statuses.
const (
	StatusRunning     = "running"
	StatusCompleted   = "completed"
	StatusFailed      = "failed"
	StatusInterrupted = "interrupted"
)

// Run is one recorded stream.
type Run struct {
	ID         uuid.UUID
	Command    string
	Mode       string
	VideoPath  string
	AudioPath  string
	Target     string
	Status     string
	Error      string
	Frames     int64
	VideoBytes int64
	AudioBytes int64
	FPS        float64
	StartedAt  time.Time
	FinishedAt *time.Time
}

// Outcome is what Finish records.
type Outcome struct {
	Status     string
	Error      string
	Frames     int64
	VideoBytes int64
	AudioBytes int64
	FPS        float64
}

// dbRun represents a run as stored in the database.
type dbRun struct {
	ID         string       `db:"id"`
	Command    string       `db:"command"`
	Mode       string       `db:"mode"`
	VideoPath  string       `db:"video_path"`
	AudioPath  string       `db:"audio_path"`
	Target     string       `db:"target"`
	Status     string       `db:"status"`
	Error      string       `db:"error"`
	Frames     int64        `db:"frames"`
	VideoBytes int64        `db:"video_bytes"`
	AudioBytes int64        `db:"audio_bytes"`
	FPS        float64      `db:"fps"`
	StartedAt  time.Time    `db:"started_at"`
	FinishedAt sql.NullTime `db:"finished_at"`
}

func toDomainRun(r *dbRun) (*Run, error) {
	id, err := uuid.Parse(r.ID)
	if err != nil {
		return nil, fmt.Errorf("parsing run id %q: %w", r.ID, err)
	}
	run := &Run{
		ID:         id,
		Command:    r.Command,
		Mode:       r.Mode,
		VideoPath:  r.VideoPath,
		AudioPath:  r.AudioPath,
		Target:     r.Target,
		Status:     r.Status,
		Error:      r.Error,
		Frames:     r.Frames,
		VideoBytes: r.VideoBytes,
		AudioBytes: r.AudioBytes,
		FPS:        r.FPS,
		StartedAt:  r.StartedAt,
	}
	if r.FinishedAt.Valid {
		t := r.FinishedAt.Time
		run.FinishedAt = &t
	}
	return run, nil
}

// Begin records a run in the running state.
func (repo *Repository) Begin(run *Run) error {
	if run.StartedAt.IsZero() {
		run.StartedAt = time.Now().UTC()
	}
	run.Status = StatusRunning
	query := `INSERT INTO runs (id, command, mode, video_path, audio_path, target, status, started_at)
	          VALUES (:id, :command, :mode, :video_path, :audio_path, :target, :status, :started_at)`
	_, err := repo.dbConn.NamedExec(query, &dbRun{
		ID:        run.ID.String(),
		Command:   run.Command,
		Mode:      run.Mode,
		VideoPath: run.VideoPath,
		AudioPath: run.AudioPath,
		Target:    run.Target,
		Status:    run.Status,
		StartedAt: run.StartedAt,
	})
	if err != nil {
		return fmt.Errorf("inserting run %s: %w", run.ID, err)
	}
	return nil
}

// Finish stores the outcome of a run started with Begin.
func (repo *Repository) Finish(id uuid.UUID, out Outcome) error {
	query := `UPDATE runs SET status = ?, error = ?, frames = ?, video_bytes = ?, audio_bytes = ?, fps = ?, finished_at = ?
	          WHERE id = ?`
	res, err := repo.dbConn.Exec(query, out.Status, out.Error, out.Frames, out.VideoBytes, out.AudioBytes, out.FPS, time.Now().UTC(), id.String())
	if err != nil {
		return fmt.Errorf("updating run %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("updating run %s: %w", id, err)
	}
	if n == 0 {
		return fmt.Errorf("updating run %s: %w", id, sql.ErrNoRows)
	}
	return nil
}

// Get returns one run by id.
func (repo *Repository) Get(id uuid.UUID) (*Run, error) {
	var r dbRun
	if err := repo.dbConn.Get(&r, `SELECT * FROM runs WHERE id = ?`, id.String()); err != nil {
		return nil, fmt.Errorf("getting run %s: %w", id, err)
	}
	return toDomainRun(&r)
}

// Recent returns up to limit runs, newest first.
func (repo *Repository) Recent(limit int) ([]*Run, error) {
	if limit <= 0 {
		limit = 20
	}
	var rows []dbRun
	if err := repo.dbConn.Select(&rows, `SELECT * FROM runs ORDER BY started_at DESC, id DESC LIMIT ?`, limit); err != nil {
		return nil, fmt.Errorf("listing runs: %w", err)
	}
	runs := make([]*Run, 0, len(rows))
	for i := range rows {
		run, err := toDomainRun(&rows[i])
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, nil
}
