package app

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"github.com/specialistvlad/burstcast/internal/ctxlog"
	"github.com/specialistvlad/burstcast/internal/history"
)

// recorder writes runs to history. A recorder without a repository does
// nothing; history failures never stop a stream.
type recorder struct {
	repo   *history.Repository
	logger *slog.Logger
}

func (a *App) openRecorder(ctx context.Context) *recorder {
	logger := ctxlog.FromContext(ctx)
	r := &recorder{logger: logger}
	if a.config.HistoryDB == "" {
		logger.Debug("History disabled.")
		return r
	}
	repo, err := history.Open(a.config.HistoryDB)
	if err != nil {
		logger.Warn("History unavailable, run will not be recorded.", "path", a.config.HistoryDB, "error", err)
		return r
	}
	r.repo = repo
	return r
}

func (r *recorder) begin(run *history.Run) {
	if r.repo == nil {
		return
	}
	if err := r.repo.Begin(run); err != nil {
		r.logger.Warn("Failed to record run start.", "error", err)
	}
}

func (r *recorder) finish(id uuid.UUID, out history.Outcome) {
	if r.repo == nil {
		return
	}
	if err := r.repo.Finish(id, out); err != nil {
		r.logger.Warn("Failed to record run outcome.", "error", err)
	}
}

func (r *recorder) close() {
	if r.repo == nil {
		return
	}
	if err := r.repo.Close(); err != nil {
		r.logger.Warn("Failed to close history.", "error", err)
	}
}
