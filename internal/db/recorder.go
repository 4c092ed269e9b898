package db

import (
	"context"

	"github.com/newhook/remedy/internal/logentry"
	"github.com/newhook/remedy/internal/logging"
	"github.com/newhook/remedy/internal/logstore"
)

// Recorder archives store notifications into one session.
type Recorder struct {
	ctx     context.Context
	db      *DB
	session *Session
	failed  int
}

// NewRecorder creates a recorder writing to session. ctx bounds every
// write.
func NewRecorder(ctx context.Context, db *DB, session *Session) *Recorder {
	return &Recorder{ctx: ctx, db: db, session: session}
}

// Attach subscribes to added and changed records.
func (r *Recorder) Attach(store *logstore.Store) {
	store.OnRecordAdded(r.save)
	store.OnOccurrenceChanged(r.save)
}

func (r *Recorder) save(rec *logentry.Record) {
	if err := r.db.SaveRecord(r.ctx, r.session.ID, rec); err != nil {
		r.failed++
		logging.Warn("failed to archive record", "session", r.session.ID, "error", err)
	}
}

// Session returns the session being written.
func (r *Recorder) Session() *Session {
	return r.session
}

// Failed returns how many writes have failed.
func (r *Recorder) Failed() int {
	return r.failed
}
