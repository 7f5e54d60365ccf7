package distributor

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"time"

	"github.com/pkg/errors"
	_ "modernc.org/sqlite"

	"github.com/eunomia-project/eunomia/core"
)

// Journal is an optional SQLite-backed record of terminal deployments,
// surviving process restarts. The tracker's own state is in-memory only
// and nothing in this package requires a Journal to function; callers
// that want durability record to one alongside the tracker.
type Journal struct {
	db *sql.DB
}

// OpenJournal opens (creating if necessary) a SQLite database at path and
// ensures its schema exists.
func OpenJournal(path string) (*Journal, error) {
	if path == "" {
		return nil, errors.New("distributor: journal path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, errors.Wrap(err, "distributor: creating journal directory")
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, errors.Wrap(err, "distributor: opening journal database")
	}
	db.SetMaxOpenConns(1)

	j := &Journal{db: db}
	if err := j.migrate(context.Background()); err != nil {
		db.Close()
		return nil, err
	}
	return j, nil
}

func (j *Journal) migrate(ctx context.Context) error {
	_, err := j.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS deployments (
			id TEXT PRIMARY KEY,
			service TEXT NOT NULL,
			target_version TEXT NOT NULL,
			state INTEGER NOT NULL,
			total INTEGER NOT NULL,
			successful INTEGER NOT NULL,
			failed INTEGER NOT NULL,
			started_at TEXT NOT NULL,
			ended_at TEXT,
			error TEXT
		);
	`)
	if err != nil {
		return errors.Wrap(err, "distributor: migrating journal schema")
	}
	return nil
}

// Close releases the underlying database handle.
func (j *Journal) Close() error { return j.db.Close() }

// Record upserts a terminal deployment into the journal. Only terminal
// deployments are worth journaling: in-flight state is the tracker's
// responsibility.
func (j *Journal) Record(ctx context.Context, d *core.Deployment) error {
	var ended *string
	if d.EndedAt != nil {
		s := d.EndedAt.Format(time.RFC3339Nano)
		ended = &s
	}
	_, err := j.db.ExecContext(ctx, `
		INSERT INTO deployments (id, service, target_version, state, total, successful, failed, started_at, ended_at, error)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			state=excluded.state, successful=excluded.successful, failed=excluded.failed,
			ended_at=excluded.ended_at, error=excluded.error
	`, d.ID, d.Service, d.TargetVersion, int(d.State), d.Total, d.Successful, d.Failed,
		d.StartedAt.Format(time.RFC3339Nano), ended, d.Error)
	if err != nil {
		return errors.Wrap(err, "distributor: recording deployment to journal")
	}
	return nil
}

// RecentForService returns the most recent journaled deployments for
// service, newest first, up to limit.
func (j *Journal) RecentForService(ctx context.Context, service string, limit int) ([]*core.Deployment, error) {
	rows, err := j.db.QueryContext(ctx, `
		SELECT id, service, target_version, state, total, successful, failed, started_at, ended_at, error
		FROM deployments WHERE service = ? ORDER BY started_at DESC LIMIT ?
	`, service, limit)
	if err != nil {
		return nil, errors.Wrap(err, "distributor: querying journal")
	}
	defer rows.Close()

	var out []*core.Deployment
	for rows.Next() {
		var d core.Deployment
		var state int
		var startedAt string
		var endedAt sql.NullString
		var errMsg sql.NullString
		if err := rows.Scan(&d.ID, &d.Service, &d.TargetVersion, &state, &d.Total, &d.Successful, &d.Failed, &startedAt, &endedAt, &errMsg); err != nil {
			return nil, errors.Wrap(err, "distributor: scanning journal row")
		}
		d.State = core.DeploymentState(state)
		if t, err := time.Parse(time.RFC3339Nano, startedAt); err == nil {
			d.StartedAt = t
		}
		if endedAt.Valid {
			if t, err := time.Parse(time.RFC3339Nano, endedAt.String); err == nil {
				d.EndedAt = &t
			}
		}
		d.Error = errMsg.String
		out = append(out, &d)
	}
	return out, rows.Err()
}
