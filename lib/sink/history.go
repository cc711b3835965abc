package sink

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"skufetch/lib/crawler"
	"skufetch/lib/sink/db"
)

// History appends each completed run and its outcomes to a local sqlite
// database, so repeated runs against the same identifier list can be
// compared later.
type History struct {
	DB *sql.DB
}

func OpenHistory(path string) (History, error) {
	sqlite, err := sql.Open("sqlite", path)
	if err != nil {
		return History{}, err
	}
	if _, err := sqlite.Exec(db.Schema); err != nil {
		sqlite.Close()
		return History{}, err
	}
	return History{DB: sqlite}, nil
}

func (s History) Close() error { return s.DB.Close() }

func (s History) Write(ctx context.Context, result crawler.Result) error {
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	summary := result.Summary()
	inserted, err := tx.ExecContext(
		ctx,
		`INSERT INTO runs (started_at, attempted, succeeded, failed) VALUES (?, ?, ?, ?)`,
		time.Now().Unix(),
		summary.Attempted,
		summary.Succeeded,
		summary.Failed,
	)
	if err != nil {
		return err
	}
	runId, err := inserted.LastInsertId()
	if err != nil {
		return err
	}

	for position, outcome := range result {
		var record sql.NullString
		if outcome.Record != nil {
			buf, err := json.Marshal(outcome.Record)
			if err != nil {
				return err
			}
			record = sql.NullString{String: string(buf), Valid: true}
		}

		_, err = tx.ExecContext(
			ctx,
			`INSERT INTO outcomes (run_id, position, identifier, ok, reason, record)
			 VALUES (?, ?, ?, ?, ?, ?)`,
			runId,
			position,
			outcome.Identifier,
			outcome.Ok(),
			outcome.Err,
			record,
		)
		if err != nil {
			return err
		}
	}

	return tx.Commit()
}
