package db

import (
	"context"
	"database/sql"
	"encoding/json"
	stderrors "errors"
	"time"

	"github.com/hpungsan/chatctx/internal/errors"
	"github.com/hpungsan/chatctx/internal/run"
)

const runColumns = `
	id, source_path, source_bytes, output_dir, predicates_json, half_window,
	total_records, matched, written, failed, synthetic_ids, index_path, created_at`

// InsertRun stores a finished run and its extracts in one transaction.
func InsertRun(ctx context.Context, db *sql.DB, r *run.Run, extracts []run.Extract) error {
	var predicatesJSON sql.NullString
	if len(r.Predicates) > 0 {
		data, err := json.Marshal(r.Predicates)
		if err != nil {
			return errors.NewInternal(err)
		}
		predicatesJSON = sql.NullString{String: string(data), Valid: true}
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return errors.NewInternal(err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO runs (`+runColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.SourcePath, r.SourceBytes, r.OutputDir, predicatesJSON, r.HalfWindow,
		r.TotalRecords, r.Matched, r.Written, r.Failed, r.SyntheticIDs,
		toNullString(r.IndexPath), r.CreatedAt,
	)
	if err != nil {
		return errors.NewInternal(err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO extracts (
			run_id, output_index, path, match_id, record_index,
			window_start, window_end, total_records, bytes, error
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return errors.NewInternal(err)
	}
	defer stmt.Close()

	for _, e := range extracts {
		if _, err := stmt.ExecContext(ctx,
			r.ID, e.OutputIndex, e.Path, e.MatchID, e.RecordIndex,
			e.WindowStart, e.WindowEnd, e.TotalRecords, e.Bytes, toNullString(e.Error),
		); err != nil {
			return errors.NewInternal(err)
		}
	}

	if err := tx.Commit(); err != nil {
		return errors.NewInternal(err)
	}
	return nil
}

// GetRun retrieves a run by its ULID.
func GetRun(db *sql.DB, id string) (*run.Run, error) {
	row := db.QueryRow(`SELECT `+runColumns+` FROM runs WHERE id = ?`, id)
	r, err := scanRun(row)
	if err != nil {
		if stderrors.Is(err, sql.ErrNoRows) {
			return nil, errors.NewNotFound(id)
		}
		return nil, errors.NewInternal(err)
	}
	return r, nil
}

// ListRuns returns runs newest first, plus the total count.
func ListRuns(db *sql.DB, limit, offset int) ([]run.Run, int, error) {
	var total int
	if err := db.QueryRow(`SELECT COUNT(*) FROM runs`).Scan(&total); err != nil {
		return nil, 0, errors.NewInternal(err)
	}

	rows, err := db.Query(`
		SELECT `+runColumns+`
		FROM runs
		ORDER BY created_at DESC, id DESC
		LIMIT ? OFFSET ?`, limit, offset)
	if err != nil {
		return nil, 0, errors.NewInternal(err)
	}
	defer rows.Close()

	var runs []run.Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, 0, errors.NewInternal(err)
		}
		runs = append(runs, *r)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, errors.NewInternal(err)
	}
	return runs, total, nil
}

// ListExtracts returns the extracts of a run in output order.
func ListExtracts(db *sql.DB, runID string) ([]run.Extract, error) {
	rows, err := db.Query(`
		SELECT output_index, path, match_id, record_index,
			window_start, window_end, total_records, bytes, error
		FROM extracts
		WHERE run_id = ?
		ORDER BY output_index`, runID)
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	defer rows.Close()

	var extracts []run.Extract
	for rows.Next() {
		var (
			e      run.Extract
			errMsg sql.NullString
		)
		if err := rows.Scan(
			&e.OutputIndex, &e.Path, &e.MatchID, &e.RecordIndex,
			&e.WindowStart, &e.WindowEnd, &e.TotalRecords, &e.Bytes, &errMsg,
		); err != nil {
			return nil, errors.NewInternal(err)
		}
		e.Error = fromNullString(errMsg)
		extracts = append(extracts, e)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewInternal(err)
	}
	return extracts, nil
}

// PurgeRuns permanently deletes runs (and their extract rows) created more
// than olderThanDays ago. A nil olderThanDays purges every run.
// Extract files on disk are not touched.
func PurgeRuns(ctx context.Context, db *sql.DB, olderThanDays *int) (int, error) {
	cutoff := time.Now().Unix() + 1
	if olderThanDays != nil {
		cutoff = time.Now().Add(-time.Duration(*olderThanDays) * 24 * time.Hour).Unix()
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return 0, errors.NewInternal(err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `
		DELETE FROM extracts
		WHERE run_id IN (SELECT id FROM runs WHERE created_at < ?)`, cutoff); err != nil {
		return 0, errors.NewInternal(err)
	}

	res, err := tx.ExecContext(ctx, `DELETE FROM runs WHERE created_at < ?`, cutoff)
	if err != nil {
		return 0, errors.NewInternal(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, errors.NewInternal(err)
	}

	if err := tx.Commit(); err != nil {
		return 0, errors.NewInternal(err)
	}
	return int(n), nil
}

// rowScanner is satisfied by both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (*run.Run, error) {
	var (
		r              run.Run
		predicatesJSON sql.NullString
		indexPath      sql.NullString
	)

	err := row.Scan(
		&r.ID, &r.SourcePath, &r.SourceBytes, &r.OutputDir, &predicatesJSON, &r.HalfWindow,
		&r.TotalRecords, &r.Matched, &r.Written, &r.Failed, &r.SyntheticIDs,
		&indexPath, &r.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	r.IndexPath = fromNullString(indexPath)

	if predicatesJSON.Valid && predicatesJSON.String != "" {
		if err := json.Unmarshal([]byte(predicatesJSON.String), &r.Predicates); err != nil {
			return nil, err
		}
	}

	return &r, nil
}

// toNullString converts a *string to sql.NullString.
func toNullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

// fromNullString converts sql.NullString to *string.
func fromNullString(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	return &ns.String
}
