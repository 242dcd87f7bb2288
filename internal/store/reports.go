package store

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ReportRecord is one row to persist: a single (child, line, day) absence
// report extracted from one SMS. Rows are append-only.
type ReportRecord struct {
	ReceivedAt    time.Time
	APIReceivedAt time.Time
	Phone         string
	TargetDate    time.Time
	Text          string
	ChildID       int64
	LineID        int64
}

// ReportRow is a persisted report joined with child and line data, as shown
// in the admin view and the daily line digest.
type ReportRow struct {
	ID            uuid.UUID
	ReceivedAt    time.Time
	APIReceivedAt time.Time
	Phone         string
	TargetDate    time.Time
	Text          string
	ChildID       int64
	LineID        int64
	ChildFullName string
	LineCode      string
	ClassName     string
}

// InsertReports writes the whole batch produced by one SMS in a single
// transaction: either every (child, day) row lands or none do.
func (s *Store) InsertReports(ctx context.Context, recs []ReportRecord) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, r := range recs {
		_, err = tx.Exec(ctx, `
			INSERT INTO sms_reports (id, received_at, api_received_at, tel, target_date, text, child_id, line_id)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
			uuid.New(), r.ReceivedAt, r.APIReceivedAt, r.Phone, r.TargetDate, r.Text, r.ChildID, r.LineID,
		)
		if err != nil {
			return fmt.Errorf("insert report: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// TodaysReports fetches every report received today, joined with child and
// line data for display.
func (s *Store) TodaysReports(ctx context.Context) ([]ReportRow, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT r.id, r.received_at, r.api_received_at, r.tel, r.target_date, r.text,
		       r.child_id, r.line_id, c.full_name, l.code, c.class_name
		FROM sms_reports r
		JOIN children c ON c.id = r.child_id
		JOIN lines l ON l.id = r.line_id
		WHERE r.received_at::date = CURRENT_DATE
		ORDER BY r.received_at`,
	)
	if err != nil {
		return nil, fmt.Errorf("query todays reports: %w", err)
	}
	defer rows.Close()

	var out []ReportRow
	for rows.Next() {
		var r ReportRow
		if err := rows.Scan(
			&r.ID, &r.ReceivedAt, &r.APIReceivedAt, &r.Phone, &r.TargetDate, &r.Text,
			&r.ChildID, &r.LineID, &r.ChildFullName, &r.LineCode, &r.ClassName,
		); err != nil {
			return nil, fmt.Errorf("scan report row: %w", err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read report rows: %w", err)
	}
	return out, nil
}
