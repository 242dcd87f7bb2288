package store

import (
	"context"
	"fmt"
)

// FamilyRecord is one (child, bus line) pair registered to a family. The same
// child appears once per line it rides.
type FamilyRecord struct {
	LastName       string
	MotherEmail    string
	FatherEmail    string
	MotherTel      string
	FatherTel      string
	ChildFullName  string
	ChildFirstName string
	LineCode       string
	ChildID        int64
	LineID         int64
}

// FamilyByPhone fetches every (child, line) record registered to a parent
// phone number. The key is the last 9 digits, so country prefixes on either
// side do not matter.
func (s *Store) FamilyByPhone(ctx context.Context, lastNineDigits string) ([]FamilyRecord, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT f.last_name, f.mother_email, f.father_email, f.mother_tel, f.father_tel,
		       c.full_name, c.first_name, l.code, c.id, l.id
		FROM families f
		JOIN children c ON c.family_id = f.id
		JOIN child_lines cl ON cl.child_id = c.id
		JOIN lines l ON l.id = cl.line_id
		WHERE right(f.mother_tel, 9) = $1 OR right(f.father_tel, 9) = $1
		ORDER BY c.id, l.id`,
		lastNineDigits,
	)
	if err != nil {
		return nil, fmt.Errorf("query family: %w", err)
	}
	defer rows.Close()

	var out []FamilyRecord
	for rows.Next() {
		var r FamilyRecord
		if err := rows.Scan(
			&r.LastName, &r.MotherEmail, &r.FatherEmail, &r.MotherTel, &r.FatherTel,
			&r.ChildFullName, &r.ChildFirstName, &r.LineCode, &r.ChildID, &r.LineID,
		); err != nil {
			return nil, fmt.Errorf("scan family row: %w", err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read family rows: %w", err)
	}
	return out, nil
}

// LineRecipients holds the report recipient list for one bus line. Emails is
// the raw semicolon-separated list as stored by the school office.
type LineRecipients struct {
	LineCode string
	Emails   string
}

// LineEmails fetches the per-line report recipient lists.
func (s *Store) LineEmails(ctx context.Context) ([]LineRecipients, error) {
	rows, err := s.pool.Query(ctx, `SELECT code, report_emails FROM lines ORDER BY code`)
	if err != nil {
		return nil, fmt.Errorf("query line emails: %w", err)
	}
	defer rows.Close()

	var out []LineRecipients
	for rows.Next() {
		var r LineRecipients
		if err := rows.Scan(&r.LineCode, &r.Emails); err != nil {
			return nil, fmt.Errorf("scan line emails: %w", err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read line emails: %w", err)
	}
	return out, nil
}
