//go:build integration

package store

import (
	"context"
	"os"
	"testing"
	"time"
)

func setupTestStore(t *testing.T) *Store {
	t.Helper()
	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		t.Skip("DATABASE_URL not set, skipping integration test")
	}

	ctx := context.Background()
	s, err := New(ctx, dbURL)
	if err != nil {
		t.Fatalf("failed to connect: %v", err)
	}

	t.Cleanup(func() {
		s.Close()
	})
	return s
}

func TestIntegration_FamilyByPhone_Unknown(t *testing.T) {
	s := setupTestStore(t)

	records, err := s.FamilyByPhone(context.Background(), "000000000")
	if err != nil {
		t.Fatalf("FamilyByPhone failed: %v", err)
	}
	if len(records) != 0 {
		t.Errorf("expected no records for unknown phone, got %d", len(records))
	}
}

func TestIntegration_InsertAndFetchReports(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	family, err := s.FamilyByPhone(ctx, os.Getenv("TEST_PARENT_TEL"))
	if err != nil {
		t.Fatalf("FamilyByPhone failed: %v", err)
	}
	if len(family) == 0 {
		t.Skip("TEST_PARENT_TEL not registered in this database")
	}

	now := time.Now()
	recs := []ReportRecord{
		{
			ReceivedAt:    now,
			APIReceivedAt: now,
			Phone:         "48123123123",
			TargetDate:    now.AddDate(0, 0, 1),
			Text:          "integration test report",
			ChildID:       family[0].ChildID,
			LineID:        family[0].LineID,
		},
	}
	if err := s.InsertReports(ctx, recs); err != nil {
		t.Fatalf("InsertReports failed: %v", err)
	}

	rows, err := s.TodaysReports(ctx)
	if err != nil {
		t.Fatalf("TodaysReports failed: %v", err)
	}

	found := false
	for _, r := range rows {
		if r.Text == "integration test report" && r.ChildID == family[0].ChildID {
			found = true
			if r.ChildFullName == "" || r.LineCode == "" {
				t.Error("expected joined child and line data on report row")
			}
		}
	}
	if !found {
		t.Error("inserted report not returned by TodaysReports")
	}
}
