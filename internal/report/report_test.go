package report

import (
	"io"
	"log/slog"
	"net/smtp"
	"strings"
	"testing"
	"time"

	"github.com/donsalieri1930/school-bus-api/internal/store"
)

func testRows() []store.ReportRow {
	day := time.Date(2024, 3, 15, 7, 30, 0, 0, time.UTC)
	return []store.ReportRow{
		{ReceivedAt: day, TargetDate: day, Phone: "48123456789", Text: "anna jutro", ChildFullName: "Anna Kowalska", LineCode: "A1", ClassName: "3B"},
		{ReceivedAt: day, TargetDate: day, Phone: "48123456780", Text: "michal jutro", ChildFullName: "Michał Nowak", LineCode: "B2", ClassName: "1A"},
		{ReceivedAt: day, TargetDate: day, Phone: "48123456781", Text: "ola dzisiaj", ChildFullName: "Ola Wiśniewska", LineCode: "A1", ClassName: "2C"},
	}
}

func TestGroupByLine(t *testing.T) {
	grouped := GroupByLine(testRows())

	if len(grouped) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(grouped))
	}
	if len(grouped["A1"]) != 2 {
		t.Errorf("expected 2 rows for A1, got %d", len(grouped["A1"]))
	}
	if len(grouped["B2"]) != 1 {
		t.Errorf("expected 1 row for B2, got %d", len(grouped["B2"]))
	}
	// Order within a line is preserved.
	if grouped["A1"][0].ChildFullName != "Anna Kowalska" {
		t.Errorf("unexpected first A1 row: %+v", grouped["A1"][0])
	}
}

func TestRender(t *testing.T) {
	at := time.Date(2024, 3, 15, 16, 0, 0, 0, time.UTC)
	html, err := Render("A1", at, GroupByLine(testRows())["A1"])
	if err != nil {
		t.Fatalf("Render failed: %v", err)
	}
	for _, want := range []string{"linia A1", "15.03.2024", "Anna Kowalska", "Ola Wiśniewska", "48123456789"} {
		if !strings.Contains(html, want) {
			t.Errorf("rendered digest missing %q", want)
		}
	}
	if strings.Contains(html, "Michał Nowak") {
		t.Error("digest for A1 must not contain B2 rows")
	}
}

func TestSendDigests(t *testing.T) {
	var sentTo [][]string
	var sentMsgs []string
	s := NewSender(SMTPConfig{Host: "mail.test", Port: 587, From: "bus@test"}, slog.New(slog.NewTextHandler(io.Discard, nil)))
	s.sendMail = func(addr string, a smtp.Auth, from string, to []string, msg []byte) error {
		sentTo = append(sentTo, to)
		sentMsgs = append(sentMsgs, string(msg))
		return nil
	}

	recipients := []store.LineRecipients{
		{LineCode: "A1", Emails: "a@szkola.pl; b@szkola.pl"},
		// B2 has no recipients and C3 has no rows; both are skipped.
		{LineCode: "B2", Emails: ""},
		{LineCode: "C3", Emails: "c@szkola.pl"},
	}

	at := time.Date(2024, 3, 15, 16, 0, 0, 0, time.UTC)
	if err := s.SendDigests(recipients, testRows(), at); err != nil {
		t.Fatalf("SendDigests failed: %v", err)
	}

	if len(sentTo) != 1 {
		t.Fatalf("expected 1 email, got %d", len(sentTo))
	}
	if len(sentTo[0]) != 2 || sentTo[0][0] != "a@szkola.pl" || sentTo[0][1] != "b@szkola.pl" {
		t.Errorf("unexpected recipients: %v", sentTo[0])
	}
	if !strings.Contains(sentMsgs[0], "Subject: Linia A1 - 16:00") {
		t.Errorf("message missing subject, got:\n%s", sentMsgs[0])
	}
	if !strings.Contains(sentMsgs[0], "Content-Type: text/html") {
		t.Error("message missing html content type")
	}
}

func TestSplitRecipients(t *testing.T) {
	got := splitRecipients(" a@x.pl;b@x.pl, c@x.pl ;")
	want := []string{"a@x.pl", "b@x.pl", "c@x.pl"}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("recipient %d = %q, want %q", i, got[i], want[i])
		}
	}
}
