package api

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/donsalieri1930/school-bus-api/internal/processor"
	"github.com/donsalieri1930/school-bus-api/internal/store"
)

type fakeInbox struct {
	mu   sync.Mutex
	msgs []processor.InboundSMS
}

func (f *fakeInbox) Handle(msg processor.InboundSMS) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.msgs = append(f.msgs, msg)
}

func (f *fakeInbox) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.msgs)
}

type fakeReports struct {
	rows []store.ReportRow
	err  error
}

func (f *fakeReports) TodaysReports(_ context.Context) ([]store.ReportRow, error) {
	return f.rows, f.err
}

func testServer(inbox *fakeInbox, reports *fakeReports) *Server {
	return NewServer(Config{
		Port:             8640,
		WhitelistEnabled: true,
		IPWhitelist:      []string{"10.1.1.1"},
		AdminUsername:    "admin",
		AdminPassword:    "s3cret",
	}, inbox, reports, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestHealthEndpoint(t *testing.T) {
	srv := testServer(&fakeInbox{}, &fakeReports{})

	req := httptest.NewRequest("GET", "/health", nil)
	w := httptest.NewRecorder()
	srv.router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", w.Code)
	}

	var body map[string]string
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if body["status"] != "ok" {
		t.Errorf("expected status ok, got %q", body["status"])
	}
}

func TestNewSMS_WhitelistedViaForwardedFor(t *testing.T) {
	inbox := &fakeInbox{}
	srv := testServer(inbox, &fakeReports{})

	payload := `{"sms_to":"4860","sms_from":"48123456789","sms_text":"Anna jutro","sms_date":"1710489600","username":"smsapi"}`
	req := httptest.NewRequest("POST", "/sms", strings.NewReader(payload))
	req.Header.Set("X-Forwarded-For", "10.1.1.1, 172.16.0.1")
	w := httptest.NewRecorder()
	srv.router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if w.Body.String() != "OK" {
		t.Errorf("expected OK ack, got %q", w.Body.String())
	}

	// Processing is handed off to a goroutine.
	deadline := time.Now().Add(time.Second)
	for inbox.count() == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if inbox.count() != 1 {
		t.Fatalf("expected 1 handled message, got %d", inbox.count())
	}
	inbox.mu.Lock()
	defer inbox.mu.Unlock()
	if inbox.msgs[0].From != "48123456789" || inbox.msgs[0].Text != "Anna jutro" {
		t.Errorf("unexpected handed-off message: %+v", inbox.msgs[0])
	}
}

func TestNewSMS_UnlistedIP(t *testing.T) {
	inbox := &fakeInbox{}
	srv := testServer(inbox, &fakeReports{})

	req := httptest.NewRequest("POST", "/sms", strings.NewReader(`{}`))
	req.Header.Set("X-Forwarded-For", "203.0.113.7")
	w := httptest.NewRecorder()
	srv.router.ServeHTTP(w, req)

	if w.Code != http.StatusForbidden {
		t.Errorf("expected 403, got %d", w.Code)
	}
	if inbox.count() != 0 {
		t.Error("unlisted request must not be processed")
	}
}

func TestNewSMS_WhitelistDisabled(t *testing.T) {
	inbox := &fakeInbox{}
	srv := NewServer(Config{Port: 8640, WhitelistEnabled: false},
		inbox, &fakeReports{}, slog.New(slog.NewTextHandler(io.Discard, nil)))

	req := httptest.NewRequest("POST", "/sms", strings.NewReader(`{"sms_from":"48123456789","sms_text":"x"}`))
	w := httptest.NewRecorder()
	srv.router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("expected 200 with whitelist disabled, got %d", w.Code)
	}
}

func TestNewSMS_InvalidJSON(t *testing.T) {
	srv := testServer(&fakeInbox{}, &fakeReports{})

	req := httptest.NewRequest("POST", "/sms", strings.NewReader("{not json"))
	req.Header.Set("X-Forwarded-For", "10.1.1.1")
	w := httptest.NewRecorder()
	srv.router.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", w.Code)
	}
}

func TestAdmin_Unauthorized(t *testing.T) {
	srv := testServer(&fakeInbox{}, &fakeReports{})

	req := httptest.NewRequest("GET", "/admin", nil)
	w := httptest.NewRecorder()
	srv.router.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", w.Code)
	}
	if w.Header().Get("WWW-Authenticate") == "" {
		t.Error("expected WWW-Authenticate header")
	}
}

func TestAdmin_WrongPassword(t *testing.T) {
	srv := testServer(&fakeInbox{}, &fakeReports{})

	req := httptest.NewRequest("GET", "/admin", nil)
	req.SetBasicAuth("admin", "wrong")
	w := httptest.NewRecorder()
	srv.router.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", w.Code)
	}
}

func TestAdmin_ListsTodaysReports(t *testing.T) {
	reports := &fakeReports{rows: []store.ReportRow{
		{Phone: "48123456789", ChildFullName: "Anna Kowalska", LineCode: "A1"},
	}}
	srv := testServer(&fakeInbox{}, reports)

	req := httptest.NewRequest("GET", "/admin", nil)
	req.SetBasicAuth("admin", "s3cret")
	w := httptest.NewRecorder()
	srv.router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var rows []store.ReportRow
	if err := json.NewDecoder(w.Body).Decode(&rows); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(rows) != 1 || rows[0].ChildFullName != "Anna Kowalska" {
		t.Errorf("unexpected rows: %+v", rows)
	}
}
