// Package report builds and mails the daily per-line digest of received
// reports, one email per bus line to that line's recipient list.
package report

import (
	"bytes"
	"fmt"
	"html/template"
	"log/slog"
	"net/smtp"
	"strings"
	"time"

	"github.com/donsalieri1930/school-bus-api/internal/store"
)

var digestTmpl = template.Must(template.New("digest").Parse(`<html>
<body>
<h3>Zgłoszenia SMS - linia {{.LineCode}} ({{.Date}})</h3>
<table border="1" cellpadding="4" cellspacing="0">
<tr><th>Godzina</th><th>Dziecko</th><th>Klasa</th><th>Dzień</th><th>Telefon</th><th>Treść</th></tr>
{{range .Rows}}<tr>
<td>{{.ReceivedAt.Format "15:04"}}</td>
<td>{{.ChildFullName}}</td>
<td>{{.ClassName}}</td>
<td>{{.TargetDate.Format "02.01.2006"}}</td>
<td>{{.Phone}}</td>
<td>{{.Text}}</td>
</tr>
{{end}}</table>
</body>
</html>
`))

type digestData struct {
	LineCode string
	Date     string
	Rows     []store.ReportRow
}

type SMTPConfig struct {
	Host     string
	Port     int
	From     string
	Password string
}

type Sender struct {
	cfg    SMTPConfig
	logger *slog.Logger

	// sendMail is smtp.SendMail, swappable in tests.
	sendMail func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

func NewSender(cfg SMTPConfig, logger *slog.Logger) *Sender {
	return &Sender{cfg: cfg, logger: logger, sendMail: smtp.SendMail}
}

// GroupByLine buckets today's rows by bus line code, preserving row order
// within each line.
func GroupByLine(rows []store.ReportRow) map[string][]store.ReportRow {
	out := make(map[string][]store.ReportRow)
	for _, r := range rows {
		out[r.LineCode] = append(out[r.LineCode], r)
	}
	return out
}

// Render produces the HTML body for one line's digest.
func Render(lineCode string, at time.Time, rows []store.ReportRow) (string, error) {
	var buf bytes.Buffer
	err := digestTmpl.Execute(&buf, digestData{
		LineCode: lineCode,
		Date:     at.Format("02.01.2006"),
		Rows:     rows,
	})
	if err != nil {
		return "", fmt.Errorf("render digest: %w", err)
	}
	return buf.String(), nil
}

// SendDigests mails one digest per line that has both recipients and rows.
// A failure for one line is logged and does not stop the others.
func (s *Sender) SendDigests(recipients []store.LineRecipients, rows []store.ReportRow, at time.Time) error {
	grouped := GroupByLine(rows)

	var failed int
	for _, lr := range recipients {
		if lr.Emails == "" {
			continue
		}
		lineRows := grouped[lr.LineCode]
		if len(lineRows) == 0 {
			continue
		}

		body, err := Render(lr.LineCode, at, lineRows)
		if err != nil {
			s.logger.Error("failed to render digest", "line", lr.LineCode, "error", err)
			failed++
			continue
		}

		to := splitRecipients(lr.Emails)
		subject := fmt.Sprintf("Linia %s - %s", lr.LineCode, at.Format("15:04"))
		if err := s.send(to, subject, body); err != nil {
			s.logger.Error("failed to send digest", "line", lr.LineCode, "error", err)
			failed++
			continue
		}
		s.logger.Info("digest sent", "line", lr.LineCode, "recipients", len(to), "rows", len(lineRows))
	}

	if failed > 0 {
		return fmt.Errorf("%d digest(s) failed", failed)
	}
	return nil
}

func (s *Sender) send(to []string, subject, htmlBody string) error {
	var msg bytes.Buffer
	fmt.Fprintf(&msg, "From: %s\r\n", s.cfg.From)
	fmt.Fprintf(&msg, "To: %s\r\n", strings.Join(to, ", "))
	fmt.Fprintf(&msg, "Subject: %s\r\n", subject)
	msg.WriteString("MIME-Version: 1.0\r\n")
	msg.WriteString("Content-Type: text/html; charset=utf-8\r\n")
	msg.WriteString("\r\n")
	msg.WriteString(htmlBody)

	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)
	auth := smtp.PlainAuth("", s.cfg.From, s.cfg.Password, s.cfg.Host)
	return s.sendMail(addr, auth, s.cfg.From, to, msg.Bytes())
}

// splitRecipients accepts the office's semicolon-separated lists, commas
// included for good measure.
func splitRecipients(emails string) []string {
	fields := strings.FieldsFunc(emails, func(r rune) bool {
		return r == ';' || r == ','
	})
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		if f = strings.TrimSpace(f); f != "" {
			out = append(out, f)
		}
	}
	return out
}
