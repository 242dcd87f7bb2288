// Package processor turns one inbound SMS into validated database rows and
// exactly one outbound reply. Validation runs in a fixed order and the first
// failure wins; nothing is persisted once any check has failed.
package processor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/donsalieri1930/school-bus-api/internal/dates"
	"github.com/donsalieri1930/school-bus-api/internal/events"
	"github.com/donsalieri1930/school-bus-api/internal/roster"
	"github.com/donsalieri1930/school-bus-api/internal/smserr"
	"github.com/donsalieri1930/school-bus-api/internal/store"
)

// InboundSMS is the webhook body posted by the SMS provider. Date is the
// provider's receive time as a UNIX timestamp string.
type InboundSMS struct {
	To       string `json:"sms_to"`
	From     string `json:"sms_from"`
	Text     string `json:"sms_text"`
	Date     string `json:"sms_date"`
	Username string `json:"username"`
	MsgID    string `json:"MsgId,omitempty"`
}

// FamilyStore is the persistence surface the pipeline needs: roster lookup
// and the append-only report batch.
type FamilyStore interface {
	FamilyByPhone(ctx context.Context, lastNineDigits string) ([]store.FamilyRecord, error)
	InsertReports(ctx context.Context, recs []store.ReportRecord) error
}

// Sender delivers one text message to one recipient.
type Sender interface {
	Send(ctx context.Context, to, message string) error
}

// Publisher emits pipeline outcome events. May be nil when no bus is
// configured.
type Publisher interface {
	Publish(subject string, data any) error
}

// Messages holds the reply templates. ConfirmationFormat has two %s slots:
// child names and the date or date range.
type Messages struct {
	ConfirmationFormat string
	SystemFailure      string
}

type Processor struct {
	store     FamilyStore
	sender    Sender
	bus       Publisher
	extractor *dates.Extractor
	validator *dates.Validator
	messages  Messages
	now       func() time.Time
	logger    *slog.Logger
}

func New(st FamilyStore, snd Sender, bus Publisher, ext *dates.Extractor, val *dates.Validator, msgs Messages, now func() time.Time, logger *slog.Logger) *Processor {
	if now == nil {
		now = time.Now
	}
	return &Processor{
		store:     st,
		sender:    snd,
		bus:       bus,
		extractor: ext,
		validator: val,
		messages:  msgs,
		now:       now,
		logger:    logger,
	}
}

// Handle runs the full pipeline for one message and always reaches exactly
// one terminal outcome: a confirmation, a validation-error reply, or a
// generic failure reply. It never returns an error; the webhook has already
// acked by the time this runs.
func (p *Processor) Handle(msg InboundSMS) {
	ctx := context.Background()

	err := p.process(ctx, msg)
	if err == nil {
		p.logger.Info("sms accepted", "from", msg.From, "text", msg.Text)
		return
	}

	var verr *smserr.ValidationError
	if errors.As(err, &verr) {
		p.logger.Info("sms rejected",
			"from", msg.From,
			"text", msg.Text,
			"kind", string(verr.Kind),
			"param", verr.Param,
		)
		p.publish(events.SubjectRejected, events.RejectedEvent{
			Phone: msg.From,
			Kind:  string(verr.Kind),
			Param: verr.Param,
		})
		if sendErr := p.sender.Send(ctx, msg.From, verr.Message); sendErr != nil {
			p.logger.Error("failed to send rejection reply", "from", msg.From, "error", sendErr)
		}
		return
	}

	// External fault: log full detail, reply with the generic message only.
	p.logger.Error("sms processing failed", "from", msg.From, "text", msg.Text, "error", err)
	if sendErr := p.sender.Send(ctx, msg.From, p.messages.SystemFailure); sendErr != nil {
		p.logger.Error("failed to send failure reply", "from", msg.From, "error", sendErr)
	}
}

func (p *Processor) process(ctx context.Context, msg InboundSMS) error {
	matches, err := p.extractor.Extract(msg.Text)
	if err != nil {
		return err
	}

	var days []time.Time
	switch len(matches) {
	case 0:
		return smserr.NoDateFound()
	case 1:
		if err := p.validator.ValidateSingle(matches[0]); err != nil {
			return err
		}
		if err := p.validator.ValidateTime(matches[0]); err != nil {
			return err
		}
		days = []time.Time{matches[0].Date}
	case 2:
		start, end := matches[0], matches[1]
		if err := p.validator.ValidateSingle(start); err != nil {
			return err
		}
		if err := p.validator.ValidateTime(start); err != nil {
			return err
		}
		if err := p.validator.ValidateSingle(end); err != nil {
			return err
		}
		if err := p.validator.ValidateRange(start, end); err != nil {
			return err
		}
		days = dates.Expand(start.Date, end.Date)
	default:
		texts := make([]string, len(matches))
		for i, m := range matches {
			texts[i] = m.Text
		}
		return smserr.TooManyDates(strings.Join(texts, ", "))
	}

	family, err := p.store.FamilyByPhone(ctx, lastNineDigits(msg.From))
	if err != nil {
		return fmt.Errorf("lookup family: %w", err)
	}
	if len(family) == 0 {
		return smserr.NoChildrenRegistered()
	}

	matched, err := roster.FilterByMention(family, msg.Text)
	if err != nil {
		return err
	}

	receivedAt := p.now()
	apiReceivedAt := receivedAt
	if ts, err := strconv.ParseInt(msg.Date, 10, 64); err == nil {
		apiReceivedAt = time.Unix(ts, 0)
	}

	// Stored text is the same ASCII-folded lowercase form used for matching.
	normalizedText := roster.Normalize(msg.Text)

	recs := make([]store.ReportRecord, 0, len(matched)*len(days))
	for _, row := range matched {
		for _, day := range days {
			recs = append(recs, store.ReportRecord{
				ReceivedAt:    receivedAt,
				APIReceivedAt: apiReceivedAt,
				Phone:         msg.From,
				TargetDate:    day,
				Text:          normalizedText,
				ChildID:       row.ChildID,
				LineID:        row.LineID,
			})
		}
	}
	if err := p.store.InsertReports(ctx, recs); err != nil {
		return fmt.Errorf("persist reports: %w", err)
	}

	names := distinctFullNames(matched)
	if err := p.sender.Send(ctx, msg.From, p.confirmation(names, matches)); err != nil {
		return fmt.Errorf("send confirmation: %w", err)
	}

	dayStrs := make([]string, len(days))
	for i, d := range days {
		dayStrs[i] = d.Format("2006-01-02")
	}
	p.publish(events.SubjectAccepted, events.AcceptedEvent{
		Phone:    msg.From,
		Children: names,
		Days:     dayStrs,
		Records:  len(recs),
	})
	return nil
}

// confirmation fills the reply template with the matched children and the
// requested date or range, formatted DD.MM.YYYY.
func (p *Processor) confirmation(names []string, matches []dates.Match) string {
	datesStr := matches[0].Date.Format("02.01.2006")
	if len(matches) == 2 {
		datesStr += " - " + matches[1].Date.Format("02.01.2006")
	}
	return fmt.Sprintf(p.messages.ConfirmationFormat, strings.Join(names, ", "), datesStr)
}

func (p *Processor) publish(subject string, data any) {
	if p.bus == nil {
		return
	}
	if err := p.bus.Publish(subject, data); err != nil {
		p.logger.Warn("failed to publish outcome event", "subject", subject, "error", err)
	}
}

// distinctFullNames keeps first-appearance order so replies are
// deterministic.
func distinctFullNames(records []store.FamilyRecord) []string {
	seen := make(map[string]bool, len(records))
	var names []string
	for _, r := range records {
		if !seen[r.ChildFullName] {
			seen[r.ChildFullName] = true
			names = append(names, r.ChildFullName)
		}
	}
	return names
}

// lastNineDigits trims the sender number to the roster lookup key, dropping
// any country prefix.
func lastNineDigits(phone string) string {
	if len(phone) <= 9 {
		return phone
	}
	return phone[len(phone)-9:]
}
