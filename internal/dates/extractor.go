// Package dates finds calendar dates in free-text SMS messages and enforces
// the temporal business rules on them. All "now" decisions go through an
// injected clock and a single civil timezone.
package dates

import (
	"regexp"
	"strings"
	"time"

	"github.com/donsalieri1930/school-bus-api/internal/smserr"
)

// Match is one date found in a message: the exact substring as the parent
// typed it, and the calendar day it resolves to (midnight in the extractor's
// timezone). Matches are returned in order of appearance, not chronologically.
type Match struct {
	Text string
	Date time.Time
}

// Accepted forms: day-first or year-first numeric dates with a 4-digit year
// and any mix of "."/"/"/"-" separators, plus the literal keywords for today
// and tomorrow. The alternatives are mutually exclusive by shape, so the
// first structural match at each position wins.
//
// RE2 word boundaries are ASCII-only, so "dziś" carries no trailing \b; the
// longer "dzisiaj" alternative is tried first to keep "dzis" from matching
// its prefix.
var dateExpr = regexp.MustCompile(`(?i)` +
	`(?P<dmy>\b\d{1,2}[./-]\d{1,2}[./-]\d{4}\b)` +
	`|(?P<ymd>\b\d{4}[./-]\d{1,2}[./-]\d{1,2}\b)` +
	`|(?P<today>\b(?:dzisiaj\b|dziś|dzis\b))` +
	`|(?P<tomorrow>\bjutro\b)`)

var separators = strings.NewReplacer("/", ".", "-", ".")

type Extractor struct {
	loc *time.Location
	now func() time.Time
}

// NewExtractor builds an extractor resolving keyword dates against the given
// timezone. A nil clock defaults to time.Now.
func NewExtractor(loc *time.Location, now func() time.Time) *Extractor {
	if now == nil {
		now = time.Now
	}
	return &Extractor{loc: loc, now: now}
}

// Extract returns every date mentioned in text, in order of appearance.
// A numeric match that does not name an existing calendar day fails
// immediately with an invalid-date error carrying the original substring.
func (e *Extractor) Extract(text string) ([]Match, error) {
	var out []Match
	for _, m := range dateExpr.FindAllStringSubmatch(text, -1) {
		switch {
		case m[1] != "":
			d, err := e.construct(m[1], true)
			if err != nil {
				return nil, err
			}
			out = append(out, Match{Text: m[0], Date: d})
		case m[2] != "":
			d, err := e.construct(m[2], false)
			if err != nil {
				return nil, err
			}
			out = append(out, Match{Text: m[0], Date: d})
		case m[3] != "":
			out = append(out, Match{Text: m[0], Date: e.Today()})
		case m[4] != "":
			out = append(out, Match{Text: m[0], Date: e.Today().AddDate(0, 0, 1)})
		}
	}
	return out, nil
}

// Today returns the current civil date in the extractor's timezone.
func (e *Extractor) Today() time.Time {
	now := e.now().In(e.loc)
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, e.loc)
}

// construct parses a numeric date token. Separators were already constrained
// by the regex; they are unified here so one layout handles every mix.
func (e *Extractor) construct(token string, dayFirst bool) (time.Time, error) {
	layout := "2006.1.2"
	if dayFirst {
		layout = "2.1.2006"
	}
	d, err := time.ParseInLocation(layout, separators.Replace(token), e.loc)
	if err != nil {
		return time.Time{}, smserr.InvalidDate(token)
	}
	return d, nil
}
