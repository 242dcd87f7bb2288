// Package roster matches children mentioned in a message against the family
// records registered for the sender's phone number.
package roster

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/donsalieri1930/school-bus-api/internal/smserr"
	"github.com/donsalieri1930/school-bus-api/internal/store"
)

// foldMarks decomposes and drops combining marks, turning ż into z, ó into o
// and so on.
var foldMarks = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// Normalize returns an ASCII-folded, lower-cased version of s. The stroked ł
// has no combining-mark decomposition and is folded explicitly; it is the one
// Polish letter NFD leaves behind.
func Normalize(s string) string {
	out, _, err := transform.String(foldMarks, s)
	if err != nil {
		out = s
	}
	out = strings.Map(func(r rune) rune {
		switch r {
		case 'ł':
			return 'l'
		case 'Ł':
			return 'L'
		}
		return r
	}, out)
	return strings.ToLower(out)
}

// NameInText reports whether name appears as a whole word in text. Both sides
// are normalized first, so matching ignores case and diacritics.
func NameInText(name, text string) bool {
	pattern, err := regexp.Compile(`\b` + regexp.QuoteMeta(Normalize(name)) + `\b`)
	if err != nil {
		return false
	}
	return pattern.MatchString(Normalize(text))
}

// FilterByMention keeps records whose child's first name is mentioned in the
// message. An empty result is an error listing the distinct first names
// registered for this sender, in roster order.
func FilterByMention(records []store.FamilyRecord, text string) ([]store.FamilyRecord, error) {
	var matched []store.FamilyRecord
	for _, r := range records {
		if NameInText(r.ChildFirstName, text) {
			matched = append(matched, r)
		}
	}
	if len(matched) == 0 {
		return nil, smserr.NoChildrenNameMatch(strings.Join(distinctFirstNames(records), ", "))
	}
	return matched, nil
}

func distinctFirstNames(records []store.FamilyRecord) []string {
	seen := make(map[string]bool, len(records))
	var names []string
	for _, r := range records {
		if !seen[r.ChildFirstName] {
			seen[r.ChildFirstName] = true
			names = append(names, r.ChildFirstName)
		}
	}
	return names
}
