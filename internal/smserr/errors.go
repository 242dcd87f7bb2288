// Package smserr defines the validation outcomes a parent can trigger with a
// single SMS. Every kind carries the offending text and a ready-to-send Polish
// message; the message is rendered when the error is raised so it reflects the
// configuration and clock at that moment.
package smserr

import "fmt"

type Kind string

const (
	KindNoDateFound          Kind = "no_date_found"
	KindInvalidDate          Kind = "invalid_date"
	KindTooManyDates         Kind = "too_many_dates"
	KindDateInPast           Kind = "date_in_past"
	KindDateTooFarInFuture   Kind = "date_too_far_in_future"
	KindDateRangeOrder       Kind = "date_range_order"
	KindDateRangeTooLong     Kind = "date_range_too_long"
	KindSentTooLate          Kind = "sent_too_late"
	KindNoChildrenRegistered Kind = "no_children_registered"
	KindNoChildrenNameMatch  Kind = "no_children_name_match"
)

// ValidationError is a terminal, user-facing outcome of processing one SMS.
// Message is the localized text sent back to the parent; Param is the
// offending substring (or substrings) for logs.
type ValidationError struct {
	Kind    Kind
	Param   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Param == "" {
		return string(e.Kind)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Param)
}

func NoDateFound() *ValidationError {
	return &ValidationError{
		Kind: KindNoDateFound,
		Message: "Wiadomość nie zawiera daty. Dozwolony jest każdy format z 4-cyfrowym " +
			"rokiem (np. DD.​MM.​RRRR) oraz słowa \"dzisiaj\" i \"jutro\".",
	}
}

func InvalidDate(param string) *ValidationError {
	return &ValidationError{
		Kind:    KindInvalidDate,
		Param:   param,
		Message: fmt.Sprintf("Znaleziona data %s jest nieprawidłowa (nie ma takiego dnia).", param),
	}
}

func TooManyDates(param string) *ValidationError {
	return &ValidationError{
		Kind:    KindTooManyDates,
		Param:   param,
		Message: fmt.Sprintf("Znaleziono więcej niż dwie daty: %s.", param),
	}
}

// DateInPast renders today's date into the message at raise time.
func DateInPast(param, today string) *ValidationError {
	return &ValidationError{
		Kind:    KindDateInPast,
		Param:   param,
		Message: fmt.Sprintf("Data %s jest w przeszłości. Dzisiaj jest %s.", param, today),
	}
}

func DateTooFarInFuture(param string, limitDays int) *ValidationError {
	return &ValidationError{
		Kind:    KindDateTooFarInFuture,
		Param:   param,
		Message: fmt.Sprintf("Data %s jest odległa o ponad %d dni.", param, limitDays),
	}
}

func DateRangeOrder(param string) *ValidationError {
	return &ValidationError{
		Kind:    KindDateRangeOrder,
		Param:   param,
		Message: fmt.Sprintf("Zakres dat %s jest nieprawidłowy, daty są w odwrotnej kolejności.", param),
	}
}

func DateRangeTooLong(param string, maxDays int) *ValidationError {
	return &ValidationError{
		Kind:    KindDateRangeTooLong,
		Param:   param,
		Message: fmt.Sprintf("Zakres dat %s jest dłuższy niż %d dni.", param, maxDays),
	}
}

func SentTooLate(cutoffHour int) *ValidationError {
	return &ValidationError{
		Kind:    KindSentTooLate,
		Message: fmt.Sprintf("Zgłoszenie dotyczy dzisiejszego dnia, ale zostało wysłane po godzinie %d:00.", cutoffHour),
	}
}

func NoChildrenRegistered() *ValidationError {
	return &ValidationError{
		Kind:    KindNoChildrenRegistered,
		Message: "Ten numer telefonu nie jest powiązany z żadnym dzieckiem zapisanym do Węgielkobusa.",
	}
}

// NoChildrenNameMatch lists the first names registered for the sender so the
// parent can see what the message should have contained.
func NoChildrenNameMatch(names string) *ValidationError {
	return &ValidationError{
		Kind:    KindNoChildrenNameMatch,
		Param:   names,
		Message: fmt.Sprintf("Wiadomość nie zawiera imienia dziecka zapisanego do Węgielkobusa: %s.", names),
	}
}
