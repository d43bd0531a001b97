package model

import "fmt"

// ValidationError reports a request that cannot be persisted as given.
// Field names the offending attribute using its JSON name.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

func invalid(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

func missing(field string) error { return invalid(field, "is required") }

// TransitionError is returned when a lifecycle change is requested from a
// state that does not allow it.  To is empty when the request was a
// non-status mutation on a closed order.
type TransitionError struct {
	From Status
	To   Status
}

func (e *TransitionError) Error() string {
	if e.To == "" {
		return fmt.Sprintf("order is %s and can no longer be modified", e.From)
	}
	return fmt.Sprintf("cannot move order from %s to %s", e.From, e.To)
}
