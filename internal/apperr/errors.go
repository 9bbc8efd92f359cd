package apperr

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel markers for every recoverable error kind. Callers branch with
// errors.Is; the concrete *Error carries the details the UI needs.
var (
	ErrInvalidTransition      = errors.New("invalid transition")
	ErrForbidden              = errors.New("forbidden")
	ErrIncompleteSubmission   = errors.New("incomplete submission")
	ErrAmendmentInProgress    = errors.New("amendment in progress")
	ErrNoAmendmentPending     = errors.New("no amendment pending")
	ErrConcurrentModification = errors.New("concurrent modification")
	ErrNotFound               = errors.New("not found")
	ErrInvalidRequest         = errors.New("invalid request")
)

// Violation names one field that failed submission validation.
type Violation struct {
	Field  string `json:"field"`
	Reason string `json:"reason"`
}

// Error is the typed result returned by the workflow core and the stores.
type Error struct {
	Kind       error
	Message    string
	From       string
	To         string
	Role       string
	Action     string
	Violations []Violation
}

func (e *Error) Error() string {
	if e.Message == "" {
		return e.Kind.Error()
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Kind
}

// Fields returns the violated field paths in report order.
func (e *Error) Fields() []string {
	fields := make([]string, 0, len(e.Violations))
	for _, v := range e.Violations {
		fields = append(fields, v.Field)
	}
	return fields
}

// InvalidTransition reports a from/to pair outside the transition table.
func InvalidTransition(from, to, reason string) *Error {
	msg := fmt.Sprintf("cannot move from %s to %s", from, to)
	if reason = strings.TrimSpace(reason); reason != "" {
		msg += ": " + reason
	}
	return &Error{Kind: ErrInvalidTransition, Message: msg, From: from, To: to}
}

// Forbidden reports a role attempting an action it has no authority for.
func Forbidden(role, action string) *Error {
	return &Error{
		Kind:    ErrForbidden,
		Message: fmt.Sprintf("role %s may not %s", role, action),
		Role:    role,
		Action:  action,
	}
}

// IncompleteSubmission carries the full violation list.
func IncompleteSubmission(violations []Violation) *Error {
	fields := make([]string, 0, len(violations))
	for _, v := range violations {
		fields = append(fields, v.Field)
	}
	return &Error{
		Kind:       ErrIncompleteSubmission,
		Message:    "missing or empty: " + strings.Join(fields, ", "),
		Violations: violations,
	}
}

func AmendmentInProgress(releaseID string) *Error {
	return &Error{Kind: ErrAmendmentInProgress, Message: fmt.Sprintf("release %s already has a pending amendment", releaseID)}
}

func NoAmendmentPending(releaseID, status string) *Error {
	return &Error{Kind: ErrNoAmendmentPending, Message: fmt.Sprintf("release %s is %s", releaseID, status)}
}

func ConcurrentModification(id string, expected, actual int64) *Error {
	return &Error{
		Kind:    ErrConcurrentModification,
		Message: fmt.Sprintf("%s is at version %d, expected %d", id, actual, expected),
	}
}

func NotFound(entity, id string) *Error {
	return &Error{Kind: ErrNotFound, Message: fmt.Sprintf("%s %s", entity, id)}
}

func InvalidRequest(format string, args ...any) *Error {
	return &Error{Kind: ErrInvalidRequest, Message: fmt.Sprintf(format, args...)}
}

// As extracts the typed error, if any.
func As(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}
