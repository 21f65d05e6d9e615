// Package reporterr defines the error taxonomy shared by the report pipeline
// and the layers that present its failures to users.
package reporterr

import (
	"errors"
	"fmt"
)

// Kind groups errors by how callers should react to them.
type Kind int

const (
	// KindInternal is anything unexpected: storage failures, rendering bugs.
	KindInternal Kind = iota
	// KindValidation is bad caller input or an unusable dataset. Recoverable.
	KindValidation
	// KindServiceUnavailable means the narrative endpoint could not be reached.
	KindServiceUnavailable
	// KindTransient is a single failed network round-trip.
	KindTransient
	// KindPermissionDenied means the caller may not run the operation.
	KindPermissionDenied
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindServiceUnavailable:
		return "service_unavailable"
	case KindTransient:
		return "transient"
	case KindPermissionDenied:
		return "permission_denied"
	default:
		return "internal"
	}
}

// Error codes.
const (
	CodeInvalidPeriod      = "invalid_period"
	CodeInvalidDateRange   = "invalid_date_range"
	CodeEmptyDataset       = "empty_dataset"
	CodeInvalidDate        = "invalid_date"
	CodeServiceUnavailable = "service_unavailable"
	CodeTransientNetwork   = "transient_network"
	CodeInternal           = "internal"
	CodePermissionDenied   = "permission_denied"
)

// GenericFailureMessage is what callers see for anything that is not a
// validation or permission error.
const GenericFailureMessage = "report generation failed"

// Error is a classified error. Two Errors match under errors.Is when their
// codes are equal, so the sentinels below can be used as targets.
type Error struct {
	Kind    Kind
	Code    string
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

// Sentinels for errors.Is checks.
var (
	ErrInvalidPeriod      = &Error{Kind: KindValidation, Code: CodeInvalidPeriod, Message: "invalid period"}
	ErrInvalidDateRange   = &Error{Kind: KindValidation, Code: CodeInvalidDateRange, Message: "invalid date range"}
	ErrEmptyDataset       = &Error{Kind: KindValidation, Code: CodeEmptyDataset, Message: "no data to analyze"}
	ErrInvalidDate        = &Error{Kind: KindValidation, Code: CodeInvalidDate, Message: "invalid date format in data"}
	ErrServiceUnavailable = &Error{Kind: KindServiceUnavailable, Code: CodeServiceUnavailable, Message: "narrative service unavailable"}
	ErrTransientNetwork   = &Error{Kind: KindTransient, Code: CodeTransientNetwork, Message: "narrative request failed"}
	ErrInternal           = &Error{Kind: KindInternal, Code: CodeInternal, Message: GenericFailureMessage}
	ErrPermissionDenied   = &Error{Kind: KindPermissionDenied, Code: CodePermissionDenied, Message: "access denied"}
)

// InvalidPeriod reports a period name outside daily/week/month/year.
func InvalidPeriod(name string) *Error {
	return &Error{
		Kind:    KindValidation,
		Code:    CodeInvalidPeriod,
		Message: fmt.Sprintf("invalid period %q: use daily, week, month or year", name),
	}
}

// InvalidDateRange reports an unusable start/end pair.
func InvalidDateRange(reason string, err error) *Error {
	return &Error{
		Kind:    KindValidation,
		Code:    CodeInvalidDateRange,
		Message: "invalid date range: " + reason,
		Err:     err,
	}
}

// EmptyDataset reports that there were no rows to analyze.
func EmptyDataset() *Error {
	return &Error{Kind: KindValidation, Code: CodeEmptyDataset, Message: "no data to analyze"}
}

// InvalidDate reports a row whose date could not be parsed.
func InvalidDate(value string, err error) *Error {
	return &Error{
		Kind:    KindValidation,
		Code:    CodeInvalidDate,
		Message: fmt.Sprintf("invalid date format in data: %q", value),
		Err:     err,
	}
}

// ServiceUnavailable wraps a failed reachability probe.
func ServiceUnavailable(url string, err error) *Error {
	return &Error{
		Kind:    KindServiceUnavailable,
		Code:    CodeServiceUnavailable,
		Message: fmt.Sprintf("narrative service at %s is unavailable", url),
		Err:     err,
	}
}

// TransientNetwork wraps a failed narrative round-trip.
func TransientNetwork(err error) *Error {
	return &Error{Kind: KindTransient, Code: CodeTransientNetwork, Message: "narrative request failed", Err: err}
}

// Internal wraps an unexpected failure.
func Internal(op string, err error) *Error {
	return &Error{Kind: KindInternal, Code: CodeInternal, Message: op, Err: err}
}

// PermissionDenied reports that userID may not run a privileged operation.
func PermissionDenied(userID int64) *Error {
	return &Error{
		Kind:    KindPermissionDenied,
		Code:    CodePermissionDenied,
		Message: fmt.Sprintf("access denied for user %d", userID),
	}
}

// KindOf returns the kind of the first classified error in err's chain.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// IsValidation reports whether err is a validation-class error.
func IsValidation(err error) bool {
	return err != nil && KindOf(err) == KindValidation
}

// UserMessage is the text to show a caller: the verbatim message for
// validation and permission errors, a generic failure otherwise.
func UserMessage(err error) string {
	var e *Error
	if errors.As(err, &e) {
		switch e.Kind {
		case KindValidation:
			return e.Message
		case KindPermissionDenied:
			return ErrPermissionDenied.Message
		}
	}
	return GenericFailureMessage
}
