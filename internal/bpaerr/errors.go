// Package bpaerr defines the error taxonomy of spec §7: a closed set of
// error kinds shared by every core component, plus a typed error carrying
// the kind and a message.
package bpaerr

import "fmt"

// Kind classifies a failure the way spec §7 does, independent of which
// component raised it.
type Kind int

const (
	// InvalidInput: malformed EID, malformed bundle, unparseable command.
	InvalidInput Kind = iota + 1

	// NoRoute: the Router found no usable contact.
	NoRoute

	// NoTimelyContact: a contact exists but not soon enough.
	NoTimelyContact

	// Expired: the bundle's deadline has passed.
	Expired

	// HopLimitExceeded: BPv7 hop-count block reached its limit.
	HopLimitExceeded

	// CapacityExhausted: insufficient per-contact or per-CLA capacity.
	CapacityExhausted

	// OutOfMemory: allocation failure.
	OutOfMemory

	// TransportError: CLA-level I/O failure.
	TransportError

	// Unauthorized: secret mismatch on agent registration.
	Unauthorized
)

func (k Kind) String() string {
	switch k {
	case InvalidInput:
		return "InvalidInput"
	case NoRoute:
		return "NoRoute"
	case NoTimelyContact:
		return "NoTimelyContact"
	case Expired:
		return "Expired"
	case HopLimitExceeded:
		return "HopLimitExceeded"
	case CapacityExhausted:
		return "CapacityExhausted"
	case OutOfMemory:
		return "OutOfMemory"
	case TransportError:
		return "TransportError"
	case Unauthorized:
		return "Unauthorized"
	default:
		return fmt.Sprintf("Unknown(%d)", k)
	}
}

// Error is the taxonomy's concrete error type. Components construct one at
// their boundary; the Bundle Processor is the only place that turns a Kind
// into a status-report reason code (see internal/bpa/statusreport.go).
type Error struct {
	Kind    Kind
	Message string
}

func (e *Error) Error() string {
	if e.Message == "" {
		return e.Kind.String()
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// New constructs an *Error of the given kind.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Newf constructs an *Error of the given kind with a formatted message.
func Newf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// KindOf extracts the Kind from err if it (or something it wraps) is an
// *Error; otherwise returns 0 (unknown).
func KindOf(err error) Kind {
	var e *Error
	if as(err, &e) {
		return e.Kind
	}
	return 0
}

// as is a tiny errors.As wrapper kept local to avoid importing "errors" just
// for KindOf's single call site.
func as(err error, target **Error) bool {
	for err != nil {
		if e, ok := err.(*Error); ok {
			*target = e
			return true
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return false
}
