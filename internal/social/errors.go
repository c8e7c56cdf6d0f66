package social

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Kind classifies a remote failure. The executor and discovery pipeline pick
// their recovery from the Kind alone.
type Kind int

const (
	// KindUnknown is an unexpected failure: network errors, 5xx, malformed
	// payloads.
	KindUnknown Kind = iota
	// KindTransient is an explicit "wait a few minutes" cooldown signal.
	KindTransient
	// KindRateLimited is an explicit "too many requests" signal.
	KindRateLimited
	// KindSoftBlock is an action feedback/review signal.
	KindSoftBlock
	// KindNotFound means the account or tag does not exist.
	KindNotFound
	// KindFatal means the session is unusable: bad credentials, expired
	// login, or a challenge that needs a human.
	KindFatal
)

func (k Kind) String() string {
	switch k {
	case KindTransient:
		return "transient"
	case KindRateLimited:
		return "rate_limited"
	case KindSoftBlock:
		return "soft_block"
	case KindNotFound:
		return "not_found"
	case KindFatal:
		return "fatal"
	default:
		return "unknown"
	}
}

// Error is returned by every Graph operation that fails.
type Error struct {
	Kind    Kind
	Op      string
	Status  int
	Message string
	Err     error
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(e.Op)
	b.WriteString(": ")
	b.WriteString(e.Kind.String())
	if e.Status != 0 {
		fmt.Fprintf(&b, " (status %d)", e.Status)
	}
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// KindOf extracts the Kind of err. Errors that did not come from the remote
// service are KindUnknown.
func KindOf(err error) Kind {
	if err == nil {
		return KindUnknown
	}
	var se *Error
	if errors.As(err, &se) {
		return se.Kind
	}
	return KindUnknown
}

// NewError builds an Error of the given kind. Mostly useful for fakes.
func NewError(op string, kind Kind, message string) *Error {
	return &Error{Op: op, Kind: kind, Message: message}
}

// classify maps a non-2xx response onto a Kind. The platform reports most
// conditions through the message text or an error_type field rather than the
// status code, so both are inspected here and nowhere else.
func classify(status int, message, errorType string) Kind {
	text := strings.ToLower(message + " " + errorType)

	switch {
	case strings.Contains(text, "feedback_required"):
		return KindSoftBlock
	case status == http.StatusTooManyRequests, strings.Contains(text, "too many requests"):
		return KindRateLimited
	case strings.Contains(text, "wait a few minutes"):
		return KindTransient
	case strings.Contains(text, "challenge_required"),
		strings.Contains(text, "checkpoint_required"),
		strings.Contains(text, "login_required"),
		strings.Contains(text, "bad_password"),
		status == http.StatusUnauthorized:
		return KindFatal
	case status == http.StatusNotFound, strings.Contains(text, "user not found"):
		return KindNotFound
	default:
		return KindUnknown
	}
}
