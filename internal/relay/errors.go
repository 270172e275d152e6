package relay

import "fmt"

// Classification buckets every way a relay call can fail. Both calls map
// through the same table.
type Classification string

const (
	ClassAuthRejected    Classification = "auth_rejected"       // 401
	ClassPayloadRejected Classification = "payload_rejected"    // 400
	ClassServerFailure   Classification = "server_failure"      // >= 500
	ClassUnexpected      Classification = "unexpected_response" // any other non-200
	ClassUnreachable     Classification = "unreachable"         // connection refused / no route
	ClassTimeout         Classification = "timeout"             // deadline exceeded
	ClassNetwork         Classification = "network_error"       // any other transport failure
)

// Error is the tagged result of a failed relay call.
type Error struct {
	Op     string // "data reporting" or "file upload"
	Class  Classification
	Status int    // 0 for transport failures
	Body   string // raw upstream body, kept for logging; never echoed verbatim
	Cause  error
}

func (e *Error) Error() string {
	if e.Status > 0 {
		return fmt.Sprintf("third-party %s failed: %s (status %d)", e.Op, e.Class, e.Status)
	}
	return fmt.Sprintf("third-party %s failed: %s: %v", e.Op, e.Class, e.Cause)
}

func (e *Error) Unwrap() error { return e.Cause }

// Message is the external-facing description for the caller.
func (e *Error) Message() string {
	switch e.Class {
	case ClassAuthRejected:
		return fmt.Sprintf("Authentication failed with third-party API for %s.", e.Op)
	case ClassPayloadRejected:
		return fmt.Sprintf("Third-party API rejected %s.", e.Op)
	case ClassServerFailure:
		return fmt.Sprintf("Third-party API server error for %s.", e.Op)
	case ClassUnreachable:
		return "Unable to connect to third-party API."
	case ClassTimeout:
		return "Timeout contacting third-party API."
	case ClassNetwork:
		return "Network error contacting third-party API."
	default:
		return fmt.Sprintf("Unexpected third-party API response for %s.", e.Op)
	}
}
