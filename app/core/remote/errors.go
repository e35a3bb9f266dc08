package remote

import (
	"errors"
	"fmt"
)

// CallError is the terminal failure of one logical call, after the retry
// budget is spent or a non-transient failure short-circuits it.
type CallError struct {
	Role  string
	Skill string
	Cause error
}

func (e *CallError) Error() string {
	return fmt.Sprintf("remote call %s/%s failed: %v", e.Role, e.Skill, e.Cause)
}

func (e *CallError) Unwrap() error {
	return e.Cause
}

// UnreachableError reports a failed agent-card handshake. It is not cached;
// the calling stage's retry policy covers handshake and call failures alike.
type UnreachableError struct {
	Role  string
	URL   string
	Cause error
}

func (e *UnreachableError) Error() string {
	return fmt.Sprintf("worker %s unreachable at %s: %v", e.Role, e.URL, e.Cause)
}

func (e *UnreachableError) Unwrap() error {
	return e.Cause
}

// statusError carries a non-200 worker response.
type statusError struct {
	code int
	body string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("worker returned status %d: %s", e.code, e.body)
}

// malformedError marks a structurally invalid response body. Retrying a
// worker that answers garbage is pointless, so these fail immediately.
type malformedError struct {
	reason string
}

func (e *malformedError) Error() string {
	return "malformed worker response: " + e.reason
}

// isTransient reports whether an attempt failure is worth retrying:
// connection-level errors, handshake failures, attempt timeouts and
// 5xx responses are; 4xx responses and malformed bodies are not.
func isTransient(err error) bool {
	var status *statusError
	if errors.As(err, &status) {
		return status.code >= 500
	}
	var malformed *malformedError
	if errors.As(err, &malformed) {
		return false
	}
	return true
}
