package tenant

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"syscall"
)

// Reason classifies why a tenant database connection failed.
type Reason int

const (
	ReasonOther Reason = iota
	ReasonNotFound
	ReasonTimeout
	ReasonRefused
)

// ConnectionError reports a failure to reach a tenant database.
type ConnectionError struct {
	Host   string
	Reason Reason
	Err    error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("connect to %s: %v", e.Host, e.Err)
}

func (e *ConnectionError) Unwrap() error { return e.Err }

// Diagnosis returns a human-readable explanation suitable for surfacing to
// the tenant who supplied the connection details.
func (e *ConnectionError) Diagnosis() string {
	switch e.Reason {
	case ReasonNotFound:
		return fmt.Sprintf("database host %q could not be resolved, check the host name", e.Host)
	case ReasonTimeout:
		return fmt.Sprintf("connection to %q timed out, check that the host is reachable and the port is correct", e.Host)
	case ReasonRefused:
		return fmt.Sprintf("connection to %q was refused, check that the database is running and accepting connections", e.Host)
	default:
		return fmt.Sprintf("could not connect to %q: %v", e.Host, e.Err)
	}
}

// SchemaError reports a failure to create or verify a destination table.
type SchemaError struct {
	Table string
	Err   error
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("ensure table %s: %v", e.Table, e.Err)
}

func (e *SchemaError) Unwrap() error { return e.Err }

// ConstraintError reports a uniqueness violation on insert. Callers treat it
// as a benign duplicate delivery rather than a failure.
type ConstraintError struct {
	Table string
	Key   string
	Err   error
}

func (e *ConstraintError) Error() string {
	return fmt.Sprintf("duplicate row in %s (key %s): %v", e.Table, e.Key, e.Err)
}

func (e *ConstraintError) Unwrap() error { return e.Err }

// IsConstraint reports whether err is (or wraps) a ConstraintError.
func IsConstraint(err error) bool {
	var ce *ConstraintError
	return errors.As(err, &ce)
}

// connError wraps a dial failure with a classified reason.
func connError(host string, err error) *ConnectionError {
	return &ConnectionError{Host: host, Reason: classify(err), Err: err}
}

func classify(err error) Reason {
	if err == nil {
		return ReasonOther
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return ReasonNotFound
	}
	if errors.Is(err, syscall.ECONNREFUSED) {
		return ReasonRefused
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return ReasonTimeout
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return ReasonTimeout
	}

	// Drivers sometimes flatten the cause into the message.
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "no such host"):
		return ReasonNotFound
	case strings.Contains(msg, "connection refused"):
		return ReasonRefused
	case strings.Contains(msg, "timeout") || strings.Contains(msg, "timed out"):
		return ReasonTimeout
	}
	return ReasonOther
}
