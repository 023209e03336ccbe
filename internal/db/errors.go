package db

import (
	"context"
	"errors"
)

// ErrDeadline reports that a caller-imposed deadline elapsed before the
// store answered.
var ErrDeadline = errors.New("db: deadline exceeded")

// ErrorKind classifies a QueryError.
type ErrorKind string

const (
	KindTimeout    ErrorKind = "timeout"
	KindConnection ErrorKind = "connection"
	KindQuery      ErrorKind = "query"
)

// Op names used for error context and metrics.
const (
	OpPing          = "ping"
	OpQueryListings = "query_listings"
	OpSampleColumn  = "sample_column"
	OpLoadTags      = "load_tags"
	OpSearch        = "FT.SEARCH"
	OpCreateIndex   = "FT.CREATE"
	OpIndexInfo     = "FT.INFO"
)

// QueryError is the only error type the store surfaces.
type QueryError struct {
	Kind    ErrorKind
	Op      string
	Message string
	Err     error
}

func (e *QueryError) Error() string {
	msg := string(e.Kind) + " error in " + e.Op
	if e.Message != "" {
		msg += ": " + e.Message
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *QueryError) Unwrap() error { return e.Err }

// Timeout reports whether the error is a timeout, matching net.Error.
func (e *QueryError) Timeout() bool { return e.Kind == KindTimeout }

// NewError builds a QueryError.
func NewError(kind ErrorKind, op, message string, err error) *QueryError {
	return &QueryError{Kind: kind, Op: op, Message: message, Err: err}
}

// Wrap classifies err for op. Context errors become timeouts, an existing
// QueryError is returned as is, anything else is a query error.
func Wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	var qe *QueryError
	if errors.As(err, &qe) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return &QueryError{Kind: KindTimeout, Op: op, Err: err}
	}
	return &QueryError{Kind: KindQuery, Op: op, Err: err}
}

// KindOf returns the kind of a QueryError in err's chain, or "" if none.
func KindOf(err error) ErrorKind {
	var qe *QueryError
	if errors.As(err, &qe) {
		return qe.Kind
	}
	return ""
}

// IsTimeout reports whether err is a deadline or a timeout QueryError.
func IsTimeout(err error) bool {
	return errors.Is(err, ErrDeadline) || KindOf(err) == KindTimeout
}
