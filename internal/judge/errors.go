package judge

import (
	"errors"
	"fmt"
)

// ErrorKind classifies evaluation failures for retry and counting decisions
type ErrorKind string

const (
	// KindTransport covers network failures and non-429 HTTP errors
	KindTransport ErrorKind = "transport"

	// KindRateLimit covers quota rejections; retryable after backoff
	KindRateLimit ErrorKind = "rate_limit"

	// KindMalformed covers non-JSON or schema-violating model output;
	// retrying the identical prompt rarely helps, so it is terminal
	KindMalformed ErrorKind = "malformed"
)

// EvalError is the typed failure for one judged pair. Callers treat it as
// "skip this pair, count an error" — never as a should_link=false verdict.
type EvalError struct {
	Kind ErrorKind
	Msg  string

	// Raw preserves the offending model output for malformed responses
	Raw string

	Err error
}

func (e *EvalError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("judge evaluation %s: %s: %v", e.Kind, e.Msg, e.Err)
	}
	return fmt.Sprintf("judge evaluation %s: %s", e.Kind, e.Msg)
}

func (e *EvalError) Unwrap() error { return e.Err }

// Retryable reports whether another attempt could plausibly succeed
func (e *EvalError) Retryable() bool {
	return e.Kind == KindTransport || e.Kind == KindRateLimit
}

// AsEvalError unwraps an *EvalError from an error chain
func AsEvalError(err error) (*EvalError, bool) {
	var ee *EvalError
	if errors.As(err, &ee) {
		return ee, true
	}
	return nil, false
}

func transportErr(msg string, err error) *EvalError {
	return &EvalError{Kind: KindTransport, Msg: msg, Err: err}
}

func rateLimitErr(msg string, err error) *EvalError {
	return &EvalError{Kind: KindRateLimit, Msg: msg, Err: err}
}

func malformedErr(msg, raw string, err error) *EvalError {
	return &EvalError{Kind: KindMalformed, Msg: msg, Raw: raw, Err: err}
}
