package transport

import "errors"

// connError marks a failure where no HTTP response was received, so the
// request is safe to resend even when it is not idempotent.
type connError struct {
	err error
}

func (e *connError) Error() string {
	return "connection error: " + e.err.Error()
}

func (e *connError) Unwrap() error {
	return e.err
}

func isConnError(err error) bool {
	return errors.As(err, new(*connError))
}
