package service

import "fmt"

// ValidationError reports an inbound payload that is well-formed but unusable.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "validation: " + e.Reason
	}
	return fmt.Sprintf("validation: %s %s", e.Field, e.Reason)
}

// SignatureError reports a webhook whose signature did not verify.
type SignatureError struct {
	Source string
	Err    error
}

func (e *SignatureError) Error() string {
	return fmt.Sprintf("%s signature: %v", e.Source, e.Err)
}

func (e *SignatureError) Unwrap() error { return e.Err }

// ExternalAPIError wraps a failed call to the completion or payment API.
type ExternalAPIError struct {
	Service    string
	StatusCode int
	Err        error
}

func (e *ExternalAPIError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s: status %d: %v", e.Service, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Service, e.Err)
}

func (e *ExternalAPIError) Unwrap() error { return e.Err }

// PersistenceError wraps a store failure together with the operation that hit it.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

func persistErr(op string, err error) error {
	return &PersistenceError{Op: op, Err: err}
}
