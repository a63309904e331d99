package apperrors

import "errors"

// ErrNotFound indicates that a requested resource could not be found.
var ErrNotFound = errors.New("resource not found")

// ErrValidation indicates that input data failed validation checks.
var ErrValidation = errors.New("validation error")

// ErrConfiguration indicates that a policy document or other configuration
// input is malformed and cannot be evaluated.
var ErrConfiguration = errors.New("configuration error")

// ErrForbidden indicates that the acting user is not entitled to perform
// the requested action.
var ErrForbidden = errors.New("forbidden")

// ErrConflict indicates that a state transition was attempted from the wrong
// status, on a level that is not the current pending one, or lost an
// optimistic-concurrency race. Callers may retry with a fresh read.
var ErrConflict = errors.New("state conflict")

// ErrDuplicate indicates that an attempt was made to create a resource that already exists.
var ErrDuplicate = errors.New("resource already exists")

// ErrInternal indicates an unexpected internal failure.
var ErrInternal = errors.New("internal error")
