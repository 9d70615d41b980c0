package errors

import "fmt"

// NewResourceNotFoundError returns a new ErrNotFound error with kind
// KindResourceNotFound and the given message.
func NewResourceNotFoundError(message string, details Details) error {
	return Error{
		Code:    ErrNotFound,
		Kind:    KindResourceNotFound,
		Message: message,
		Details: details,
	}
}

// NewBadRequestError returns an ErrBadRequest error with the given kind.
func NewBadRequestError(kind Kind, message string, details Details) error {
	return Error{
		Code:    ErrBadRequest,
		Kind:    kind,
		Message: message,
		Details: details,
	}
}

// NewForbiddenError returns an ErrForbidden error with the given kind. It is
// used for policy rejections.
func NewForbiddenError(kind Kind, message string, details Details) error {
	return Error{
		Code:    ErrForbidden,
		Kind:    kind,
		Message: message,
		Details: details,
	}
}

// NewPhaseViolationError returns an ErrForbidden error with kind
// KindMatchPhaseViolation.
func NewPhaseViolationError(message string, details Details) error {
	return NewForbiddenError(KindMatchPhaseViolation, message, details)
}

// NewInternalError returns an ErrInternal error with kind KindUnexpected.
func NewInternalError(message string, details Details) error {
	return Error{
		Code:    ErrInternal,
		Kind:    KindUnexpected,
		Message: message,
		Details: details,
	}
}

// NewInternalErrorFromErr returns an ErrInternal error for the given original
// error.
func NewInternalErrorFromErr(err error, message string, details Details) error {
	return Error{
		Code:    ErrInternal,
		Kind:    KindUnexpected,
		Err:     err,
		Message: message,
		Details: details,
	}
}

// NewNotImplementedError returns an ErrInternal error with kind
// KindNotImplemented for the given feature.
func NewNotImplementedError(feature string) error {
	return Error{
		Code:    ErrInternal,
		Kind:    KindNotImplemented,
		Message: fmt.Sprintf("%s not implemented", feature),
		Details: Details{"feature": feature},
	}
}

// NewContextAbortedError returns an ErrAborted error with kind
// KindContextAborted for the given operation.
func NewContextAbortedError(operation string) error {
	return Error{
		Code:    ErrAborted,
		Kind:    KindContextAborted,
		Message: fmt.Sprintf("context aborted while %s", operation),
	}
}

// NewQueryToSQLError returns an ErrInternal error for failed query building.
func NewQueryToSQLError(err error, details Details) error {
	return Error{
		Code:    ErrInternal,
		Kind:    KindDBQuery,
		Err:     err,
		Message: "query to sql",
		Details: details,
	}
}

// NewExecQueryError returns an ErrInternal error for a failed query
// execution.
func NewExecQueryError(err error, message string, query string) error {
	return Error{
		Code:    ErrInternal,
		Kind:    KindDBQuery,
		Err:     err,
		Message: message,
		Details: Details{"query": query},
	}
}

// NewScanDBRowError returns an ErrInternal error for failed row scans.
func NewScanDBRowError(err error, message string, query string) error {
	return Error{
		Code:    ErrInternal,
		Kind:    KindDBScan,
		Err:     err,
		Message: message,
		Details: Details{"query": query},
	}
}

// NewDBTxBeginError returns an ErrInternal error for failed transaction
// begins.
func NewDBTxBeginError(err error) error {
	return Error{
		Code:    ErrInternal,
		Kind:    KindDBBegin,
		Err:     err,
		Message: "begin tx",
	}
}

// NewDBTxCommitError returns an ErrInternal error for failed commits.
func NewDBTxCommitError(err error) error {
	return Error{
		Code:    ErrInternal,
		Kind:    KindDBCommit,
		Err:     err,
		Message: "commit tx",
	}
}
