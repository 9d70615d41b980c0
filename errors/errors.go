package errors

import (
	"encoding/json"
	"fmt"
	"go.uber.org/zap"
)

// Details holds additional error details that can be viewed and logged.
type Details map[string]interface{}

// Error is the general error type for appearing errors in the arena server.
type Error struct {
	// Code is the error code.
	Code Code
	// Kind is the more specific error kind.
	Kind Kind
	// Err is the original error that occurred.
	Err error
	// Message is the manually created message that can be used in order to trace
	// the error. For errors that blame the user, this is what the user will see.
	Message string
	// Details holds any error details.
	Details Details
}

func (e Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Cast casts the given error to Error. If the given one is not of type Error,
// an unknown one with error code ErrUnexpected is created and false returned.
func Cast(err error) (Error, bool) {
	switch e := err.(type) {
	case Error:
		return e, true
	case *Error:
		if e != nil {
			return *e, true
		}
	}
	e := Error{
		Code:    ErrUnexpected,
		Kind:    KindUnexpected,
		Err:     err,
		Message: "unknown operation",
		Details: make(Details),
	}
	return e, false
}

// Wrap wraps the given error with the given message. Details with keys that
// are already set keep the original value under the key prefixed with an
// underscore.
func Wrap(err error, message string, details Details) error {
	e, ok := Cast(err)
	if ok {
		e.Message = fmt.Sprintf("%s: %s", message, e.Message)
	} else {
		e.Message = message
	}
	if len(details) == 0 {
		return e
	}
	merged := make(Details, len(e.Details)+len(details))
	for k, v := range e.Details {
		merged[k] = v
	}
	for k, v := range details {
		if original, ok := merged[k]; ok {
			merged["_"+k] = original
		}
		merged[k] = v
	}
	e.Details = merged
	return e
}

// Unwrap returns the original error so that the standard library errors
// package can match it.
func (e Error) Unwrap() error {
	return e.Err
}

// detailsAsJSON encodes the Details of the given Error as JSON string.
func detailsAsJSON(err error) []byte {
	e, _ := Cast(err)
	if e.Details == nil {
		return nil
	}
	b, err := json.Marshal(e.Details)
	if err != nil {
		return []byte(fmt.Sprintf("%+v", e.Details))
	}
	return b
}

// Log logs the given error with its details. If the error is ErrFatal, the
// error will be logged as fatal.
func Log(logger *zap.Logger, err error) {
	if err == nil {
		return
	}
	e, _ := Cast(err)
	fields := []zap.Field{
		zap.String("err_code", string(e.Code)),
		zap.String("err_kind", string(e.Kind)),
	}
	// Add each details entry as separate field for better readability.
	for k, v := range e.Details {
		fields = append(fields, zap.Any(fmt.Sprintf("err_details_v_%s", k), v))
	}
	if e.Err != nil {
		fields = append(fields, zap.String("err_orig", e.Err.Error()))
	}
	switch e.Code {
	case ErrBadRequest, ErrForbidden, ErrNotFound:
		logger.Debug(e.Error(), fields...)
	case ErrFatal:
		logger.Fatal(e.Error(), fields...)
	default:
		logger.Error(e.Error(), fields...)
	}
}

// Prettify returns a detailed error string with error details.
func Prettify(err error) string {
	e, _ := Cast(err)
	return fmt.Sprintf("Code: %s\nKind: %s\nOriginal Error: %+v\nMessage: %s\nDetails: %s\n",
		e.Code, e.Kind, e.Err, e.Message, detailsAsJSON(e))
}

// BlameUser checks if the given error is ErrBadRequest, ErrForbidden or
// ErrNotFound.
func BlameUser(err error) bool {
	e, ok := Cast(err)
	if !ok {
		// Unexpected.
		return false
	}
	switch e.Code {
	case ErrBadRequest,
		ErrForbidden,
		ErrNotFound:
		return true
	}
	// Otherwise.
	return false
}

// UserMessage returns the line to report to the player that caused the given
// error. Errors not blaming the user are hidden behind a generic message.
func UserMessage(err error) string {
	if !BlameUser(err) {
		return "internal server error"
	}
	e, _ := Cast(err)
	return e.Message
}

// Is checks whether the given error is an Error with the given Kind.
func Is(err error, kind Kind) bool {
	e, ok := Cast(err)
	return ok && e.Kind == kind
}
