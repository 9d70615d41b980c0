// Provide basic message functionality.

package event

import (
	"github.com/eclipse/paho.golang/paho"
	"github.com/lefinal/arena-server/errors"
	"time"
)

// Event is a received message with its already parsed payload.
type Event[T any] struct {
	Publish *paho.Publish
	Payload T
}

// Type is the type of an Envelope.
type Type string

// Observer event types.
const (
	TypeArenaState   Type = "arena-state"
	TypeRoundEnded   Type = "round-ended"
	TypeMatchEnded   Type = "match-ended"
	TypeVoteResolved Type = "vote-resolved"
	TypeSnapshot     Type = "snapshot"
	TypeError        Type = "error"
)

// Envelope wraps observer events with their type so that they can be sent over
// a single connection.
type Envelope struct {
	// Type of the payload.
	Type Type `json:"type"`
	// Payload is the actual event.
	Payload interface{} `json:"payload"`
}

// ErrorEventPayload is used with TypeError for errors that need to be sent to
// clients.
type ErrorEventPayload struct {
	// Code is the error code from errors.Error.
	Code string `json:"code"`
	// Kind is the error kind from errors.Error.
	Kind string `json:"kind"`
	// Err is the error from errors.Error.
	Err string `json:"err"`
	// Message is the message from errors.Error.
	Message string `json:"message"`
	// Details are error details from errors.Error.
	Details map[string]interface{} `json:"details"`
}

// ErrorEventPayloadFromError creates a ErrorEventPayload from the given error.
func ErrorEventPayloadFromError(err error) ErrorEventPayload {
	e, _ := errors.Cast(err)
	if !errors.BlameUser(err) {
		return ErrorEventPayload{
			Code:    string(e.Code),
			Message: "internal server error",
		}
	}
	return ErrorEventPayload{
		Code:    string(e.Code),
		Kind:    string(e.Kind),
		Err:     e.Error(),
		Message: e.Message,
		Details: e.Details,
	}
}

// NextLogEntryEvent is used to publish log entries.
type NextLogEntryEvent struct {
	// Time is the timestamp the log entry was created.
	Time time.Time `json:"time"`
	// Message is the log entry message.
	Message string `json:"message"`
	// Level is the log level of the entry.
	Level string `json:"level"`
	// LoggerName is the name of the logger.
	LoggerName string `json:"logger_name"`
	// Fields are the set fields for the log entry.
	Fields map[string]interface{} `json:"fields"`
}

// LogEntriesEvent is a batch of log entries.
type LogEntriesEvent struct {
	Entries []NextLogEntryEvent `json:"entries"`
}
