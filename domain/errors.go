package domain

import "errors"

// Kind classifies protocol errors for clients and metrics.
type Kind string

const (
	KindValidation    Kind = "validation"
	KindAuthorization Kind = "authorization"
	KindNotFound      Kind = "not_found"
	KindState         Kind = "state"
	KindDisconnected  Kind = "disconnected"
	KindTimeout       Kind = "timeout"
)

// Error is a protocol-level failure reported back to the originating
// connection only. The message is what the client displays.
type Error struct {
	Kind    Kind
	Message string
}

func (e *Error) Error() string { return e.Message }

func Validation(msg string) *Error    { return &Error{Kind: KindValidation, Message: msg} }
func Authorization(msg string) *Error { return &Error{Kind: KindAuthorization, Message: msg} }
func NotFound(msg string) *Error      { return &Error{Kind: KindNotFound, Message: msg} }
func State(msg string) *Error         { return &Error{Kind: KindState, Message: msg} }
func Timeout(msg string) *Error       { return &Error{Kind: KindTimeout, Message: msg} }

// Disconnected guards against handlers firing for an identity that has
// already been torn down. It must short-circuit before any mutation.
func Disconnected() *Error {
	return &Error{Kind: KindDisconnected, Message: "Disconnected."}
}

// ErrorPayload is the wire body of an "error" event. In names the event
// that failed.
type ErrorPayload struct {
	In           string `json:"in,omitempty"`
	Kind         Kind   `json:"kind,omitempty"`
	ErrorMessage string `json:"errorMessage"`
}

// KindOf returns the kind of err, or "" if err is not a protocol error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}
