package transfer

import (
	"errors"
	"fmt"
)

// Kind classifies what went wrong so the user can be told what to do next.
type Kind int

const (
	KindInternal Kind = iota
	KindNotFound
	KindExpired
	KindInvalidQRPayload
	KindInvalidDataShape
	KindNetwork
	KindCameraUnavailable
)

func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "not found"
	case KindExpired:
		return "expired"
	case KindInvalidQRPayload:
		return "invalid qr payload"
	case KindInvalidDataShape:
		return "invalid data shape"
	case KindNetwork:
		return "network error"
	case KindCameraUnavailable:
		return "camera unavailable"
	default:
		return "internal error"
	}
}

// Message is the text shown to the user.
func (k Kind) Message() string {
	switch k {
	case KindNotFound:
		return "This code was not found or has already been used. Scan the current code again."
	case KindExpired:
		return "This code has expired. Generate a new code on the other device."
	case KindInvalidQRPayload:
		return "This QR code is not a StuSave transfer code."
	case KindInvalidDataShape:
		return "The received data is not valid StuSave data. Nothing was changed."
	case KindNetwork:
		return "Could not reach the transfer service. Check your connection and try again."
	case KindCameraUnavailable:
		return "Camera access was denied or no camera is available."
	default:
		return "Something went wrong. Please try again."
	}
}

// Error carries a Kind and the underlying cause.
type Error struct {
	Kind Kind
	Err  error
}

func NewError(kind Kind, err error) *Error {
	return &Error{Kind: kind, Err: err}
}

func (e *Error) Error() string {
	if e.Err == nil {
		return e.Kind.String()
	}
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches the bare sentinels below by Kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Err == nil && t.Kind == e.Kind
}

var (
	ErrNotFound          = &Error{Kind: KindNotFound}
	ErrExpired           = &Error{Kind: KindExpired}
	ErrInvalidQRPayload  = &Error{Kind: KindInvalidQRPayload}
	ErrInvalidDataShape  = &Error{Kind: KindInvalidDataShape}
	ErrNetwork           = &Error{Kind: KindNetwork}
	ErrCameraUnavailable = &Error{Kind: KindCameraUnavailable}
	ErrInternal          = &Error{Kind: KindInternal}
)

var (
	// ErrInvalidTransition is returned when an operation is not allowed in the current state.
	ErrInvalidTransition = errors.New("operation not allowed in current state")
	// ErrDiscarded means a result arrived after the dialog moved on and was dropped.
	ErrDiscarded = errors.New("result discarded: dialog moved on")
)

// KindOf reports the Kind of err, or fallback if err carries none.
func KindOf(err error, fallback Kind) Kind {
	var te *Error
	if errors.As(err, &te) {
		return te.Kind
	}
	return fallback
}

func classify(err error, fallback Kind) *Error {
	var te *Error
	if errors.As(err, &te) {
		return te
	}
	return NewError(fallback, err)
}
