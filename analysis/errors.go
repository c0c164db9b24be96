package analysis

import (
	"context"
	"errors"
	"fmt"

	"github.com/neurlang/melvoice/audio"
	"github.com/neurlang/melvoice/classifier"
)

// Kind classifies a pipeline failure for presentation.
type Kind int

const (
	KindUnknown Kind = iota
	KindUpload
	KindDecode
	KindModelLoad
	KindInference
)

func (k Kind) String() string {
	switch k {
	case KindUpload:
		return "upload"
	case KindDecode:
		return "decode"
	case KindModelLoad:
		return "model_load"
	case KindInference:
		return "inference"
	}
	return "unknown"
}

// Error is a pipeline failure tagged with its Kind.
type Error struct {
	Kind Kind
	Err  error
}

// NewError wraps err with kind k.
func NewError(k Kind, err error) *Error {
	return &Error{Kind: k, Err: err}
}

// Uploadf builds a KindUpload error.
func Uploadf(format string, args ...any) *Error {
	return NewError(KindUpload, fmt.Errorf(format, args...))
}

func (e *Error) Error() string {
	return e.Kind.String() + ": " + e.Err.Error()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// KindOf returns the Kind of err, inferring it from the sentinel errors of
// the audio and classifier packages when err is not an *Error.
func KindOf(err error) Kind {
	if err == nil {
		return KindUnknown
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	switch {
	case errors.Is(err, audio.ErrDecode):
		return KindDecode
	case errors.Is(err, classifier.ErrModelLoad):
		return KindModelLoad
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return KindUnknown
	}
	return KindInference
}

// classify tags err with its inferred kind unless it already carries one.
func classify(err error) error {
	var e *Error
	if err == nil || errors.As(err, &e) {
		return err
	}
	if k := KindOf(err); k != KindUnknown {
		return NewError(k, err)
	}
	return err
}

// Message returns the text shown to the user for err.
func Message(err error) string {
	if err == nil {
		return ""
	}
	detail := err.Error()
	var e *Error
	if errors.As(err, &e) {
		detail = e.Err.Error()
	}
	switch KindOf(err) {
	case KindUpload:
		return "Upload rejected: " + detail
	case KindDecode:
		return "Could not decode the audio file. Please upload a valid WAV or MP3 file."
	case KindModelLoad:
		return "The voice classification model is not available. Please try again later."
	case KindInference:
		return "Error processing image: " + detail
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return "Processing took too long and was stopped."
	}
	if errors.Is(err, context.Canceled) {
		return "Processing was canceled."
	}
	return "Unexpected error: " + err.Error()
}
