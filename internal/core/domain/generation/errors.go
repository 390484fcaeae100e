package generation

import (
	"errors"
	"fmt"
)

type ErrorKind int

const (
	KindInternal ErrorKind = iota
	KindCaller
	KindModeration
	KindProvider
)

func (k ErrorKind) String() string {
	switch k {
	case KindCaller:
		return "caller"
	case KindModeration:
		return "moderation"
	case KindProvider:
		return "provider"
	default:
		return "internal"
	}
}

// Error is a terminal pipeline failure. Message is safe to show to callers;
// Err carries diagnostics that are only logged.
type Error struct {
	Kind       ErrorKind
	Message    string
	Detail     string
	Categories []string
	Err        error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s error: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s error: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

var (
	ErrMissingImage    = &Error{Kind: KindCaller, Message: "No image uploaded"}
	ErrCaptionTooLong  = &Error{Kind: KindCaller, Message: "Caption too long"}
	ErrBlockedCaption  = &Error{Kind: KindCaller, Message: "Keywords contain inappropriate content. Please edit and try again."}
	ErrMissingKeywords = &Error{Kind: KindCaller, Message: "Keywords required", Detail: "Enter a caption to use as the prompt."}
)

const (
	providerFailureMessage = "Image generation failed. Please try again."
	internalFailureMessage = "Server error. Please try again."
)

func CallerError(message, detail string) *Error {
	return &Error{Kind: KindCaller, Message: message, Detail: detail}
}

func ContentRejected(categories []string) *Error {
	return &Error{
		Kind:       KindModeration,
		Message:    "Content policy violation",
		Detail:     "The uploaded image or text was flagged as inappropriate and cannot be processed.",
		Categories: categories,
	}
}

func ProviderFailure(err error) *Error {
	return &Error{Kind: KindProvider, Message: providerFailureMessage, Err: err}
}

func InternalFailure(err error) *Error {
	return &Error{Kind: KindInternal, Message: internalFailureMessage, Err: err}
}

// KindOf classifies err; anything that is not an *Error is internal.
func KindOf(err error) ErrorKind {
	var ge *Error
	if errors.As(err, &ge) {
		return ge.Kind
	}
	return KindInternal
}

// OutcomeOf maps a pipeline error to its telemetry outcome.
func OutcomeOf(err error) Outcome {
	if err == nil {
		return OutcomeSuccess
	}
	switch KindOf(err) {
	case KindCaller:
		return OutcomeCallerError
	case KindModeration:
		return OutcomeModerationRejected
	case KindProvider:
		return OutcomeProviderError
	default:
		return OutcomeInternalError
	}
}
