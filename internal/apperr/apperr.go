// Package apperr defines the error kinds surfaced by the answering engine.
package apperr

import (
	"context"
	"errors"
	"net/http"
)

type Kind string

const (
	KindIngestion  Kind = "IngestionError"
	KindEmbedding  Kind = "EmbeddingServiceError"
	KindGeneration Kind = "GenerationError"
	KindValidation Kind = "ValidationError"
	KindTimeout    Kind = "Timeout"
	KindNotFound   Kind = "NotFound"
	KindInternal   Kind = "InternalError"
)

// Error carries a kind, a message safe to show to clients, and the underlying
// cause, which is only ever logged.
type Error struct {
	Kind   Kind
	Public string
	Err    error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return string(e.Kind) + ": " + e.Public
	}
	return string(e.Kind) + ": " + e.Public + ": " + e.Err.Error()
}

func (e *Error) Unwrap() error { return e.Err }

func (e *Error) HTTPStatus() int {
	switch e.Kind {
	case KindIngestion, KindValidation:
		return http.StatusBadRequest
	case KindEmbedding, KindGeneration:
		if errors.Is(e.Err, context.DeadlineExceeded) {
			return http.StatusGatewayTimeout
		}
		return http.StatusBadGateway
	case KindTimeout:
		return http.StatusGatewayTimeout
	case KindNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

func New(kind Kind, public string) *Error {
	return &Error{Kind: kind, Public: public}
}

func Wrap(kind Kind, err error, public string) *Error {
	return &Error{Kind: kind, Public: public, Err: err}
}

func Ingestion(err error, public string) *Error  { return Wrap(KindIngestion, err, public) }
func Embedding(err error, public string) *Error  { return Wrap(KindEmbedding, err, public) }
func Generation(err error, public string) *Error { return Wrap(KindGeneration, err, public) }
func Validation(public string) *Error            { return New(KindValidation, public) }
func NotFound(public string) *Error              { return New(KindNotFound, public) }

// KindOf returns the kind of the first *Error in err's chain, or KindInternal.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// EventKind is the kind recorded in the metrics log: deadline-exceeded causes
// are reported as Timeout regardless of which service timed out.
func EventKind(err error) Kind {
	if errors.Is(err, context.DeadlineExceeded) {
		return KindTimeout
	}
	return KindOf(err)
}

// PublicMessage returns the client-safe message for err.
func PublicMessage(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Public
	}
	return "internal server error"
}

// Status returns the HTTP status for err.
func Status(err error) int {
	var e *Error
	if errors.As(err, &e) {
		return e.HTTPStatus()
	}
	return http.StatusInternalServerError
}

func Is(err error, kind Kind) bool {
	return KindOf(err) == kind
}
