package lmanalyzer

import (
	"context"
	"errors"
	"fmt"

	"github.com/gitmujoshi/ai-curation-engine-cursor-generated-sub001/internal/domain"
)

//go:generate mockgen -destination=mocks/provider_mock.go -package=mocks . Provider

// Request is one completion call.
type Request struct {
	System    string
	Prompt    string
	MaxTokens int
}

// Provider is a language model backend returning raw text.
type Provider interface {
	Name() string
	Complete(ctx context.Context, req Request) (string, error)
}

// ErrorKind classifies provider failures for retry and fallback decisions.
type ErrorKind int

const (
	ErrKindUnknown ErrorKind = iota
	ErrKindTimeout
	ErrKindConnection
	ErrKindRateLimited
	ErrKindServer
	ErrKindAuth
	ErrKindBadRequest
	ErrKindInvalidResponse
)

func (k ErrorKind) String() string {
	switch k {
	case ErrKindTimeout:
		return "timeout"
	case ErrKindConnection:
		return "connection"
	case ErrKindRateLimited:
		return "rate_limited"
	case ErrKindServer:
		return "server"
	case ErrKindAuth:
		return "auth"
	case ErrKindBadRequest:
		return "bad_request"
	case ErrKindInvalidResponse:
		return "invalid_response"
	default:
		return "unknown"
	}
}

// Retryable reports whether the same provider may succeed on another try.
func (k ErrorKind) Retryable() bool {
	switch k {
	case ErrKindTimeout, ErrKindConnection, ErrKindRateLimited, ErrKindServer:
		return true
	default:
		return false
	}
}

// ProviderError is a failed provider call.
type ProviderError struct {
	Provider   string
	Kind       ErrorKind
	StatusCode int
	Err        error
}

func (e *ProviderError) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Provider, e.Kind)
	if e.StatusCode != 0 {
		msg += fmt.Sprintf(" (status %d)", e.StatusCode)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ProviderError) Unwrap() error { return e.Err }

// Is maps provider failures onto the domain taxonomy.
func (e *ProviderError) Is(target error) bool {
	switch target {
	case domain.ErrLMTimeout:
		return e.Kind == ErrKindTimeout
	case domain.ErrLMUnavailable:
		return e.Kind != ErrKindTimeout
	}
	return false
}

// kindForStatus maps an HTTP status onto an ErrorKind.
func kindForStatus(status int) ErrorKind {
	switch {
	case status == 401 || status == 403:
		return ErrKindAuth
	case status == 408:
		return ErrKindTimeout
	case status == 429 || status == 529:
		return ErrKindRateLimited
	case status >= 500:
		return ErrKindServer
	case status >= 400:
		return ErrKindBadRequest
	default:
		return ErrKindUnknown
	}
}

// kindForTransport classifies an error raised before a response arrived.
func kindForTransport(err error) ErrorKind {
	if errors.Is(err, context.DeadlineExceeded) {
		return ErrKindTimeout
	}
	return ErrKindConnection
}

// isRetryable is the retry predicate for provider calls.
func isRetryable(err error) bool {
	if errors.Is(err, context.Canceled) {
		return false
	}
	var perr *ProviderError
	if errors.As(err, &perr) {
		return perr.Kind.Retryable()
	}
	return false
}
