package design

import (
	"context"
	"errors"
	"fmt"
)

// ErrorKind classifies failures for callers and result values.
type ErrorKind string

const (
	KindInsufficientTokens ErrorKind = "insufficient_tokens"
	KindConfig             ErrorKind = "config_error"
	KindProvider           ErrorKind = "provider_error"
	KindParse              ErrorKind = "parse_error"
	KindBadRequest         ErrorKind = "bad_request"
	KindNoPriorDesign      ErrorKind = "no_prior_design"
	KindTimeout            ErrorKind = "timeout"
	KindCanceled           ErrorKind = "canceled"
	KindInternal           ErrorKind = "internal"
)

var (
	// ErrInsufficientTokens means the owner must top up before retrying.
	ErrInsufficientTokens = errors.New("insufficient tokens")

	// ErrParse means BOQ text yielded no valid line item.
	ErrParse = errors.New("no bill of quantities rows could be parsed")

	ErrInvalidRequest = errors.New("invalid design request")
	ErrEmptyComment   = errors.New("regeneration comment is empty")
	ErrNoPriorDesign  = errors.New("no previous design to regenerate")
)

// ConfigError reports an unsupported or misconfigured provider.
type ConfigError struct {
	Provider string
	Reason   string
}

func (e *ConfigError) Error() string {
	if e.Provider == "" {
		return "provider config: " + e.Reason
	}
	return fmt.Sprintf("provider %q: %s", e.Provider, e.Reason)
}

// ProviderError reports a non-success response or unusable payload from a
// provider. Message carries the provider's own error text when available.
type ProviderError struct {
	Stage    string
	Provider string
	Message  string
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("%s stage: provider %s: %s", e.Stage, e.Provider, e.Message)
}

// KindOf maps an error onto the error taxonomy.
func KindOf(err error) ErrorKind {
	var cfgErr *ConfigError
	var provErr *ProviderError
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrInsufficientTokens):
		return KindInsufficientTokens
	case errors.As(err, &cfgErr):
		return KindConfig
	case errors.As(err, &provErr):
		return KindProvider
	case errors.Is(err, ErrParse):
		return KindParse
	case errors.Is(err, ErrInvalidRequest), errors.Is(err, ErrEmptyComment):
		return KindBadRequest
	case errors.Is(err, ErrNoPriorDesign):
		return KindNoPriorDesign
	case errors.Is(err, context.DeadlineExceeded):
		return KindTimeout
	case errors.Is(err, context.Canceled):
		return KindCanceled
	default:
		return KindInternal
	}
}
