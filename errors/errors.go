// Package errors provides error handling for distill.
//
// This package re-exports github.com/cockroachdb/errors, providing:
//   - Stack traces for debugging
//   - Error wrapping and context
//   - User-facing hints on configuration failures
//
// Usage:
//
//	if err := doSomething(); err != nil {
//	    return errors.Wrap(err, "failed to do something")
//	}
//
//	return errors.WithHint(err, "set DEEPSEEK_API_KEY in your environment")
//
// For full documentation see: https://pkg.go.dev/github.com/cockroachdb/errors
package errors

import (
	crdb "github.com/cockroachdb/errors"
)

// Core error creation and wrapping
var (
	New          = crdb.New
	Newf         = crdb.Newf
	Wrap         = crdb.Wrap
	Wrapf        = crdb.Wrapf
	WithStack    = crdb.WithStack
	WithMessage  = crdb.WithMessage
	WithMessagef = crdb.WithMessagef
	Mark         = crdb.Mark
)

// User-facing messages and details
var (
	WithHint    = crdb.WithHint
	WithHintf   = crdb.WithHintf
	WithDetail  = crdb.WithDetail
	WithDetailf = crdb.WithDetailf
)

// Error inspection
var (
	Is             = crdb.Is
	IsAny          = crdb.IsAny
	As             = crdb.As
	Unwrap         = crdb.Unwrap
	UnwrapAll      = crdb.UnwrapAll
	GetAllHints    = crdb.GetAllHints
	FlattenHints   = crdb.FlattenHints
	GetAllDetails  = crdb.GetAllDetails
	FlattenDetails = crdb.FlattenDetails
)

// Sentinel errors shared across the generation pipeline.
// Wrap these with errors.Wrap() to add context while preserving the type.
var (
	// ErrMalformedResponse indicates the model returned JSON of an unexpected shape
	ErrMalformedResponse = New("malformed model response")

	// ErrNoJSON indicates no JSON value could be recovered from a completion
	ErrNoJSON = New("no JSON found in response")

	// ErrInvalidConfig indicates configuration failed validation
	ErrInvalidConfig = New("invalid configuration")

	// ErrProviderNotConfigured indicates the requested model key has no provider entry
	ErrProviderNotConfigured = New("provider not configured")

	// ErrUnknownProvider indicates a provider kind this build cannot construct
	ErrUnknownProvider = New("unknown provider")

	// ErrUnsupportedFormat indicates an export format or mode that does not exist
	ErrUnsupportedFormat = New("unsupported format")
)

// IsMalformedResponse checks if an error is or wraps ErrMalformedResponse or ErrNoJSON.
func IsMalformedResponse(err error) bool {
	return err != nil && IsAny(err, ErrMalformedResponse, ErrNoJSON)
}

// IsConfigError checks if an error originates from configuration problems.
// These are the only errors the CLI treats as fatal before generation starts.
func IsConfigError(err error) bool {
	return err != nil && IsAny(err, ErrInvalidConfig, ErrProviderNotConfigured, ErrUnknownProvider)
}

// NewMalformedResponse creates a malformed-response error with a formatted message
func NewMalformedResponse(format string, args ...interface{}) error {
	return Mark(Newf(format, args...), ErrMalformedResponse)
}

// NewConfigError creates an invalid-config error with a formatted message
func NewConfigError(format string, args ...interface{}) error {
	return Mark(Newf(format, args...), ErrInvalidConfig)
}
