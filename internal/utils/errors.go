package utils

import (
	"errors"

	"github.com/vaultdrive/vaultdrive/internal/types"
)

// Error codes (tool-owned, stable)
const (
	ErrCodeAuthRequired     = "AUTH_REQUIRED"
	ErrCodeAuthExpired      = "AUTH_EXPIRED"
	ErrCodeFileNotFound     = "FILE_NOT_FOUND"
	ErrCodePermissionDenied = "PERMISSION_DENIED"
	ErrCodeQuotaExceeded    = "QUOTA_EXCEEDED"
	ErrCodeNetworkError     = "NETWORK_ERROR"
	ErrCodeRateLimited      = "RATE_LIMITED"
	ErrCodeInvalidArgument  = "INVALID_ARGUMENT"
	ErrCodeInvalidPath      = "INVALID_PATH"
	ErrCodeResolutionFailed = "RESOLUTION_FAILED"
	ErrCodeSyncInProgress   = "SYNC_IN_PROGRESS"
	ErrCodeCancelled        = "CANCELLED"
	ErrCodeUnknown          = "UNKNOWN"
)

// CLIErrorBuilder constructs CLIError instances.
type CLIErrorBuilder struct {
	err types.CLIError
}

// NewCLIError creates a new error builder.
func NewCLIError(code, message string) *CLIErrorBuilder {
	return &CLIErrorBuilder{err: types.CLIError{Code: code, Message: message}}
}

// WithPhase records the sync phase the error belongs to.
func (b *CLIErrorBuilder) WithPhase(phase string) *CLIErrorBuilder {
	b.err.Phase = phase
	return b
}

// Build returns the constructed error.
func (b *CLIErrorBuilder) Build() *types.CLIError {
	return &b.err
}

// Code extracts the stable error code from err, or ErrCodeUnknown.
func Code(err error) string {
	var cliErr *types.CLIError
	if errors.As(err, &cliErr) {
		return cliErr.Code
	}
	return ErrCodeUnknown
}

// IsCode reports whether err carries the given stable code.
func IsCode(err error, code string) bool {
	return err != nil && Code(err) == code
}
