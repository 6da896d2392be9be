// Package errors consolidates error definitions for the entire project.
//
// This file provides:
// - API error codes used in JSON error responses
// - Sentinel errors for all error conditions
// - Error category checking functions
// - ErrorToCode and CodeToHTTPStatus mapping
// - Error wrapping utilities
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// ============================================================================
// API error codes - used in JSON error payloads
// ============================================================================

const (
	CodeUnknown        int32 = 1
	CodeAuthFailed     int32 = 2
	CodeInvalidRequest int32 = 3
	CodeNotFound       int32 = 4
	CodeBadData        int32 = 5
	CodeInternal       int32 = 6
	CodeRateLimited    int32 = 7
	CodeTimeout        int32 = 8
)

// CodeName returns a human-readable name for an error code.
func CodeName(code int32) string {
	switch code {
	case CodeUnknown:
		return "Unknown"
	case CodeAuthFailed:
		return "AuthFailed"
	case CodeInvalidRequest:
		return "InvalidRequest"
	case CodeNotFound:
		return "NotFound"
	case CodeBadData:
		return "BadData"
	case CodeInternal:
		return "Internal"
	case CodeRateLimited:
		return "RateLimited"
	case CodeTimeout:
		return "Timeout"
	default:
		return fmt.Sprintf("Code(%d)", code)
	}
}

// ============================================================================
// Sentinel errors for common conditions
// ============================================================================

var (
	// Not found errors
	ErrNotFound        = errors.New("not found")
	ErrDatasetNotFound = errors.New("dataset not found")
	ErrGeneNotFound    = errors.New("gene not found")
	ErrResultsDirMissing = errors.New("results directory does not exist")
	ErrSourceDirMissing  = errors.New("staging source directory does not exist")

	// Data errors
	ErrMissingColumn  = errors.New("missing required column")
	ErrEmptyFile      = errors.New("file has no data rows")
	ErrMalformedTSV   = errors.New("malformed TSV")
	ErrNoPValueColumn = errors.New("no p-value column available")

	// Validation errors
	ErrInvalidName      = errors.New("invalid name")
	ErrInvalidDatasetID = errors.New("invalid dataset id")
	ErrInvalidCategory  = errors.New("invalid category")
	ErrInvalidThreshold = errors.New("invalid threshold")
	ErrInvalidPort      = errors.New("invalid port")
	ErrInvalidConfig    = errors.New("invalid configuration")
	ErrMissingField     = errors.New("missing required field")
	ErrSameDataset      = errors.New("datasets must be distinct")
	ErrNotSelect        = errors.New("only SELECT statements are allowed")

	// Auth errors
	ErrNotAuthenticated = errors.New("not authenticated")
	ErrAuthFailed       = errors.New("authentication failed")
	ErrRateLimited      = errors.New("too many failed attempts")

	// Tunnel errors
	ErrUnknownProvider = errors.New("unknown tunnel provider")
	ErrBinaryNotFound  = errors.New("tunnel binary not found in PATH")
	ErrTunnelExited    = errors.New("tunnel process exited")

	// Internal errors
	ErrInternal = errors.New("internal error")
	ErrDatabase = errors.New("database error")
	ErrTimeout  = errors.New("timeout")
)

// ============================================================================
// Helper functions for error checking
// ============================================================================

// Is is a convenience wrapper for errors.Is
var Is = errors.Is

// As is a convenience wrapper for errors.As
var As = errors.As

// IsNotFound returns true if err is a not-found error.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrDatasetNotFound) ||
		errors.Is(err, ErrGeneNotFound) ||
		errors.Is(err, ErrResultsDirMissing) ||
		errors.Is(err, ErrSourceDirMissing)
}

// IsValidation returns true if err is a validation error.
func IsValidation(err error) bool {
	return errors.Is(err, ErrInvalidName) ||
		errors.Is(err, ErrInvalidDatasetID) ||
		errors.Is(err, ErrInvalidCategory) ||
		errors.Is(err, ErrInvalidThreshold) ||
		errors.Is(err, ErrInvalidPort) ||
		errors.Is(err, ErrInvalidConfig) ||
		errors.Is(err, ErrMissingField) ||
		errors.Is(err, ErrSameDataset) ||
		errors.Is(err, ErrNotSelect)
}

// IsBadData returns true if err indicates an unreadable or invalid results file.
func IsBadData(err error) bool {
	return errors.Is(err, ErrMissingColumn) ||
		errors.Is(err, ErrEmptyFile) ||
		errors.Is(err, ErrMalformedTSV) ||
		errors.Is(err, ErrNoPValueColumn)
}

// IsAuthError returns true if err is an authentication error.
func IsAuthError(err error) bool {
	return errors.Is(err, ErrNotAuthenticated) ||
		errors.Is(err, ErrAuthFailed) ||
		errors.Is(err, ErrRateLimited)
}

// IsTunnelError returns true if err is a tunnel-related error.
func IsTunnelError(err error) bool {
	return errors.Is(err, ErrUnknownProvider) ||
		errors.Is(err, ErrBinaryNotFound) ||
		errors.Is(err, ErrTunnelExited)
}

// ============================================================================
// Error to API code mapping
// ============================================================================

// ErrorToCode maps a sentinel error to its API error code.
func ErrorToCode(err error) int32 {
	switch {
	case err == nil:
		return 0
	case errors.Is(err, ErrRateLimited):
		return CodeRateLimited
	case IsAuthError(err):
		return CodeAuthFailed
	case IsNotFound(err):
		return CodeNotFound
	case IsValidation(err):
		return CodeInvalidRequest
	case IsBadData(err):
		return CodeBadData
	case errors.Is(err, ErrTimeout):
		return CodeTimeout
	case errors.Is(err, ErrInternal), errors.Is(err, ErrDatabase):
		return CodeInternal
	default:
		return CodeUnknown
	}
}

// CodeToHTTPStatus maps an API error code to an HTTP status.
func CodeToHTTPStatus(code int32) int {
	switch code {
	case CodeAuthFailed:
		return http.StatusUnauthorized
	case CodeRateLimited:
		return http.StatusTooManyRequests
	case CodeNotFound:
		return http.StatusNotFound
	case CodeInvalidRequest:
		return http.StatusBadRequest
	case CodeBadData:
		return http.StatusUnprocessableEntity
	case CodeTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// ============================================================================
// Wrapping utilities
// ============================================================================

// Wrap wraps err with a message, preserving the sentinel for errors.Is.
func Wrap(err error, msg string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", msg, err)
}

// Wrapf wraps err with a formatted message.
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf(format+": %w", append(args, err)...)
}
