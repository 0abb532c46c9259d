package common

import (
	"context"
	"errors"
	"fmt"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// Error codes carried by AppError.
const (
	CodeConfig            = "CONFIG_ERROR"
	CodeInvalidInput      = "INVALID_INPUT"
	CodeUnsupportedFormat = "UNSUPPORTED_FORMAT"
	CodeLibraryNotReady   = "LIBRARY_NOT_READY"
	CodeDecodeFailed      = "DECODE_FAILED"
	CodeOCRFailed         = "OCR_FAILED"
	CodePDFFailed         = "PDF_FAILED"
	CodeAnalysisFailed    = "ANALYSIS_FAILED"
	CodeCancelled         = "CANCELLED"
	CodeNotFound          = "NOT_FOUND"
	CodeDatabase          = "DATABASE_ERROR"
)

// AppError represents application-specific errors
type AppError struct {
	Code    string
	Message string
	Cause   error
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// Common application errors
var (
	ErrNotFound     = errors.New("resource not found")
	ErrInvalidInput = errors.New("invalid input")
	ErrInternal     = errors.New("internal error")
	ErrDatabase     = errors.New("database error")
	ErrValidation   = errors.New("validation failed")
)

func NewAppError(code, message string, cause error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

func WrapError(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// Extraction failures. The message is what a caller shows to a user.

func UnsupportedFormatError(mediaType string) error {
	return NewAppError(CodeUnsupportedFormat, fmt.Sprintf("Unsupported file type: %q", mediaType), ErrInvalidInput)
}

func InvalidInputError(message string) error {
	return NewAppError(CodeInvalidInput, message, ErrInvalidInput)
}

func LibraryNotReadyError(library string, cause error) error {
	return NewAppError(CodeLibraryNotReady, library+" is not available", cause)
}

func DecodeError(cause error) error {
	return NewAppError(CodeDecodeFailed, "could not decode document; try uploading a clearer document", cause)
}

func OCRError(cause error) error {
	return NewAppError(CodeOCRFailed, "text recognition failed; try uploading a clearer document", cause)
}

func PDFError(cause error) error {
	return NewAppError(CodePDFFailed, "could not read PDF text", cause)
}

func AnalysisError(cause error) error {
	return NewAppError(CodeAnalysisFailed, "could not analyze document text", cause)
}

func CancelledError(cause error) error {
	return NewAppError(CodeCancelled, "extraction cancelled", cause)
}

// CodeOf returns the AppError code in err's chain, or "" when there is none.
func CodeOf(err error) string {
	var ae *AppError
	if errors.As(err, &ae) {
		return ae.Code
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return CodeCancelled
	}
	return ""
}

// MessageOf returns the user-facing message of an AppError, or err.Error().
func MessageOf(err error) string {
	var ae *AppError
	if errors.As(err, &ae) {
		return ae.Message
	}
	return err.Error()
}

// IsRejected reports whether err means the input was refused before any processing.
func IsRejected(err error) bool {
	switch CodeOf(err) {
	case CodeUnsupportedFormat, CodeInvalidInput:
		return true
	}
	return false
}

// gRPC error helpers
func InvalidArgumentError(message string) error {
	return status.Error(codes.InvalidArgument, message)
}

func NotFoundError(message string) error {
	return status.Error(codes.NotFound, message)
}

func InternalError(message string) error {
	return status.Error(codes.Internal, message)
}

func InvalidArgumentErrorf(format string, args ...any) error {
	return InvalidArgumentError(fmt.Sprintf(format, args...))
}

func InternalErrorf(format string, args ...any) error {
	return InternalError(fmt.Sprintf(format, args...))
}

// ToStatus maps an application error onto a gRPC status.
func ToStatus(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := status.FromError(err); ok && CodeOf(err) == "" {
		return err
	}
	msg := MessageOf(err)
	switch CodeOf(err) {
	case CodeUnsupportedFormat, CodeInvalidInput, CodeDecodeFailed:
		return status.Error(codes.InvalidArgument, msg)
	case CodeNotFound:
		return status.Error(codes.NotFound, msg)
	case CodeLibraryNotReady:
		return status.Error(codes.Unavailable, msg)
	case CodeCancelled:
		return status.Error(codes.Canceled, msg)
	}
	if errors.Is(err, ErrNotFound) {
		return status.Error(codes.NotFound, msg)
	}
	return status.Error(codes.Internal, msg)
}
