// Package apperr defines the client-facing error type shared by handlers.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

const (
	CodeValidation         = "VALIDATION_ERROR"
	CodeInvalidMimeType    = "INVALID_MIME_TYPE"
	CodeFileTooLarge       = "FILE_TOO_LARGE"
	CodeUploadTruncated    = "UPLOAD_TRUNCATED"
	CodeUploadCorrupted    = "UPLOAD_CORRUPTED"
	CodeNoFile             = "NO_FILE"
	CodeNotFound           = "NOT_FOUND"
	CodeConflict           = "CONFLICT"
	CodeServiceUnavailable = "SERVICE_UNAVAILABLE"
	CodeInternal           = "INTERNAL_ERROR"
)

type Error struct {
	Status  int
	Code    string
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Message != "" {
		return e.Message
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	if e.Code != "" {
		return e.Code
	}
	return fmt.Sprintf("app error (%d)", e.Status)
}

func (e *Error) Unwrap() error { return e.Err }

func New(status int, code, message string, err error) *Error {
	return &Error{Status: status, Code: code, Message: message, Err: err}
}

func Validation(code, message string) *Error {
	if code == "" {
		code = CodeValidation
	}
	return New(http.StatusBadRequest, code, message, nil)
}

func TooLarge(message string) *Error {
	return New(http.StatusRequestEntityTooLarge, CodeFileTooLarge, message, nil)
}

func NotFound(message string, err error) *Error {
	return New(http.StatusNotFound, CodeNotFound, message, err)
}

func Conflict(message string, err error) *Error {
	return New(http.StatusConflict, CodeConflict, message, err)
}

func Internal(err error) *Error {
	return New(http.StatusInternalServerError, CodeInternal, "internal server error", err)
}

// As unwraps err into an *Error when one is present in the chain.
func As(err error) (*Error, bool) {
	var ae *Error
	if errors.As(err, &ae) {
		return ae, true
	}
	return nil, false
}
