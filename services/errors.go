package services

import (
	"errors"
	"fmt"
	"net/http"

	"filerepo/storage"
)

// AppError carries the caller-facing outcome. HTTPCode encodes the error kind:
// 401 unauthorized, 403 forbidden, 404 not found, 400 validation, 413 too large,
// 409 conflict, 500 operation failed.
type AppError struct {
	HTTPCode int
	Message  string
	Data     interface{}
	Err      error
}

func (e *AppError) Error() string {
	if e == nil {
		return ""
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

func newAppError(httpCode int, message string, err error) *AppError {
	return &AppError{HTTPCode: httpCode, Message: message, Err: err}
}

func newAppErrorWithData(httpCode int, message string, data interface{}, err error) *AppError {
	return &AppError{HTTPCode: httpCode, Message: message, Data: data, Err: err}
}

func errUnauthorized(message string) *AppError {
	return newAppError(http.StatusUnauthorized, message, nil)
}

func errForbidden(message string) *AppError {
	return newAppError(http.StatusForbidden, message, nil)
}

func errNotFound(message string) *AppError {
	return newAppError(http.StatusNotFound, message, nil)
}

func errValidation(message string, err error) *AppError {
	return newAppError(http.StatusBadRequest, message, err)
}

func errTooLarge(limit int64) *AppError {
	return newAppErrorWithData(http.StatusRequestEntityTooLarge, "file exceeds the upload size limit",
		map[string]interface{}{"max_file_size": limit}, nil)
}

func errConflict(message string, err error) *AppError {
	return newAppError(http.StatusConflict, message, err)
}

func errOperationFailed(message string, err error) *AppError {
	return newAppError(http.StatusInternalServerError, message, err)
}

// storageError maps a storage failure onto the caller-facing taxonomy.
func storageError(message string, err error, limit int64) *AppError {
	switch {
	case errors.Is(err, storage.ErrTooLarge):
		return errTooLarge(limit)
	case errors.Is(err, storage.ErrConflict):
		return errConflict("destination already exists", err)
	default:
		return errOperationFailed(message, err)
	}
}

// IsKind reports whether err is an AppError with the given HTTP code.
func IsKind(err error, httpCode int) bool {
	var appErr *AppError
	return errors.As(err, &appErr) && appErr.HTTPCode == httpCode
}
