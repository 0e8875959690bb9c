package core

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/pkg/errors"
)

var (
	ErrNotFound = errors.New("not found")
	ErrLocked   = errors.New("resource is locked")
	ErrNoAuth   = errors.New("no authenticated principal in context")
)

// FieldError is used to indicate an error with a specific struct field.
type FieldError struct {
	Field string
	Error string
}

type ValidationError struct {
	Err    error
	Fields []FieldError
}

func NewValidationError(err error, flds ...FieldError) error {
	return &ValidationError{err, flds}
}

func (err ValidationError) Error() string {
	if err.Err == nil {
		if len(err.Fields) > 0 {
			return err.Fields[0].Field + ": " + err.Fields[0].Error
		}
		return ""
	}
	return err.Err.Error()
}

// RemoteError is a non-2xx answer of the backing store. Body is kept raw: its shape depends on
// the transport and the procedure that failed.
type RemoteError struct {
	Status int
	Body   []byte
}

func NewRemoteError(status int, msg string) *RemoteError {
	body, _ := json.Marshal(map[string]string{"message": msg})
	return &RemoteError{Status: status, Body: body}
}

func (err *RemoteError) Error() string {
	return fmt.Sprintf("remote: %d: %s", err.Status, jsonMessage(err.Body))
}

// NotFound reports whether the remote answered with a 404.
func (err *RemoteError) NotFound() bool {
	return err.Status == http.StatusNotFound
}

type shutdown struct {
	message string
}

func NewShutdownError(msg string) error {
	return &shutdown{message: msg}
}

func (s shutdown) Error() string {
	return s.message
}

func IsShutdown(err error) bool {
	_, ok := errors.Cause(err).(*shutdown)
	return ok
}
