package errcodes

import (
	"fmt"
	"net/http"

	"github.com/pkg/errors"
)

type Error struct {
	HTTPCode int
	Message  string
	Code     string
}

func (err *Error) Error() string {
	return err.Message
}

func (err *Error) As(target interface{}) bool {
	te, ok := target.(*Error)
	if !ok {
		return false
	}
	te.HTTPCode = err.HTTPCode
	te.Message = err.Message
	te.Code = err.Code
	return true
}

func (err *Error) Is(target error) bool {
	te, ok := target.(*Error)
	if !ok {
		return false
	}
	return te.HTTPCode == err.HTTPCode &&
		te.Message == err.Message &&
		te.Code == err.Code
}

// HasCode reports whether err is (or wraps) an *Error with the given code.
func HasCode(err error, code string) bool {
	var e *Error
	if !errors.As(err, &e) {
		return false
	}
	return e.Code == code
}

const (
	CodeUnidentifiableScan         = "unidentifiable_scan"
	CodeMissingISBN                = "missing_isbn"
	CodeBookNotFound               = "book_not_found"
	CodeExternalServiceUnavailable = "external_service_unavailable"
)

// UnidentifiableScan returns a 422 error for a scan that no ISBN could be
// derived from.
func UnidentifiableScan() error {
	return &Error{
		http.StatusUnprocessableEntity,
		"No ISBN could be identified from the scan.",
		CodeUnidentifiableScan,
	}
}

// MissingISBN returns a 422 error for an ISBN that is empty once hyphens and
// whitespace are removed.
func MissingISBN() error {
	return &Error{
		http.StatusUnprocessableEntity,
		"ISBN is required.",
		CodeMissingISBN,
	}
}

// BookNotFound returns a 404 error for an ISBN that the catalog has no entry
// for.
func BookNotFound(isbn string) error {
	return &Error{
		http.StatusNotFound,
		fmt.Sprintf("No book was found for ISBN %s.", isbn),
		CodeBookNotFound,
	}
}

// ExternalServiceUnavailable returns a 503 error when a collaborator call
// fails or times out.
func ExternalServiceUnavailable(service string) error {
	return &Error{
		http.StatusServiceUnavailable,
		service + " is currently unavailable.",
		CodeExternalServiceUnavailable,
	}
}

// BadRequest returns a 400 error with the given message.
func BadRequest(msg string) error {
	return &Error{
		http.StatusBadRequest,
		msg,
		"bad_request",
	}
}

// Unauthorized returns a 401 error with the given message.
func Unauthorized(msg string) error {
	return &Error{
		http.StatusUnauthorized,
		msg,
		"unauthorized",
	}
}

// NotFound returns a 404 error with a message indicating the given resource.
func NotFound(resource string) error {
	return &Error{
		http.StatusNotFound,
		resource + " not found.",
		"not_found",
	}
}

func UnsupportedMediaType() error {
	return &Error{
		http.StatusUnsupportedMediaType,
		"Unsupported Media Type",
		"unsupported_media_type",
	}
}

func UnknownParameter(param string) error {
	return &Error{
		http.StatusUnprocessableEntity,
		fmt.Sprintf("Unknown Parameter %q", param),
		"unknown_parameter",
	}
}

func ValidationTypeError(msg string) error {
	return &Error{
		http.StatusUnprocessableEntity,
		msg,
		"validation_type_error",
	}
}

func ValidationError(msg string) error {
	return &Error{
		http.StatusUnprocessableEntity,
		msg,
		"validation_error",
	}
}

func MalformedPayload() error {
	return &Error{
		http.StatusBadRequest,
		"Malformed Payload",
		"malformed_payload",
	}
}

func EmptyRequestBody() error {
	return &Error{
		http.StatusBadRequest,
		"Request body can't be empty.",
		"empty_request_body",
	}
}
