// Package callable implements the request/response protocol used by
// client-invoked backend functions: requests carry {"data": ...}, successes
// return {"result": ...} and failures return {"error": {"status", "message"}}.
package callable

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/carmelita/carmelita-be/internal/http/respond"
)

// Status is the canonical error code reported to callers.
type Status string

const (
	InvalidArgument   Status = "INVALID_ARGUMENT"
	Unauthenticated   Status = "UNAUTHENTICATED"
	NotFound          Status = "NOT_FOUND"
	ResourceExhausted Status = "RESOURCE_EXHAUSTED"
	Internal          Status = "INTERNAL"
)

// maxBodyBytes caps callable request bodies.
const maxBodyBytes = 1 << 20

// Error is a failure raised to the caller.
type Error struct {
	Status  Status `json:"status"`
	Message string `json:"message"`
}

// NewError builds an *Error.
func NewError(status Status, message string) *Error {
	return &Error{Status: status, Message: message}
}

func (e *Error) Error() string {
	return string(e.Status) + ": " + e.Message
}

// HTTPStatus maps the error status to an HTTP status code.
func (e *Error) HTTPStatus() int {
	switch e.Status {
	case InvalidArgument:
		return http.StatusBadRequest
	case Unauthenticated:
		return http.StatusUnauthorized
	case NotFound:
		return http.StatusNotFound
	case ResourceExhausted:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

type request struct {
	Data json.RawMessage `json:"data"`
}

// Decode reads the request envelope into dst. An empty body or a missing
// or null data field leaves dst untouched.
func Decode(r *http.Request, dst any) error {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		return NewError(InvalidArgument, "unable to read request body")
	}
	if len(bytes.TrimSpace(body)) == 0 {
		return nil
	}
	var req request
	if err := json.Unmarshal(body, &req); err != nil {
		return NewError(InvalidArgument, "request body must be a JSON object")
	}
	if len(req.Data) == 0 || bytes.Equal(bytes.TrimSpace(req.Data), []byte("null")) {
		return nil
	}
	if err := json.Unmarshal(req.Data, dst); err != nil {
		return NewError(InvalidArgument, "invalid data payload")
	}
	return nil
}

// Result writes a successful callable response.
func Result(w http.ResponseWriter, result any) {
	respond.Raw(w, http.StatusOK, map[string]any{"result": result})
}

// Fail writes err as a callable error. Errors that are not *Error are
// reported as INTERNAL without exposing their text.
func Fail(w http.ResponseWriter, err error) {
	var callErr *Error
	if !errors.As(err, &callErr) {
		callErr = NewError(Internal, "internal error")
	}
	respond.Raw(w, callErr.HTTPStatus(), map[string]any{"error": callErr})
}

// MethodNotAllowed rejects anything but POST.
func MethodNotAllowed(w http.ResponseWriter) {
	w.Header().Set("Allow", http.MethodPost)
	http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
}
