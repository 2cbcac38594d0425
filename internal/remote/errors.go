package remote

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

// ErrorKind classifies a backend failure.
type ErrorKind int

const (
	// TransportError means no response was received (connection refused, timeout, ...).
	TransportError ErrorKind = iota + 1
	// HTTPError means the backend answered with a non-2xx status.
	HTTPError
)

func (k ErrorKind) String() string {
	switch k {
	case TransportError:
		return "transport"
	case HTTPError:
		return "http"
	default:
		return "unknown"
	}
}

// ErrChangesUnsupported is returned when a change is submitted to a backend
// that does not expose the change log.
var ErrChangesUnsupported = errors.New("Changes not supported")

// ErrNoAuthor is returned when a mutation would be sent without an author.
var ErrNoAuthor = errors.New("no author configured")

// Error is the normalized form of every transport or HTTP failure.
type Error struct {
	Kind        ErrorKind
	Description string // e.g. "Cannot get /classes/Foo"
	URL         string
	Status      int    // 0 for transport errors
	Reason      string // status text, server message or transport error text
	Body        []byte // raw response body, if any
	Err         error  // underlying transport error, if any
}

func (e *Error) Error() string {
	if e.Reason == "" {
		return fmt.Sprintf("%s (%s)", e.Description, e.URL)
	}
	return fmt.Sprintf("%s (%s due to %s)", e.Description, e.URL, e.Reason)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// IsTransport reports whether no response was received.
func (e *Error) IsTransport() bool {
	return e.Kind == TransportError
}

// errorResponse mirrors the JSON error body most backends send.
type errorResponse struct {
	Error       string `json:"error"`
	Description string `json:"description"`
	Details     string `json:"details,omitempty"`
}

func newTransportError(description, url string, err error) *Error {
	return &Error{
		Kind:        TransportError,
		Description: description,
		URL:         url,
		Reason:      err.Error(),
		Err:         err,
	}
}

// newHTTPError builds an HTTPError, preferring the server's message as reason
// and falling back to the status phrase so that Reason is never empty.
func newHTTPError(description, url string, status int, body []byte) *Error {
	reason := http.StatusText(status)
	var resp errorResponse
	if err := json.Unmarshal(body, &resp); err == nil {
		msg := resp.Error
		if msg == "" {
			msg = resp.Description
		}
		if msg != "" {
			reason = msg
			if resp.Details != "" {
				reason = msg + ": " + resp.Details
			}
		}
	}
	if reason == "" {
		reason = fmt.Sprintf("status %d", status)
	}
	return &Error{
		Kind:        HTTPError,
		Description: description,
		URL:         url,
		Status:      status,
		Reason:      reason,
		Body:        body,
	}
}

// StatusOf returns the HTTP status carried by err, or 0.
func StatusOf(err error) int {
	var e *Error
	if errors.As(err, &e) {
		return e.Status
	}
	return 0
}

// IsNotFound reports whether err is a backend 404.
func IsNotFound(err error) bool {
	return StatusOf(err) == http.StatusNotFound
}
