package cloudfoundry

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/pkg/errors"
)

// Codes of frequently inspected v3 errors.
const (
	CodeResourceNotFound           = 10010
	CodeServiceBindingNotFound     = 90004
	CodeUnprocessableEntity        = 10008
	CodeServiceBindingAppTaken     = 130006
	CodeInvalidAuthToken           = 1000
	CodeNotAuthenticated           = 10002
	CodeNotAuthorized              = 10003
	CodeAsyncServiceBindingOngoing = 90008
)

// Error is a single entry of a v3 error document.
type Error struct {
	Code   int    `json:"code"`
	Title  string `json:"title"`
	Detail string `json:"detail"`
}

func (e Error) String() string {
	return fmt.Sprintf("%s(%d): %s", e.Title, e.Code, e.Detail)
}

// ClientV3Error is returned for non-2xx responses carrying a v3 error document.
type ClientV3Error struct {
	StatusCode int
	Errors     []Error
}

func (e *ClientV3Error) Error() string {
	parts := make([]string, 0, len(e.Errors))
	for _, err := range e.Errors {
		parts = append(parts, err.String())
	}
	return strings.Join(parts, ", ")
}

// UnknownCloudFoundryError is returned for non-2xx responses whose body is not a v3 error document.
type UnknownCloudFoundryError struct {
	StatusCode int
	Payload    string
}

func (e *UnknownCloudFoundryError) Error() string {
	return fmt.Sprintf("Unknown Cloud Foundry Exception: %d %s", e.StatusCode, e.Payload)
}

// HasErrorCode reports whether err carries a v3 error with the given code.
func HasErrorCode(err error, code int) bool {
	var v3 *ClientV3Error
	if !errors.As(err, &v3) {
		return false
	}
	for _, e := range v3.Errors {
		if e.Code == code {
			return true
		}
	}
	return false
}

// IsNotFound reports whether err is a 404 answer of the API.
func IsNotFound(err error) bool {
	var v3 *ClientV3Error
	if errors.As(err, &v3) {
		return v3.StatusCode == http.StatusNotFound
	}
	var unknown *UnknownCloudFoundryError
	if errors.As(err, &unknown) {
		return unknown.StatusCode == http.StatusNotFound
	}
	return false
}

// StatusCode returns the HTTP status of an API error or 0.
func StatusCode(err error) int {
	var v3 *ClientV3Error
	if errors.As(err, &v3) {
		return v3.StatusCode
	}
	var unknown *UnknownCloudFoundryError
	if errors.As(err, &unknown) {
		return unknown.StatusCode
	}
	return 0
}

type errorDocument struct {
	Errors []Error `json:"errors"`
}

// checkResponse maps non-2xx responses to errors. The body of a failed response is consumed.
func checkResponse(resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return errors.Wrapf(err, "cannot read error response (status %d)", resp.StatusCode)
	}

	var doc errorDocument
	if jsonErr := json.Unmarshal(payload, &doc); jsonErr == nil && len(doc.Errors) > 0 {
		return &ClientV3Error{StatusCode: resp.StatusCode, Errors: doc.Errors}
	}
	return &UnknownCloudFoundryError{StatusCode: resp.StatusCode, Payload: string(bytes.TrimSpace(payload))}
}
