// ABOUTME: Error type shared by the analytics host and generative-AI HTTP clients.
// ABOUTME: Transport, status, and decoding failures all surface as a ServiceError.
package remote

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// Service names used in ServiceError.
const (
	ServiceHost  = "host"
	ServiceGenAI = "genai"
)

// maxErrorBody caps how much of a failed response body is kept in the error.
const maxErrorBody = 1 << 20

// ServiceError is returned for any failed call to a remote service: network
// errors, auth failures, non-2xx responses, and malformed payloads.
type ServiceError struct {
	Service    string
	Op         string
	StatusCode int
	Body       string
	Err        error
}

func (e *ServiceError) Error() string {
	switch {
	case e.StatusCode != 0 && e.Body != "":
		return fmt.Sprintf("%s %s: remote API returned %d: %s", e.Service, e.Op, e.StatusCode, e.Body)
	case e.StatusCode != 0:
		return fmt.Sprintf("%s %s: remote API returned %d", e.Service, e.Op, e.StatusCode)
	case e.Err != nil:
		return fmt.Sprintf("%s %s: %v", e.Service, e.Op, e.Err)
	default:
		return fmt.Sprintf("%s %s failed", e.Service, e.Op)
	}
}

func (e *ServiceError) Unwrap() error {
	return e.Err
}

// IsServiceError reports whether err wraps a *ServiceError.
func IsServiceError(err error) bool {
	var se *ServiceError
	return errors.As(err, &se)
}

// Wrap builds a ServiceError around a transport or decoding failure.
func Wrap(service, op string, err error) *ServiceError {
	return &ServiceError{Service: service, Op: op, Err: err}
}

// FromResponse builds a ServiceError for a response with an error status.
// The body is read (bounded) but not closed.
func FromResponse(service, op string, resp *http.Response) *ServiceError {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	return &ServiceError{
		Service:    service,
		Op:         op,
		StatusCode: resp.StatusCode,
		Body:       strings.TrimSpace(string(body)),
	}
}

// DoJSON sends req with client and decodes a JSON response body into out.
// out may be nil when the body is not needed.
func DoJSON(client *http.Client, service, op string, req *http.Request, out any) error {
	resp, err := client.Do(req)
	if err != nil {
		return Wrap(service, op, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 400 {
		return FromResponse(service, op, resp)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return Wrap(service, op, fmt.Errorf("failed to decode response: %w", err))
	}
	return nil
}
