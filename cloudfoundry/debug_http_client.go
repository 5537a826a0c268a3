package cloudfoundry

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"

	"github.com/crossplane/crossplane-runtime/pkg/logging"
)

var (
	jwtPattern       = regexp.MustCompile(`[A-Za-z0-9_-]{2,}(?:\.[A-Za-z0-9_-]{2,}){2}`)
	// sensitiveFields matches json keys and form fields, never values such as link hrefs.
	sensitiveFields  = regexp.MustCompile(`(?i)"[a-z_]*(password|secret|token|credentials)"\s*:|(?:^|&)[a-z_]*(password|secret|token)=`)
	sensitiveHeaders = map[string]bool{"Authorization": true, "Set-Cookie": true, "Cookie": true}
)

// DebugOption configures the debug http client.
type DebugOption func(*debugHttpClient)

type debugHttpClient struct {
	client *http.Client
}

// WithHttpClient sets the http.Client to use for the debug client. Its Transport is wrapped by the RoundTripDebugger.
func WithHttpClient(client *http.Client) DebugOption {
	return func(d *debugHttpClient) {
		d.client = client
	}
}

// DebugPrintHTTPClient returns a http.Client that logs every request and response through log.
// A fresh client is used if none is passed with WithHttpClient.
func DebugPrintHTTPClient(log logging.Logger, opts ...DebugOption) *http.Client {
	debugClient := &debugHttpClient{
		client: &http.Client{},
	}

	for _, applyOpt := range opts {
		applyOpt(debugClient)
	}

	var transport http.RoundTripper
	if debugClient.client.Transport != nil {
		transport = debugClient.client.Transport
	} else {
		transport = http.DefaultTransport
	}
	debugClient.client.Transport = &RoundTripDebugger{base: transport, log: log}

	return debugClient.client
}

// RoundTripDebugger logs redacted requests and responses of the wrapped RoundTripper.
type RoundTripDebugger struct {
	base http.RoundTripper
	log  logging.Logger
}

// RoundTrip calls the base RoundTripper and logs the exchange afterwards.
func (r *RoundTripDebugger) RoundTrip(req *http.Request) (*http.Response, error) {
	reqLog := constructRequestLogMessage(req)
	resp, err := r.base.RoundTrip(req)
	// err will be returned after logging response
	r.log.Debug("HTTP Request", append(reqLog, constructResponseLogMessage(resp)...)...)
	return resp, err
}

func constructRequestLogMessage(req *http.Request) []any {
	if req == nil {
		return []any{}
	}
	var bodyCopy io.ReadCloser
	var err error
	bodyCopy, req.Body, err = drainBody(req.Body)
	if err != nil {
		bodyCopy = io.NopCloser(strings.NewReader(fmt.Sprintf("Error reading body: %v", err)))
	}
	bodyBytes, _ := io.ReadAll(bodyCopy)
	return []any{
		"proto", req.Proto,
		"host", req.URL.Host,
		"method", req.Method,
		"path", req.URL.Path,
		"query", req.URL.RawQuery,
		"headers", fmt.Sprintf("%v", redactSensitiveHeaders(req.Header)),
		"body", string(redactBody(bodyBytes)),
	}
}

func constructResponseLogMessage(resp *http.Response) []any {
	if resp == nil {
		return []any{}
	}
	var bodyCopy io.ReadCloser
	var err error
	bodyCopy, resp.Body, err = drainBody(resp.Body)
	if err != nil {
		bodyCopy = io.NopCloser(strings.NewReader(fmt.Sprintf("Error reading body: %v", err)))
	}
	bodyBytes, _ := io.ReadAll(bodyCopy)
	return []any{
		"status", resp.Status,
		"responseHeaders", fmt.Sprintf("%v", redactSensitiveHeaders(resp.Header)),
		"responseBody", string(redactBody(bodyBytes)),
	}
}

func redactBody(body []byte) []byte {
	return redactJwtTokensFromBody(redactSensitiveBodyBasedOnKeywords(body))
}

// redactSensitiveBodyBasedOnKeywords redacts the whole body if it has a sensitive field.
// Binding details carry credentials, so those bodies never reach the log.
func redactSensitiveBodyBasedOnKeywords(body []byte) []byte {
	if sensitiveFields.Match(body) {
		return []byte("<BODY REDACTED>")
	}
	return body
}

// redactJwtTokensFromBody replaces anything shaped like <b64>.<b64>.<b64> with "<REDACTED>".
func redactJwtTokensFromBody(body []byte) []byte {
	return jwtPattern.ReplaceAll(body, []byte("<REDACTED>"))
}

// redactSensitiveHeaders returns a redacted copy of the header.
func redactSensitiveHeaders(header http.Header) http.Header {
	filteredHeader := make(http.Header)
	for key, values := range header {
		if sensitiveHeaders[http.CanonicalHeaderKey(key)] {
			filteredHeader[key] = []string{"<REDACTED>"}
		} else {
			filteredHeader[key] = values
		}
	}
	return filteredHeader
}

// drainBody reads all of b to memory and then returns two equivalent
// ReadClosers yielding the same bytes.
//
// It returns an error if the initial slurp of all bytes fails. It does not attempt
// to make the returned ReadClosers have identical error-matching behavior.
// Source: https://cs.opensource.google/go/go/+/refs/tags/go1.22.2:src/net/http/httputil/dump.go
func drainBody(b io.ReadCloser) (r1, r2 io.ReadCloser, err error) {
	if b == nil || b == http.NoBody {
		// No copying needed. Preserve the magic sentinel meaning of NoBody.
		return http.NoBody, http.NoBody, nil
	}
	var buf bytes.Buffer
	if _, err = buf.ReadFrom(b); err != nil {
		return nil, b, err
	}
	if err = b.Close(); err != nil {
		return nil, b, err
	}
	return io.NopCloser(&buf), io.NopCloser(bytes.NewReader(buf.Bytes())), nil
}
