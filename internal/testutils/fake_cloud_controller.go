package testutils

import (
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"

	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

const (
	// FakeAccessToken is the token handed out by the fake token endpoint unless configured otherwise.
	FakeAccessToken = "fake-access-token"

	rootPath  = "/"
	tokenPath = "/oauth/token"
	apiPrefix = "/v3"
)

// RecordedRequest is a request received by the FakeCloudController.
type RecordedRequest struct {
	Method   string
	Path     string
	RawQuery string
	Header   http.Header
	Body     []byte
}

// Query parses the raw query of the request.
func (r RecordedRequest) Query() url.Values {
	v, _ := url.ParseQuery(r.RawQuery)
	return v
}

// FakeCloudControllerBuilder configures a FakeCloudController, routes are keyed by method and path
// relative to /v3, e.g. "GET /service_credential_bindings/abc".
type FakeCloudControllerBuilder struct {
	routes     map[string]http.HandlerFunc
	token      func() string
	omitLogin  bool
	rootStatus int
}

// NewFakeCloudControllerBuilder creates a builder whose token endpoint returns FakeAccessToken.
func NewFakeCloudControllerBuilder() FakeCloudControllerBuilder {
	return FakeCloudControllerBuilder{
		routes: map[string]http.HandlerFunc{},
		token:  func() string { return FakeAccessToken },
	}
}

// AddRoute registers handler for method and the path below /v3.
func (b FakeCloudControllerBuilder) AddRoute(method, path string, handler http.HandlerFunc) FakeCloudControllerBuilder {
	routes := make(map[string]http.HandlerFunc, len(b.routes)+1)
	for k, v := range b.routes {
		routes[k] = v
	}
	routes[method+" "+path] = handler
	b.routes = routes
	return b
}

// WithToken sets the supplier of access tokens issued by the token endpoint.
func (b FakeCloudControllerBuilder) WithToken(token func() string) FakeCloudControllerBuilder {
	b.token = token
	return b
}

// WithoutLoginRoot advertises only the uaa root.
func (b FakeCloudControllerBuilder) WithoutLoginRoot() FakeCloudControllerBuilder {
	b.omitLogin = true
	return b
}

// WithRootStatus makes the root document answer with status.
func (b FakeCloudControllerBuilder) WithRootStatus(status int) FakeCloudControllerBuilder {
	b.rootStatus = status
	return b
}

// Build starts the server, it is closed when t finishes.
func (b FakeCloudControllerBuilder) Build(t *testing.T) *FakeCloudController {
	t.Helper()
	f := &FakeCloudController{builder: b}
	f.Server = httptest.NewServer(http.HandlerFunc(f.serve))
	t.Cleanup(f.Server.Close)
	return f
}

// FakeCloudController serves the api root document, a UAA token endpoint and the registered v3 routes.
// Every request is recorded.
type FakeCloudController struct {
	Server *httptest.Server

	builder FakeCloudControllerBuilder

	mu         sync.Mutex
	requests   []RecordedRequest
	tokenForms []url.Values
	roots      int
}

// URL returns the base url of the server.
func (f *FakeCloudController) URL() string {
	return f.Server.URL
}

// Requests returns the recorded v3 requests with the /v3 prefix removed from the path.
func (f *FakeCloudController) Requests() []RecordedRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]RecordedRequest(nil), f.requests...)
}

// LastRequest returns the latest v3 request or an empty one.
func (f *FakeCloudController) LastRequest() RecordedRequest {
	requests := f.Requests()
	if len(requests) == 0 {
		return RecordedRequest{}
	}
	return requests[len(requests)-1]
}

// TokenRequests returns the form values of every token request.
func (f *FakeCloudController) TokenRequests() []url.Values {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]url.Values(nil), f.tokenForms...)
}

// RootRequests returns how often the root document was fetched.
func (f *FakeCloudController) RootRequests() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.roots
}

func (f *FakeCloudController) serve(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)

	switch {
	case r.URL.Path == rootPath:
		f.serveRoot(w)
	case r.URL.Path == tokenPath:
		f.serveToken(w, body)
	case strings.HasPrefix(r.URL.Path, apiPrefix):
		path := strings.TrimPrefix(r.URL.Path, apiPrefix)
		f.mu.Lock()
		f.requests = append(f.requests, RecordedRequest{
			Method:   r.Method,
			Path:     path,
			RawQuery: r.URL.RawQuery,
			Header:   r.Header.Clone(),
			Body:     body,
		})
		f.mu.Unlock()

		handler, ok := f.builder.routes[r.Method+" "+path]
		if !ok {
			WriteJSON(w, http.StatusNotFound, ErrorDocument(10000, "CF-NotFound", "Unknown request"))
			return
		}
		handler(w, r)
	default:
		http.NotFound(w, r)
	}
}

func (f *FakeCloudController) serveRoot(w http.ResponseWriter) {
	f.mu.Lock()
	f.roots++
	f.mu.Unlock()

	if f.builder.rootStatus != 0 {
		w.WriteHeader(f.builder.rootStatus)
		return
	}
	links := map[string]any{
		"self":                map[string]any{"href": f.URL()},
		"cloud_controller_v3": map[string]any{"href": f.URL() + apiPrefix},
		"uaa":                 map[string]any{"href": f.URL()},
	}
	if !f.builder.omitLogin {
		links["login"] = map[string]any{"href": f.URL()}
	}
	WriteJSON(w, http.StatusOK, map[string]any{"links": links})
}

func (f *FakeCloudController) serveToken(w http.ResponseWriter, body []byte) {
	form, _ := url.ParseQuery(string(body))
	f.mu.Lock()
	f.tokenForms = append(f.tokenForms, form)
	f.mu.Unlock()

	WriteJSON(w, http.StatusOK, map[string]any{
		"access_token": f.builder.token(),
		"token_type":   "bearer",
	})
}

// WriteJSON writes body as json with the given status.
func WriteJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if body != nil {
		_ = json.NewEncoder(w).Encode(body)
	}
}

// JSONResponse answers with status and body. headers are pairs of name and value.
func JSONResponse(status int, body any, headers ...string) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		for i := 0; i+1 < len(headers); i += 2 {
			w.Header().Set(headers[i], headers[i+1])
		}
		WriteJSON(w, status, body)
	}
}

// StatusResponse answers with status and no body. headers are pairs of name and value.
func StatusResponse(status int, headers ...string) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		for i := 0; i+1 < len(headers); i += 2 {
			w.Header().Set(headers[i], headers[i+1])
		}
		w.WriteHeader(status)
	}
}

// ErrorDocument builds a v3 error document with one entry.
func ErrorDocument(code int, title, detail string) map[string]any {
	return map[string]any{
		"errors": []map[string]any{{"code": code, "title": title, "detail": detail}},
	}
}
