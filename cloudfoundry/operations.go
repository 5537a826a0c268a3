package cloudfoundry

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/sap/cloudfoundry-client-go/internal"
)

const (
	// UserAgent is sent with every request.
	UserAgent = "cloudfoundry-client-go/v3"

	headerRequestID = "X-Vcap-Request-Id"
	headerLocation  = "Location"

	errResolveRoot   = "cannot resolve cloud controller root"
	errBuildRequest  = "cannot build request"
	errFetchAPIToken = "cannot obtain access token"
	errParseRoot     = "cannot parse cloud controller root"
	errPathSegment   = "invalid path segment %q"
)

// URIBuilder collects the path segments and query parameters of a request relative to the API root.
type URIBuilder struct {
	segments []string
	query    url.Values
}

// PathSegment appends segments to the path, each segment is escaped on its own.
func (b *URIBuilder) PathSegment(segments ...string) *URIBuilder {
	b.segments = append(b.segments, segments...)
	return b
}

// QueryParam sets a query parameter.
func (b *URIBuilder) QueryParam(name string, values ...string) *URIBuilder {
	if b.query == nil {
		b.query = url.Values{}
	}
	b.query[name] = values
	return b
}

func (b *URIBuilder) addQuery(values url.Values) {
	for name, v := range values {
		b.QueryParam(name, v...)
	}
}

// Path returns the escaped path relative to the root, starting with "/".
func (b *URIBuilder) Path() string {
	escaped := make([]string, 0, len(b.segments))
	for _, s := range b.segments {
		escaped = append(escaped, url.PathEscape(s))
	}
	return "/" + strings.Join(escaped, "/")
}

// validate rejects segments that would change the path once resolved.
func (b *URIBuilder) validate() error {
	for _, s := range b.segments {
		if s == "" || s == "." || s == ".." {
			return errors.Errorf(errPathSegment, s)
		}
	}
	return nil
}

func (b *URIBuilder) build(root string) (string, error) {
	u, err := url.Parse(strings.TrimRight(root, "/"))
	if err != nil {
		return "", errors.Wrap(err, errParseRoot)
	}
	u.RawPath = ""
	u.Path = strings.TrimRight(u.Path, "/")
	uri := u.String() + b.Path()
	if len(b.query) > 0 {
		uri += "?" + b.query.Encode()
	}
	return uri, nil
}

// Response describes a completed exchange. The body has already been consumed.
type Response struct {
	StatusCode int
	Header     http.Header
	// Decoded is false when the response carried no body.
	Decoded bool
}

// Operations is the request pipeline shared by all v3 resource clients.
type Operations struct {
	connection    *ConnectionContext
	tokenProvider TokenProvider
	requestTags   map[string]string
}

// NewOperations creates the pipeline. Request tags are added as headers to every request.
func NewOperations(connection *ConnectionContext, tokenProvider TokenProvider, requestTags map[string]string) *Operations {
	tags := make(map[string]string, len(requestTags))
	internal.CopyMaps(tags, requestTags)
	return &Operations{
		connection:    connection,
		tokenProvider: tokenProvider,
		requestTags:   tags,
	}
}

// Get issues a GET and decodes the response into out. Query parameters of request are added to the uri.
func (o *Operations) Get(ctx context.Context, request any, out any, uri func(*URIBuilder)) error {
	_, err := o.exchange(ctx, http.MethodGet, request, nil, out, uri)
	return err
}

// Post issues a POST with body and decodes the response into out.
func (o *Operations) Post(ctx context.Context, body any, out any, uri func(*URIBuilder)) error {
	_, err := o.exchange(ctx, http.MethodPost, nil, body, out, uri)
	return err
}

// PostWithResponse is Post that also returns the response status and headers, e.g. to read a job location.
func (o *Operations) PostWithResponse(ctx context.Context, body any, out any, uri func(*URIBuilder)) (*Response, error) {
	return o.exchange(ctx, http.MethodPost, nil, body, out, uri)
}

// Patch issues a PATCH with body and decodes the response into out.
func (o *Operations) Patch(ctx context.Context, body any, out any, uri func(*URIBuilder)) error {
	_, err := o.exchange(ctx, http.MethodPatch, nil, body, out, uri)
	return err
}

// Delete issues a DELETE and returns the id of the job performing it, or "" if the deletion was synchronous.
func (o *Operations) Delete(ctx context.Context, uri func(*URIBuilder)) (string, error) {
	resp, err := o.exchange(ctx, http.MethodDelete, nil, nil, nil, uri)
	if err != nil {
		return "", err
	}
	return ExtractJobID(resp), nil
}

func (o *Operations) exchange(ctx context.Context, method string, request any, body any, out any, uri func(*URIBuilder)) (*Response, error) {
	req, err := o.newRequest(ctx, method, request, body, uri)
	if err != nil {
		return nil, err
	}

	o.connection.Logger().Debug("Request", "method", method, "url", req.URL.String(), "requestID", req.Header.Get(headerRequestID))

	resp, err := o.connection.HTTPClient().Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode == http.StatusUnauthorized {
		o.tokenProvider.Invalidate()
	}
	if err := checkResponse(resp); err != nil {
		o.connection.Logger().Debug("Request failed", "method", method, "url", req.URL.String(), "status", resp.StatusCode)
		return nil, err
	}

	decoded, err := decodeBody(resp, out)
	if err != nil {
		return nil, err
	}
	return &Response{StatusCode: resp.StatusCode, Header: resp.Header, Decoded: decoded}, nil
}

func (o *Operations) newRequest(ctx context.Context, method string, request any, body any, uri func(*URIBuilder)) (*http.Request, error) {
	builder := &URIBuilder{}
	uri(builder)
	if err := builder.validate(); err != nil {
		return nil, errors.Wrap(err, errBuildRequest)
	}
	if provider, ok := request.(QueryParametersProvider); ok {
		builder.addQuery(provider.QueryParameters())
	}

	root, err := o.connection.RootProvider().Root(ctx, CloudControllerV3)
	if err != nil {
		return nil, errors.Wrap(err, errResolveRoot)
	}
	target, err := builder.build(root)
	if err != nil {
		return nil, err
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, errors.Wrap(err, errEncodeRequest)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return nil, errors.Wrap(err, errBuildRequest)
	}

	token, err := o.tokenProvider.Token(ctx)
	if err != nil {
		return nil, errors.Wrap(err, errFetchAPIToken)
	}

	// Tags go first so they cannot replace the headers set by the pipeline.
	for k, v := range o.requestTags {
		req.Header.Set(k, v)
	}
	req.Header.Set("Accept", contentTypeJSON)
	if body != nil {
		req.Header.Set("Content-Type", contentTypeJSON)
	}
	req.Header.Set("Authorization", "bearer "+token)
	req.Header.Set("User-Agent", UserAgent)
	req.Header.Set(headerRequestID, uuid.NewString())
	return req, nil
}

// decodeBody decodes resp into out and reports whether there was a body to decode.
func decodeBody(resp *http.Response, out any) (bool, error) {
	if out == nil || resp.StatusCode == http.StatusNoContent {
		return false, nil
	}
	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return false, errors.Wrap(err, errDecodeResponse)
	}
	if len(bytes.TrimSpace(payload)) == 0 {
		return false, nil
	}
	if err := json.Unmarshal(payload, out); err != nil {
		return false, errors.Wrap(err, errDecodeResponse)
	}
	return true, nil
}

// ExtractJobID returns the guid of the job referenced by the Location header of resp, or "".
func ExtractJobID(resp *Response) string {
	if resp == nil {
		return ""
	}
	location := resp.Header.Get(headerLocation)
	if location == "" {
		return ""
	}
	u, err := url.Parse(location)
	if err != nil {
		return ""
	}
	segments := strings.Split(strings.Trim(u.Path, "/"), "/")
	if len(segments) < 2 || segments[len(segments)-2] != "jobs" {
		return ""
	}
	return segments[len(segments)-1]
}
