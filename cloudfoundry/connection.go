package cloudfoundry

import (
	"context"
	"crypto/tls"
	"net/http"
	"strings"
	"time"

	"github.com/crossplane/crossplane-runtime/pkg/logging"
	"github.com/pkg/errors"
	"golang.org/x/oauth2"
)

const (
	errMissingAPIHost = "api host must not be empty"

	defaultTimeout = 30 * time.Second
)

// ConnectionContext holds everything that is shared by all clients talking to one Cloud Foundry installation.
type ConnectionContext struct {
	apiHost      string
	httpClient   *http.Client
	log          logging.Logger
	rootProvider *RootProvider
}

// ConnectionOption configures a ConnectionContext.
type ConnectionOption func(*connectionOptions)

type connectionOptions struct {
	skipSSLValidation bool
	timeout           time.Duration
	httpClient        *http.Client
	log               logging.Logger
	debug             bool
}

// WithSkipSSLValidation disables certificate verification of the API and UAA endpoints.
func WithSkipSSLValidation(skip bool) ConnectionOption {
	return func(o *connectionOptions) {
		o.skipSSLValidation = skip
	}
}

// WithTimeout sets the overall timeout of a single HTTP exchange.
func WithTimeout(timeout time.Duration) ConnectionOption {
	return func(o *connectionOptions) {
		o.timeout = timeout
	}
}

// WithHTTPClient replaces the http.Client built from the other options.
func WithHTTPClient(client *http.Client) ConnectionOption {
	return func(o *connectionOptions) {
		o.httpClient = client
	}
}

// WithLogger sets the logger used by the pipeline.
func WithLogger(log logging.Logger) ConnectionOption {
	return func(o *connectionOptions) {
		o.log = log
	}
}

// WithDebug logs every HTTP exchange (redacted) at debug level.
func WithDebug(debug bool) ConnectionOption {
	return func(o *connectionOptions) {
		o.debug = debug
	}
}

// NewConnectionContext creates a ConnectionContext for the API at apiHost, e.g. https://api.example.com.
// A host without scheme is treated as https.
func NewConnectionContext(apiHost string, opts ...ConnectionOption) (*ConnectionContext, error) {
	apiHost = strings.TrimRight(strings.TrimSpace(apiHost), "/")
	if apiHost == "" {
		return nil, errors.New(errMissingAPIHost)
	}
	if !strings.Contains(apiHost, "://") {
		apiHost = "https://" + apiHost
	}

	o := &connectionOptions{
		timeout: defaultTimeout,
		log:     logging.NewNopLogger(),
	}
	for _, applyOpt := range opts {
		applyOpt(o)
	}

	client := o.httpClient
	if client == nil {
		client = &http.Client{
			Timeout:   o.timeout,
			Transport: newTransport(o.skipSSLValidation),
		}
	}
	if o.debug {
		client = DebugPrintHTTPClient(o.log, WithHttpClient(client))
	}

	cc := &ConnectionContext{
		apiHost:    apiHost,
		httpClient: client,
		log:        o.log,
	}
	cc.rootProvider = NewRootProvider(cc)
	return cc, nil
}

func newTransport(skipSSLValidation bool) http.RoundTripper {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	if skipSSLValidation {
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true} //nolint:gosec
	}
	return transport
}

// APIHost returns the normalized API host.
func (c *ConnectionContext) APIHost() string {
	return c.apiHost
}

// HTTPClient returns the client used for every request of this connection.
func (c *ConnectionContext) HTTPClient() *http.Client {
	return c.httpClient
}

// Logger returns the connection logger.
func (c *ConnectionContext) Logger() logging.Logger {
	return c.log
}

// RootProvider returns the provider resolving the advertised API roots.
func (c *ConnectionContext) RootProvider() *RootProvider {
	return c.rootProvider
}

// WithHTTPClientContext stores the connection http.Client under the oauth2.HTTPClient key, so
// token requests share transport, TLS settings and debug logging with API requests.
func (c *ConnectionContext) WithHTTPClientContext(ctx context.Context) context.Context {
	return context.WithValue(ctx, oauth2.HTTPClient, c.httpClient)
}
