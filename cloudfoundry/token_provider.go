package cloudfoundry

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt"
	"github.com/pkg/errors"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

const (
	errFetchToken     = "cannot fetch access token"
	errTokenEndpoint  = "cannot resolve token endpoint"
	errEmptyToken     = "token endpoint returned an empty access token"
	tokenPath         = "/oauth/token"
	expiryDelta       = 10 * time.Second
	fallbackTokenLife = 5 * time.Minute
)

// TokenProvider supplies access tokens for API requests.
type TokenProvider interface {
	// Token returns a bearer access token, fetching a new one when the cached one expired.
	Token(ctx context.Context) (string, error)
	// Invalidate drops the cached token, the next Token call fetches a fresh one.
	Invalidate()
}

// StaticTokenProvider always returns the same token.
type StaticTokenProvider string

// Token returns the static token.
func (s StaticTokenProvider) Token(context.Context) (string, error) {
	if s == "" {
		return "", errors.New(errEmptyToken)
	}
	return strings.TrimPrefix(string(s), "bearer "), nil
}

// Invalidate is a no-op.
func (s StaticTokenProvider) Invalidate() {}

// tokenFetcher performs the grant against the resolved token endpoint.
type tokenFetcher func(ctx context.Context, tokenURL string) (*oauth2.Token, error)

// UAATokenProvider obtains tokens from the UAA advertised by the API root and caches them until expiry.
type UAATokenProvider struct {
	connection *ConnectionContext
	fetch      tokenFetcher
	now        func() time.Time

	mu    sync.Mutex
	token *oauth2.Token
}

var _ TokenProvider = &UAATokenProvider{}

// NewTokenProvider creates a UAATokenProvider using the password grant, or the client_credentials
// grant when credentials.GrantType is "client_credentials".
func NewTokenProvider(connection *ConnectionContext, credentials Credentials) (*UAATokenProvider, error) {
	if err := credentials.Validate(); err != nil {
		return nil, err
	}
	return newUAATokenProvider(connection, clientCredentialsFetcher(credentials)), nil
}

func newUAATokenProvider(connection *ConnectionContext, fetch tokenFetcher) *UAATokenProvider {
	return &UAATokenProvider{
		connection: connection,
		fetch:      fetch,
		now:        time.Now,
	}
}

// clientCredentialsFetcher uses the client_credentials config for both grants, the grant type is
// overridden through the endpoint params for the password grant.
func clientCredentialsFetcher(credentials Credentials) tokenFetcher {
	return func(ctx context.Context, tokenURL string) (*oauth2.Token, error) {
		config := &clientcredentials.Config{
			ClientID:       credentials.clientID(),
			ClientSecret:   credentials.ClientSecret,
			TokenURL:       tokenURL,
			EndpointParams: authenticationParams(credentials),
			AuthStyle:      oauth2.AuthStyleInHeader,
		}
		return config.Token(ctx)
	}
}

// Token returns a cached token while it is valid, otherwise a freshly fetched one.
func (p *UAATokenProvider) Token(ctx context.Context) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.valid() {
		return p.token.AccessToken, nil
	}

	tokenURL, err := p.tokenURL(ctx)
	if err != nil {
		return "", err
	}

	token, err := p.fetch(p.connection.WithHTTPClientContext(ctx), tokenURL)
	if err != nil {
		return "", errors.Wrap(err, errFetchToken)
	}
	if token == nil || token.AccessToken == "" {
		return "", errors.New(errEmptyToken)
	}
	if token.Expiry.IsZero() {
		token.Expiry = p.expiryFromJWT(token.AccessToken)
	}
	p.token = token
	p.connection.Logger().Debug("Fetched access token", "tokenURL", tokenURL, "expiry", token.Expiry)
	return token.AccessToken, nil
}

// Invalidate drops the cached token.
func (p *UAATokenProvider) Invalidate() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.token = nil
}

func (p *UAATokenProvider) valid() bool {
	if p.token == nil || p.token.AccessToken == "" {
		return false
	}
	return p.now().Add(expiryDelta).Before(p.token.Expiry)
}

func (p *UAATokenProvider) tokenURL(ctx context.Context) (string, error) {
	root, err := p.connection.RootProvider().Root(ctx, Login)
	if err != nil {
		root, err = p.connection.RootProvider().Root(ctx, UAA)
	}
	if err != nil {
		return "", errors.Wrap(err, errTokenEndpoint)
	}
	return strings.TrimRight(root, "/") + tokenPath, nil
}

// expiryFromJWT reads the exp claim without verifying the signature, UAA is trusted through TLS.
// Tokens without a readable exp claim are kept for a short fixed period.
func (p *UAATokenProvider) expiryFromJWT(accessToken string) time.Time {
	token, _, err := new(jwt.Parser).ParseUnverified(accessToken, jwt.MapClaims{})
	if err == nil {
		if claims, ok := token.Claims.(jwt.MapClaims); ok {
			if exp, ok := claims["exp"].(float64); ok {
				return time.Unix(int64(exp), 0)
			}
		}
	}
	return p.now().Add(fallbackTokenLife)
}
