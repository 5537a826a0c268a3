package cloudfoundry

import (
	"context"
	"net/http"
	"sync"

	"github.com/pkg/errors"
	"golang.org/x/sync/singleflight"
)

const (
	// CloudControllerV3 is the root key of the v3 API.
	CloudControllerV3 = "cloud_controller_v3"
	// Login is the root key of the login server.
	Login = "login"
	// UAA is the root key of the UAA server.
	UAA = "uaa"

	errResolveRoots = "cannot resolve api roots"
	errUnknownRoot  = "api does not advertise a %q root"
)

type rootResponse struct {
	Links map[string]*Link `json:"links"`
}

// RootProvider resolves the links advertised at the API host root. The first successful
// lookup is cached for the lifetime of the provider.
type RootProvider struct {
	connection *ConnectionContext

	group singleflight.Group
	mu    sync.RWMutex
	links map[string]*Link
}

// NewRootProvider creates a RootProvider for the given connection.
func NewRootProvider(connection *ConnectionContext) *RootProvider {
	return &RootProvider{connection: connection}
}

// Root returns the href advertised for key, e.g. CloudControllerV3.
func (p *RootProvider) Root(ctx context.Context, key string) (string, error) {
	links, err := p.resolve(ctx)
	if err != nil {
		return "", err
	}
	link, ok := links[key]
	if !ok || link == nil || link.Href == "" {
		return "", errors.Errorf(errUnknownRoot, key)
	}
	return link.Href, nil
}

func (p *RootProvider) cached() map[string]*Link {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.links
}

func (p *RootProvider) resolve(ctx context.Context) (map[string]*Link, error) {
	if links := p.cached(); links != nil {
		return links, nil
	}

	// The lookup is shared, so it must not end with the caller that started it.
	// The http client timeout still bounds it.
	shared := context.WithoutCancel(ctx)
	ch := p.group.DoChan("root", func() (interface{}, error) {
		if links := p.cached(); links != nil {
			return links, nil
		}
		links, err := p.fetch(shared)
		if err != nil {
			return nil, err
		}
		p.mu.Lock()
		p.links = links
		p.mu.Unlock()
		return links, nil
	})
	select {
	case <-ctx.Done():
		return nil, errors.Wrap(ctx.Err(), errResolveRoots)
	case res := <-ch:
		if res.Err != nil {
			return nil, errors.Wrap(res.Err, errResolveRoots)
		}
		return res.Val.(map[string]*Link), nil
	}
}

func (p *RootProvider) fetch(ctx context.Context) (map[string]*Link, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.connection.APIHost()+"/", nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", contentTypeJSON)

	resp, err := p.connection.HTTPClient().Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close() //nolint:errcheck

	if err := checkResponse(resp); err != nil {
		return nil, err
	}

	var root rootResponse
	if err := json.NewDecoder(resp.Body).Decode(&root); err != nil {
		return nil, errors.Wrap(err, errDecodeResponse)
	}
	if root.Links == nil {
		root.Links = map[string]*Link{}
	}
	p.connection.Logger().Debug("Resolved api roots", "host", p.connection.APIHost(), "roots", len(root.Links))
	return root.Links, nil
}
