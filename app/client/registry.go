package client

import (
	"context"
	"fmt"
	"net/url"
	"strings"
)

var supportedContextRoots = map[string]bool{
	"qm":   true,
	"jazz": true,
}

// Registry hands out one logged-in Client per server URL. Entries live for
// the lifetime of the registry.
type Registry struct {
	opts    Options
	clients map[string]*Client
}

func NewRegistry(opts Options) *Registry {
	return &Registry{
		opts:    opts,
		clients: make(map[string]*Client),
	}
}

// Get returns the cached client for serverURL or creates one and logs in.
func (r *Registry) Get(ctx context.Context, serverURL, username, password string) (*Client, error) {
	if c, ok := r.clients[serverURL]; ok {
		return c, nil
	}

	u, err := url.Parse(serverURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse server URL: %w", err)
	}
	contextRoot := strings.ToLower(strings.Trim(u.Path, "/"))
	if !supportedContextRoots[contextRoot] {
		return nil, fmt.Errorf("unsupported context root '%s' in server URL '%s'", contextRoot, serverURL)
	}

	c, err := New(serverURL, r.opts)
	if err != nil {
		return nil, err
	}
	if err := c.Login(ctx, username, password); err != nil {
		return nil, err
	}

	r.clients[serverURL] = c
	return c, nil
}

// Close logs out every client.
func (r *Registry) Close(ctx context.Context) {
	for _, c := range r.clients {
		c.Logout(ctx)
	}
}
