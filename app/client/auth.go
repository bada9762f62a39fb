package client

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
)

// Login authenticates with username and password and, on the first login,
// discovers the project area aliases.
func (c *Client) Login(ctx context.Context, username, password string) error {
	c.username = username
	c.password = password

	if err := c.login(ctx); err != nil {
		return err
	}

	if c.projectAreaAliases == nil {
		aliases, err := c.readProjectAreas(ctx)
		if err != nil {
			return fmt.Errorf("failed to read project areas: %w", err)
		}
		c.projectAreaAliases = aliases
	}

	return nil
}

// login negotiates basic or form authentication. Requests here bypass the
// retry loop since they drive the session state themselves.
func (c *Client) login(ctx context.Context) error {
	resp, err := c.plain(ctx, http.MethodGet, c.serverURL+authRequiredPath, nil, "")
	if err != nil {
		return fmt.Errorf("failed to probe authentication: %w", err)
	}
	if _, err := c.followRedirects(ctx, resp); err != nil {
		return err
	}

	identity, err := c.plain(ctx, http.MethodGet, c.serverURL+identityPath, nil, "")
	if err != nil {
		return fmt.Errorf("failed to probe identity: %w", err)
	}
	identity, err = c.followRedirects(ctx, identity)
	if err != nil {
		return err
	}

	var status int
	var body []byte
	challenge := strings.ToLower(identity.header.Get("WWW-Authenticate"))

	if identity.status == http.StatusUnauthorized && strings.HasPrefix(challenge, "basic realm") {
		c.basicAuth = true
		resp, err := c.plain(ctx, http.MethodGet, c.serverURL+identityPath, nil, "")
		if err != nil {
			return fmt.Errorf("failed to authenticate: %w", err)
		}
		status, body = resp.status, resp.body
	} else {
		form := url.Values{}
		form.Set("j_username", c.username)
		form.Set("j_password", c.password)

		resp, err = c.plain(ctx, http.MethodPost, c.serverURL+securityCheckPath,
			[]byte(form.Encode()), "application/x-www-form-urlencoded; charset=utf-8")
		if err != nil {
			return fmt.Errorf("failed to authenticate: %w", err)
		}
		status, body = resp.status, resp.body
		if strings.Contains(resp.header.Get("Location"), "authfailed") {
			status = http.StatusUnauthorized
		}
		if status == http.StatusOK || status == http.StatusFound {
			if _, err := c.followRedirects(ctx, resp); err != nil {
				return err
			}
		}
	}

	if status != http.StatusOK && status != http.StatusFound {
		slog.Error("Login failed", "server", c.serverURL, "status", status, "body", string(body))
		return fmt.Errorf("%w: error logging into server '%s' (return code = %d)", ErrAuthentication, c.serverURL, status)
	}

	initData, err := c.plain(ctx, http.MethodGet, c.serverURL+initializationPath, nil, "")
	if err != nil {
		return fmt.Errorf("failed to initialize session: %w", err)
	}
	if _, err := c.followRedirects(ctx, initData); err != nil {
		return err
	}

	slog.Debug("Logged in", "server", c.serverURL, "basic_auth", c.basicAuth)

	return nil
}

// Logout ends the session. Failures are logged and never returned.
func (c *Client) Logout(ctx context.Context) int {
	resp, err := c.plain(ctx, http.MethodPost, c.serverURL+logoutPath, nil, "")
	if err != nil {
		slog.Error("Log out error", "server", c.serverURL, "error", err)
		return 0
	}
	if resp.status >= 400 {
		slog.Error("Log out error", "server", c.serverURL, "status", resp.status, "body", string(resp.body))
	}
	return resp.status
}

// followRedirects walks a chain of at most MaxRedirects 302 responses and
// returns the final one.
func (c *Client) followRedirects(ctx context.Context, resp *response) (*response, error) {
	for hops := 0; resp.status == http.StatusFound; hops++ {
		location := resp.header.Get("Location")
		if location == "" {
			break
		}
		if hops == MaxRedirects {
			return nil, fmt.Errorf("stopped after %d redirects at %s", MaxRedirects, location)
		}

		next, err := c.plain(ctx, http.MethodGet, c.resolve(location), nil, "")
		if err != nil {
			return nil, fmt.Errorf("failed to follow redirect to %s: %w", location, err)
		}
		if next.status != http.StatusOK && next.status != http.StatusFound {
			slog.Debug("Redirect after login returned unexpected status", "location", location, "status", next.status)
		}
		resp = next
	}
	return resp, nil
}

func (c *Client) resolve(location string) string {
	base, err := url.Parse(c.serverURL)
	if err != nil {
		return location
	}
	ref, err := url.Parse(location)
	if err != nil {
		return location
	}
	return base.ResolveReference(ref).String()
}

func (c *Client) plain(ctx context.Context, method, uri string, body []byte, contentType string) (*response, error) {
	return c.execute(ctx, request{method: method, uri: uri, body: body, contentType: contentType})
}
