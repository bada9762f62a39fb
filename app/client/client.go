package client

import (
	"bytes"
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"golang.org/x/net/publicsuffix"

	"github.com/lysyi3m/etm-api/app/feed"
	"github.com/lysyi3m/etm-api/app/resource"
)

// Client is an authenticated session against one server. It is not safe for
// concurrent use.
type Client struct {
	serverURL  string
	httpClient *http.Client
	userAgent  string

	username  string
	password  string
	basicAuth bool

	configContext      string
	projectAreaAliases []string

	RetryDelay time.Duration
}

type request struct {
	method      string
	uri         string
	query       string
	body        []byte
	contentType string
}

type response struct {
	status int
	header http.Header
	body   []byte
}

func New(serverURL string, opts Options) (*Client, error) {
	if !strings.HasSuffix(serverURL, "/") {
		serverURL += "/"
	}
	if _, err := url.Parse(serverURL); err != nil {
		return nil, fmt.Errorf("failed to parse server URL: %w", err)
	}

	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return nil, fmt.Errorf("failed to create cookie jar: %w", err)
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	if opts.Insecure {
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}
	}

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	retryDelay := opts.RetryDelay
	switch {
	case retryDelay == 0:
		retryDelay = DefaultRetryDelay
	case retryDelay < 0:
		retryDelay = 0
	}

	return &Client{
		serverURL: serverURL,
		httpClient: &http.Client{
			Jar:       jar,
			Transport: transport,
			Timeout:   timeout,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
		userAgent:  opts.UserAgent,
		RetryDelay: retryDelay,
	}, nil
}

func (c *Client) ServerURL() string {
	return c.serverURL
}

// SetConfigContext scopes every later request to a configuration.
func (c *Client) SetConfigContext(configContext string) {
	c.configContext = configContext
}

func (c *Client) ConfigContext() string {
	return c.configContext
}

// ProjectAreaAliases returns the project areas discovered at login.
func (c *Client) ProjectAreaAliases() []string {
	return c.projectAreaAliases
}

// Get returns the body of uri. 200 and 302 are accepted.
func (c *Client) Get(ctx context.Context, uri, query string) ([]byte, error) {
	resp, err := c.send(ctx, request{method: http.MethodGet, uri: uri, query: query})
	if err != nil {
		return nil, err
	}
	if resp.status != http.StatusOK && resp.status != http.StatusFound {
		return nil, &HTTPError{Method: "get(" + uri + ")", StatusCode: resp.status, Detail: string(resp.body)}
	}
	return resp.body, nil
}

// Put stores xmlContent at uri and returns uri.
func (c *Client) Put(ctx context.Context, uri, xmlContent, query string) (string, error) {
	resp, err := c.send(ctx, request{
		method:      http.MethodPut,
		uri:         uri,
		query:       query,
		body:        []byte(resource.ScrubXML(xmlContent)),
		contentType: "application/xml; charset=UTF-8",
	})
	if err != nil {
		return "", err
	}
	if err := checkWrite("PUT", resp); err != nil {
		return "", err
	}
	return uri, nil
}

// Post sends content and returns the response body.
func (c *Client) Post(ctx context.Context, uri, content, contentType, query string) (string, error) {
	resp, err := c.send(ctx, request{
		method:      http.MethodPost,
		uri:         uri,
		query:       query,
		body:        []byte(resource.ScrubXML(content)),
		contentType: contentType + "; charset=UTF-8",
	})
	if err != nil {
		return "", err
	}
	if err := checkWrite("POST", resp); err != nil {
		return "", err
	}
	return string(resp.body), nil
}

// PostMultipart uploads data as a single file part and returns the
// Content-Location of the created resource, or uri when none is sent.
func (c *Client) PostMultipart(ctx context.Context, uri string, data []byte, filename string) (string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, err := w.CreateFormFile(filename, filename)
	if err != nil {
		return "", fmt.Errorf("failed to create multipart part: %w", err)
	}
	if _, err := part.Write(data); err != nil {
		return "", fmt.Errorf("failed to write multipart part: %w", err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("failed to close multipart body: %w", err)
	}

	resp, err := c.send(ctx, request{
		method:      http.MethodPost,
		uri:         uri,
		body:        buf.Bytes(),
		contentType: w.FormDataContentType(),
	})
	if err != nil {
		return "", err
	}
	if err := checkWrite("POST", resp); err != nil {
		return "", err
	}
	if location := resp.header.Get("Content-Location"); location != "" {
		return location, nil
	}
	return uri, nil
}

// Delete returns the response status without judging it.
func (c *Client) Delete(ctx context.Context, uri, query string) (int, error) {
	resp, err := c.send(ctx, request{method: http.MethodDelete, uri: uri, query: query})
	if err != nil {
		return 0, err
	}
	return resp.status, nil
}

func (c *Client) Head(ctx context.Context, uri, query string) (int, error) {
	resp, err := c.send(ctx, request{method: http.MethodHead, uri: uri, query: query})
	if err != nil {
		return 0, err
	}
	return resp.status, nil
}

func checkWrite(method string, resp *response) error {
	switch resp.status {
	case http.StatusOK, http.StatusCreated:
		return nil
	case http.StatusSeeOther:
		return &HTTPError{Method: method, StatusCode: resp.status, Detail: resp.header.Get("Content-Location")}
	}
	return &HTTPError{Method: method, StatusCode: resp.status, Detail: string(resp.body)}
}

// send runs the retry loop and, when the server reports an expired session,
// logs in again and resends up to MaxReauth times.
func (c *Client) send(ctx context.Context, r request) (*response, error) {
	for reauth := 0; ; reauth++ {
		resp, err := c.retry(ctx, r)
		if err != nil {
			return nil, err
		}

		if resp.header.Get(AuthMessageHeader) != AuthRequired || reauth >= MaxReauth {
			return resp, nil
		}

		slog.Info("Authentication expired, logging in again", "method", r.method, "uri", r.uri)
		if err := c.login(ctx); err != nil {
			return nil, err
		}
	}
}

func (c *Client) retry(ctx context.Context, r request) (*response, error) {
	var (
		resp    *response
		lastErr error
	)

	for attempt := 1; attempt <= MaxAttempts; attempt++ {
		resp, lastErr = c.execute(ctx, r)
		if lastErr == nil && (resp.status < 400 || resp.header.Get(AuthMessageHeader) == AuthRequired) {
			return resp, nil
		}
		if errors.Is(lastErr, context.Canceled) || errors.Is(lastErr, context.DeadlineExceeded) {
			return nil, lastErr
		}

		if lastErr != nil {
			slog.Info("Request failed", "method", r.method, "uri", r.uri, "attempt", attempt, "error", lastErr)
		} else {
			slog.Info("Error received", "method", r.method, "uri", r.uri, "attempt", attempt, "status", resp.status)
		}

		if attempt < MaxAttempts && c.RetryDelay > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(c.RetryDelay):
			}
		}
	}

	if lastErr != nil {
		return nil, fmt.Errorf("failed to execute %s %s: %w", r.method, r.uri, lastErr)
	}
	return resp, nil
}

func (c *Client) execute(ctx context.Context, r request) (*response, error) {
	var body io.Reader
	if r.body != nil {
		body = bytes.NewReader(r.body)
	}

	req, err := http.NewRequestWithContext(ctx, r.method, c.requestURL(r.uri, r.query), body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	c.setHeaders(req)
	if r.contentType != "" {
		req.Header.Set("Content-Type", r.contentType)
	}

	return c.do(req)
}

func (c *Client) do(req *http.Request) (*response, error) {
	res, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()

	data, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	return &response{status: res.StatusCode, header: res.Header, body: data}, nil
}

func (c *Client) setHeaders(req *http.Request) {
	req.Header.Set("Accept", "application/xml")
	req.Header.Set("Referer", c.serverURL)
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
	if c.basicAuth {
		req.SetBasicAuth(c.username, c.password)
	}
}

// requestURL appends query and the configuration context to any query uri
// already carries.
func (c *Client) requestURL(uri, query string) string {
	params := make([]string, 0, 2)
	if query != "" {
		params = append(params, query)
	}
	if c.configContext != "" {
		params = append(params, ConfigContextParam+"="+url.QueryEscape(c.configContext))
	}
	if len(params) == 0 {
		return uri
	}

	sep := "?"
	if strings.Contains(uri, "?") {
		sep = "&"
	}
	return uri + sep + strings.Join(params, "&")
}

// readProjectAreas lists project area aliases through the projects feed.
// Aliases arrive path-escaped in entry IDs and are stored decoded, since
// resource URIs escape them again.
func (c *Client) readProjectAreas(ctx context.Context) ([]string, error) {
	reader := feed.NewReader(c)
	ids, err := reader.IDs(ctx, c.serverURL+projectsFeedPath, "projects", false, feed.IncludeUnset)
	if err != nil {
		return nil, err
	}

	aliases := make([]string, 0, len(ids))
	for _, id := range ids {
		alias, err := url.PathUnescape(id)
		if err != nil {
			slog.Warn("Project area alias is not path-escaped", "alias", id, "error", err)
			alias = id
		}
		aliases = append(aliases, alias)
	}
	return aliases, nil
}
