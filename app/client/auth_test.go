package client

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"reflect"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/lysyi3m/etm-api/app/etmtest"
	"github.com/lysyi3m/etm-api/app/feed"
	"github.com/lysyi3m/etm-api/app/resource"
)

var testOptions = Options{RetryDelay: -1}

func login(t *testing.T, srv *etmtest.Server) *Client {
	t.Helper()

	c, err := New(srv.URL(), testOptions)
	if err != nil {
		t.Fatalf("Expected no error creating client, got %v", err)
	}
	if err := c.Login(context.Background(), etmtest.Username, etmtest.Password); err != nil {
		t.Fatalf("Expected no error logging in, got %v", err)
	}
	return c
}

func TestLogin_Form(t *testing.T) {
	srv := etmtest.New(etmtest.Options{Projects: []string{"JKE", "Money That Matters"}})
	defer srv.Close()

	c := login(t, srv)

	if got := len(srv.RequestsTo(http.MethodPost, "/j_security_check")); got != 1 {
		t.Errorf("Expected 1 form login, got %d", got)
	}
	if c.basicAuth {
		t.Error("Expected form authentication, got basic")
	}

	expected := []string{"JKE", "Money That Matters"}
	if !reflect.DeepEqual(c.ProjectAreaAliases(), expected) {
		t.Errorf("Expected aliases %v, got %v", expected, c.ProjectAreaAliases())
	}
}

func TestLogin_Basic(t *testing.T) {
	srv := etmtest.New(etmtest.Options{BasicAuth: true})
	defer srv.Close()

	c := login(t, srv)

	if !c.basicAuth {
		t.Error("Expected basic authentication")
	}
	if got := len(srv.RequestsTo(http.MethodPost, "/j_security_check")); got != 0 {
		t.Errorf("Expected no form login, got %d", got)
	}

	projects := srv.RequestsTo(http.MethodGet, "/projects")
	if len(projects) != 1 {
		t.Fatalf("Expected 1 projects request, got %d", len(projects))
	}
	if projects[0].Header.Get("Authorization") == "" {
		t.Error("Expected Authorization header on projects request")
	}
}

func TestLogin_BadCredentials(t *testing.T) {
	tests := []struct {
		name string
		opts etmtest.Options
	}{
		{name: "form", opts: etmtest.Options{}},
		{name: "basic", opts: etmtest.Options{BasicAuth: true}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := etmtest.New(tt.opts)
			defer srv.Close()

			c, err := New(srv.URL(), testOptions)
			if err != nil {
				t.Fatalf("Expected no error creating client, got %v", err)
			}

			err = c.Login(context.Background(), etmtest.Username, "wrong")
			if !errors.Is(err, ErrAuthentication) {
				t.Fatalf("Expected ErrAuthentication, got %v", err)
			}
			if c.ProjectAreaAliases() != nil {
				t.Errorf("Expected no aliases after failed login, got %v", c.ProjectAreaAliases())
			}
		})
	}
}

func TestLogout(t *testing.T) {
	srv := etmtest.New(etmtest.Options{})
	defer srv.Close()

	c := login(t, srv)

	if status := c.Logout(context.Background()); status != http.StatusOK {
		t.Errorf("Expected logout status 200, got %d", status)
	}
}

func TestLogin_DiscoveredProjectAreaFeed(t *testing.T) {
	srv := etmtest.New(etmtest.Options{Projects: []string{"Money That Matters"}})
	defer srv.Close()
	srv.AddResource("Money That Matters", "testcase", "1", testCaseXML)

	c := login(t, srv)

	aliases := c.ProjectAreaAliases()
	if len(aliases) != 1 || aliases[0] != "Money That Matters" {
		t.Fatalf("Expected decoded alias Money That Matters, got %v", aliases)
	}

	feedURI := resource.FeedURI(c.ServerURL(), aliases[0], "testcase")
	ids, err := feed.NewReader(c).IDs(context.Background(), feedURI, "testcase", false, feed.IncludeUnset)
	if err != nil {
		t.Fatalf("Expected no error reading IDs, got %v", err)
	}
	if !reflect.DeepEqual(ids, []string{"1"}) {
		t.Errorf("Expected IDs [1] in discovered project area, got %v", ids)
	}
}

func TestLogin_RedirectLoop(t *testing.T) {
	var requests atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		w.Header().Set("Location", r.URL.Path)
		w.WriteHeader(http.StatusFound)
	}))
	defer srv.Close()

	c, err := New(srv.URL+"/qm/", testOptions)
	if err != nil {
		t.Fatalf("Expected no error creating client, got %v", err)
	}

	err = c.Login(context.Background(), etmtest.Username, etmtest.Password)
	if err == nil || !strings.Contains(err.Error(), "redirects") {
		t.Fatalf("Expected redirect limit error, got %v", err)
	}
	if got := requests.Load(); got != 1+MaxRedirects {
		t.Errorf("Expected %d requests, got %d", 1+MaxRedirects, got)
	}
}
