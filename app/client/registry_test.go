package client

import (
	"context"
	"net/http"
	"strings"
	"testing"

	"github.com/lysyi3m/etm-api/app/etmtest"
)

func TestRegistry_Get_CachesPerServer(t *testing.T) {
	srv := etmtest.New(etmtest.Options{})
	defer srv.Close()

	ctx := context.Background()
	registry := NewRegistry(testOptions)
	defer registry.Close(ctx)

	first, err := registry.Get(ctx, srv.URL(), etmtest.Username, etmtest.Password)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	second, err := registry.Get(ctx, srv.URL(), etmtest.Username, etmtest.Password)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if first != second {
		t.Error("Expected the cached client to be returned")
	}
	if got := len(srv.RequestsTo(http.MethodPost, "/j_security_check")); got != 1 {
		t.Errorf("Expected 1 login, got %d", got)
	}
}

func TestRegistry_Get_UnsupportedContextRoot(t *testing.T) {
	srv := etmtest.New(etmtest.Options{})
	defer srv.Close()

	registry := NewRegistry(testOptions)

	_, err := registry.Get(context.Background(), srv.Server.URL+"/rm/", etmtest.Username, etmtest.Password)
	if err == nil {
		t.Fatal("Expected error for unsupported context root")
	}
	if !strings.Contains(err.Error(), "unsupported context root 'rm'") {
		t.Errorf("Expected unsupported context root error, got %v", err)
	}
	if got := len(srv.Requests()); got != 0 {
		t.Errorf("Expected no requests, got %d", got)
	}
}

func TestRegistry_Close_LogsOut(t *testing.T) {
	srv := etmtest.New(etmtest.Options{})
	defer srv.Close()

	ctx := context.Background()
	registry := NewRegistry(testOptions)

	if _, err := registry.Get(ctx, srv.URL(), etmtest.Username, etmtest.Password); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	registry.Close(ctx)

	if got := len(srv.RequestsTo(http.MethodPost, "ILogoutRestService")); got != 1 {
		t.Errorf("Expected 1 logout, got %d", got)
	}
}
