// Package etmtest runs an in-memory ETM integration service for tests.
package etmtest

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
)

const (
	ContextRoot = "/qm"

	Username = "admin"
	Password = "secret"

	authHeader  = "X-com-ibm-team-repository-web-auth-msg"
	sessionName = "JSESSIONID"

	integrationService = "/service/com.ibm.rqm.integration.service.IIntegrationService"
	attachmentService  = "/service/com.ibm.rqm.planning.service.internal.rest.IAttachmentRestService"
	initializationPath = "/service/com.ibm.team.repository.service.internal.webuiInitializer.IWebUIInitializerRestService/initializationData"
	logoutPath         = "/service/com.ibm.team.repository.service.internal.ILogoutRestService"
)

// Request is one request received by the server.
type Request struct {
	Method   string
	Path     string
	RawQuery string
	Body     string
	Header   http.Header
}

type Options struct {
	// BasicAuth challenges with a Basic realm instead of form login.
	BasicAuth bool
	// PageSize bounds entries per feed page; 0 means a single page.
	PageSize int
	Projects []string
}

type Server struct {
	*httptest.Server

	opts Options

	mu          sync.Mutex
	resources   map[string][]*Resource
	sessions    map[string]bool
	requests    []Request
	expire      int
	failures    int
	failStatus  int
	attachments int
	token       string
}

// New starts a server. Callers must Close it.
func New(opts Options) *Server {
	if len(opts.Projects) == 0 {
		opts.Projects = []string{"JKE"}
	}

	s := &Server{
		opts:      opts,
		resources: make(map[string][]*Resource),
		sessions:  make(map[string]bool),
		token:     "_AAAAAAAAAAAAAAAAAAAAAA",
	}

	gin.SetMode(gin.ReleaseMode)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(s.record)

	setupRoutes(r, s)

	s.Server = httptest.NewServer(r)
	return s
}

func setupRoutes(r *gin.Engine, s *Server) {
	qm := r.Group(ContextRoot)

	qm.GET("/auth/authrequired", s.authRequired)
	qm.GET("/auth/authfailed", s.authFailed)
	qm.GET("/authenticated/identity", s.identity)
	qm.POST("/j_security_check", s.securityCheck)
	qm.GET(initializationPath, s.initializationData)
	qm.POST(logoutPath, s.logout)

	api := qm.Group("")
	api.Use(s.authenticate)
	{
		api.GET(integrationService+"/projects", s.listProjects)
		api.GET(integrationService+"/history", s.history)
		api.GET(integrationService+"/resources/:project/:type", s.listResources)
		api.POST(integrationService+"/resources/:project/:type", s.createAttachment)
		api.GET(integrationService+"/resources/:project/:type/:id", s.getResource)
		api.HEAD(integrationService+"/resources/:project/:type/:id", s.getResource)
		api.PUT(integrationService+"/resources/:project/:type/:id", s.putResource)
		api.DELETE(integrationService+"/resources/:project/:type/:id", s.deleteResource)
		api.GET(attachmentService+"/:id", s.getAttachmentContent)
	}
}

// URL returns the server URL with the context root and a trailing slash.
func (s *Server) URL() string {
	return s.Server.URL + ContextRoot + "/"
}

// Requests returns a copy of everything received so far.
func (s *Server) Requests() []Request {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Request, len(s.requests))
	copy(out, s.requests)
	return out
}

// RequestsTo returns the received requests matching method whose path ends
// with suffix.
func (s *Server) RequestsTo(method, suffix string) []Request {
	var out []Request
	for _, r := range s.Requests() {
		if r.Method == method && strings.HasSuffix(r.Path, suffix) {
			out = append(out, r)
		}
	}
	return out
}

func (s *Server) ResetRequests() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.requests = nil
}

// ExpireNext answers the next n authenticated requests with the auth
// required header and drops every session.
func (s *Server) ExpireNext(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.expire = n
}

// FailNext answers the next n authenticated requests with status.
func (s *Server) FailNext(n, status int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures = n
	s.failStatus = status
}

func (s *Server) record(c *gin.Context) {
	body, _ := readBody(c)

	s.mu.Lock()
	s.requests = append(s.requests, Request{
		Method:   c.Request.Method,
		Path:     c.Request.URL.Path,
		RawQuery: c.Request.URL.RawQuery,
		Body:     string(body),
		Header:   c.Request.Header.Clone(),
	})
	s.mu.Unlock()

	c.Next()
}
