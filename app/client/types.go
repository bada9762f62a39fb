package client

import (
	"errors"
	"fmt"
	"time"
)

const (
	// AuthMessageHeader carries AuthRequired when the session has expired.
	AuthMessageHeader = "X-com-ibm-team-repository-web-auth-msg"
	AuthRequired      = "authrequired"

	ConfigContextParam = "oslc_config.context"

	// MaxAttempts bounds the transport retry loop of a single request.
	MaxAttempts = 2
	// MaxReauth bounds how many times one call re-logs in and resends.
	MaxReauth = 2
	// MaxRedirects bounds the 302 chain followed during login.
	MaxRedirects = 10

	DefaultRetryDelay = 3 * time.Second
	DefaultTimeout    = 5 * time.Minute
)

const (
	authRequiredPath   = "auth/authrequired"
	identityPath       = "authenticated/identity"
	securityCheckPath  = "j_security_check"
	initializationPath = "service/com.ibm.team.repository.service.internal.webuiInitializer.IWebUIInitializerRestService/initializationData"
	logoutPath         = "service/com.ibm.team.repository.service.internal.ILogoutRestService"
	projectsFeedPath   = "service/com.ibm.rqm.integration.service.IIntegrationService/projects"
)

var ErrAuthentication = errors.New("authentication failed")

// HTTPError is a non-success response from the server. For 303 responses
// Detail holds the Content-Location of the existing resource.
type HTTPError struct {
	Method     string
	StatusCode int
	Detail     string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("executing method '%s' (return code = %d): %s", e.Method, e.StatusCode, e.Detail)
}

// Options configures transport behaviour shared by every client of a Registry.
type Options struct {
	Insecure bool
	Timeout  time.Duration
	// RetryDelay defaults to DefaultRetryDelay; a negative value disables it.
	RetryDelay time.Duration
	UserAgent  string
}
