// Package githubapi talks to the GitHub REST API: request execution with
// rate-limit observation, and discovery of open pull requests.
package githubapi

import (
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/bradleyfalzon/ghinstallation/v2"
	gogithub "github.com/google/go-github/v68/github"
	"github.com/hashicorp/go-cleanhttp"
)

// DefaultRequestTimeout bounds every single request.
const DefaultRequestTimeout = 30 * time.Second

// Auth selects how requests are authenticated. All fields are optional;
// unauthenticated access works with a lower quota.
type Auth struct {
	Token          string
	User           string
	Password       string
	AppID          int64
	InstallationID int64
	PrivateKeyPath string
}

// Authenticated reports whether any credentials are configured.
func (a Auth) Authenticated() bool {
	return a.Token != "" || (a.User != "" && a.Password != "") || a.usesApp()
}

func (a Auth) usesApp() bool {
	return a.AppID != 0 && a.InstallationID != 0 && a.PrivateKeyPath != ""
}

// NewHTTPClient returns the client shared read-only by every request of a
// run. App installation and basic credentials are applied at the transport.
func NewHTTPClient(auth Auth, timeout time.Duration) (*http.Client, error) {
	hc := NewAnonymousHTTPClient(timeout)

	switch {
	case auth.usesApp():
		tr, err := ghinstallation.NewKeyFromFile(hc.Transport, auth.AppID, auth.InstallationID, auth.PrivateKeyPath)
		if err != nil {
			return nil, fmt.Errorf("creating github app transport: %w", err)
		}
		hc.Transport = tr
	case auth.User != "" && auth.Password != "":
		hc.Transport = &gogithub.BasicAuthTransport{
			Username:  auth.User,
			Password:  auth.Password,
			Transport: hc.Transport,
		}
	}
	return hc, nil
}

// NewAnonymousHTTPClient returns a pooled client whose transport carries no
// credentials, for requests that must go out unauthenticated.
func NewAnonymousHTTPClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = DefaultRequestTimeout
	}
	hc := cleanhttp.DefaultPooledClient()
	hc.Timeout = timeout
	return hc
}

// NewClient builds a go-github client on top of hc. baseURL is optional and
// points the client at a GitHub Enterprise host or a test server.
func NewClient(hc *http.Client, auth Auth, baseURL string) (*gogithub.Client, error) {
	client := gogithub.NewClient(hc)
	if auth.Token != "" && !auth.usesApp() {
		client = client.WithAuthToken(auth.Token)
	}
	if baseURL != "" {
		u, err := url.Parse(strings.TrimSuffix(baseURL, "/") + "/")
		if err != nil {
			return nil, fmt.Errorf("parsing api base url: %w", err)
		}
		client.BaseURL = u
	}
	return client, nil
}
