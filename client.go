// Licensed under the Apache License, Version 2.0 (the "License"); you may not
// use this file except in compliance with the License. You may obtain a copy of
// the License at
//
//  http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS, WITHOUT
// WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied. See the
// License for the specific language governing permissions and limitations under
// the License.

package couchclient

import (
	"fmt"
	"net/http"

	"github.com/go-kivik/couchclient/chttp"
)

// Client is a CouchDB client. It holds the server's base URL, and the
// credentials and session token used to authenticate requests.
//
// Each Database handle is bound to the authentication state in effect when
// it was created.
type Client struct {
	transport

	baseURL     string
	username    string
	password    string
	authSession string
	proxy       *proxyConfig
}

// transport holds the settings shared by every request, whichever server it
// is sent to.
type transport struct {
	httpClient *http.Client
	userAgents []string
	metrics    *chttp.Metrics
}

// dial returns an unauthenticated transport client for the server at dsn.
// Credentials embedded in dsn are sent with HTTP Basic Auth.
func (t transport) dial(dsn string) (*chttp.Client, error) {
	client, err := chttp.New(t.httpClient, dsn)
	if err != nil {
		return nil, err
	}
	client.UserAgents = append([]string{fmt.Sprintf("couchclient/%s", Version)}, t.userAgents...)
	client.Instrument(t.metrics)
	return client, nil
}

// New returns a client for the server at baseURL. When username is not
// empty, every request carries HTTP Basic Auth credentials. Credentials
// embedded in baseURL are used when username is empty.
func New(baseURL, username, password string, opts ...Option) (*Client, error) {
	u, err := chttp.ParseURL(baseURL)
	if err != nil {
		return nil, err
	}
	if u.User != nil {
		if username == "" {
			username = u.User.Username()
			password, _ = u.User.Password()
		}
		u.User = nil
	}
	c := &Client{
		baseURL:  u.String(),
		username: username,
		password: password,
	}
	for _, opt := range opts {
		opt.apply(c)
	}
	return c, nil
}

// BaseURL returns the server URL, without credentials.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// SetCredentials replaces the credentials used for HTTP Basic Auth. An empty
// username disables Basic Auth.
func (c *Client) SetCredentials(username, password string) {
	c.username = username
	c.password = password
}

// SetAuthSession installs a session token, as returned by
// [Client.CreateSession], to be sent as the AuthSession cookie. An empty
// token removes it.
func (c *Client) SetAuthSession(token string) {
	c.authSession = token
}

// AuthSession returns the installed session token, if any.
func (c *Client) AuthSession() string {
	return c.authSession
}

// newClient builds a transport client reflecting the current configuration.
// When authenticate is false, neither the session cookie nor the
// credentials are attached.
func (c *Client) newClient(authenticate bool) (*chttp.Client, error) {
	client, err := c.dial(c.baseURL)
	if err != nil {
		return nil, err
	}
	if c.proxy != nil {
		if err := client.Auth(c.proxy.authenticator()); err != nil {
			return nil, err
		}
	}
	if !authenticate {
		return client, nil
	}
	if c.authSession != "" {
		if err := client.Auth(&chttp.SessionCookieAuth{Token: c.authSession}); err != nil {
			return nil, err
		}
	}
	if c.username != "" {
		if err := client.Auth(&chttp.BasicAuth{Username: c.username, Password: c.password}); err != nil {
			return nil, err
		}
	}
	return client, nil
}

// Database returns a handle to the named database. The handle uses the
// credentials and session token installed at the time of the call. No
// request is made.
func (c *Client) Database(name string) (*Database, error) {
	if name == "" {
		return nil, missingArg("dbName")
	}
	client, err := c.newClient(true)
	if err != nil {
		return nil, err
	}
	return &Database{
		transport: c.transport,
		client:    client,
		name:      name,
	}, nil
}
