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
	"net/http"

	"github.com/go-kivik/couchclient/chttp"
)

// Option configures a [Client].
type Option interface {
	apply(*Client)
}

type optionFunc func(*Client)

func (f optionFunc) apply(c *Client) { f(c) }

// WithHTTPClient sets the *http.Client used as a template for outbound
// requests. Its transport, timeout and redirect policy are honored. The
// client is copied before use, and never modified.
func WithHTTPClient(client *http.Client) Option {
	return optionFunc(func(c *Client) {
		c.httpClient = client
	})
}

// WithUserAgent appends the provided product tokens, such as "myapp/1.2.3",
// to the User-Agent header.
func WithUserAgent(ua ...string) Option {
	return optionFunc(func(c *Client) {
		c.userAgents = append(c.userAgents, ua...)
	})
}

// WithMetrics records every outbound request in m.
func WithMetrics(m *chttp.Metrics) Option {
	return optionFunc(func(c *Client) {
		c.metrics = m
	})
}

// WithProxyAuth authenticates as a trusted proxy, passing the user name and
// roles in request headers. When secret is non-empty, the matching
// X-Auth-CouchDB-Token header is sent as well.
func WithProxyAuth(username, secret string, roles []string) Option {
	return optionFunc(func(c *Client) {
		c.proxy = &proxyConfig{
			username: username,
			secret:   secret,
			roles:    roles,
		}
	})
}

type proxyConfig struct {
	username string
	secret   string
	roles    []string
}

func (p *proxyConfig) authenticator() *chttp.ProxyAuth {
	return &chttp.ProxyAuth{
		Username: p.username,
		Secret:   p.secret,
		Roles:    p.roles,
	}
}
