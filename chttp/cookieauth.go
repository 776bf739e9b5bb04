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

package chttp

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/pkg/errors"

	kivik "github.com/go-kivik/kivik/v4"
)

// SessionCookieAuth authenticates requests with an existing CouchDB session
// token, as returned by POST /_session in the AuthSession cookie. It does not
// log in, and never refreshes the token.
//
// The client is given a fresh cookie jar holding only the session cookie, so
// a jar shared with the caller's *http.Client is never written to.
type SessionCookieAuth struct {
	Token string

	client *Client
}

var _ Authenticator = &SessionCookieAuth{}

func (a *SessionCookieAuth) String() string {
	token := a.Token
	const unmaskedLen = 3
	if len(token) > unmaskedLen {
		token = token[:unmaskedLen] + strings.Repeat("*", len(token)-unmaskedLen)
	}
	return fmt.Sprintf("[SessionCookieAuth{token:%s}]", token)
}

// Authenticate stores the session cookie for the client's server.
func (a *SessionCookieAuth) Authenticate(c *Client) error {
	if a.Token == "" {
		return errors.New("chttp: empty session token")
	}
	a.client = c
	jar := newCookieJar()
	// No Domain attribute: a host-only cookie also works for IP addresses
	// and single-label hosts like localhost.
	jar.SetCookies(c.dsn, []*http.Cookie{{
		Name:  kivik.SessionCookieName,
		Value: a.Token,
		Path:  "/",
	}})
	c.Jar = jar
	return nil
}

// Cookie returns the session cookie the client will send, or nil before
// Authenticate has been called.
func (a *SessionCookieAuth) Cookie() *http.Cookie {
	if a.client == nil || a.client.Jar == nil {
		return nil
	}
	for _, cookie := range a.client.Jar.Cookies(a.client.dsn) {
		if cookie.Name == kivik.SessionCookieName {
			return cookie
		}
	}
	return nil
}
