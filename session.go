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
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/ajg/form"
	"github.com/pkg/errors"

	"github.com/go-kivik/couchclient/chttp"
)

// Session is the result of a successful login.
type Session struct {
	// Cookie is the session cookie issued by the server. Its Value is the
	// token to pass to [Client.SetAuthSession]. When the server does not
	// scope the cookie to a domain, Domain is set to the host of the
	// client's base URL.
	Cookie *http.Cookie
	// Body is the raw response body, which describes the authenticated user.
	Body json.RawMessage
}

// Token returns the session token.
func (s *Session) Token() string {
	return s.Cookie.Value
}

type loginForm struct {
	Name     string `form:"name"`
	Password string `form:"password"`
}

// CreateSession logs in with the provided credentials. It does not install
// the resulting token; pass Session.Token() to [Client.SetAuthSession] to use
// it.
//
// Any status other than 200 results in an [*AuthenticationError], as does a
// response without a Set-Cookie header.
func (c *Client) CreateSession(ctx context.Context, username, password string) (*Session, error) {
	body, err := form.EncodeToString(&loginForm{Name: username, Password: password})
	if err != nil {
		return nil, chttp.WithStatus(http.StatusBadRequest, errors.Wrap(err, "encode login form"))
	}
	client, err := c.newClient(false)
	if err != nil {
		return nil, err
	}
	opts := &chttp.Options{
		ContentType: chttp.TypeForm,
		Body:        io.NopCloser(strings.NewReader(body)),
		Header: http.Header{
			chttp.HeaderIdempotencyKey: []string{},
		},
	}
	res, err := client.DoReq(ctx, http.MethodPost, pathSession, opts)
	if err != nil {
		return nil, err
	}
	if res.StatusCode != http.StatusOK {
		return nil, loginError(res)
	}
	defer chttp.CloseBody(res.Body)
	cookie, err := sessionCookie(res, client.URL())
	if err != nil {
		return nil, err
	}
	raw, err := chttp.ReadBody(res)
	if err != nil {
		return nil, err
	}
	return &Session{
		Cookie: cookie,
		Body:   raw,
	}, nil
}

func loginError(res *http.Response) error {
	authErr := &AuthenticationError{Status: res.StatusCode}
	var httpErr *chttp.HTTPError
	if errors.As(chttp.ResponseError(res), &httpErr) {
		authErr.Reason = httpErr.Reason
	}
	chttp.CloseBody(res.Body)
	return authErr
}

// sessionCookie parses the first Set-Cookie header of res.
func sessionCookie(res *http.Response, base *url.URL) (*http.Cookie, error) {
	header := res.Header.Values("Set-Cookie")
	if len(header) == 0 {
		return nil, &AuthenticationError{
			Status: http.StatusBadGateway,
			Reason: "no session cookie in response",
		}
	}
	cookie, err := http.ParseSetCookie(header[0])
	if err != nil {
		return nil, &AuthenticationError{
			Status: http.StatusBadGateway,
			Reason: err.Error(),
		}
	}
	if cookie.Domain == "" {
		cookie.Domain = base.Hostname()
	}
	return cookie, nil
}

// GetSession returns the raw response of GET /_session, whatever its status.
// An error is returned only when no response was received.
func (c *Client) GetSession(ctx context.Context) ([]byte, error) {
	client, err := c.newClient(true)
	if err != nil {
		return nil, err
	}
	res, err := client.DoReq(ctx, http.MethodGet, pathSession, nil)
	if err != nil {
		return nil, err
	}
	return chttp.ReadBody(res)
}

// SessionInfo describes the authenticated user, as reported by the server.
type SessionInfo struct {
	Name                   string
	Roles                  []string
	AuthenticationMethod   string
	AuthenticationDB       string
	AuthenticationHandlers []string
	// RawResponse is the complete response body.
	RawResponse json.RawMessage
}

type session struct {
	Data    json.RawMessage `json:"-"`
	Info    authInfo        `json:"info"`
	UserCtx userContext     `json:"userCtx"`
}

type authInfo struct {
	AuthenticationMethod   string   `json:"authenticated"`
	AuthenticationDB       string   `json:"authentication_db"`
	AuthenticationHandlers []string `json:"authentication_handlers"`
}

type userContext struct {
	Name  string   `json:"name"`
	Roles []string `json:"roles"`
}

func (s *session) UnmarshalJSON(data []byte) error {
	type alias session
	var a alias
	if err := json.Unmarshal(data, &a); err != nil {
		return err
	}
	*s = session(a)
	s.Data = append(json.RawMessage(nil), data...)
	return nil
}

// Session returns the decoded GET /_session response. Unlike
// [Client.GetSession], an error status results in an error.
func (c *Client) Session(ctx context.Context) (*SessionInfo, error) {
	client, err := c.newClient(true)
	if err != nil {
		return nil, err
	}
	s := &session{}
	if err := client.DoJSON(ctx, http.MethodGet, pathSession, nil, s); err != nil {
		return nil, err
	}
	return &SessionInfo{
		Name:                   s.UserCtx.Name,
		Roles:                  s.UserCtx.Roles,
		AuthenticationMethod:   s.Info.AuthenticationMethod,
		AuthenticationDB:       s.Info.AuthenticationDB,
		AuthenticationHandlers: s.Info.AuthenticationHandlers,
		RawResponse:            s.Data,
	}, nil
}

// DeleteSession logs out of the installed session, and removes the token
// from the client.
func (c *Client) DeleteSession(ctx context.Context) error {
	client, err := c.newClient(true)
	if err != nil {
		return err
	}
	if _, err := client.DoError(ctx, http.MethodDelete, pathSession, nil); err != nil {
		return err
	}
	c.authSession = ""
	return nil
}
