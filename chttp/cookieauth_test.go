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
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"gitlab.com/flimzy/testy"

	kivik "github.com/go-kivik/kivik/v4"
)

func TestSessionCookieAuthAuthenticate(t *testing.T) {
	type tt struct {
		dsn    string
		token  string
		cookie *http.Cookie
		err    string
	}

	tests := testy.NewTable()
	tests.Add("empty token", tt{
		dsn: "http://example.com/",
		err: "chttp: empty session token",
	})
	tests.Add("hostname", tt{
		dsn:    "http://example.com/",
		token:  "abc123",
		cookie: &http.Cookie{Name: kivik.SessionCookieName, Value: "abc123"},
	})
	tests.Add("ip address", tt{
		dsn:    "http://127.0.0.1:5984/",
		token:  "abc123",
		cookie: &http.Cookie{Name: kivik.SessionCookieName, Value: "abc123"},
	})
	tests.Add("single label host", tt{
		dsn:    "http://localhost:5984/",
		token:  "abc123",
		cookie: &http.Cookie{Name: kivik.SessionCookieName, Value: "abc123"},
	})
	tests.Add("mounted below root", tt{
		dsn:    "http://example.com/couch/",
		token:  "abc123",
		cookie: &http.Cookie{Name: kivik.SessionCookieName, Value: "abc123"},
	})

	tests.Run(t, func(t *testing.T, tt tt) {
		c, err := New(nil, tt.dsn)
		if err != nil {
			t.Fatal(err)
		}
		auth := &SessionCookieAuth{Token: tt.token}
		err = c.Auth(auth)
		if !testy.ErrorMatches(tt.err, err) {
			t.Errorf("Unexpected error: %s", err)
		}
		if err != nil {
			return
		}
		if d := testy.DiffInterface(tt.cookie, auth.Cookie()); d != nil {
			t.Error(d)
		}
	})
}

func TestSessionCookieAuthCookieUnauthenticated(t *testing.T) {
	auth := &SessionCookieAuth{Token: "abc123"}
	if cookie := auth.Cookie(); cookie != nil {
		t.Errorf("Unexpected cookie: %v", cookie)
	}
}

func TestSessionCookieAuthRequest(t *testing.T) {
	s := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie(kivik.SessionCookieName)
		if err != nil || cookie.Value != "abc123" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		if r.URL.Path != "/foo/bar" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(s.Close)

	c, err := New(nil, s.URL)
	if err != nil {
		t.Fatal(err)
	}
	if err := c.Auth(&SessionCookieAuth{Token: "abc123"}); err != nil {
		t.Fatal(err)
	}
	if _, err := c.DoError(context.Background(), http.MethodGet, "/foo/bar", nil); err != nil {
		t.Fatal(err)
	}
}

func TestSessionCookieAuthDoesNotTouchCallerJar(t *testing.T) {
	callerJar := newCookieJar()
	client := &http.Client{Jar: callerJar}
	c, err := New(client, "http://example.com/")
	if err != nil {
		t.Fatal(err)
	}
	if err := c.Auth(&SessionCookieAuth{Token: "abc123"}); err != nil {
		t.Fatal(err)
	}
	if cookies := callerJar.Cookies(c.URL()); len(cookies) != 0 {
		t.Errorf("Caller's jar was modified: %v", cookies)
	}
	if client.Jar != callerJar {
		t.Error("Caller's client was modified")
	}
}

func TestSessionCookieAuthString(t *testing.T) {
	auth := &SessionCookieAuth{Token: "YWRtaW46NUJCRjE"}
	want := "[SessionCookieAuth{token:YWR************}]"
	if got := auth.String(); got != want {
		t.Errorf("Unexpected String(): %s", got)
	}
}

func TestStackedAuth(t *testing.T) {
	s := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, _, ok := r.BasicAuth(); !ok {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		if _, err := r.Cookie(kivik.SessionCookieName); err != nil {
			w.WriteHeader(http.StatusForbidden)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(s.Close)

	c, err := New(nil, s.URL)
	if err != nil {
		t.Fatal(err)
	}
	if err := c.Auth(&SessionCookieAuth{Token: "abc123"}); err != nil {
		t.Fatal(err)
	}
	if err := c.Auth(&BasicAuth{Username: "admin", Password: "abc123"}); err != nil {
		t.Fatal(err)
	}
	if _, err := c.DoError(context.Background(), http.MethodGet, "/", nil); err != nil {
		t.Fatal(err)
	}
}
