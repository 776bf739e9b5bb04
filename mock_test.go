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
	"io"
	"net/http"
	"strings"
	"testing"
)

type customTransport func(*http.Request) (*http.Response, error)

var _ http.RoundTripper = customTransport(nil)

func (c customTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	return c(req)
}

// newCustomClient returns a client for http://example.com/ whose requests
// are answered by fn.
func newCustomClient(t *testing.T, fn func(*http.Request) (*http.Response, error), opts ...Option) *Client {
	t.Helper()
	opts = append([]Option{WithHTTPClient(&http.Client{Transport: customTransport(fn)})}, opts...)
	c, err := New("http://example.com/", "", "", opts...)
	if err != nil {
		t.Fatal(err)
	}
	return c
}

func newTestClient(t *testing.T, resp *http.Response, err error) *Client {
	t.Helper()
	return newCustomClient(t, func(req *http.Request) (*http.Response, error) {
		if resp != nil {
			resp.Request = req
		}
		return resp, err
	})
}

func newCustomDB(t *testing.T, fn func(*http.Request) (*http.Response, error)) *Database {
	t.Helper()
	db, err := newCustomClient(t, fn).Database("testdb")
	if err != nil {
		t.Fatal(err)
	}
	return db
}

func newTestDB(t *testing.T, resp *http.Response, err error) *Database {
	t.Helper()
	db, err2 := newTestClient(t, resp, err).Database("testdb")
	if err2 != nil {
		t.Fatal(err2)
	}
	return db
}

func Body(str string) io.ReadCloser {
	return io.NopCloser(strings.NewReader(str))
}

func jsonResponse(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Header: http.Header{
			"Content-Type": {"application/json"},
		},
		ContentLength: int64(len(body)),
		Body:          Body(body),
	}
}
