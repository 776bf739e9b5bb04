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

// AuthenticationError is returned by [Client.CreateSession] when the server
// does not accept the supplied credentials, or does not issue a session
// cookie.
type AuthenticationError struct {
	// Status is the HTTP status returned by the server, or 502 (Bad Gateway)
	// when a successful response carried no session cookie.
	Status int
	// Reason is the server-supplied reason, if any.
	Reason string
}

func (e *AuthenticationError) Error() string {
	if e.Reason == "" {
		return "Login failed"
	}
	return fmt.Sprintf("Login failed: %s", e.Reason)
}

// HTTPStatus returns the HTTP status associated with the failed login.
func (e *AuthenticationError) HTTPStatus() int {
	return e.Status
}

func missingArg(arg string) error {
	return chttp.StatusError(http.StatusBadRequest, "couchclient: %s required", arg)
}
