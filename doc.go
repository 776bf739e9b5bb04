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


/*
Package couchclient is a client for the CouchDB HTTP API.

It covers session based authentication, user creation, document CRUD, design
document management and view queries, including range and aggregate (reduced
and grouped) queries. Responses are returned as raw JSON, leaving decoding to
the caller.

# Authentication

A [Client] is configured with a base URL, and optionally with a user name and
password, which are sent with every request using HTTP Basic Auth:

	client, err := couchclient.New("http://localhost:5984/", "admin", "abc123")

Alternatively, a session may be established with [Client.CreateSession], and
the returned token installed with [Client.SetAuthSession]. The token is then
sent as the AuthSession cookie with every request. Credentials and a session
token may be configured at the same time, in which case both are sent.

Credential and session changes take effect for [Database] handles created
after the change. The Client does no locking, so callers sharing one between
goroutines must synchronize those changes themselves.

# Views

Views are queried with a [ViewQuery], or with the fluent [View] builder:

	rows, err := db.DesignDocument("users").View("by_email").
		Key("bob@example.com").
		IncludeDocs(true).
		Get(ctx)

The reduce and group parameters are always sent explicitly, so results do not
depend on the view definition's defaults.

# Errors

Errors returned by this package carry an HTTP status, which can be read with
kivik.HTTPStatus. Server error responses are returned as *chttp.HTTPError,
network failures carry status 502, and invalid arguments carry status 400.
*/
package couchclient
