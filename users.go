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
	"crypto/sha1"
	"encoding/hex"
	"net/http"

	"golang.org/x/crypto/pbkdf2"

	"github.com/go-kivik/couchclient/chttp"
)

// userDoc is a document in the _users database. Field order matches the
// order in which CouchDB documents its user schema.
type userDoc struct {
	ID             string   `json:"-"`
	Name           string   `json:"name"`
	PasswordScheme string   `json:"password_scheme,omitempty"`
	DerivedKey     string   `json:"derived_key,omitempty"`
	PasswordSHA    string   `json:"password_sha,omitempty"`
	Salt           string   `json:"salt,omitempty"`
	Iterations     int      `json:"iterations,omitempty"`
	Password       *string  `json:"password,omitempty"`
	Roles          []string `json:"roles"`
	Type           string   `json:"type"`
}

func newUserDoc(username, userType string, roles []string) *userDoc {
	if userType == "" {
		userType = DefaultUserType
	}
	if roles == nil {
		roles = []string{}
	}
	return &userDoc{
		ID:    userIDPrefix + username,
		Name:  username,
		Roles: roles,
		Type:  userType,
	}
}

// CreateUser creates a user in the _users database, and returns the raw
// response.
//
// When salt is empty, the plain password is sent, and hashed by the server.
// Otherwise the document carries password_sha, the hex SHA-1 of password
// followed by salt, and the salt itself, for servers which do not hash
// passwords. An empty userType means [DefaultUserType].
func (c *Client) CreateUser(ctx context.Context, username, password, userType string, roles []string, salt string) ([]byte, error) {
	if username == "" {
		return nil, missingArg("username")
	}
	doc := newUserDoc(username, userType, roles)
	if salt != "" {
		doc.PasswordSHA = passwordSHA(password, salt)
		doc.Salt = salt
	} else {
		doc.Password = &password
	}
	return c.putUser(ctx, doc)
}

// CreateUserPBKDF2 creates a user whose password is stored pre-hashed with
// PBKDF2-SHA1, the scheme CouchDB uses for server-side hashing.
func (c *Client) CreateUserPBKDF2(ctx context.Context, username, password, salt string, iterations int, roles []string) ([]byte, error) {
	if username == "" {
		return nil, missingArg("username")
	}
	if salt == "" {
		return nil, missingArg("salt")
	}
	if iterations < 1 {
		return nil, chttp.StatusError(http.StatusBadRequest, "couchclient: iterations must be positive")
	}
	doc := newUserDoc(username, DefaultUserType, roles)
	doc.PasswordScheme = "pbkdf2"
	doc.DerivedKey = derivedKey(password, salt, iterations)
	doc.Salt = salt
	doc.Iterations = iterations
	return c.putUser(ctx, doc)
}

func (c *Client) putUser(ctx context.Context, doc *userDoc) ([]byte, error) {
	client, err := c.newClient(true)
	if err != nil {
		return nil, err
	}
	opts := &chttp.Options{
		GetBody: chttp.BodyEncoder(doc),
	}
	return client.DoRaw(ctx, http.MethodPut, "/"+chttp.DocPath(usersDB, doc.ID), opts)
}

func passwordSHA(password, salt string) string {
	sum := sha1.Sum([]byte(password + salt))
	return hex.EncodeToString(sum[:])
}

const pbkdf2KeyLen = 20

func derivedKey(password, salt string, iterations int) string {
	return hex.EncodeToString(pbkdf2.Key([]byte(password), []byte(salt), iterations, pbkdf2KeyLen, sha1.New))
}
