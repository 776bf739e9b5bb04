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

package couchtest

import (
	"crypto/sha1"
	"encoding/hex"

	"golang.org/x/crypto/pbkdf2"
)

// Option configures a [Server].
type Option interface {
	apply(*Server)
}

type optionFunc func(*Server)

func (f optionFunc) apply(s *Server) { f(s) }

// WithAdmin adds a server administrator. Once any administrator is
// configured, every request except those to /_session must authenticate.
func WithAdmin(name, password string) Option {
	return optionFunc(func(s *Server) {
		s.admins[name] = password
	})
}

// WithDatabase creates an empty database.
func WithDatabase(name string) Option {
	return optionFunc(func(s *Server) {
		if _, ok := s.dbs[name]; !ok {
			s.dbs[name] = newDatabase()
		}
	})
}

// WithView registers a view. The view is queryable once the design document
// ddoc exists in db. reduce may be empty, "_count" or "_sum".
func WithView(db, ddoc, view string, fn MapFunc, reduce string) Option {
	return optionFunc(func(s *Server) {
		if _, ok := s.dbs[db]; !ok {
			s.dbs[db] = newDatabase()
		}
		s.dbs[db].views[ddoc+"/"+view] = &viewDef{
			mapFn:  fn,
			reduce: reduce,
		}
	})
}

// passwordMatches checks password against a user document, which may store
// it in plain text, as a salted SHA-1, or as a PBKDF2 derived key.
func passwordMatches(user map[string]interface{}, password string) bool {
	salt, _ := user["salt"].(string)
	if scheme, _ := user["password_scheme"].(string); scheme == "pbkdf2" {
		iterations, _ := user["iterations"].(float64)
		key, _ := user["derived_key"].(string)
		if iterations < 1 || key == "" {
			return false
		}
		derived := pbkdf2.Key([]byte(password), []byte(salt), int(iterations), 20, sha1.New) // nolint:gomnd
		return hex.EncodeToString(derived) == key
	}
	if sha, ok := user["password_sha"].(string); ok {
		sum := sha1.Sum([]byte(password + salt))
		return hex.EncodeToString(sum[:]) == sha
	}
	plain, ok := user["password"].(string)
	return ok && plain == password
}
