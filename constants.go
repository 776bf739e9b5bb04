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

// Version is the current version of this package.
const Version = "1.0.0"

// Well-known server paths.
const (
	pathSession   = "/_session"
	pathReplicate = "/_replicate"
	pathAllDocs   = "_all_docs"
	usersDB       = "_users"
	userIDPrefix  = "org.couchdb.user:"
	designPrefix  = "_design/"
)

// Fields which are managed by the server, or by this package, and which are
// therefore excluded from document hashes.
const (
	fieldID   = "_id"
	fieldRev  = "_rev"
	fieldHash = "r_hash"
)

// DefaultUserType is the type given to user documents created without an
// explicit type.
const DefaultUserType = "user"
