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
	"bytes"
	"crypto/sha1" // nolint:gosec
	"encoding/hex"
	"encoding/json"
	"net/http"
	"reflect"

	"github.com/pkg/errors"

	"github.com/go-kivik/couchclient/chttp"
)

// CreateHash returns the hex-encoded SHA-1 digest of doc, ignoring the _id,
// _rev and r_hash fields. Object keys are hashed in lexicographic order at
// every level, so the digest does not depend on field order. doc is not
// modified.
//
// doc may be any value which marshals to a JSON object, or already encoded
// JSON as a string, []byte or json.RawMessage.
func CreateHash(doc interface{}) (string, error) {
	data, err := toJSON(doc)
	if err != nil {
		return "", err
	}
	if !isJSONObject(data) {
		return "", chttp.StatusError(http.StatusBadRequest, "couchclient: document must be a JSON object")
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var fields map[string]interface{}
	if err := dec.Decode(&fields); err != nil {
		return "", chttp.WithStatus(http.StatusBadRequest, errors.Wrap(err, "couchclient: invalid document"))
	}
	delete(fields, fieldID)
	delete(fields, fieldRev)
	delete(fields, fieldHash)
	canonical, err := json.Marshal(fields)
	if err != nil {
		return "", chttp.WithStatus(http.StatusBadRequest, err)
	}
	sum := sha1.Sum(canonical) // nolint:gosec
	return hex.EncodeToString(sum[:]), nil
}

// HashEquals reports whether a and b have the same hash, as computed by
// [CreateHash]. It returns false if either is nil, or cannot be hashed.
func HashEquals(a, b interface{}) bool {
	if isNil(a) || isNil(b) {
		return false
	}
	hashA, err := CreateHash(a)
	if err != nil {
		return false
	}
	hashB, err := CreateHash(b)
	if err != nil {
		return false
	}
	return hashA == hashB
}

func isNil(i interface{}) bool {
	if i == nil {
		return true
	}
	v := reflect.ValueOf(i)
	switch v.Kind() {
	case reflect.Ptr, reflect.Map, reflect.Slice, reflect.Interface:
		return v.IsNil()
	}
	return false
}
