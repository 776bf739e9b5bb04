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
	"encoding/json"
	"net/http"

	"github.com/pkg/errors"

	"github.com/go-kivik/couchclient/chttp"
)

// toJSON converts a string, []byte, json.RawMessage, or an arbitrary type into
// JSON marshaled data. Encoded input is passed through unaltered.
func toJSON(i interface{}) (json.RawMessage, error) {
	switch t := i.(type) {
	case string:
		return json.RawMessage(t), nil
	case []byte:
		return json.RawMessage(t), nil
	case json.RawMessage:
		return t, nil
	default:
		data, err := json.Marshal(i)
		return data, chttp.WithStatus(http.StatusBadRequest, err)
	}
}

// extractDocID returns the _id field of a JSON object.
func extractDocID(doc json.RawMessage) (string, error) {
	var result struct {
		ID string `json:"_id"`
	}
	if err := json.Unmarshal(doc, &result); err != nil {
		return "", chttp.WithStatus(http.StatusBadRequest, errors.Wrap(err, "couchclient: document must be a JSON object"))
	}
	return result.ID, nil
}

// isJSONObject reports whether data holds a JSON object, ignoring leading
// whitespace.
func isJSONObject(data []byte) bool {
	data = bytes.TrimLeft(data, " \t\r\n")
	return len(data) > 0 && data[0] == '{'
}
