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
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/go-kivik/couchclient/chttp"
)

// ViewQuery holds the parameters of a view request. A nil field is omitted
// from the encoded query, except Reduce and Group, which are always sent.
type ViewQuery struct {
	// Key restricts the result to rows with this key.
	Key interface{}
	// Keys restricts the result to rows with any of these keys.
	Keys interface{}
	// StartKey and EndKey bound a key range. Either may be nil for an open
	// range.
	StartKey interface{}
	EndKey   interface{}

	Limit       *int
	Skip        *int
	IncludeDocs *bool

	Reduce bool
	Group  bool
}

// Aggregate returns a copy of q with Reduce and Group set.
func (q ViewQuery) Aggregate() ViewQuery {
	q.Reduce = true
	q.Group = true
	return q
}

// Encode returns q as a URL query string, without the leading '?'.
// Parameters appear in a fixed order, and key values are JSON encoded.
func (q ViewQuery) Encode() (string, error) {
	params := make([]string, 0, 9) // nolint:gomnd
	add := func(name, value string) {
		params = append(params, name+"="+url.QueryEscape(value))
	}
	for _, p := range []struct {
		name  string
		value interface{}
	}{
		{"key", q.Key},
		{"keys", q.Keys},
		{"startkey", q.StartKey},
		{"endkey", q.EndKey},
	} {
		if p.value == nil {
			continue
		}
		v, err := encodeKey(p.value)
		if err != nil {
			return "", chttp.WithStatus(http.StatusBadRequest, errors.Wrapf(err, "couchclient: invalid %s", p.name))
		}
		add(p.name, v)
	}
	if q.IncludeDocs != nil {
		add("include_docs", strconv.FormatBool(*q.IncludeDocs))
	}
	if q.Limit != nil {
		if *q.Limit < 0 {
			return "", chttp.StatusError(http.StatusBadRequest, "couchclient: limit must not be negative")
		}
		add("limit", strconv.Itoa(*q.Limit))
	}
	if q.Skip != nil {
		if *q.Skip < 0 {
			return "", chttp.StatusError(http.StatusBadRequest, "couchclient: skip must not be negative")
		}
		add("skip", strconv.Itoa(*q.Skip))
	}
	add("reduce", strconv.FormatBool(q.Reduce))
	add("group", strconv.FormatBool(q.Group))
	return strings.Join(params, "&"), nil
}

// encodeKey JSON encodes a view key. Already encoded keys, given as
// json.RawMessage, are passed through.
func encodeKey(key interface{}) (string, error) {
	if raw, ok := key.(json.RawMessage); ok {
		if !json.Valid(raw) {
			return "", errors.New("invalid JSON")
		}
		return string(raw), nil
	}
	data, err := json.Marshal(key)
	if err != nil {
		return "", err
	}
	return string(data), nil
}
