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
	"encoding/json"
	"net/http"
	"net/url"
)

// View builds a request against a single view. Each method returns a
// modified copy, so a View may be shared and extended freely.
type View struct {
	ddoc  *DesignDocument
	name  string
	query ViewQuery
}

// Name returns the view name.
func (v View) Name() string {
	return v.name
}

// Key restricts the result to rows with key.
func (v View) Key(key interface{}) View {
	v.query.Key = key
	return v
}

// Keys restricts the result to rows with any of keys.
func (v View) Keys(keys ...interface{}) View {
	v.query.Keys = nil
	if len(keys) > 0 {
		v.query.Keys = keys
	}
	return v
}

// Range restricts the result to rows with keys between start and end,
// inclusive. A nil bound leaves that end of the range open.
func (v View) Range(start, end interface{}) View {
	v.query.StartKey = start
	v.query.EndKey = end
	return v
}

// Limit sets the maximum number of rows returned.
func (v View) Limit(limit int) View {
	v.query.Limit = &limit
	return v
}

// Skip sets the number of rows to skip.
func (v View) Skip(skip int) View {
	v.query.Skip = &skip
	return v
}

// IncludeDocs sets whether each row carries its full document.
func (v View) IncludeDocs(include bool) View {
	v.query.IncludeDocs = &include
	return v
}

// Reduce sets whether the view's reduce function is applied.
func (v View) Reduce(reduce bool) View {
	v.query.Reduce = reduce
	return v
}

// Group sets whether reduction is grouped by key.
func (v View) Group(group bool) View {
	v.query.Group = group
	return v
}

// Aggregate enables both Reduce and Group.
func (v View) Aggregate() View {
	v.query = v.query.Aggregate()
	return v
}

// WithQuery replaces all query parameters with q.
func (v View) WithQuery(q ViewQuery) View {
	v.query = q
	return v
}

// Query returns the accumulated query parameters.
func (v View) Query() ViewQuery {
	return v.query
}

// URL returns the escaped request path and query, relative to the server
// root.
func (v View) URL() (string, error) {
	query, err := v.query.Encode()
	if err != nil {
		return "", err
	}
	return v.ddoc.Path() + "/_view/" + url.PathEscape(v.name) + "?" + query, nil
}

// Get runs the view, and returns the raw response.
func (v View) Get(ctx context.Context) (json.RawMessage, error) {
	if v.name == "" {
		return nil, missingArg("view")
	}
	path, err := v.URL()
	if err != nil {
		return nil, err
	}
	return v.ddoc.db.client.DoRaw(ctx, http.MethodGet, "/"+path, nil)
}
