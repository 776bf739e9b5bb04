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
	"fmt"
	"net/http"
	"net/url"

	"github.com/go-kivik/couchclient/chttp"
)

// Database is a handle to a single database. It is bound to the
// authentication state of the [Client] at the time it was created.
type Database struct {
	transport

	client *chttp.Client
	name   string
}

// Name returns the database name.
func (d *Database) Name() string {
	return d.name
}

func (d *Database) path() string {
	return "/" + url.PathEscape(d.name)
}

func (d *Database) docPath(docID string) string {
	return "/" + chttp.DocPath(d.name, docID)
}

// Get returns the raw document with the given ID. Server errors, including
// 404 (Not Found), are returned as *chttp.HTTPError.
func (d *Database) Get(ctx context.Context, docID string) (json.RawMessage, error) {
	if docID == "" {
		return nil, missingArg("docID")
	}
	return d.client.DoRaw(ctx, http.MethodGet, d.docPath(docID), nil)
}

// Exists reports whether a HEAD request for the document succeeds. Any
// failure, whether a 404 or a network error, yields false. Use
// [Database.Check] to tell them apart.
func (d *Database) Exists(ctx context.Context, docID string) bool {
	ok, _ := d.Check(ctx, docID)
	return ok
}

// Check reports whether the document exists. A 404 (Not Found) response
// yields false and a nil error. Other failures are returned.
func (d *Database) Check(ctx context.Context, docID string) (bool, error) {
	if docID == "" {
		return false, missingArg("docID")
	}
	_, err := d.client.DoError(ctx, http.MethodHead, d.docPath(docID), nil)
	if err != nil {
		if chttp.IsNotFound(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// GetItems returns one page of the _all_docs index, with documents
// included.
func (d *Database) GetItems(ctx context.Context, limit, skip int) (json.RawMessage, error) {
	if limit < 0 {
		return nil, chttp.StatusError(http.StatusBadRequest, "couchclient: limit must not be negative")
	}
	if skip < 0 {
		return nil, chttp.StatusError(http.StatusBadRequest, "couchclient: skip must not be negative")
	}
	path := fmt.Sprintf("%s/%s?include_docs=true&limit=%d&skip=%d", d.path(), pathAllDocs, limit, skip)
	return d.client.DoRaw(ctx, http.MethodGet, path, nil)
}

// Create stores a new document, and returns the raw response, which holds
// the new document's id and rev. The server assigns an ID when doc has no
// _id. doc may be any value which marshals to a JSON object, or already
// encoded JSON as a string, []byte or json.RawMessage.
func (d *Database) Create(ctx context.Context, doc interface{}) (json.RawMessage, error) {
	body, err := toJSON(doc)
	if err != nil {
		return nil, err
	}
	opts := &chttp.Options{
		GetBody: chttp.BodyEncoder(body),
	}
	return d.client.DoRaw(ctx, http.MethodPost, d.path(), opts)
}

// Update stores doc under its _id, and returns the raw response. doc must
// carry the current _rev, or the server responds with 409 (Conflict).
func (d *Database) Update(ctx context.Context, doc interface{}) (json.RawMessage, error) {
	body, err := toJSON(doc)
	if err != nil {
		return nil, err
	}
	docID, err := extractDocID(body)
	if err != nil {
		return nil, err
	}
	if docID == "" {
		return nil, missingArg("_id")
	}
	opts := &chttp.Options{
		GetBody: chttp.BodyEncoder(body),
	}
	return d.client.DoRaw(ctx, http.MethodPut, d.docPath(docID), opts)
}

// Delete deletes revision rev of the document, and returns the raw response.
func (d *Database) Delete(ctx context.Context, docID, rev string) (json.RawMessage, error) {
	if docID == "" {
		return nil, missingArg("docID")
	}
	if rev == "" {
		return nil, missingArg("rev")
	}
	opts := &chttp.Options{
		Query: url.Values{"rev": []string{rev}},
	}
	return d.client.DoRaw(ctx, http.MethodDelete, d.docPath(docID), opts)
}

// DesignDocument returns a handle to the named design document. name is
// given without the _design/ prefix. No request is made.
func (d *Database) DesignDocument(name string) *DesignDocument {
	return &DesignDocument{
		db:   d,
		name: name,
	}
}

// CreateDesignDocument stores content as the named design document, and
// returns the raw response. Content given as a string, []byte or
// json.RawMessage is sent verbatim.
func (d *Database) CreateDesignDocument(ctx context.Context, name string, content interface{}) (json.RawMessage, error) {
	if name == "" {
		return nil, missingArg("name")
	}
	body, err := toJSON(content)
	if err != nil {
		return nil, err
	}
	opts := &chttp.Options{
		GetBody: chttp.BodyEncoder(body),
	}
	return d.client.DoRaw(ctx, http.MethodPut, d.docPath(designPrefix+name), opts)
}
