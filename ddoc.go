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

	"github.com/go-kivik/couchclient/chttp"
)

// DesignDocument is a handle to a design document within a database.
type DesignDocument struct {
	db   *Database
	name string
}

// Name returns the design document name, without the _design/ prefix.
func (dd *DesignDocument) Name() string {
	return dd.name
}

// Path returns the escaped path of the design document, relative to the
// server root.
func (dd *DesignDocument) Path() string {
	return chttp.DocPath(dd.db.name, designPrefix+dd.name)
}

// Exists reports whether the design document exists. Any failure yields
// false.
func (dd *DesignDocument) Exists(ctx context.Context) bool {
	res, err := dd.db.client.DoReq(ctx, http.MethodHead, "/"+dd.Path(), nil)
	if err != nil {
		return false
	}
	chttp.CloseBody(res.Body)
	return res.StatusCode == http.StatusOK
}

// Get returns the raw design document.
func (dd *DesignDocument) Get(ctx context.Context) (json.RawMessage, error) {
	return dd.db.client.DoRaw(ctx, http.MethodGet, "/"+dd.Path(), nil)
}

// View returns a query builder for the named view.
func (dd *DesignDocument) View(name string) View {
	return View{
		ddoc: dd,
		name: name,
	}
}

// Query runs the named view with the parameters in q.
func (dd *DesignDocument) Query(ctx context.Context, view string, q ViewQuery) (json.RawMessage, error) {
	return dd.View(view).WithQuery(q).Get(ctx)
}

// ViewByKey returns the rows of the named view matching key. A nil key
// returns all rows.
func (dd *DesignDocument) ViewByKey(ctx context.Context, view string, key interface{}) (json.RawMessage, error) {
	return dd.View(view).Key(key).Get(ctx)
}

// RangeView returns the rows of the named view between start and end,
// inclusive. Either bound may be nil.
func (dd *DesignDocument) RangeView(ctx context.Context, view string, start, end interface{}) (json.RawMessage, error) {
	return dd.View(view).Range(start, end).Get(ctx)
}

// AggregateView returns the grouped, reduced rows of the named view matching
// key.
func (dd *DesignDocument) AggregateView(ctx context.Context, view string, key interface{}) (json.RawMessage, error) {
	return dd.View(view).Key(key).Aggregate().Get(ctx)
}

// AggregateRangeView returns the grouped, reduced rows of the named view
// between start and end.
func (dd *DesignDocument) AggregateRangeView(ctx context.Context, view string, start, end interface{}) (json.RawMessage, error) {
	return dd.View(view).Range(start, end).Aggregate().Get(ctx)
}
