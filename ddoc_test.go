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
	"errors"
	"net/http"
	"testing"

	"gitlab.com/flimzy/testy"
)

func TestDesignDocumentPath(t *testing.T) {
	db := newTestDB(t, nil, nil)
	tests := map[string]string{
		"app":      "testdb/_design/app",
		"my app":   "testdb/_design/my%20app",
		"a/b":      "testdb/_design/a%2Fb",
		"français": "testdb/_design/fran%C3%A7ais",
	}
	for name, expected := range tests {
		dd := db.DesignDocument(name)
		if dd.Name() != name {
			t.Errorf("Unexpected name: %s", dd.Name())
		}
		if path := dd.Path(); path != expected {
			t.Errorf("Path() for %q = %s, want %s", name, path, expected)
		}
	}
}

func TestDesignDocumentExists(t *testing.T) {
	type tst struct {
		resp     *http.Response
		err      error
		expected bool
	}
	tests := testy.NewTable()
	tests.Add("ok", tst{
		resp:     &http.Response{StatusCode: http.StatusOK, Body: Body("")},
		expected: true,
	})
	tests.Add("not modified", tst{
		resp: &http.Response{StatusCode: http.StatusNotModified, Body: Body("")},
	})
	tests.Add("not found", tst{
		resp: &http.Response{StatusCode: http.StatusNotFound, Body: Body("")},
	})
	tests.Add("network error", tst{
		err: errors.New("connection refused"),
	})

	tests.Run(t, func(t *testing.T, tt tst) {
		var req *http.Request
		db := newCustomDB(t, func(r *http.Request) (*http.Response, error) {
			req = r
			if tt.resp != nil {
				tt.resp.Request = r
			}
			return tt.resp, tt.err
		})
		if exists := db.DesignDocument("app").Exists(context.Background()); exists != tt.expected {
			t.Errorf("Unexpected result: %t", exists)
		}
		if req.Method != http.MethodHead || req.URL.EscapedPath() != "/testdb/_design/app" {
			t.Errorf("Unexpected request: %s %s", req.Method, req.URL.EscapedPath())
		}
	})
}

func TestDesignDocumentGet(t *testing.T) {
	var req *http.Request
	db := newCustomDB(t, func(r *http.Request) (*http.Response, error) {
		req = r
		return jsonResponse(http.StatusOK, `{"_id":"_design/app","views":{}}`), nil
	})
	result, err := db.DesignDocument("app").Get(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if req.Method != http.MethodGet || req.URL.EscapedPath() != "/testdb/_design/app" {
		t.Errorf("Unexpected request: %s %s", req.Method, req.URL.EscapedPath())
	}
	if string(result) != `{"_id":"_design/app","views":{}}` {
		t.Errorf("Unexpected result: %s", string(result))
	}
}

func TestDesignDocumentViews(t *testing.T) {
	type tst struct {
		call      func(*DesignDocument) ([]byte, error)
		wantPath  string
		wantQuery string
		status    int
		err       string
	}
	ctx := context.Background()
	tests := testy.NewTable()
	tests.Add("view by key", tst{
		call: func(dd *DesignDocument) ([]byte, error) {
			return dd.ViewByKey(ctx, "by_name", "bob")
		},
		wantPath:  "/testdb/_design/app/_view/by_name",
		wantQuery: "key=%22bob%22&reduce=false&group=false",
	})
	tests.Add("view without key", tst{
		call: func(dd *DesignDocument) ([]byte, error) {
			return dd.ViewByKey(ctx, "by_name", nil)
		},
		wantPath:  "/testdb/_design/app/_view/by_name",
		wantQuery: "reduce=false&group=false",
	})
	tests.Add("range view", tst{
		call: func(dd *DesignDocument) ([]byte, error) {
			return dd.RangeView(ctx, "by_date", []int{2024, 1}, []int{2024, 12})
		},
		wantPath:  "/testdb/_design/app/_view/by_date",
		wantQuery: "startkey=%5B2024%2C1%5D&endkey=%5B2024%2C12%5D&reduce=false&group=false",
	})
	tests.Add("open range", tst{
		call: func(dd *DesignDocument) ([]byte, error) {
			return dd.RangeView(ctx, "by_date", nil, "2024")
		},
		wantPath:  "/testdb/_design/app/_view/by_date",
		wantQuery: "endkey=%222024%22&reduce=false&group=false",
	})
	tests.Add("aggregate view", tst{
		call: func(dd *DesignDocument) ([]byte, error) {
			return dd.AggregateView(ctx, "count", "bob")
		},
		wantPath:  "/testdb/_design/app/_view/count",
		wantQuery: "key=%22bob%22&reduce=true&group=true",
	})
	tests.Add("aggregate range view", tst{
		call: func(dd *DesignDocument) ([]byte, error) {
			return dd.AggregateRangeView(ctx, "count", "a", "m")
		},
		wantPath:  "/testdb/_design/app/_view/count",
		wantQuery: "startkey=%22a%22&endkey=%22m%22&reduce=true&group=true",
	})
	tests.Add("query", tst{
		call: func(dd *DesignDocument) ([]byte, error) {
			return dd.Query(ctx, "by_name", ViewQuery{Limit: intPtr(5), IncludeDocs: boolPtr(true)})
		},
		wantPath:  "/testdb/_design/app/_view/by_name",
		wantQuery: "include_docs=true&limit=5&reduce=false&group=false",
	})
	tests.Add("invalid query", tst{
		call: func(dd *DesignDocument) ([]byte, error) {
			return dd.Query(ctx, "by_name", ViewQuery{Skip: intPtr(-1)})
		},
		status: http.StatusBadRequest,
		err:    "couchclient: skip must not be negative",
	})
	tests.Add("missing view name", tst{
		call: func(dd *DesignDocument) ([]byte, error) {
			return dd.ViewByKey(ctx, "", "bob")
		},
		status: http.StatusBadRequest,
		err:    "couchclient: view required",
	})

	tests.Run(t, func(t *testing.T, tt tst) {
		var req *http.Request
		db := newCustomDB(t, func(r *http.Request) (*http.Response, error) {
			req = r
			return jsonResponse(http.StatusOK, `{"rows":[]}`), nil
		})
		result, err := tt.call(db.DesignDocument("app"))
		statusErrorRE(t, tt.err, tt.status, err)
		if req.Method != http.MethodGet {
			t.Errorf("Unexpected method: %s", req.Method)
		}
		if path := req.URL.EscapedPath(); path != tt.wantPath {
			t.Errorf("Unexpected path: %s", path)
		}
		if req.URL.RawQuery != tt.wantQuery {
			t.Errorf("Unexpected query:\n got: %s\nwant: %s", req.URL.RawQuery, tt.wantQuery)
		}
		if string(result) != `{"rows":[]}` {
			t.Errorf("Unexpected result: %s", string(result))
		}
	})
}

func TestViewError(t *testing.T) {
	db := newTestDB(t, jsonResponse(http.StatusNotFound, `{"error":"not_found","reason":"missing_named_view"}`), nil)
	_, err := db.DesignDocument("app").ViewByKey(context.Background(), "nope", "k")
	statusErrorRE(t, "Not Found: missing_named_view", http.StatusNotFound, err)
}
