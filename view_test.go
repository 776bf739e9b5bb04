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
	"net/http"
	"testing"

	"gitlab.com/flimzy/testy"
)

func TestViewBuilder(t *testing.T) {
	type tst struct {
		view     func(View) View
		expected string
		status   int
		err      string
	}
	tests := testy.NewTable()
	tests.Add("bare", tst{
		view:     func(v View) View { return v },
		expected: "testdb/_design/app/_view/by_name?reduce=false&group=false",
	})
	tests.Add("key", tst{
		view:     func(v View) View { return v.Key("bob") },
		expected: "testdb/_design/app/_view/by_name?key=%22bob%22&reduce=false&group=false",
	})
	tests.Add("keys", tst{
		view:     func(v View) View { return v.Keys("a", 1) },
		expected: "testdb/_design/app/_view/by_name?keys=%5B%22a%22%2C1%5D&reduce=false&group=false",
	})
	tests.Add("empty keys", tst{
		view:     func(v View) View { return v.Keys("a").Keys() },
		expected: "testdb/_design/app/_view/by_name?reduce=false&group=false",
	})
	tests.Add("paging", tst{
		view:     func(v View) View { return v.Limit(10).Skip(30).IncludeDocs(true) },
		expected: "testdb/_design/app/_view/by_name?include_docs=true&limit=10&skip=30&reduce=false&group=false",
	})
	tests.Add("reduce only", tst{
		view:     func(v View) View { return v.Reduce(true) },
		expected: "testdb/_design/app/_view/by_name?reduce=true&group=false",
	})
	tests.Add("aggregate then ungroup", tst{
		view:     func(v View) View { return v.Aggregate().Group(false) },
		expected: "testdb/_design/app/_view/by_name?reduce=true&group=false",
	})
	tests.Add("range", tst{
		view:     func(v View) View { return v.Range("a", "b") },
		expected: "testdb/_design/app/_view/by_name?startkey=%22a%22&endkey=%22b%22&reduce=false&group=false",
	})
	tests.Add("with query", tst{
		view:     func(v View) View { return v.Key("ignored").WithQuery(ViewQuery{Group: true}) },
		expected: "testdb/_design/app/_view/by_name?reduce=false&group=true",
	})
	tests.Add("negative limit", tst{
		view:   func(v View) View { return v.Limit(-1) },
		status: http.StatusBadRequest,
		err:    "couchclient: limit must not be negative",
	})

	tests.Run(t, func(t *testing.T, tt tst) {
		db := newTestDB(t, nil, nil)
		v := tt.view(db.DesignDocument("app").View("by_name"))
		if v.Name() != "by_name" {
			t.Errorf("Unexpected name: %s", v.Name())
		}
		result, err := v.URL()
		statusErrorRE(t, tt.err, tt.status, err)
		if result != tt.expected {
			t.Errorf("Unexpected URL:\n got: %s\nwant: %s", result, tt.expected)
		}
	})
}

func TestViewImmutable(t *testing.T) {
	db := newTestDB(t, nil, nil)
	base := db.DesignDocument("app").View("by_name").Key("bob")
	limited := base.Limit(5)
	_ = base.Aggregate()
	_ = limited.Skip(1)

	if q := base.Query(); q.Limit != nil || q.Skip != nil || q.Reduce || q.Group {
		t.Errorf("Base view was modified: %+v", q)
	}
	if q := limited.Query(); q.Limit == nil || *q.Limit != 5 || q.Skip != nil {
		t.Errorf("Derived view was modified: %+v", q)
	}
	if q := limited.Query(); q.Key != "bob" {
		t.Errorf("Derived view lost its key: %v", q.Key)
	}
}

func TestViewGet(t *testing.T) {
	var req *http.Request
	db := newCustomDB(t, func(r *http.Request) (*http.Response, error) {
		req = r
		return jsonResponse(http.StatusOK, `{"total_rows":1,"rows":[{"id":"a","key":"bob","value":null}]}`), nil
	})
	result, err := db.DesignDocument("my app").View("by name").Key("bob").Get(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if path := req.URL.EscapedPath(); path != "/testdb/_design/my%20app/_view/by%20name" {
		t.Errorf("Unexpected path: %s", path)
	}
	if req.URL.RawQuery != "key=%22bob%22&reduce=false&group=false" {
		t.Errorf("Unexpected query: %s", req.URL.RawQuery)
	}
	if d := testy.DiffAsJSON([]byte(`{"total_rows":1,"rows":[{"id":"a","key":"bob","value":null}]}`), []byte(result)); d != nil {
		t.Error(d)
	}
}
