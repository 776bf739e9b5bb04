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

	kivik "github.com/go-kivik/kivik/v4"
)

func readRows(t *testing.T, rows *Rows) []Row {
	t.Helper()
	var out []Row
	for rows.Next() {
		out = append(out, rows.Row())
	}
	return out
}

func TestViewRows(t *testing.T) {
	type tt struct {
		db        *Database
		want      []Row
		totalRows int64
		offset    int64
		status    int
		err       string
		iterErr   string
	}

	tests := testy.NewTable()
	tests.Add("network error", tt{
		db:     newTestDB(t, nil, errors.New("net error")),
		status: http.StatusBadGateway,
		err:    `^Get "?http://example.com/testdb/_design/ddoc/_view/view\?reduce=false&group=false"?: net error$`,
	})
	tests.Add("not found", tt{
		db:     newTestDB(t, jsonResponse(http.StatusNotFound, `{"error":"not_found","reason":"missing_named_view"}`), nil),
		status: http.StatusNotFound,
		err:    "Not Found: missing_named_view",
	})
	tests.Add("map rows", tt{
		db: newTestDB(t, jsonResponse(http.StatusOK, `{"total_rows":3,"offset":1,"rows":[
			{"id":"a","key":"fruit","value":1},
			{"id":"b","key":["x",2],"value":null,"doc":{"_id":"b"}}
		]}`), nil),
		want: []Row{
			{ID: "a", Key: []byte(`"fruit"`), Value: []byte(`1`)},
			{ID: "b", Key: []byte(`["x",2]`), Value: []byte(`null`), Doc: []byte(`{"_id":"b"}`)},
		},
		totalRows: 3,
		offset:    1,
	})
	tests.Add("trailing metadata", tt{
		db: newTestDB(t, jsonResponse(http.StatusOK, `{"rows":[{"key":null,"value":4}],"total_rows":9}`), nil),
		want: []Row{
			{Key: []byte(`null`), Value: []byte(`4`)},
		},
		totalRows: 9,
	})
	tests.Add("empty", tt{
		db:        newTestDB(t, jsonResponse(http.StatusOK, `{"total_rows":0,"offset":0,"rows":[]}`), nil),
		totalRows: 0,
	})
	tests.Add("unexpected key", tt{
		db:      newTestDB(t, jsonResponse(http.StatusOK, `{"foo":1,"rows":[]}`), nil),
		iterErr: "unexpected key: foo",
	})
	tests.Add("not an object", tt{
		db:      newTestDB(t, jsonResponse(http.StatusOK, `[]`), nil),
		iterErr: "unexpected JSON delimiter: [",
	})
	tests.Add("truncated", tt{
		db:      newTestDB(t, jsonResponse(http.StatusOK, `{"rows":[{"key":1,`), nil),
		iterErr: "decode row: unexpected EOF",
	})

	tests.Run(t, func(t *testing.T, tt tt) {
		rows, err := tt.db.DesignDocument("ddoc").View("view").Rows(context.Background())
		statusErrorRE(t, tt.err, tt.status, err)
		got := readRows(t, rows)
		if !testy.ErrorMatches(tt.iterErr, rows.Err()) {
			t.Errorf("Unexpected iteration error: %s", rows.Err())
		}
		if tt.iterErr != "" {
			if status := kivik.HTTPStatus(rows.Err()); status != http.StatusBadGateway {
				t.Errorf("Unexpected iteration status: %d", status)
			}
			return
		}
		if d := testy.DiffInterface(tt.want, got); d != nil {
			t.Error(d)
		}
		if rows.TotalRows() != tt.totalRows {
			t.Errorf("Unexpected total rows: %d", rows.TotalRows())
		}
		if rows.Offset() != tt.offset {
			t.Errorf("Unexpected offset: %d", rows.Offset())
		}
		if rows.Next() {
			t.Error("Next should return false after the last row")
		}
	})
}

func TestViewRowsMissingName(t *testing.T) {
	db := newTestDB(t, nil, errors.New("unused"))
	_, err := db.DesignDocument("ddoc").View("").Rows(context.Background())
	if status := kivik.HTTPStatus(err); status != http.StatusBadRequest {
		t.Errorf("Unexpected status: %d", status)
	}
}
