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
	"io"
	"net/http"

	"github.com/pkg/errors"

	"github.com/go-kivik/couchclient/chttp"
)

// Row is a single row of a view result.
type Row struct {
	ID    string          `json:"id"`
	Key   json.RawMessage `json:"key"`
	Value json.RawMessage `json:"value"`
	Doc   json.RawMessage `json:"doc"`
}

// Rows is an iterator over a view result, decoded as it is read from the
// network. It must be closed when no longer needed.
type Rows struct {
	offset    int64
	totalRows int64
	body      io.ReadCloser
	dec       *json.Decoder
	row       Row
	err       error
	// closed is true after all rows have been processed
	closed bool
}

// Rows runs the view, and returns an iterator over the resulting rows.
func (v View) Rows(ctx context.Context) (*Rows, error) {
	if v.name == "" {
		return nil, missingArg("view")
	}
	path, err := v.URL()
	if err != nil {
		return nil, err
	}
	res, err := v.ddoc.db.client.DoReq(ctx, http.MethodGet, "/"+path, nil)
	if err != nil {
		return nil, err
	}
	if err := chttp.ResponseError(res); err != nil {
		return nil, err
	}
	return newRows(res.Body), nil
}

func newRows(in io.ReadCloser) *Rows {
	return &Rows{body: in}
}

// Offset returns the offset reported by the server. Unless the server sent
// it before the rows, it is only known once Next has returned false.
func (r *Rows) Offset() int64 {
	return r.offset
}

// TotalRows returns the total number of rows in the view, as reported by the
// server. Reduced results carry no total.
func (r *Rows) TotalRows() int64 {
	return r.totalRows
}

// Row returns the current row.
func (r *Rows) Row() Row {
	return r.row
}

// Err returns the error, if any, which ended iteration.
func (r *Rows) Err() error {
	return r.err
}

// Close closes the response body.
func (r *Rows) Close() error {
	r.closed = true
	return r.body.Close()
}

// Next advances to the next row, returning false when no rows remain or an
// error occurred.
func (r *Rows) Next() bool {
	if r.closed {
		return false
	}
	if err := r.next(); err != nil {
		_ = r.Close()
		if err != io.EOF {
			r.err = err
		}
		return false
	}
	return true
}

func (r *Rows) next() error {
	if r.dec == nil {
		// We haven't begun yet
		r.dec = json.NewDecoder(r.body)
		// consume the first '{'
		if err := consumeDelim(r.dec, json.Delim('{')); err != nil {
			return err
		}
		if err := r.begin(); err != nil {
			return chttp.WithStatus(http.StatusBadGateway, err)
		}
	}
	if !r.dec.More() {
		if err := r.finish(); err != nil {
			return chttp.WithStatus(http.StatusBadGateway, err)
		}
		return io.EOF
	}
	r.row = Row{}
	if err := r.dec.Decode(&r.row); err != nil {
		return chttp.WithStatus(http.StatusBadGateway, errors.Wrap(err, "decode row"))
	}
	return nil
}

// begin parses the top-level of the result object; until rows
func (r *Rows) begin() error {
	for {
		t, err := r.dec.Token()
		if err != nil {
			return err
		}
		key, ok := t.(string)
		if !ok {
			// The JSON parser should never permit this
			return fmt.Errorf("unexpected token: (%T) %v", t, t)
		}
		if key == "rows" {
			// Consume the first '['
			return consumeDelim(r.dec, json.Delim('['))
		}
		if err := r.parseMeta(key); err != nil {
			return err
		}
	}
}

func (r *Rows) finish() error {
	if err := consumeDelim(r.dec, json.Delim(']')); err != nil {
		return err
	}
	for {
		t, err := r.dec.Token()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		switch v := t.(type) {
		case json.Delim:
			if v != json.Delim('}') {
				// This should never happen, as the JSON parser should prevent it.
				return fmt.Errorf("unexpected JSON delimiter: %c", v)
			}
		case string:
			if err := r.parseMeta(v); err != nil {
				return err
			}
		default:
			// This should never happen, as the JSON parser would never get
			// this far.
			return fmt.Errorf("unexpected JSON token: (%T) '%v'", t, t)
		}
	}
}

// parseMeta parses result metadata
func (r *Rows) parseMeta(key string) error {
	switch key {
	case "offset":
		return r.dec.Decode(&r.offset)
	case "total_rows":
		return r.dec.Decode(&r.totalRows)
	}
	return fmt.Errorf("unexpected key: %s", key)
}

// consumeDelim consumes the expected delimiter from the stream, or returns an
// error if an unexpected token was found.
func consumeDelim(dec *json.Decoder, expectedDelim json.Delim) error {
	t, err := dec.Token()
	if err != nil {
		return chttp.WithStatus(http.StatusBadGateway, err)
	}
	d, ok := t.(json.Delim)
	if !ok {
		return chttp.StatusError(http.StatusBadGateway, "unexpected token %T: %v", t, t)
	}
	if d != expectedDelim {
		return chttp.StatusError(http.StatusBadGateway, "unexpected JSON delimiter: %c", d)
	}
	return nil
}
