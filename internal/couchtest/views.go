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

package couchtest

import (
	"encoding/json"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"

	"gitlab.com/flimzy/httpe"
)

// MapFunc is a view map function. It is called once per document, with
// design documents excluded, and calls emit for each row.
type MapFunc func(doc map[string]interface{}, emit func(key, value interface{}))

type viewDef struct {
	mapFn  MapFunc
	reduce string
}

type viewParams struct {
	key              interface{}
	hasKey           bool
	keys             []interface{}
	startKey, endKey interface{}
	hasStart, hasEnd bool
	includeDocs      bool
	limit, skip      int
	reduce           *bool
	group            bool
}

func queryParseError(reason string) error {
	return &couchError{status: http.StatusBadRequest, Err: "query_parse_error", Reason: reason}
}

func parseJSONParam(q url.Values, name string) (interface{}, bool, error) {
	raw, ok := q[name]
	if !ok {
		return nil, false, nil
	}
	var v interface{}
	if err := json.Unmarshal([]byte(raw[0]), &v); err != nil {
		return nil, false, queryParseError("Invalid value for JSON parameter: " + name)
	}
	return v, true, nil
}

func parseBoolParam(q url.Values, name string) (*bool, error) {
	raw, ok := q[name]
	if !ok {
		return nil, nil
	}
	b, err := strconv.ParseBool(raw[0])
	if err != nil {
		return nil, queryParseError("Invalid boolean parameter: " + name)
	}
	return &b, nil
}

func parseIntParam(q url.Values, name string, def int) (int, error) {
	raw, ok := q[name]
	if !ok {
		return def, nil
	}
	i, err := strconv.Atoi(raw[0])
	if err != nil || i < 0 {
		return 0, queryParseError("Invalid value for integer parameter: " + name)
	}
	return i, nil
}

func parseViewParams(q url.Values) (*viewParams, error) {
	p := &viewParams{}
	var err error
	if p.key, p.hasKey, err = parseJSONParam(q, "key"); err != nil {
		return nil, err
	}
	keys, hasKeys, err := parseJSONParam(q, "keys")
	if err != nil {
		return nil, err
	}
	if hasKeys {
		var ok bool
		if p.keys, ok = keys.([]interface{}); !ok {
			return nil, queryParseError("`keys` member must be an array.")
		}
	}
	if p.startKey, p.hasStart, err = parseJSONParam(q, "startkey"); err != nil {
		return nil, err
	}
	if p.endKey, p.hasEnd, err = parseJSONParam(q, "endkey"); err != nil {
		return nil, err
	}
	includeDocs, err := parseBoolParam(q, "include_docs")
	if err != nil {
		return nil, err
	}
	p.includeDocs = includeDocs != nil && *includeDocs
	if p.limit, err = parseIntParam(q, "limit", -1); err != nil {
		return nil, err
	}
	if p.skip, err = parseIntParam(q, "skip", 0); err != nil {
		return nil, err
	}
	if p.reduce, err = parseBoolParam(q, "reduce"); err != nil {
		return nil, err
	}
	group, err := parseBoolParam(q, "group")
	if err != nil {
		return nil, err
	}
	p.group = group != nil && *group
	return p, nil
}

type viewRow struct {
	ID    string                 `json:"id,omitempty"`
	Key   interface{}            `json:"key"`
	Value interface{}            `json:"value"`
	Doc   map[string]interface{} `json:"doc,omitempty"`
}

// normalize round-trips v through JSON, so emitted Go values compare like
// values decoded from a request.
func normalize(v interface{}) interface{} {
	data, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	var out interface{}
	_ = json.Unmarshal(data, &out)
	return out
}

func (d *database) mapView(view *viewDef) []viewRow {
	var rows []viewRow
	for _, id := range d.live() {
		if strings.HasPrefix(id, designPrefix) {
			continue
		}
		doc := d.docs[id]
		view.mapFn(doc.body, func(key, value interface{}) {
			rows = append(rows, viewRow{
				ID:    id,
				Key:   normalize(key),
				Value: normalize(value),
			})
		})
	}
	sort.SliceStable(rows, func(i, j int) bool {
		if c := collate(rows[i].Key, rows[j].Key); c != 0 {
			return c < 0
		}
		return rows[i].ID < rows[j].ID
	})
	return rows
}

func (p *viewParams) filter(rows []viewRow) []viewRow {
	switch {
	case p.keys != nil:
		var out []viewRow
		for _, key := range p.keys {
			for _, row := range rows {
				if collate(row.Key, key) == 0 {
					out = append(out, row)
				}
			}
		}
		return out
	case p.hasKey:
		var out []viewRow
		for _, row := range rows {
			if collate(row.Key, p.key) == 0 {
				out = append(out, row)
			}
		}
		return out
	}
	out := make([]viewRow, 0, len(rows))
	for _, row := range rows {
		if p.hasStart && collate(row.Key, p.startKey) < 0 {
			continue
		}
		if p.hasEnd && collate(row.Key, p.endKey) > 0 {
			continue
		}
		out = append(out, row)
	}
	return out
}

func reduceRows(fn string, rows []viewRow) interface{} {
	if fn == "_count" {
		return len(rows)
	}
	var sum float64
	for _, row := range rows {
		if n, ok := row.Value.(float64); ok {
			sum += n
		}
	}
	return sum
}

func (s *Server) queryView() httpe.HandlerWithError {
	return httpe.HandlerWithErrorFunc(func(w http.ResponseWriter, r *http.Request) error {
		params, err := parseViewParams(r.URL.Query())
		if err != nil {
			return err
		}
		ddoc, err := urlParam(r, "ddoc")
		if err != nil {
			return err
		}
		viewName, err := urlParam(r, "view")
		if err != nil {
			return err
		}
		s.mu.Lock()
		defer s.mu.Unlock()
		db, err := s.db(r)
		if err != nil {
			return err
		}
		design, ok := db.docs[designPrefix+ddoc]
		view, registered := db.views[ddoc+"/"+viewName]
		if !ok || design.deleted || !registered {
			return &couchError{status: http.StatusNotFound, Err: "not_found", Reason: "missing_named_view"}
		}
		reduce := view.reduce != ""
		if params.reduce != nil {
			if *params.reduce && !reduce {
				return queryParseError("Reduce is invalid for map-only views.")
			}
			reduce = *params.reduce
		}
		all := db.mapView(view)
		rows := params.filter(all)

		if !reduce {
			if params.includeDocs {
				for i := range rows {
					rows[i].Doc = db.docs[rows[i].ID].body
				}
			}
			return serveJSON(w, http.StatusOK, map[string]interface{}{
				"total_rows": len(all),
				"offset":     params.skip,
				"rows":       page(nonNil(rows), params.skip, params.limit),
			})
		}

		reduced := []viewRow{}
		if params.group {
			for start := 0; start < len(rows); {
				end := start + 1
				for end < len(rows) && collate(rows[end].Key, rows[start].Key) == 0 {
					end++
				}
				reduced = append(reduced, viewRow{Key: rows[start].Key, Value: reduceRows(view.reduce, rows[start:end])})
				start = end
			}
		} else if len(rows) > 0 {
			reduced = append(reduced, viewRow{Value: reduceRows(view.reduce, rows)})
		}
		return serveJSON(w, http.StatusOK, map[string]interface{}{
			"rows": page(reduced, params.skip, params.limit),
		})
	})
}

func nonNil(rows []viewRow) []viewRow {
	if rows == nil {
		return []viewRow{}
	}
	return rows
}
