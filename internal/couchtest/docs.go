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
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"gitlab.com/flimzy/httpe"
)

type database struct {
	docs  map[string]*document
	views map[string]*viewDef
}

func newDatabase() *database {
	return &database{
		docs:  map[string]*document{},
		views: map[string]*viewDef{},
	}
}

type document struct {
	gen     int
	rev     string
	deleted bool
	body    map[string]interface{}
}

func newRev(gen int) string {
	return fmt.Sprintf("%d-%s", gen, strings.ReplaceAll(uuid.NewString(), "-", ""))
}

// live returns the non-deleted documents, sorted by ID.
func (d *database) live() []string {
	ids := make([]string, 0, len(d.docs))
	for id, doc := range d.docs {
		if !doc.deleted {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids
}

// store writes body as a new revision of id. rev must match the current
// revision of an existing document.
func (d *database) store(id, rev string, body map[string]interface{}) (string, error) {
	current, exists := d.docs[id]
	gen := 0
	if exists {
		gen = current.gen
		if !current.deleted && rev != current.rev {
			return "", errConflict
		}
	}
	if (!exists || current.deleted) && rev != "" {
		return "", errConflict
	}
	gen++
	newRevision := newRev(gen)
	body["_id"] = id
	body["_rev"] = newRevision
	d.docs[id] = &document{
		gen:  gen,
		rev:  newRevision,
		body: body,
	}
	return newRevision, nil
}

func (s *Server) db(r *http.Request) (*database, error) {
	name, err := urlParam(r, "db")
	if err != nil {
		return nil, err
	}
	db, ok := s.dbs[name]
	if !ok {
		return nil, errDBNotFound
	}
	return db, nil
}

func docID(r *http.Request, prefix string) (string, error) {
	if prefix == designPrefix {
		name, err := urlParam(r, "ddoc")
		return prefix + name, err
	}
	return urlParam(r, "docid")
}

func decodeDoc(r *http.Request) (map[string]interface{}, error) {
	defer r.Body.Close()
	var body map[string]interface{}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		return nil, &couchError{status: http.StatusBadRequest, Err: "bad_request", Reason: "Document must be a JSON object"}
	}
	if body == nil {
		return nil, &couchError{status: http.StatusBadRequest, Err: "bad_request", Reason: "Document must be a JSON object"}
	}
	return body, nil
}

func (s *Server) dbExists() httpe.HandlerWithError {
	return httpe.HandlerWithErrorFunc(func(w http.ResponseWriter, r *http.Request) error {
		s.mu.Lock()
		defer s.mu.Unlock()
		if _, err := s.db(r); err != nil {
			return err
		}
		w.WriteHeader(http.StatusOK)
		return nil
	})
}

func (s *Server) createDB() httpe.HandlerWithError {
	return httpe.HandlerWithErrorFunc(func(w http.ResponseWriter, r *http.Request) error {
		if err := requireAdmin(r); err != nil {
			return err
		}
		name, err := urlParam(r, "db")
		if err != nil {
			return err
		}
		s.mu.Lock()
		defer s.mu.Unlock()
		if _, ok := s.dbs[name]; ok {
			return &couchError{status: http.StatusPreconditionFailed, Err: "file_exists", Reason: "The database could not be created, the file already exists."}
		}
		s.dbs[name] = newDatabase()
		return serveJSON(w, http.StatusCreated, map[string]bool{"ok": true})
	})
}

func (s *Server) postDoc() httpe.HandlerWithError {
	return httpe.HandlerWithErrorFunc(func(w http.ResponseWriter, r *http.Request) error {
		body, err := decodeDoc(r)
		if err != nil {
			return err
		}
		id, _ := body["_id"].(string)
		if id == "" {
			id = strings.ReplaceAll(uuid.NewString(), "-", "")
		}
		if strings.HasPrefix(id, designPrefix) {
			if err := requireAdmin(r); err != nil {
				return err
			}
		}
		rev, _ := body["_rev"].(string)
		s.mu.Lock()
		defer s.mu.Unlock()
		db, err := s.db(r)
		if err != nil {
			return err
		}
		newRevision, err := db.store(id, rev, body)
		if err != nil {
			return err
		}
		return serveJSON(w, http.StatusCreated, map[string]interface{}{"ok": true, "id": id, "rev": newRevision})
	})
}

func (s *Server) lookup(r *http.Request, prefix string) (*document, error) {
	db, err := s.db(r)
	if err != nil {
		return nil, err
	}
	id, err := docID(r, prefix)
	if err != nil {
		return nil, err
	}
	doc, ok := db.docs[id]
	if !ok || doc.deleted {
		return nil, errDocNotFound
	}
	return doc, nil
}

func (s *Server) headDoc(prefix string) httpe.HandlerWithError {
	return httpe.HandlerWithErrorFunc(func(w http.ResponseWriter, r *http.Request) error {
		s.mu.Lock()
		defer s.mu.Unlock()
		doc, err := s.lookup(r, prefix)
		if err != nil {
			return err
		}
		w.Header().Set("ETag", strconv.Quote(doc.rev))
		w.WriteHeader(http.StatusOK)
		return nil
	})
}

func (s *Server) getDoc(prefix string) httpe.HandlerWithError {
	return httpe.HandlerWithErrorFunc(func(w http.ResponseWriter, r *http.Request) error {
		s.mu.Lock()
		defer s.mu.Unlock()
		doc, err := s.lookup(r, prefix)
		if err != nil {
			return err
		}
		w.Header().Set("ETag", strconv.Quote(doc.rev))
		return serveJSON(w, http.StatusOK, doc.body)
	})
}

func (s *Server) putDoc(prefix string) httpe.HandlerWithError {
	return httpe.HandlerWithErrorFunc(func(w http.ResponseWriter, r *http.Request) error {
		if prefix == designPrefix {
			if err := requireAdmin(r); err != nil {
				return err
			}
		}
		body, err := decodeDoc(r)
		if err != nil {
			return err
		}
		id, err := docID(r, prefix)
		if err != nil {
			return err
		}
		rev, _ := body["_rev"].(string)
		if rev == "" {
			rev = r.URL.Query().Get("rev")
		}
		s.mu.Lock()
		defer s.mu.Unlock()
		db, err := s.db(r)
		if err != nil {
			return err
		}
		newRevision, err := db.store(id, rev, body)
		if err != nil {
			return err
		}
		return serveJSON(w, http.StatusCreated, map[string]interface{}{"ok": true, "id": id, "rev": newRevision})
	})
}

func (s *Server) deleteDoc(prefix string) httpe.HandlerWithError {
	return httpe.HandlerWithErrorFunc(func(w http.ResponseWriter, r *http.Request) error {
		if prefix == designPrefix {
			if err := requireAdmin(r); err != nil {
				return err
			}
		}
		rev := r.URL.Query().Get("rev")
		if rev == "" {
			rev = strings.Trim(r.Header.Get("If-Match"), `"`)
		}
		s.mu.Lock()
		defer s.mu.Unlock()
		doc, err := s.lookup(r, prefix)
		if err != nil {
			return err
		}
		if rev != doc.rev {
			return errConflict
		}
		id, _ := doc.body["_id"].(string)
		doc.gen++
		doc.rev = newRev(doc.gen)
		doc.deleted = true
		doc.body = map[string]interface{}{"_id": id, "_rev": doc.rev, "_deleted": true}
		return serveJSON(w, http.StatusOK, map[string]interface{}{"ok": true, "id": id, "rev": doc.rev})
	})
}

type allDocsRow struct {
	ID    string                 `json:"id"`
	Key   string                 `json:"key"`
	Value map[string]string      `json:"value"`
	Doc   map[string]interface{} `json:"doc,omitempty"`
}

func (s *Server) allDocs() httpe.HandlerWithError {
	return httpe.HandlerWithErrorFunc(func(w http.ResponseWriter, r *http.Request) error {
		params, err := parseViewParams(r.URL.Query())
		if err != nil {
			return err
		}
		s.mu.Lock()
		defer s.mu.Unlock()
		db, err := s.db(r)
		if err != nil {
			return err
		}
		ids := db.live()
		rows := make([]allDocsRow, 0, len(ids))
		for _, id := range ids {
			doc := db.docs[id]
			row := allDocsRow{
				ID:    id,
				Key:   id,
				Value: map[string]string{"rev": doc.rev},
			}
			if params.includeDocs {
				row.Doc = doc.body
			}
			rows = append(rows, row)
		}
		return serveJSON(w, http.StatusOK, map[string]interface{}{
			"total_rows": len(ids),
			"offset":     params.skip,
			"rows":       page(rows, params.skip, params.limit),
		})
	})
}

func (s *Server) replicate() httpe.HandlerWithError {
	return httpe.HandlerWithErrorFunc(func(w http.ResponseWriter, r *http.Request) error {
		if err := requireAdmin(r); err != nil {
			return err
		}
		var req Replication
		if err := bind(r, &req); err != nil {
			return err
		}
		if req.Source == "" || req.Target == "" {
			return newError(http.StatusBadRequest, "source and target are required")
		}
		s.mu.Lock()
		s.replications = append(s.replications, req)
		s.mu.Unlock()
		return serveJSON(w, http.StatusOK, map[string]interface{}{
			"ok":         true,
			"session_id": strings.ReplaceAll(uuid.NewString(), "-", ""),
			"history":    []interface{}{},
		})
	})
}

func requireAdmin(r *http.Request) error {
	user, _ := r.Context().Value(userContextKey).(*userCtx)
	if user != nil {
		for _, role := range user.Roles {
			if role == roleAdmin {
				return nil
			}
		}
	}
	return &couchError{status: http.StatusForbidden, Err: "forbidden", Reason: "You are not a server admin."}
}

// page applies skip and limit to rows. A negative limit means no limit.
func page[T any](rows []T, skip, limit int) []T {
	if skip >= len(rows) {
		return rows[:0]
	}
	rows = rows[skip:]
	if limit >= 0 && limit < len(rows) {
		rows = rows[:limit]
	}
	return rows
}
