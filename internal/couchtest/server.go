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

// Package couchtest provides an in-memory fake of the parts of the CouchDB
// HTTP API used by couchclient, for tests which need a stateful server.
package couchtest

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"github.com/go-chi/chi/v5"
	"gitlab.com/flimzy/httpe"

	kivik "github.com/go-kivik/kivik/v4"
)

// Server is a fake CouchDB server. It implements http.Handler.
type Server struct {
	mux *chi.Mux

	mu           sync.Mutex
	admins       map[string]string
	sessions     map[string]string
	dbs          map[string]*database
	replications []Replication
}

// Replication is a replication request received by the server.
type Replication struct {
	Source string   `json:"source"`
	Target string   `json:"target"`
	DocIDs []string `json:"doc_ids"`
}

// New returns a new fake server. With no admins configured, every request is
// treated as coming from an administrator.
func New(opts ...Option) *Server {
	s := &Server{
		mux:      chi.NewMux(),
		admins:   map[string]string{},
		sessions: map[string]string{},
		dbs: map[string]*database{
			usersDB:      newDatabase(),
			"_replicator": newDatabase(),
		},
	}
	for _, opt := range opts {
		opt.apply(s)
	}
	s.routes()
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

// Replications returns the replication requests received so far.
func (s *Server) Replications() []Replication {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Replication(nil), s.replications...)
}

func (s *Server) routes() {
	s.mux.Use(
		httpe.ToMiddleware(s.handleErrors),
	)
	s.mux.Post("/_session", httpe.ToHandler(s.postSession()).ServeHTTP)
	s.mux.Get("/_session", httpe.ToHandler(s.getSession()).ServeHTTP)
	s.mux.Delete("/_session", httpe.ToHandler(s.deleteSession()).ServeHTTP)

	auth := s.mux.With(
		httpe.ToMiddleware(s.authMiddleware),
	)
	auth.Post("/_replicate", httpe.ToHandler(s.replicate()).ServeHTTP)

	auth.Head("/{db}", httpe.ToHandler(s.dbExists()).ServeHTTP)
	auth.Put("/{db}", httpe.ToHandler(s.createDB()).ServeHTTP)
	auth.Post("/{db}", httpe.ToHandler(s.postDoc()).ServeHTTP)
	auth.Get("/{db}/_all_docs", httpe.ToHandler(s.allDocs()).ServeHTTP)

	auth.Head("/{db}/_design/{ddoc}", httpe.ToHandler(s.headDoc(designPrefix)).ServeHTTP)
	auth.Get("/{db}/_design/{ddoc}", httpe.ToHandler(s.getDoc(designPrefix)).ServeHTTP)
	auth.Put("/{db}/_design/{ddoc}", httpe.ToHandler(s.putDoc(designPrefix)).ServeHTTP)
	auth.Delete("/{db}/_design/{ddoc}", httpe.ToHandler(s.deleteDoc(designPrefix)).ServeHTTP)
	auth.Get("/{db}/_design/{ddoc}/_view/{view}", httpe.ToHandler(s.queryView()).ServeHTTP)

	auth.Head("/{db}/{docid}", httpe.ToHandler(s.headDoc("")).ServeHTTP)
	auth.Get("/{db}/{docid}", httpe.ToHandler(s.getDoc("")).ServeHTTP)
	auth.Put("/{db}/{docid}", httpe.ToHandler(s.putDoc("")).ServeHTTP)
	auth.Delete("/{db}/{docid}", httpe.ToHandler(s.deleteDoc("")).ServeHTTP)
}

const (
	usersDB      = "_users"
	designPrefix = "_design/"
)

type couchError struct {
	status int
	Err    string `json:"error"`
	Reason string `json:"reason"`
}

func (e *couchError) Error() string {
	return e.Reason
}

func (e *couchError) HTTPStatus() int {
	return e.status
}

func newError(status int, reason string) error {
	return &couchError{
		status: status,
		Err:    strings.ReplaceAll(strings.ToLower(http.StatusText(status)), " ", "_"),
		Reason: reason,
	}
}

var (
	errDBNotFound  = &couchError{status: http.StatusNotFound, Err: "not_found", Reason: "Database does not exist."}
	errDocNotFound = &couchError{status: http.StatusNotFound, Err: "not_found", Reason: "missing"}
	errConflict    = &couchError{status: http.StatusConflict, Err: "conflict", Reason: "Document update conflict."}
)

func (s *Server) handleErrors(next httpe.HandlerWithError) httpe.HandlerWithError {
	return httpe.HandlerWithErrorFunc(func(w http.ResponseWriter, r *http.Request) error {
		if err := next.ServeHTTPWithError(w, r); err != nil {
			status := kivik.HTTPStatus(err)
			ce := &couchError{}
			if !errors.As(err, &ce) {
				ce.Err = strings.ReplaceAll(strings.ToLower(http.StatusText(status)), " ", "_")
				ce.Reason = err.Error()
			}
			return serveJSON(w, status, ce)
		}
		return nil
	})
}

func serveJSON(w http.ResponseWriter, status int, payload interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, err = io.Copy(w, bytes.NewReader(body))
	return err
}

// urlParam returns the unescaped value of a route parameter. chi routes on
// the escaped path when it differs from the default encoding, in which case
// parameters arrive escaped.
func urlParam(r *http.Request, key string) (string, error) {
	if r.URL.RawPath == "" {
		return chi.URLParam(r, key), nil
	}
	value, err := url.PathUnescape(chi.URLParam(r, key))
	if err != nil {
		return "", newError(http.StatusBadRequest, err.Error())
	}
	return value, nil
}
