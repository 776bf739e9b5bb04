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
	"context"
	"encoding/json"
	"mime"
	"net/http"
	"strings"

	"github.com/ajg/form"
	"github.com/google/uuid"
	"gitlab.com/flimzy/httpe"

	kivik "github.com/go-kivik/kivik/v4"
)

const roleAdmin = "_admin"

type userCtx struct {
	Name   string
	Roles  []string
	Method string
}

type contextKey struct{ name string }

var userContextKey = &contextKey{"userCtx"}

var errUnauthorized = &couchError{status: http.StatusUnauthorized, Err: "unauthorized", Reason: "Name or password is incorrect."}

type loginRequest struct {
	Name     string `form:"name" json:"name"`
	Password string `form:"password" json:"password"`
}

func bind(r *http.Request, v interface{}) error {
	defer r.Body.Close()
	mtype, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	switch mtype {
	case "application/json":
		if err := json.NewDecoder(r.Body).Decode(v); err != nil {
			return newError(http.StatusBadRequest, err.Error())
		}
		return nil
	case "application/x-www-form-urlencoded":
		if err := form.NewDecoder(r.Body).Decode(v); err != nil {
			return newError(http.StatusBadRequest, err.Error())
		}
		return nil
	}
	return &couchError{status: http.StatusUnsupportedMediaType, Err: "bad_content_type", Reason: "Content-Type must be 'application/x-www-form-urlencoded' or 'application/json'"}
}

// checkPassword returns the roles of the named user if password is correct.
func (s *Server) checkPassword(name, password string) ([]string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if adminPass, ok := s.admins[name]; ok {
		return []string{roleAdmin}, adminPass == password
	}
	doc, ok := s.dbs[usersDB].docs["org.couchdb.user:"+name]
	if !ok || doc.deleted {
		return nil, false
	}
	if !passwordMatches(doc.body, password) {
		return nil, false
	}
	return userRoles(doc.body), true
}

// authenticate identifies the requester by session cookie or basic auth. A
// nil userCtx means an anonymous request.
func (s *Server) authenticate(r *http.Request) (*userCtx, error) {
	if cookie, err := r.Cookie(kivik.SessionCookieName); err == nil {
		s.mu.Lock()
		name, ok := s.sessions[cookie.Value]
		s.mu.Unlock()
		if ok {
			roles, _ := s.rolesFor(name)
			return &userCtx{Name: name, Roles: roles, Method: "cookie"}, nil
		}
	}
	if name, password, ok := r.BasicAuth(); ok {
		roles, valid := s.checkPassword(name, password)
		if !valid {
			return nil, errUnauthorized
		}
		return &userCtx{Name: name, Roles: roles, Method: "default"}, nil
	}
	return nil, nil
}

func (s *Server) rolesFor(name string) ([]string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.admins[name]; ok {
		return []string{roleAdmin}, true
	}
	doc, ok := s.dbs[usersDB].docs["org.couchdb.user:"+name]
	if !ok || doc.deleted {
		return nil, false
	}
	return userRoles(doc.body), true
}

func userRoles(body map[string]interface{}) []string {
	var roles []string
	if r, ok := body["roles"].([]interface{}); ok {
		for _, role := range r {
			if str, ok := role.(string); ok {
				roles = append(roles, str)
			}
		}
	}
	return roles
}

func (s *Server) adminParty() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.admins) == 0
}

func (s *Server) authMiddleware(next httpe.HandlerWithError) httpe.HandlerWithError {
	return httpe.HandlerWithErrorFunc(func(w http.ResponseWriter, r *http.Request) error {
		user, err := s.authenticate(r)
		if err != nil {
			return err
		}
		if user == nil {
			if !s.adminParty() {
				return &couchError{status: http.StatusUnauthorized, Err: "unauthorized", Reason: "You are not authorized to access this db."}
			}
			user = &userCtx{Roles: []string{roleAdmin}}
		}
		r = r.WithContext(context.WithValue(r.Context(), userContextKey, user))
		return next.ServeHTTPWithError(w, r)
	})
}

func (s *Server) postSession() httpe.HandlerWithError {
	return httpe.HandlerWithErrorFunc(func(w http.ResponseWriter, r *http.Request) error {
		var req loginRequest
		if err := bind(r, &req); err != nil {
			return err
		}
		roles, ok := s.checkPassword(req.Name, req.Password)
		if !ok {
			return errUnauthorized
		}
		token := strings.ReplaceAll(uuid.NewString(), "-", "")
		s.mu.Lock()
		s.sessions[token] = req.Name
		s.mu.Unlock()
		http.SetCookie(w, &http.Cookie{
			Name:     kivik.SessionCookieName,
			Value:    token,
			Path:     "/",
			HttpOnly: true,
		})
		if roles == nil {
			roles = []string{}
		}
		return serveJSON(w, http.StatusOK, map[string]interface{}{
			"ok":    true,
			"name":  req.Name,
			"roles": roles,
		})
	})
}

func (s *Server) getSession() httpe.HandlerWithError {
	return httpe.HandlerWithErrorFunc(func(w http.ResponseWriter, r *http.Request) error {
		user, err := s.authenticate(r)
		if err != nil {
			return err
		}
		var name interface{}
		roles := []string{}
		method := ""
		switch {
		case user != nil:
			name = user.Name
			if user.Roles != nil {
				roles = user.Roles
			}
			method = user.Method
		case s.adminParty():
			roles = []string{roleAdmin}
		}
		info := map[string]interface{}{
			"authentication_db":       usersDB,
			"authentication_handlers": []string{"cookie", "default"},
		}
		if method != "" {
			info["authenticated"] = method
		}
		return serveJSON(w, http.StatusOK, map[string]interface{}{
			"ok": true,
			"userCtx": map[string]interface{}{
				"name":  name,
				"roles": roles,
			},
			"info": info,
		})
	})
}

func (s *Server) deleteSession() httpe.HandlerWithError {
	return httpe.HandlerWithErrorFunc(func(w http.ResponseWriter, r *http.Request) error {
		if cookie, err := r.Cookie(kivik.SessionCookieName); err == nil {
			s.mu.Lock()
			delete(s.sessions, cookie.Value)
			s.mu.Unlock()
		}
		http.SetCookie(w, &http.Cookie{
			Name:   kivik.SessionCookieName,
			Value:  "",
			Path:   "/",
			MaxAge: -1,
		})
		return serveJSON(w, http.StatusOK, map[string]bool{"ok": true})
	})
}
