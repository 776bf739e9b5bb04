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

package test

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"gitlab.com/flimzy/testy"

	kivik "github.com/go-kivik/kivik/v4"

	"github.com/go-kivik/couchclient"
)

func newClient(t *testing.T) *couchclient.Client {
	t.Helper()
	client, err := couchclient.New(dsn(t), "", "")
	if err != nil {
		t.Fatal(err)
	}
	return client
}

func decode(t *testing.T, raw json.RawMessage) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	if err := json.Unmarshal(raw, &out); err != nil {
		t.Fatal(err)
	}
	return out
}

func TestSession(t *testing.T) {
	client := newClient(t)
	ctx := context.Background()

	if _, err := client.CreateSession(ctx, adminUser, "wrong"); kivik.HTTPStatus(err) != http.StatusUnauthorized {
		t.Fatalf("Unexpected error: %v", err)
	}
	session, err := client.CreateSession(ctx, adminUser, adminPass)
	if err != nil {
		t.Fatal(err)
	}
	client.SetCredentials("", "")
	client.SetAuthSession(session.Token())

	info, err := client.Session(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if info.Name != adminUser || info.AuthenticationMethod != "cookie" {
		t.Errorf("Unexpected session: %+v", info)
	}
	if err := client.DeleteSession(ctx); err != nil {
		t.Fatal(err)
	}
	if client.AuthSession() != "" {
		t.Errorf("Session token not removed")
	}
}

func TestDocuments(t *testing.T) {
	client := newClient(t)
	createDB(t, dsn(t), "couchclient_docs")
	ctx := context.Background()
	db, err := client.Database("couchclient_docs")
	if err != nil {
		t.Fatal(err)
	}

	created, err := db.Create(ctx, map[string]string{"name": "apple"})
	if err != nil {
		t.Fatal(err)
	}
	result := decode(t, created)
	id, rev := result["id"].(string), result["rev"].(string)

	doc, err := db.Get(ctx, id)
	if err != nil {
		t.Fatal(err)
	}
	stored := decode(t, doc)
	stored["name"] = "pear"
	if _, err := db.Update(ctx, stored); err != nil {
		t.Fatal(err)
	}
	if _, err := db.Update(ctx, stored); kivik.HTTPStatus(err) != http.StatusConflict {
		t.Errorf("Expected conflict, got: %v", err)
	}
	if !db.Exists(ctx, id) {
		t.Errorf("Document %s should exist", id)
	}

	items, err := db.GetItems(ctx, 10, 0)
	if err != nil {
		t.Fatal(err)
	}
	if rows := decode(t, items)["rows"].([]interface{}); len(rows) != 1 {
		t.Errorf("Unexpected rows: %v", rows)
	}

	if _, err := db.Delete(ctx, id, rev); kivik.HTTPStatus(err) != http.StatusConflict {
		t.Errorf("Expected conflict deleting stale revision, got: %v", err)
	}
	current := decode(t, mustGet(t, db, id))
	if _, err := db.Delete(ctx, id, current["_rev"].(string)); err != nil {
		t.Fatal(err)
	}
	if ok, err := db.Check(ctx, id); err != nil || ok {
		t.Errorf("Unexpected check result: %v, %v", ok, err)
	}
}

func mustGet(t *testing.T, db *couchclient.Database, id string) json.RawMessage {
	t.Helper()
	doc, err := db.Get(context.Background(), id)
	if err != nil {
		t.Fatal(err)
	}
	return doc
}

func TestViews(t *testing.T) {
	client := newClient(t)
	createDB(t, dsn(t), "couchclient_views")
	ctx := context.Background()
	db, err := client.Database("couchclient_views")
	if err != nil {
		t.Fatal(err)
	}
	_, err = db.CreateDesignDocument(ctx, "idx", map[string]interface{}{
		"views": map[string]interface{}{
			"by_type": map[string]string{
				"map":    "function(doc) { if (doc.type) { emit(doc.type, 1); } }",
				"reduce": "_count",
			},
		},
	})
	if err != nil {
		t.Fatal(err)
	}
	for _, doc := range []string{
		`{"_id":"a","type":"fruit"}`,
		`{"_id":"b","type":"fruit"}`,
		`{"_id":"c","type":"grain"}`,
	} {
		if _, err := db.Update(ctx, doc); err != nil {
			t.Fatal(err)
		}
	}
	ddoc := db.DesignDocument("idx")
	if !ddoc.Exists(ctx) {
		t.Fatal("design document should exist")
	}

	byKey, err := ddoc.ViewByKey(ctx, "by_type", "fruit")
	if err != nil {
		t.Fatal(err)
	}
	if rows := decode(t, byKey)["rows"].([]interface{}); len(rows) != 2 {
		t.Errorf("Unexpected rows: %v", rows)
	}

	aggregate, err := ddoc.AggregateRangeView(ctx, "by_type", "a", "z")
	if err != nil {
		t.Fatal(err)
	}
	want := `{"rows":[{"key":"fruit","value":2},{"key":"grain","value":1}]}`
	if d := testy.DiffAsJSON([]byte(want), []byte(aggregate)); d != nil {
		t.Error(d)
	}

	_, err = ddoc.View("missing").Get(ctx)
	if status := kivik.HTTPStatus(err); status != http.StatusNotFound {
		t.Errorf("Unexpected status: %d", status)
	}
}

func TestCreateUser(t *testing.T) {
	client := newClient(t)
	ctx := context.Background()

	if _, err := client.CreateUser(ctx, "couchclient_bob", "secret", "", []string{"reader"}, ""); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		db, _ := client.Database("_users")
		if doc, err := db.Get(ctx, "org.couchdb.user:couchclient_bob"); err == nil {
			var user struct {
				Rev string `json:"_rev"`
			}
			_ = json.Unmarshal(doc, &user)
			_, _ = db.Delete(ctx, "org.couchdb.user:couchclient_bob", user.Rev)
		}
	})
	session, err := client.CreateSession(ctx, "couchclient_bob", "secret")
	if err != nil {
		t.Fatal(err)
	}
	if d := testy.DiffAsJSON([]byte(`{"ok":true,"name":"couchclient_bob","roles":["reader"]}`), []byte(session.Body)); d != nil {
		t.Error(d)
	}
}
