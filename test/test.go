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

// Package test runs couchclient against a real CouchDB server, started in a
// Docker container. The tests are skipped unless USETC is set, or
// COUCHCLIENT_TEST_DSN names an existing server.
package test

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

const (
	couchImage = "couchdb:3.4"
	adminUser  = "admin"
	adminPass  = "abc123"
)

var startCouchDBOnce = sync.OnceValues(startCouchDBContainer)

// dsn returns the URL of the server under test, with admin credentials.
func dsn(t *testing.T) string {
	t.Helper()
	if dsn := os.Getenv("COUCHCLIENT_TEST_DSN"); dsn != "" {
		return dsn
	}
	if os.Getenv("USETC") == "" {
		t.Skip("USETC not set, skipping testcontainers")
	}
	dsn, err := startCouchDBOnce()
	if err != nil {
		t.Fatal(err)
	}
	return dsn
}

func startCouchDBContainer() (string, error) {
	ctx := context.Background()
	req := testcontainers.ContainerRequest{
		Image:        couchImage,
		ExposedPorts: []string{"5984/tcp"},
		WaitingFor:   wait.ForHTTP("/").WithPort("5984/tcp").WithStartupTimeout(120 * time.Second),
		Env: map[string]string{
			"COUCHDB_USER":     adminUser,
			"COUCHDB_PASSWORD": adminPass,
		},
	}
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		return "", err
	}
	ip, err := container.Host(ctx)
	if err != nil {
		return "", err
	}
	mappedPort, err := container.MappedPort(ctx, "5984/tcp")
	if err != nil {
		return "", err
	}
	dsn := fmt.Sprintf("http://%s:%s@%s:%s", adminUser, adminPass, ip, mappedPort.Port())
	for _, db := range []string{"_replicator", "_users"} {
		if err := put(dsn+"/"+db, nil); err != nil {
			return "", err
		}
	}
	return dsn, nil
}

// createDB creates a database, and deletes it when the test completes.
func createDB(t *testing.T, dsn, name string) {
	t.Helper()
	if err := put(dsn+"/"+name, nil); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		req, _ := http.NewRequest(http.MethodDelete, dsn+"/"+name, nil)
		if resp, err := http.DefaultClient.Do(req); err == nil {
			_ = resp.Body.Close()
		}
	})
}

func put(path string, body io.Reader) error {
	rq, err := http.NewRequest(http.MethodPut, path, body)
	if err != nil {
		return err
	}
	rq.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(rq)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	switch resp.StatusCode {
	case http.StatusOK, http.StatusCreated, http.StatusPreconditionFailed:
		return nil
	}
	return fmt.Errorf("failed to create database: %s", resp.Status)
}
