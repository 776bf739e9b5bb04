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
	"net/http"
	"strings"

	"github.com/go-kivik/couchclient/chttp"
)

type replicationRequest struct {
	Source string   `json:"source"`
	Target string   `json:"target"`
	DocIDs []string `json:"doc_ids"`
}

// ReplicateDesignDocument asks the server at fromURL to replicate a single
// document, usually a design document, from this database on that server to
// targetURL. ddocID is the full document ID, including any _design/ prefix.
// The request is sent to fromURL, authenticated only by credentials embedded
// in it.
func (d *Database) ReplicateDesignDocument(ctx context.Context, fromURL, targetURL, ddocID string) (json.RawMessage, error) {
	if fromURL == "" {
		return nil, missingArg("fromURL")
	}
	if targetURL == "" {
		return nil, missingArg("targetURL")
	}
	if ddocID == "" {
		return nil, missingArg("ddocID")
	}
	source, err := d.dial(fromURL)
	if err != nil {
		return nil, err
	}
	opts := &chttp.Options{
		GetBody: chttp.BodyEncoder(replicationRequest{
			Source: strings.TrimSuffix(fromURL, "/") + "/" + d.name,
			Target: targetURL,
			DocIDs: []string{ddocID},
		}),
	}
	return source.DoRaw(ctx, http.MethodPost, pathReplicate, opts)
}
