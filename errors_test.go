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
	"fmt"
	"net/http"
	"testing"

	kivik "github.com/go-kivik/kivik/v4"
)

func TestAuthenticationError(t *testing.T) {
	tests := []struct {
		name     string
		err      *AuthenticationError
		expected string
	}{
		{
			name:     "no reason",
			err:      &AuthenticationError{Status: http.StatusUnauthorized},
			expected: "Login failed",
		},
		{
			name:     "reason",
			err:      &AuthenticationError{Status: http.StatusUnauthorized, Reason: "Name or password is incorrect."},
			expected: "Login failed: Name or password is incorrect.",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if msg := tt.err.Error(); msg != tt.expected {
				t.Errorf("Unexpected message: %s", msg)
			}
			wrapped := fmt.Errorf("login: %w", tt.err)
			if status := kivik.HTTPStatus(wrapped); status != tt.err.Status {
				t.Errorf("Unexpected status: %d", status)
			}
		})
	}
}
