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

package chttp

import (
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"net/http"

	kivik "github.com/go-kivik/kivik/v4"
)

// HTTPError is an error that represents an HTTP transport error.
type HTTPError struct {
	// Response is the HTTP response received by the client.  The response body
	// should already be closed, but the response and request headers and other
	// metadata will typically be in tact for debugging purposes.
	Response *http.Response `json:"-"`

	// Err is the server-supplied error name, such as "conflict".
	Err string `json:"error"`

	// Reason is the server-supplied error reason.
	Reason string `json:"reason"`
}

func (e *HTTPError) Error() string {
	if e.Reason == "" {
		return http.StatusText(e.HTTPStatus())
	}
	if statusText := http.StatusText(e.HTTPStatus()); statusText != "" {
		return fmt.Sprintf("%s: %s", statusText, e.Reason)
	}
	return e.Reason
}

// HTTPStatus returns the embedded status code.
func (e *HTTPError) HTTPStatus() int {
	return e.Response.StatusCode
}

// Format implements fmt.Formatter. The %+v verb includes a summary of the
// request and response.
func (e *HTTPError) Format(f fmt.State, c rune) {
	if c != 'v' || !f.Flag('+') || e.Response == nil || e.Response.Request == nil {
		_, _ = io.WriteString(f, e.Error())
		return
	}
	req := e.Response.Request
	_, _ = fmt.Fprintf(f, "%s:\n    REQUEST: %s %s (%d bytes)\n    RESPONSE: %d / %s (%d bytes)",
		e.Error(),
		req.Method, req.URL, req.ContentLength,
		e.Response.StatusCode, http.StatusText(e.Response.StatusCode), e.Response.ContentLength,
	)
}

// ResponseError returns an error from an *http.Response if the status code
// indicates an error.
func ResponseError(resp *http.Response) error {
	if resp.StatusCode < 400 { // nolint:gomnd
		return nil
	}
	if resp.Body != nil {
		defer CloseBody(resp.Body)
	}
	httpErr := &HTTPError{
		Response: resp,
	}
	if resp.Request != nil && resp.Request.Method != http.MethodHead && resp.ContentLength != 0 {
		if ct, _, _ := mime.ParseMediaType(resp.Header.Get("Content-Type")); ct == typeJSON {
			_ = json.NewDecoder(resp.Body).Decode(httpErr)
		}
	}
	return httpErr
}

// curlError carries an HTTP status for errors which did not originate from
// a server response, such as network failures or invalid input.
type curlError struct {
	httpStatus int
	error
}

func (e *curlError) HTTPStatus() int {
	return e.httpStatus
}

func (e *curlError) Unwrap() error {
	return e.error
}

func (e *curlError) Cause() error {
	return e.error
}

func fullError(httpStatus int, err error) error {
	return &curlError{
		httpStatus: httpStatus,
		error:      err,
	}
}

// WithStatus annotates err with the provided HTTP status. A nil err yields
// nil.
func WithStatus(status int, err error) error {
	if err == nil {
		return nil
	}
	return fullError(status, err)
}

// StatusError returns an error with the provided HTTP status and message.
func StatusError(status int, format string, args ...interface{}) error {
	return fullError(status, fmt.Errorf(format, args...))
}

// IsNotFound reports whether err carries a 404 (Not Found) status.
func IsNotFound(err error) bool {
	return kivik.HTTPStatus(err) == http.StatusNotFound
}
