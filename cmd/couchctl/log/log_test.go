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

package log

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func newTestLogger() (Logger, *bytes.Buffer, *bytes.Buffer) {
	stdout, stderr := &bytes.Buffer{}, &bytes.Buffer{}
	l := New()
	l.SetOut(stdout)
	l.SetErr(stderr)
	return l, stdout, stderr
}

func TestLoggerStreams(t *testing.T) {
	l, stdout, stderr := newTestLogger()

	l.Info("hello")
	l.Infof("count: %d", 3)
	l.Error("boom")
	l.Errorf("failed: %s", "reason")

	assert.Contains(t, stdout.String(), "hello")
	assert.Contains(t, stdout.String(), "count: 3")
	assert.NotContains(t, stdout.String(), "boom")
	assert.Contains(t, stderr.String(), "boom")
	assert.Contains(t, stderr.String(), "failed: reason")
	assert.NotContains(t, stderr.String(), "hello")
}

func TestLoggerDebug(t *testing.T) {
	l, stdout, stderr := newTestLogger()

	l.Debug("hidden")
	l.Debugf("hidden %d", 1)
	assert.Empty(t, stderr.String())

	l.SetDebug(true)
	l.Debug("shown")
	l.Debugf("shown %d", 2)
	assert.Contains(t, stderr.String(), "shown")
	assert.Contains(t, stderr.String(), "shown 2")
	assert.Empty(t, stdout.String())

	l.SetDebug(false)
	stderr.Reset()
	l.Debug("hidden again")
	assert.Empty(t, stderr.String())
}

func TestLoggerTrimsWhitespace(t *testing.T) {
	l, stdout, _ := newTestLogger()

	l.Info("  padded \n")
	assert.Equal(t, "padded\n", stdout.String())
}
