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

// Package log handles logging.
package log

import (
	"io"
	"os"
	"strings"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger is the standard logger interface.
type Logger interface {
	// SetOut sets the destination for normal output.
	SetOut(io.Writer)
	// SetErr sets the destination for error output.
	SetErr(io.Writer)
	// SetDebug turns debug mode on or off.
	SetDebug(bool)
	// Debug logs debug output.
	Debug(...any)
	// Debugf logs formatted debug output.
	Debugf(string, ...any)
	// Info logs normal priority messages.
	Info(...any)
	// Infof logs formatted normal priority messages.
	Infof(string, ...any)
	// Error logs error messages.
	Error(...any)
	// Errorf logs formatted error messages.
	Errorf(string, ...any)
}

// logger sends info messages to stdout, and debug and error messages to
// stderr, each through its own zap core.
type logger struct {
	mu     sync.Mutex
	level  zap.AtomicLevel
	stdout *zap.SugaredLogger
	stderr *zap.SugaredLogger
}

var _ Logger = &logger{}

// New returns a new logger instance.
func New() Logger {
	l := &logger{
		level: zap.NewAtomicLevelAt(zapcore.InfoLevel),
	}
	l.stdout = l.sugar(os.Stdout)
	l.stderr = l.sugar(os.Stderr)
	return l
}

// sugar builds a message-only console logger writing to w.
func (l *logger) sugar(w io.Writer) *zap.SugaredLogger {
	enc := zap.NewDevelopmentEncoderConfig()
	enc.TimeKey = ""
	enc.LevelKey = ""
	enc.NameKey = ""
	enc.CallerKey = ""
	enc.StacktraceKey = ""
	core := zapcore.NewCore(zapcore.NewConsoleEncoder(enc), zapcore.AddSync(w), l.level)
	return zap.New(core).Sugar()
}

func (l *logger) SetOut(out io.Writer) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.stdout = l.sugar(out)
}

func (l *logger) SetErr(err io.Writer) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.stderr = l.sugar(err)
}

func (l *logger) SetDebug(debug bool) {
	if debug {
		l.level.SetLevel(zapcore.DebugLevel)
		return
	}
	l.level.SetLevel(zapcore.InfoLevel)
}

func (l *logger) out() *zap.SugaredLogger {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.stdout
}

func (l *logger) err() *zap.SugaredLogger {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.stderr
}

func (l *logger) Debug(args ...any) {
	l.err().Debug(trim(args)...)
}

func (l *logger) Debugf(format string, args ...any) {
	l.err().Debugf(strings.TrimSpace(format), args...)
}

func (l *logger) Info(args ...any) {
	l.out().Info(trim(args)...)
}

func (l *logger) Infof(format string, args ...any) {
	l.out().Infof(strings.TrimSpace(format), args...)
}

func (l *logger) Error(args ...any) {
	l.err().Error(trim(args)...)
}

func (l *logger) Errorf(format string, args ...any) {
	l.err().Errorf(strings.TrimSpace(format), args...)
}

func trim(args []any) []any {
	if len(args) == 1 {
		if s, ok := args[0].(string); ok {
			return []any{strings.TrimSpace(s)}
		}
	}
	return args
}
