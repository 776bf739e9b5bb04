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

// Package output renders command results.
package output

import (
	"bytes"
	"encoding/json"
	"io"
	"os"
	"sort"
	"strings"
	"sync"

	"github.com/spf13/pflag"

	"github.com/go-kivik/couchclient/cmd/couchctl/errors"
)

// Format is the output format interface. The reader carries a JSON value.
type Format interface {
	Output(io.Writer, io.Reader) error
}

// FormatFunc adapts a function to the Format interface.
type FormatFunc func(io.Writer, io.Reader) error

// Output calls f(w, r).
func (f FormatFunc) Output(w io.Writer, r io.Reader) error {
	return f(w, r)
}

// Formatter manages output formatting.
type Formatter struct {
	mu      sync.Mutex
	formats map[string]Format
	stdout  io.Writer

	format    string
	output    string
	overwrite bool
}

// New returns an output formatter with the json, yaml and raw formats
// registered. JSON is the default.
func New() *Formatter {
	f := &Formatter{
		formats: map[string]Format{},
		stdout:  os.Stdout,
	}
	f.Register("json", FormatFunc(jsonFormat))
	f.Register("yaml", FormatFunc(yamlFormat))
	f.Register("raw", FormatFunc(rawFormat))
	return f
}

// Register registers an output format.
func (f *Formatter) Register(name string, format Format) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.formats[name]; ok {
		panic(name + " already registered")
	}
	f.formats[name] = format
}

func (f *Formatter) options() []string {
	names := make([]string, 0, len(f.formats))
	for name := range f.formats {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ConfigFlags sets up the CLI flags based on the registered formats.
func (f *Formatter) ConfigFlags(fs *pflag.FlagSet) {
	fs.StringVarP(&f.format, "output", "o", "json", "Output format. One of: "+strings.Join(f.options(), "|"))
	fs.StringVar(&f.output, "output-file", "", "Write output to this file instead of stdout.")
	fs.BoolVarP(&f.overwrite, "overwrite", "F", false, "Overwrite the output file")
}

// SetOut sets the destination used when no output file is configured.
func (f *Formatter) SetOut(w io.Writer) {
	f.stdout = w
}

// Validate reports an error if the configured format is unknown.
func (f *Formatter) Validate() error {
	_, err := f.formatter()
	return err
}

// Output renders the JSON read from r.
func (f *Formatter) Output(r io.Reader) error {
	format, err := f.formatter()
	if err != nil {
		return err
	}
	out, err := f.writer()
	if err != nil {
		return err
	}
	if err := format.Output(out, r); err != nil {
		_ = out.Close()
		return errors.Code(errors.ErrProtocol, err)
	}
	return out.Close()
}

// JSON renders data, which must be a JSON document.
func (f *Formatter) JSON(data []byte) error {
	return f.Output(bytes.NewReader(data))
}

// Value marshals v as JSON and renders it.
func (f *Formatter) Value(v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return errors.Code(errors.ErrData, err)
	}
	return f.JSON(data)
}

func (f *Formatter) formatter() (Format, error) {
	name := f.format
	if name == "" {
		name = "json"
	}
	if format, ok := f.formats[name]; ok {
		return format, nil
	}
	return nil, errors.Codef(errors.ErrUsage, "unrecognized output format option: %s", name)
}

func (f *Formatter) writer() (io.WriteCloser, error) {
	switch f.output {
	case "", "-":
		return ensureNewlineEnding(f.stdout, nil), nil
	}
	file, err := f.createFile(f.output)
	if err != nil {
		return nil, errors.Code(errors.ErrCantCreate, err)
	}
	return ensureNewlineEnding(file, file), nil
}

func (f *Formatter) createFile(path string) (*os.File, error) {
	if f.overwrite {
		return os.Create(path)
	}
	return os.OpenFile(path, os.O_EXCL|os.O_CREATE|os.O_WRONLY, 0o666) //nolint:gomnd
}

func ensureNewlineEnding(w io.Writer, c io.Closer) io.WriteCloser {
	return &addNewlineEnding{Writer: w, closer: c}
}

type addNewlineEnding struct {
	io.Writer
	closer io.Closer
	last   byte
}

func (w *addNewlineEnding) Write(p []byte) (int, error) {
	if len(p) > 0 {
		w.last = p[len(p)-1]
	}
	return w.Writer.Write(p)
}

func (w *addNewlineEnding) Close() error {
	if w.last != 0 && w.last != '\n' {
		if _, err := w.Writer.Write([]byte{'\n'}); err != nil {
			return err
		}
	}
	if w.closer != nil {
		return w.closer.Close()
	}
	return nil
}
