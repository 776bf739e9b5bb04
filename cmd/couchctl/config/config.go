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

// Package config resolves couchctl settings from flags, the environment,
// .env files and a YAML config file, in that order of precedence.
package config

import (
	"fmt"
	"os"
	"os/user"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/go-kivik/couchclient/cmd/couchctl/errors"
)

// EnvPrefix is the prefix of environment variables read by couchctl, such
// as COUCHCTL_URL.
const EnvPrefix = "COUCHCTL"

// DefaultFile is the config file read when none is given explicitly.
const DefaultFile = "~/.couchctl.yaml"

// Config holds the connection settings of the CLI.
type Config struct {
	URL      string        `mapstructure:"url" yaml:"url,omitempty" validate:"omitempty,url"`
	Username string        `mapstructure:"username" yaml:"username,omitempty" validate:"required_with=Password"`
	Password string        `mapstructure:"password" yaml:"password,omitempty"`
	Session  string        `mapstructure:"session" yaml:"session,omitempty"`
	Timeout  time.Duration `mapstructure:"timeout" yaml:"timeout,omitempty" validate:"gte=0"`
}

// keys lists every setting, mapped to the flag bound to it.
var keys = map[string]string{
	"url":      "url",
	"username": "user",
	"password": "password",
	"session":  "session",
	"timeout":  "timeout",
}

// Loader reads configuration.
type Loader struct {
	v        *viper.Viper
	validate *validator.Validate
}

// New returns a Loader reading COUCHCTL_* environment variables.
func New() *Loader {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	for key := range keys {
		v.SetDefault(key, "")
	}
	v.SetDefault("timeout", time.Duration(0))
	return &Loader{
		v:        v,
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}
}

// ConfigFlags registers the connection flags on fs, and binds them so that
// an explicitly set flag overrides every other source.
func (l *Loader) ConfigFlags(fs *pflag.FlagSet) {
	fs.String("url", "", "CouchDB server URL")
	fs.StringP("user", "u", "", "Username for HTTP Basic Auth")
	fs.StringP("password", "p", "", "Password for HTTP Basic Auth")
	fs.String("session", "", "AuthSession token, as returned by the login command")
	fs.Duration("timeout", 0, "The time limit for each request")
	for key, flag := range keys {
		_ = l.v.BindPFlag(key, fs.Lookup(flag))
	}
}

// Load reads the .env files and the config file at path, then returns the
// resolved, validated configuration. Missing .env files are ignored. A
// missing config file is an error only when required is true.
func (l *Loader) Load(path string, required bool, envFiles ...string) (*Config, error) {
	for _, file := range envFiles {
		if err := godotenv.Load(file); err != nil && !os.IsNotExist(err) {
			return nil, errors.Codef(errors.ErrUsage, "load %s: %s", file, err)
		}
	}
	if path != "" {
		if err := l.readFile(path, required); err != nil {
			return nil, err
		}
	}
	conf := &Config{}
	if err := l.v.Unmarshal(conf); err != nil {
		return nil, errors.Code(errors.ErrUsage, err)
	}
	if err := l.validate.Struct(conf); err != nil {
		return nil, errors.Code(errors.ErrUsage, validationError(err))
	}
	return conf, nil
}

func (l *Loader) readFile(path string, required bool) error {
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) && !required {
			return nil
		}
		return errors.Code(errors.ErrNoInput, err)
	}
	l.v.SetConfigFile(path)
	l.v.SetConfigType("yaml")
	if err := l.v.ReadInConfig(); err != nil {
		return errors.Codef(errors.ErrUsage, "read config %s: %s", path, err)
	}
	return nil
}

func validationError(err error) error {
	verrs, ok := err.(validator.ValidationErrors)
	if !ok || len(verrs) == 0 {
		return err
	}
	fe := verrs[0]
	switch fe.Tag() {
	case "url":
		return fmt.Errorf("invalid server URL: %q", fe.Value())
	case "required_with":
		return fmt.Errorf("%s is required when %s is set", strings.ToLower(fe.Field()), strings.ToLower(fe.Param()))
	}
	return fmt.Errorf("invalid %s", strings.ToLower(fe.Field()))
}

// Save writes conf to path as YAML, readable only by its owner.
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return errors.Code(errors.ErrData, err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil { //nolint:gomnd
		return errors.Code(errors.ErrCantCreate, err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil { //nolint:gomnd
		return errors.Code(errors.ErrCantCreate, err)
	}
	return nil
}

// ResolveHome expands a leading ~/ in path to the current user's home
// directory.
func ResolveHome(path string) string {
	if !strings.HasPrefix(path, "~/") {
		return path
	}
	usr, err := user.Current()
	if err != nil {
		return path
	}
	return filepath.Join(usr.HomeDir, path[2:])
}
