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

// Package cmd implements the couchctl commands.
package cmd

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/go-kivik/couchclient"
	"github.com/go-kivik/couchclient/chttp"
	"github.com/go-kivik/couchclient/cmd/couchctl/config"
	"github.com/go-kivik/couchclient/cmd/couchctl/errors"
	"github.com/go-kivik/couchclient/cmd/couchctl/log"
	"github.com/go-kivik/couchclient/cmd/couchctl/output"
)

type root struct {
	confFile string
	envFiles []string
	debug    bool
	verbose  bool
	log      log.Logger
	loader   *config.Loader
	conf     *config.Config
	cmd      *cobra.Command
	fmt      *output.Formatter

	trace *chttp.ClientTrace

	// resolveHome is used to resolve ~ in the config file path
	resolveHome func(string) string
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute(ctx context.Context) {
	lg := log.New()
	root := rootCmd(lg)
	os.Exit(root.execute(ctx))
}

func (r *root) execute(ctx context.Context) int {
	ctx = chttp.WithClientTrace(ctx, r.clientTrace())
	err := r.cmd.ExecuteContext(ctx)
	if err == nil {
		return 0
	}
	r.log.Error(err)
	return extractExitCode(err)
}

func extractExitCode(err error) int {
	if code := errors.InspectErrorCode(err); code != 0 {
		return code
	}

	// Any unhandled errors are assumed to be from Cobra, so return a "failed
	// to initialize" error
	return errors.ErrUsage
}

func rootCmd(lg log.Logger) *root {
	r := &root{
		log:         lg,
		loader:      config.New(),
		fmt:         output.New(),
		resolveHome: config.ResolveHome,
	}
	r.cmd = &cobra.Command{
		Use:               "couchctl",
		Short:             "couchctl manages documents and views on a CouchDB server",
		Long:              `This tool wraps the couchclient library, exposing documents, design documents, views and sessions on the command line.`,
		PersistentPreRunE: r.init,
		SilenceErrors:     true,
	}

	pf := r.cmd.PersistentFlags()
	r.fmt.ConfigFlags(pf)
	r.loader.ConfigFlags(pf)
	pf.StringVar(&r.confFile, "config", config.DefaultFile, "Path to config file to use for CLI requests")
	pf.StringSliceVar(&r.envFiles, "env-file", []string{".env"}, "Files of environment variables to load. May be repeated.")
	pf.BoolVar(&r.debug, "debug", false, "Enable debug output")
	pf.BoolVarP(&r.verbose, "verbose", "v", false, "Output bi-directional network traffic")

	r.cmd.AddCommand(loginCmd(r))
	r.cmd.AddCommand(logoutCmd(r))
	r.cmd.AddCommand(sessionCmd(r))
	r.cmd.AddCommand(getCmd(r))
	r.cmd.AddCommand(existsCmd(r))
	r.cmd.AddCommand(listCmd(r))
	r.cmd.AddCommand(createCmd(r))
	r.cmd.AddCommand(updateCmd(r))
	r.cmd.AddCommand(deleteCmd(r))
	r.cmd.AddCommand(ddocCmd(r))
	r.cmd.AddCommand(viewCmd(r))
	r.cmd.AddCommand(hashCmd(r))
	r.cmd.AddCommand(createUserCmd(r))
	r.cmd.AddCommand(replicateCmd(r))
	r.cmd.AddCommand(versionCmd(r))

	return r
}

func (r *root) init(cmd *cobra.Command, _ []string) error {
	r.log.SetOut(cmd.OutOrStdout())
	r.log.SetErr(cmd.ErrOrStderr())
	r.log.SetDebug(r.debug)
	r.fmt.SetOut(cmd.OutOrStdout())

	r.log.Debug("Debug mode enabled")

	if err := r.fmt.Validate(); err != nil {
		return err
	}
	path := r.resolveHome(r.confFile)
	conf, err := r.loader.Load(path, cmd.Flags().Changed("config"), r.envFiles...)
	if err != nil {
		return err
	}
	r.conf = conf
	cmd.SilenceUsage = true

	r.setTrace()
	return nil
}

func (r *root) client() (*couchclient.Client, error) {
	if r.conf.URL == "" {
		return nil, errors.Code(errors.ErrUsage, "no server URL provided; use --url or set "+config.EnvPrefix+"_URL")
	}
	opts := []couchclient.Option{
		couchclient.WithUserAgent("couchctl/" + couchclient.Version),
	}
	if r.conf.Timeout > 0 {
		opts = append(opts, couchclient.WithHTTPClient(&http.Client{Timeout: r.conf.Timeout}))
	}
	username := r.conf.Username
	if r.conf.Session != "" && r.conf.Password == "" {
		// A saved session stands in for the password.
		username = ""
	}
	client, err := couchclient.New(r.conf.URL, username, r.conf.Password, opts...)
	if err != nil {
		return nil, errors.Code(errors.ErrUsage, err)
	}
	client.SetAuthSession(r.conf.Session)
	r.log.Debugf("Server: %s", client.BaseURL())
	return client, nil
}

func (r *root) database(name string) (*couchclient.Database, error) {
	client, err := r.client()
	if err != nil {
		return nil, err
	}
	db, err := client.Database(name)
	if err != nil {
		return nil, errors.Code(errors.ErrUsage, err)
	}
	return db, nil
}

// readJSON returns the JSON document named by arg: "-" reads stdin, a
// leading @ names a file, and anything else is the document itself.
func (r *root) readJSON(cmd *cobra.Command, arg string) (json.RawMessage, error) {
	var data []byte
	var err error
	switch {
	case arg == "-":
		data, err = io.ReadAll(cmd.InOrStdin())
	case strings.HasPrefix(arg, "@"):
		data, err = os.ReadFile(arg[1:])
	default:
		data = []byte(arg)
	}
	if err != nil {
		return nil, errors.Code(errors.ErrNoInput, err)
	}
	data = []byte(strings.TrimSpace(string(data)))
	if !json.Valid(data) {
		return nil, errors.Code(errors.ErrData, "invalid JSON input")
	}
	return data, nil
}

// jsonArg interprets a command line value as JSON when it parses as such,
// and as a plain string otherwise.
func jsonArg(s string) interface{} {
	if json.Valid([]byte(s)) {
		return json.RawMessage(s)
	}
	return s
}
