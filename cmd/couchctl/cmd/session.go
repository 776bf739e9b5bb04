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

package cmd

import (
	"github.com/spf13/cobra"

	"github.com/go-kivik/couchclient/cmd/couchctl/config"
	"github.com/go-kivik/couchclient/cmd/couchctl/errors"
)

type login struct {
	*root
	save bool
}

func loginCmd(r *root) *cobra.Command {
	l := &login{
		root: r,
	}
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in and print the session",
		Long: `Log in with the configured username and password. With --save, the
session token is stored in the config file, and sent with later commands
instead of the password.`,
		Args: cobra.NoArgs,
		RunE: l.RunE,
	}
	cmd.Flags().BoolVar(&l.save, "save", false, "Store the session token in the config file")
	return cmd
}

func (c *login) RunE(cmd *cobra.Command, _ []string) error {
	if c.conf.Username == "" {
		return errors.Code(errors.ErrUsage, "login requires --user")
	}
	client, err := c.client()
	if err != nil {
		return err
	}
	c.log.Debugf("[login] Logging in as %s", c.conf.Username)
	session, err := client.CreateSession(cmd.Context(), c.conf.Username, c.conf.Password)
	if err != nil {
		return err
	}
	if c.save {
		path := c.resolveHome(c.confFile)
		saved := &config.Config{
			URL:      client.BaseURL(),
			Username: c.conf.Username,
			Session:  session.Token(),
			Timeout:  c.conf.Timeout,
		}
		if err := saved.Save(path); err != nil {
			return err
		}
		c.log.Debugf("[login] Session saved to %s", path)
	}
	return c.fmt.JSON(session.Body)
}

type logout struct {
	*root
}

func logoutCmd(r *root) *cobra.Command {
	l := &logout{
		root: r,
	}
	return &cobra.Command{
		Use:   "logout",
		Short: "End the configured session",
		Args:  cobra.NoArgs,
		RunE:  l.RunE,
	}
}

func (c *logout) RunE(cmd *cobra.Command, _ []string) error {
	if c.conf.Session == "" {
		return errors.Code(errors.ErrUsage, "no session to log out of")
	}
	client, err := c.client()
	if err != nil {
		return err
	}
	if err := client.DeleteSession(cmd.Context()); err != nil {
		return err
	}
	return c.fmt.Value(map[string]bool{"ok": true})
}

type session struct {
	*root
}

func sessionCmd(r *root) *cobra.Command {
	s := &session{
		root: r,
	}
	return &cobra.Command{
		Use:   "session",
		Short: "Describe the authenticated user",
		Args:  cobra.NoArgs,
		RunE:  s.RunE,
	}
}

func (c *session) RunE(cmd *cobra.Command, _ []string) error {
	client, err := c.client()
	if err != nil {
		return err
	}
	info, err := client.Session(cmd.Context())
	if err != nil {
		return err
	}
	c.log.Debugf("[session] Authenticated as %q by %s", info.Name, info.AuthenticationMethod)
	return c.fmt.JSON(info.RawResponse)
}
