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

	"github.com/go-kivik/couchclient/cmd/couchctl/errors"
)

func ddocCmd(r *root) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "ddoc",
		Aliases: []string{"design"},
		Short:   "Manage design documents",
	}
	cmd.AddCommand(ddocGetCmd(r))
	cmd.AddCommand(ddocPutCmd(r))
	cmd.AddCommand(ddocExistsCmd(r))
	return cmd
}

type ddocGet struct {
	*root
}

func ddocGetCmd(r *root) *cobra.Command {
	g := &ddocGet{
		root: r,
	}
	return &cobra.Command{
		Use:   "get [database] [name]",
		Short: "Get a design document",
		Args:  cobra.ExactArgs(2), //nolint:gomnd
		RunE:  g.RunE,
	}
}

func (c *ddocGet) RunE(cmd *cobra.Command, args []string) error {
	db, err := c.database(args[0])
	if err != nil {
		return err
	}
	doc, err := db.DesignDocument(args[1]).Get(cmd.Context())
	if err != nil {
		return err
	}
	return c.fmt.JSON(doc)
}

type ddocPut struct {
	*root
}

func ddocPutCmd(r *root) *cobra.Command {
	p := &ddocPut{
		root: r,
	}
	return &cobra.Command{
		Use:   "put [database] [name] [json|@file|-]",
		Short: "Create or replace a design document",
		Long:  `Store a design document under _design/[name]. Replacing an existing design document requires its current _rev in the content.`,
		Args:  cobra.ExactArgs(3), //nolint:gomnd
		RunE:  p.RunE,
	}
}

func (c *ddocPut) RunE(cmd *cobra.Command, args []string) error {
	content, err := c.readJSON(cmd, args[2])
	if err != nil {
		return err
	}
	db, err := c.database(args[0])
	if err != nil {
		return err
	}
	c.log.Debugf("[ddoc] Storing %s", db.DesignDocument(args[1]).Path())
	result, err := db.CreateDesignDocument(cmd.Context(), args[1], content)
	if err != nil {
		return err
	}
	return c.fmt.JSON(result)
}

type ddocExists struct {
	*root
}

func ddocExistsCmd(r *root) *cobra.Command {
	e := &ddocExists{
		root: r,
	}
	return &cobra.Command{
		Use:   "exists [database] [name]",
		Short: "Check whether a design document exists",
		Long:  `Check whether a design document exists. Exits with status 14 when it does not.`,
		Args:  cobra.ExactArgs(2), //nolint:gomnd
		RunE:  e.RunE,
	}
}

func (c *ddocExists) RunE(cmd *cobra.Command, args []string) error {
	db, err := c.database(args[0])
	if err != nil {
		return err
	}
	ok := db.DesignDocument(args[1]).Exists(cmd.Context())
	if err := c.fmt.Value(map[string]bool{"exists": ok}); err != nil {
		return err
	}
	if !ok {
		return errors.Codef(errors.ErrNotFound, "design document %s not found", args[1])
	}
	return nil
}
