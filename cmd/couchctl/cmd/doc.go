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

type getDoc struct {
	*root
}

func getCmd(r *root) *cobra.Command {
	g := &getDoc{
		root: r,
	}
	return &cobra.Command{
		Use:   "get [database] [document]",
		Short: "Get a document",
		Args:  cobra.ExactArgs(2), //nolint:gomnd
		RunE:  g.RunE,
	}
}

func (c *getDoc) RunE(cmd *cobra.Command, args []string) error {
	db, err := c.database(args[0])
	if err != nil {
		return err
	}
	c.log.Debugf("[get] Will fetch document: %s/%s", args[0], args[1])
	doc, err := db.Get(cmd.Context(), args[1])
	if err != nil {
		return err
	}
	return c.fmt.JSON(doc)
}

type existsDoc struct {
	*root
}

func existsCmd(r *root) *cobra.Command {
	e := &existsDoc{
		root: r,
	}
	return &cobra.Command{
		Use:   "exists [database] [document]",
		Short: "Check whether a document exists",
		Long:  `Check whether a document exists. Exits with status 14 when it does not.`,
		Args:  cobra.ExactArgs(2), //nolint:gomnd
		RunE:  e.RunE,
	}
}

func (c *existsDoc) RunE(cmd *cobra.Command, args []string) error {
	db, err := c.database(args[0])
	if err != nil {
		return err
	}
	ok, err := db.Check(cmd.Context(), args[1])
	if err != nil {
		return err
	}
	if err := c.fmt.Value(map[string]bool{"exists": ok}); err != nil {
		return err
	}
	if !ok {
		return errors.Codef(errors.ErrNotFound, "document %s not found", args[1])
	}
	return nil
}

type listDocs struct {
	*root
	limit int
	skip  int
}

func listCmd(r *root) *cobra.Command {
	l := &listDocs{
		root: r,
	}
	cmd := &cobra.Command{
		Use:   "list [database]",
		Short: "List documents, with their content",
		Args:  cobra.ExactArgs(1),
		RunE:  l.RunE,
	}
	f := cmd.Flags()
	f.IntVar(&l.limit, "limit", 25, "Maximum number of documents to return") //nolint:gomnd
	f.IntVar(&l.skip, "skip", 0, "Number of documents to skip")
	return cmd
}

func (c *listDocs) RunE(cmd *cobra.Command, args []string) error {
	db, err := c.database(args[0])
	if err != nil {
		return err
	}
	items, err := db.GetItems(cmd.Context(), c.limit, c.skip)
	if err != nil {
		return err
	}
	return c.fmt.JSON(items)
}

type createDoc struct {
	*root
}

func createCmd(r *root) *cobra.Command {
	c := &createDoc{
		root: r,
	}
	return &cobra.Command{
		Use:   "create [database] [json|@file|-]",
		Short: "Create a document with a server-assigned ID",
		Args:  cobra.ExactArgs(2), //nolint:gomnd
		RunE:  c.RunE,
	}
}

func (c *createDoc) RunE(cmd *cobra.Command, args []string) error {
	doc, err := c.readJSON(cmd, args[1])
	if err != nil {
		return err
	}
	db, err := c.database(args[0])
	if err != nil {
		return err
	}
	result, err := db.Create(cmd.Context(), doc)
	if err != nil {
		return err
	}
	return c.fmt.JSON(result)
}

type updateDoc struct {
	*root
}

func updateCmd(r *root) *cobra.Command {
	u := &updateDoc{
		root: r,
	}
	return &cobra.Command{
		Use:   "update [database] [json|@file|-]",
		Short: "Create or replace the document named by its _id",
		Long:  `Store a document under its _id. Replacing an existing document requires its current _rev.`,
		Args:  cobra.ExactArgs(2), //nolint:gomnd
		RunE:  u.RunE,
	}
}

func (c *updateDoc) RunE(cmd *cobra.Command, args []string) error {
	doc, err := c.readJSON(cmd, args[1])
	if err != nil {
		return err
	}
	db, err := c.database(args[0])
	if err != nil {
		return err
	}
	result, err := db.Update(cmd.Context(), doc)
	if err != nil {
		return err
	}
	return c.fmt.JSON(result)
}

type deleteDoc struct {
	*root
	rev string
}

func deleteCmd(r *root) *cobra.Command {
	d := &deleteDoc{
		root: r,
	}
	cmd := &cobra.Command{
		Use:   "delete [database] [document]",
		Short: "Delete a document",
		Args:  cobra.ExactArgs(2), //nolint:gomnd
		RunE:  d.RunE,
	}
	cmd.Flags().StringVarP(&d.rev, "rev", "r", "", "Current revision of the document")
	_ = cmd.MarkFlagRequired("rev")
	return cmd
}

func (c *deleteDoc) RunE(cmd *cobra.Command, args []string) error {
	db, err := c.database(args[0])
	if err != nil {
		return err
	}
	result, err := db.Delete(cmd.Context(), args[1], c.rev)
	if err != nil {
		return err
	}
	return c.fmt.JSON(result)
}
