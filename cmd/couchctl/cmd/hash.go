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

	"github.com/go-kivik/couchclient"
	"github.com/go-kivik/couchclient/cmd/couchctl/errors"
)

type hashDoc struct {
	*root
	compare string
}

func hashCmd(r *root) *cobra.Command {
	h := &hashDoc{
		root: r,
	}
	cmd := &cobra.Command{
		Use:   "hash [json|@file|-]",
		Short: "Compute the content hash of a document",
		Long: `Compute the SHA-1 hash of a document's content, ignoring _id, _rev and
r_hash. No server is contacted. With --compare, exits with status 65 when the
two documents differ.`,
		Args: cobra.ExactArgs(1),
		RunE: h.RunE,
	}
	cmd.Flags().StringVar(&h.compare, "compare", "", "Second document [json|@file|-] to compare against")
	return cmd
}

func (c *hashDoc) RunE(cmd *cobra.Command, args []string) error {
	doc, err := c.readJSON(cmd, args[0])
	if err != nil {
		return err
	}
	hash, err := couchclient.CreateHash(doc)
	if err != nil {
		return errors.Code(errors.ErrData, err)
	}
	if c.compare == "" {
		return c.fmt.Value(map[string]string{"hash": hash})
	}
	other, err := c.readJSON(cmd, c.compare)
	if err != nil {
		return err
	}
	equal := couchclient.HashEquals(doc, other)
	if err := c.fmt.Value(map[string]interface{}{"hash": hash, "equal": equal}); err != nil {
		return err
	}
	if !equal {
		return errors.Code(errors.ErrData, "documents differ")
	}
	return nil
}
