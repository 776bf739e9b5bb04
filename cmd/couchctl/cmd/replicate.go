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
	"strings"

	"github.com/spf13/cobra"
)

type replicate struct {
	*root
	source string
	target string
}

func replicateCmd(r *root) *cobra.Command {
	c := &replicate{
		root: r,
	}
	cmd := &cobra.Command{
		Use:   "replicate [database] [design document ID]",
		Short: "Replicate a design document from another server",
		Long: `Ask the source server to replicate one design document of [database] to
the target database URL. The target defaults to the same database on the
configured server.`,
		Args: cobra.ExactArgs(2), //nolint:gomnd
		RunE: c.RunE,
	}
	f := cmd.Flags()
	f.StringVar(&c.source, "source", "", "Base URL of the source server")
	f.StringVar(&c.target, "target", "", "Full URL of the target database")
	_ = cmd.MarkFlagRequired("source")
	return cmd
}

func (c *replicate) RunE(cmd *cobra.Command, args []string) error {
	db, err := c.database(args[0])
	if err != nil {
		return err
	}
	target := c.target
	if target == "" {
		client, err := c.client()
		if err != nil {
			return err
		}
		target = strings.TrimSuffix(client.BaseURL(), "/") + "/" + db.Name()
	}
	c.log.Debugf("[replicate] %s from %s to %s", args[1], c.source, target)
	result, err := db.ReplicateDesignDocument(cmd.Context(), c.source, target, args[1])
	if err != nil {
		return err
	}
	return c.fmt.JSON(result)
}
