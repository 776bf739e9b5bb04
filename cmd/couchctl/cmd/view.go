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
)

type queryView struct {
	*root
	key         string
	keys        []string
	startKey    string
	endKey      string
	limit       int
	skip        int
	includeDocs bool
	reduce      bool
	group       bool
	aggregate   bool
	urlOnly     bool
}

func viewCmd(r *root) *cobra.Command {
	v := &queryView{
		root: r,
	}
	cmd := &cobra.Command{
		Use:   "view [database] [design document] [view]",
		Short: "Query a view",
		Long: `Query a view. Keys are parsed as JSON when possible, and used as plain
strings otherwise, so --key foo and --key '"foo"' are equivalent.`,
		Args: cobra.ExactArgs(3), //nolint:gomnd
		RunE: v.RunE,
	}
	f := cmd.Flags()
	f.StringVar(&v.key, "key", "", "Only return rows matching this key")
	f.StringArrayVar(&v.keys, "keys", nil, "Only return rows matching this key. May be repeated.")
	f.StringVar(&v.startKey, "start-key", "", "Return rows starting with this key")
	f.StringVar(&v.endKey, "end-key", "", "Stop returning rows at this key")
	f.IntVar(&v.limit, "limit", 0, "Maximum number of rows to return")
	f.IntVar(&v.skip, "skip", 0, "Number of rows to skip")
	f.BoolVar(&v.includeDocs, "include-docs", false, "Include the document of each row")
	f.BoolVar(&v.reduce, "reduce", false, "Use the reduce function")
	f.BoolVar(&v.group, "group", false, "Group reduced rows by key")
	f.BoolVar(&v.aggregate, "aggregate", false, "Shorthand for --reduce --group")
	f.BoolVar(&v.urlOnly, "print-url", false, "Print the query URL path instead of querying")
	return cmd
}

func (c *queryView) view(cmd *cobra.Command, db *couchclient.Database, ddoc, name string) couchclient.View {
	view := db.DesignDocument(ddoc).View(name)
	f := cmd.Flags()
	if f.Changed("key") {
		view = view.Key(jsonArg(c.key))
	}
	if f.Changed("keys") {
		keys := make([]interface{}, len(c.keys))
		for i, k := range c.keys {
			keys[i] = jsonArg(k)
		}
		view = view.Keys(keys...)
	}
	if f.Changed("start-key") || f.Changed("end-key") {
		var start, end interface{}
		if f.Changed("start-key") {
			start = jsonArg(c.startKey)
		}
		if f.Changed("end-key") {
			end = jsonArg(c.endKey)
		}
		view = view.Range(start, end)
	}
	if f.Changed("limit") {
		view = view.Limit(c.limit)
	}
	if f.Changed("skip") {
		view = view.Skip(c.skip)
	}
	if f.Changed("include-docs") {
		view = view.IncludeDocs(c.includeDocs)
	}
	view = view.Reduce(c.reduce).Group(c.group)
	if c.aggregate {
		view = view.Aggregate()
	}
	return view
}

func (c *queryView) RunE(cmd *cobra.Command, args []string) error {
	db, err := c.database(args[0])
	if err != nil {
		return err
	}
	view := c.view(cmd, db, args[1], args[2])
	if c.urlOnly {
		u, err := view.URL()
		if err != nil {
			return err
		}
		c.log.Info(u)
		return nil
	}
	c.log.Debugf("[view] Querying %s/%s", args[1], args[2])
	result, err := view.Get(cmd.Context())
	if err != nil {
		return err
	}
	return c.fmt.JSON(result)
}
