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

type createUser struct {
	*root
	password   string
	userType   string
	roles      []string
	salt       string
	iterations int
}

func createUserCmd(r *root) *cobra.Command {
	u := &createUser{
		root: r,
	}
	cmd := &cobra.Command{
		Use:   "create-user [name]",
		Short: "Create a user in the _users database",
		Long: `Create a user. By default the plain password is sent, to be hashed by the
server. With --salt, the password is stored as a salted SHA-1. With
--iterations as well, it is stored as a PBKDF2 derived key.`,
		Args: cobra.ExactArgs(1),
		RunE: u.RunE,
	}
	f := cmd.Flags()
	f.StringVar(&u.password, "user-password", "", "Password of the new user")
	f.StringVar(&u.userType, "type", couchclient.DefaultUserType, "Type of the new user")
	f.StringSliceVar(&u.roles, "role", nil, "Role of the new user. May be repeated.")
	f.StringVar(&u.salt, "salt", "", "Salt to hash the password with")
	f.IntVar(&u.iterations, "iterations", 0, "PBKDF2 iterations; requires --salt")
	_ = cmd.MarkFlagRequired("user-password")
	return cmd
}

func (c *createUser) RunE(cmd *cobra.Command, args []string) error {
	if c.iterations != 0 && c.salt == "" {
		return errors.Code(errors.ErrUsage, "--iterations requires --salt")
	}
	client, err := c.client()
	if err != nil {
		return err
	}
	var result []byte
	if c.iterations != 0 {
		result, err = client.CreateUserPBKDF2(cmd.Context(), args[0], c.password, c.salt, c.iterations, c.roles)
	} else {
		result, err = client.CreateUser(cmd.Context(), args[0], c.password, c.userType, c.roles, c.salt)
	}
	if err != nil {
		return err
	}
	return c.fmt.JSON(result)
}
