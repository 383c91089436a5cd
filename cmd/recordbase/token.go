package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"golang.org/x/crypto/bcrypt"

	"github.com/artpar/recordbase/adapters/hasher"
	"github.com/artpar/recordbase/adapters/http/admin"
	"github.com/artpar/recordbase/adapters/random"
)

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Generate an admin API token",
	Long: `Generate a bearer token for the admin API and print its bcrypt hash.

Put the hash in server.admin.token_hash (or RECORDBASE_ADMIN_TOKEN_HASH)
and send the token as "Authorization: Bearer <token>". The token itself is
not stored anywhere.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		token, hash, err := admin.NewToken(random.Real{}, hasher.NewBcrypt(bcrypt.DefaultCost))
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "token:      %s\n", token)
		fmt.Fprintf(out, "token_hash: %s\n", hash)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(tokenCmd)
}
