package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/crypto/bcrypt"
)

func newHashTokenCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "hash-token",
		Short: "Hash an admin token for the dashboard config",
		Long: `Read a token from stdin and print its bcrypt hash, suitable for the
dashboard.admin_token_hash config field.`,
		Example: `  echo -n 's3cret' | devlens hash-token`,
		RunE: func(cmd *cobra.Command, args []string) error {
			reader := bufio.NewReader(os.Stdin)
			token, err := reader.ReadString('\n')
			if err != nil && token == "" {
				return fmt.Errorf("read token: %w", err)
			}
			token = strings.TrimRight(token, "\r\n")
			if token == "" {
				return fmt.Errorf("empty token")
			}
			hash, err := bcrypt.GenerateFromPassword([]byte(token), bcrypt.DefaultCost)
			if err != nil {
				return fmt.Errorf("hash token: %w", err)
			}
			fmt.Fprintln(os.Stdout, string(hash))
			return nil
		},
	}
}
