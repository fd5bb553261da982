package main

import (
	"bufio"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/amishk599/vacancycache/internal/secrets"
)

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Manage the Workable access token in the OS keyring",
}

var tokenSetCmd = &cobra.Command{
	Use:   "set <account>",
	Short: "Read a token from stdin and store it under account",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
		if err != nil && line == "" {
			return fmt.Errorf("reading token from stdin: %w", err)
		}
		if err := secrets.SetAccessToken(args[0], strings.TrimSpace(line)); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "token stored for %s\n", args[0])
		return nil
	},
}

var tokenDeleteCmd = &cobra.Command{
	Use:   "delete <account>",
	Short: "Remove the stored token for account",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return secrets.DeleteAccessToken(args[0])
	},
}

func init() {
	tokenCmd.AddCommand(tokenSetCmd, tokenDeleteCmd)
	rootCmd.AddCommand(tokenCmd)
}
