package cmd

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"

	"doorkeeper/internal/app/server/api/http/middleware/auth"

	"github.com/spf13/cobra"
	"golang.org/x/term"
)

func newHashTokenCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "hash-token",
		Short: "Hash an API token for API_TOKEN_HASH",
		Long: `Reads a token from the terminal (or one line of stdin when piped) and prints
its bcrypt hash. Put the hash in API_TOKEN_HASH and send the token as
"Authorization: Bearer <token>" to the guarded card routes.`,
		Annotations: map[string]string{skipStore: "true"},
		Args:        cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			token, err := readToken(cmd)
			if err != nil {
				return err
			}

			hash, err := auth.HashToken(token)
			if err != nil {
				return fmt.Errorf("hash token: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), hash)
			return nil
		},
	}
}

func readToken(cmd *cobra.Command) (string, error) {
	in := cmd.InOrStdin()

	var token string
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		fmt.Fprint(cmd.ErrOrStderr(), "Token: ")
		raw, err := term.ReadPassword(int(f.Fd()))
		fmt.Fprintln(cmd.ErrOrStderr())
		if err != nil {
			return "", fmt.Errorf("read token: %w", err)
		}
		token = string(raw)
	} else {
		line, err := bufio.NewReader(in).ReadString('\n')
		if err != nil && line == "" {
			return "", fmt.Errorf("read token: %w", err)
		}
		token = strings.TrimRight(line, "\r\n")
	}

	if token == "" {
		return "", errors.New("token is empty")
	}
	return token, nil
}
