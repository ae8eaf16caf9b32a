package cmd

import (
	"fmt"
	"strings"

	"doorkeeper/internal/domain/card"

	"github.com/spf13/cobra"
)

func newAddCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "add <id> <name...>",
		Short: "Add an active card",
		Long: `Add a card to the database. The ID is decimal or 0x-prefixed hex.
Names longer than 31 bytes are truncated.`,
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			name := strings.Join(args[1:], " ")

			if err := a.store.Add(cmd.Context(), id, name); err != nil {
				return fmt.Errorf("add card 0x%08X: %w", id, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Card 0x%08X added\n", id)
			return nil
		},
	}
}

func newRemoveCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:     "remove <id>",
		Aliases: []string{"rm"},
		Short:   "Remove a card",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}

			if err := a.store.Remove(cmd.Context(), id); err != nil {
				return fmt.Errorf("remove card 0x%08X: %w", id, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Card 0x%08X removed\n", id)
			return nil
		},
	}
}

func newCheckCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "check <id>",
		Short: "Report whether a card would open the door",
		Long:  `Prints active, inactive or not_found. The exit code is non-zero unless the card is active.`,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}

			status, err := a.store.Check(cmd.Context(), id)
			if err != nil {
				return fmt.Errorf("check card 0x%08X: %w", id, err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), status)
			if status != card.StatusActive {
				return fmt.Errorf("card 0x%08X is %s", id, status)
			}
			return nil
		},
	}
}

func newCountCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "count",
		Short: "Print the number of stored cards",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			n, err := a.store.Count(cmd.Context())
			if err != nil {
				return fmt.Errorf("count cards: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), n)
			return nil
		},
	}
}
