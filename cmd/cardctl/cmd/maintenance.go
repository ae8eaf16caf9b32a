package cmd

import (
	"errors"
	"fmt"

	"doorkeeper/internal/domain/card"

	"github.com/spf13/cobra"
)

func newInitCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Create the card database and load the built-in cards",
		Long: `Creates the header and records files when they are missing, then adds the
built-in Admin, Maintenance and Installer cards that are not yet present.
An existing database is kept.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.store.LoadDefaults(cmd.Context()); err != nil {
				return fmt.Errorf("load default cards: %w", err)
			}

			n, err := a.store.Count(cmd.Context())
			if err != nil {
				return fmt.Errorf("count cards: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Card database ready in %s: %d of %d cards\n",
				a.cfg.Storage.DataDir, n, a.cfg.Storage.MaxCards)
			return nil
		},
	}
}

func newDefaultsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "defaults",
		Short: "Add the built-in cards that are missing",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.store.LoadDefaults(cmd.Context()); err != nil {
				return fmt.Errorf("load default cards: %w", err)
			}
			for _, c := range card.Defaults() {
				fmt.Fprintf(cmd.OutOrStdout(), "0x%08X %s\n", c.ID, c.Name)
			}
			return nil
		},
	}
}

func newValidateCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Check the database files for corruption",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			err := a.store.Validate(cmd.Context())
			switch {
			case err == nil:
				fmt.Fprintln(cmd.OutOrStdout(), "OK")
				return nil
			case errors.Is(err, card.ErrCorruptState):
				fmt.Fprintln(cmd.OutOrStdout(), "CORRUPT")
				return err
			default:
				return fmt.Errorf("validate: %w", err)
			}
		},
	}
}

func newFormatCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "format",
		Short: "Erase every card, including the built-in ones",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.store.Format(cmd.Context()); err != nil {
				return fmt.Errorf("format: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Card database formatted")
			return nil
		},
	}
}

func newResetCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "reset",
		Short: "Format the database and load the built-in cards",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.store.Format(cmd.Context()); err != nil {
				return fmt.Errorf("format: %w", err)
			}
			if err := a.store.LoadDefaults(cmd.Context()); err != nil {
				return fmt.Errorf("load default cards: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Card database reset to the default cards")
			return nil
		},
	}
}
