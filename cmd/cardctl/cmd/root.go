package cmd

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"doorkeeper/internal/config"
	"doorkeeper/internal/domain/card"
	"doorkeeper/internal/infrastructure/storage/flash"
	"doorkeeper/internal/utils/logger"

	"github.com/spf13/cobra"
	"golang.org/x/exp/slog"
)

// skipStore marks commands that run without opening the card database.
const skipStore = "skip-store"

// app is the state shared by every subcommand after PersistentPreRunE.
type app struct {
	cfgFile string
	dataDir string
	debug   bool

	cfg   *config.Config
	log   *slog.Logger
	store *card.Store
}

// NewRootCmd builds the cardctl command tree.
func NewRootCmd() *cobra.Command {
	a := &app{}

	rootCmd := &cobra.Command{
		Use:   "cardctl",
		Short: "cardctl - offline tool for the door controller card database",
		Long: `cardctl works directly on the flash image directory of the door controller.

It reads the same configuration as the server (.env, --config, environment),
so DATA_DIR, HEADER_FILE, CARDS_FILE and MAX_CARDS select the database.
Do not run it against a directory the server is using.`,
		PersistentPreRunE: a.setup,
		SilenceUsage:      true,
		SilenceErrors:     true,
	}

	rootCmd.PersistentFlags().StringVar(&a.cfgFile, "config", "", "config file (yaml, json, toml)")
	rootCmd.PersistentFlags().StringVar(&a.dataDir, "data-dir", "", "flash image directory, overrides DATA_DIR")
	rootCmd.PersistentFlags().BoolVar(&a.debug, "debug", false, "log to stdout at the configured level")

	rootCmd.AddCommand(
		newInitCmd(a),
		newAddCmd(a),
		newRemoveCmd(a),
		newCheckCmd(a),
		newCountCmd(a),
		newListCmd(a),
		newExportCmd(a),
		newDefaultsCmd(a),
		newValidateCmd(a),
		newFormatCmd(a),
		newResetCmd(a),
		newHashTokenCmd(),
	)

	return rootCmd
}

func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func (a *app) setup(cmd *cobra.Command, _ []string) error {
	if cmd.Annotations[skipStore] != "" {
		return nil
	}

	var err error
	a.cfg, err = config.Load(a.cfgFile)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if a.dataDir != "" {
		a.cfg.Storage.DataDir = a.dataDir
	}

	if a.debug {
		a.log = logger.New(a.cfg.Env)
	} else {
		a.log = slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: slog.LevelWarn}))
	}

	a.store = card.NewStore(flash.NewOS(a.cfg.Storage.DataDir, a.log), a.log,
		card.WithFiles(a.cfg.Storage.HeaderFile, a.cfg.Storage.CardsFile),
		card.WithCapacity(a.cfg.Storage.MaxCards),
	)

	// a corrupt database is still opened so validate, format and reset can run
	if err := a.store.Init(cmd.Context()); err != nil && !errors.Is(err, card.ErrCorruptState) {
		return fmt.Errorf("open card database in %s: %w", a.cfg.Storage.DataDir, err)
	}
	return nil
}

// parseID accepts decimal or 0x-prefixed hex card IDs.
func parseID(s string) (uint32, error) {
	digits, base := s, 10
	if rest, ok := strings.CutPrefix(s, "0x"); ok {
		digits, base = rest, 16
	} else if rest, ok := strings.CutPrefix(s, "0X"); ok {
		digits, base = rest, 16
	}

	id, err := strconv.ParseUint(digits, base, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid card id %q: %w", s, err)
	}
	return uint32(id), nil
}
