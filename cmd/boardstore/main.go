package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"boardstore/internal/config"
	"boardstore/internal/logging"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	// Global flags
	verbose    bool
	configPath string
	dbPath     string
	dbDriver   string
	folderFlag string
	assumeYes  bool

	// set flags
	valueFile string

	// get flags
	defaultJSON string

	cfg    *config.Config
	logger *zap.Logger
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "boardstore",
	Short: "Inspect and back up whiteboard storage",
	Long: `boardstore drives the whiteboard persistence layer from the command line.

Values live in a user-chosen storage folder when one has been picked and
access is granted, and always in the embedded metadata database as a
fallback copy. Use it to inspect keys, pick or re-grant the storage folder,
and export or import portable compressed backups.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		zc := zap.NewProductionConfig()
		if verbose {
			zc.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		var err error
		logger, err = zc.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}

		cfg, err = config.Load(configPath)
		if err != nil {
			return err
		}
		if dbPath != "" {
			cfg.Storage.Metadata.Path = dbPath
		}
		if dbDriver != "" {
			cfg.Storage.Metadata.Driver = dbDriver
		}
		if folderFlag != "" {
			cfg.Storage.Directory.Path = folderFlag
		}
		// A one-shot process exits before any folder event could matter.
		cfg.Storage.Directory.Watch = false

		if verbose {
			logging.Use(logger, cfg.Logging.Categories)
			return nil
		}
		return logging.Setup(cfg.Logging.Options())
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		logging.Sync()
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show backend mode, folder permission and tier occupancy",
	Args:  cobra.NoArgs,
	RunE:  runStatus,
}

var getCmd = &cobra.Command{
	Use:   "get [key]",
	Short: "Print the JSON value stored under a key",
	Args:  cobra.ExactArgs(1),
	RunE:  runGet,
}

var setCmd = &cobra.Command{
	Use:   "set [key] [json]",
	Short: "Store a JSON value under a key",
	Long: `Stores a JSON value in every available tier.

Examples:
  boardstore set wb_folders '["Work","Home"]'
  boardstore set wb_content_42 --file board.json`,
	Args: cobra.RangeArgs(1, 2),
	RunE: runSet,
}

var rmCmd = &cobra.Command{
	Use:   "rm [key]",
	Short: "Remove a key from every tier",
	Args:  cobra.ExactArgs(1),
	RunE:  runRemove,
}

var pickCmd = &cobra.Command{
	Use:   "pick [folder]",
	Short: "Choose the storage folder and copy every known key into it",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runPick,
}

var grantCmd = &cobra.Command{
	Use:   "grant",
	Short: "Re-request access to the stored folder",
	Args:  cobra.NoArgs,
	RunE:  runGrant,
}

var exportCmd = &cobra.Command{
	Use:   "export [key] [file]",
	Short: "Write a portable compressed backup of a key (file '-' for stdout)",
	Args:  cobra.ExactArgs(2),
	RunE:  runExport,
}

var importCmd = &cobra.Command{
	Use:   "import [file] [key]",
	Short: "Restore a portable backup into a key",
	Args:  cobra.ExactArgs(2),
	RunE:  runImport,
}

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Copy every known key into the current storage folder",
	Args:  cobra.NoArgs,
	RunE:  runSync,
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "boardstore.yaml", "Config file")
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "Metadata database path (overrides config)")
	rootCmd.PersistentFlags().StringVar(&dbDriver, "driver", "", "Metadata database driver: sqlite or bolt")
	rootCmd.PersistentFlags().StringVar(&folderFlag, "folder", "", "Storage folder offered by the picker")
	rootCmd.PersistentFlags().BoolVarP(&assumeYes, "yes", "y", false, "Answer yes to permission prompts")

	setCmd.Flags().StringVarP(&valueFile, "file", "f", "", "Read the JSON value from a file")
	getCmd.Flags().StringVar(&defaultJSON, "default", "null", "JSON printed when the key is absent")

	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(getCmd)
	rootCmd.AddCommand(setCmd)
	rootCmd.AddCommand(rmCmd)
	rootCmd.AddCommand(pickCmd)
	rootCmd.AddCommand(grantCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(importCmd)
	rootCmd.AddCommand(syncCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
