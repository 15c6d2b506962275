package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"azkartool/internal/config"
	"azkartool/internal/logging"
)

var (
	// Global flags
	configPath   string
	workspace    string
	verbose      bool
	documentPath string

	// Resolved in PersistentPreRunE
	cfg    *config.Config
	logger *zap.Logger
	runID  string
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "azkarctl",
	Short: "Maintain the azkar content file and the app launcher icons",
	Long: `azkarctl edits the named record blocks of the azkar content file
(export const morningAzkar = [ ... ];) through declarative edits, verifies
every rewrite by parsing it back, and regenerates the Android launcher icons.

Every writing command accepts --dry-run to print a diff instead of writing.
Configuration lives in .azkar/config.yaml; run "azkarctl init" to create it.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		ws, err := resolveWorkspace()
		if err != nil {
			return err
		}
		path := configPath
		if path == "" {
			path = config.DefaultPath(ws)
		}

		cfg, err = config.Load(cmd.Context(), path)
		if err != nil {
			return err
		}
		if documentPath != "" {
			cfg.Document.Path = documentPath
		}
		if verbose {
			cfg.Logging.Level = "debug"
		}
		if err := cfg.Validate(); err != nil {
			return fmt.Errorf("invalid config %s: %w", path, err)
		}

		runID = uuid.NewString()
		if err := logging.Initialize(logging.Config{
			Level:      cfg.Logging.Level,
			Format:     cfg.Logging.Format,
			DebugMode:  cfg.Logging.DebugMode,
			Categories: cfg.Logging.Categories,
			LogsDir:    config.LogsDir(ws),
			RunID:      runID,
			Output:     cmd.ErrOrStderr(),
		}); err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		logger = logging.Get(logging.CategoryBoot).Zap()
		logger.Debug("starting command",
			zap.String("command", cmd.CommandPath()),
			zap.String("workspace", ws),
			zap.String("config", path),
		)
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		logging.Sync()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Config file (default: <workspace>/.azkar/config.yaml)")
	rootCmd.PersistentFlags().StringVarP(&workspace, "workspace", "w", "", "Workspace directory (default: current)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().StringVarP(&documentPath, "document", "d", "", "Content file to edit (overrides config)")

	rootCmd.AddCommand(patchCmd)
	rootCmd.AddCommand(renumberCmd)
	rootCmd.AddCommand(stripPrefixCmd)
	rootCmd.AddCommand(checkCmd)
	rootCmd.AddCommand(repairCmd)
	rootCmd.AddCommand(appendCmd)
	rootCmd.AddCommand(iconsCmd)
	rootCmd.AddCommand(initCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	logging.Close()
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func resolveWorkspace() (string, error) {
	if workspace != "" {
		return filepath.Abs(workspace)
	}
	return os.Getwd()
}

// resolvePath makes p absolute against the workspace.
func resolvePath(p string) string {
	if filepath.IsAbs(p) {
		return p
	}
	ws, err := resolveWorkspace()
	if err != nil {
		return p
	}
	return filepath.Join(ws, p)
}
