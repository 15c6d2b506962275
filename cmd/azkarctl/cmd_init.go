package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"azkartool/internal/config"
)

// initCmd writes the default config
var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write the default .azkar/config.yaml",
	Long: `Creates .azkar/config.yaml in the workspace with the default document
path, record keys, icon targets and logging settings. An existing file is
never overwritten.`,
	Args: cobra.NoArgs,
	RunE: runInit,
}

func runInit(cmd *cobra.Command, args []string) error {
	ws, err := resolveWorkspace()
	if err != nil {
		return err
	}
	path := configPath
	if path == "" {
		path = config.DefaultPath(ws)
	}
	w := cmd.OutOrStdout()

	if _, err := os.Stat(path); err == nil {
		fmt.Fprintf(w, "%s already exists, leaving it unchanged\n", displayPath(path))
		return nil
	} else if !os.IsNotExist(err) {
		return err
	}

	if err := config.DefaultConfig().Save(path); err != nil {
		return err
	}
	fmt.Fprintf(w, "wrote %s\n", displayPath(path))
	return nil
}
