package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/OpenTraceLab/pinplan/internal/logging"
)

var (
	// Global flags
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "pinplan",
	Short: "Board pin allocation planner",
	Long: `Assign the pins of a development board to the peripherals a project needs.

A board catalog (YAML) lists every pin and the capabilities it offers. A
requirement file lists fixed pin assignments and peripheral requests; pinplan
validates the set against the board and allocates the most constrained
requirements first.

Examples:
  pinplan board boards/devkit.yaml                          # Show pins and capabilities
  pinplan validate --board boards/devkit.yaml node.pins     # Check a requirement set
  pinplan optimize --board boards/devkit.yaml node.pins     # Allocate pins
  pinplan serve --boards boards/ --addr :8080               # Run the HTTP API`,
	Version:       "0.1.0",
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}

// newLogger returns the stderr logger; debug records need --verbose.
func newLogger() *logging.SlogLogger {
	return logging.NewText(os.Stderr, verbose)
}
