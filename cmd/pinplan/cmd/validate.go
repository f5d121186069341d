package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/OpenTraceLab/pinplan/pkg/alloc"
)

var (
	boardFile    string
	validateJSON bool
)

var validateCmd = &cobra.Command{
	Use:   "validate --board <catalog-file> <requirements>",
	Short: "Check a requirement set against a board",
	Long: `Run every pre-allocation check on a requirement set and report all
findings at once: conflicting pin claims, pin requirements without a
capability, port, pin and GPIO bank limits, and malformed requirements.

Requirements are read from a .pins file or a .json requirement list.

Examples:
  pinplan validate --board testdata/boards/devkit.yaml testdata/requirements/devkit.pins
  pinplan validate --json -b devkit.yaml reqs.json`,
	Args: cobra.ExactArgs(1),
	RunE: runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)

	validateCmd.Flags().StringVarP(&boardFile, "board", "b", "", "board catalog file (required)")
	validateCmd.Flags().BoolVar(&validateJSON, "json", false, "output findings as JSON")
}

func runValidate(cmd *cobra.Command, args []string) error {
	b, err := loadBoard(boardFile)
	if err != nil {
		return err
	}
	reqs, err := loadRequirements(args[0])
	if err != nil {
		return err
	}

	planner := alloc.NewPlanner(b, alloc.WithLogger(newLogger()))
	errs := planner.Validate(reqs)

	if validateJSON {
		if errs == nil {
			errs = alloc.ValidationErrors{}
		}
		data, err := json.MarshalIndent(errs, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to encode findings: %w", err)
		}
		fmt.Println(string(data))
	} else if len(errs) == 0 {
		fmt.Printf("✓ %d requirement(s) valid for board %s\n", len(reqs), b.Name)
	} else {
		fmt.Printf("✗ %d problem(s) found for board %s:\n", len(errs), b.Name)
		for _, e := range errs {
			fmt.Printf("  %-32s %s\n", e.Type, e.Message)
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("validation failed: %d error(s)", len(errs))
	}
	return nil
}
