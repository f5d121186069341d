package cmd

import (
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/OpenTraceLab/pinplan/pkg/alloc"
)

var (
	outputFormat string
	skipValidate bool
)

var optimizeCmd = &cobra.Command{
	Use:   "optimize --board <catalog-file> <requirements>",
	Short: "Allocate board pins to a requirement set",
	Long: `Validate a requirement set and allocate pins to it. Fixed pin
requirements are placed first, then peripherals are placed most constrained
first. If a requirement cannot be placed the run stops and the remaining
requirements are reported as unassigned.

Output formats:
  text  human readable tables (default)
  json  the full allocation result
  csv   one row per assigned pin

Examples:
  pinplan optimize --board testdata/boards/devkit.yaml testdata/requirements/devkit.pins
  pinplan optimize -b devkit.yaml --format csv node.pins > pins.csv`,
	Args: cobra.ExactArgs(1),
	RunE: runOptimize,
}

func init() {
	rootCmd.AddCommand(optimizeCmd)

	optimizeCmd.Flags().StringVarP(&boardFile, "board", "b", "", "board catalog file (required)")
	optimizeCmd.Flags().StringVarP(&outputFormat, "format", "f", "text", "output format: text, json or csv")
	optimizeCmd.Flags().BoolVar(&skipValidate, "skip-validate", false, "allocate without running validation first")
}

func runOptimize(cmd *cobra.Command, args []string) error {
	switch outputFormat {
	case "text", "json", "csv":
	default:
		return fmt.Errorf("unknown format %q (want text, json or csv)", outputFormat)
	}

	b, err := loadBoard(boardFile)
	if err != nil {
		return err
	}
	reqs, err := loadRequirements(args[0])
	if err != nil {
		return err
	}

	planner := alloc.NewPlanner(b, alloc.WithLogger(newLogger()))

	var res *alloc.Result
	if skipValidate {
		res = planner.Optimize(reqs)
	} else {
		res, err = planner.Plan(reqs)
		var verrs alloc.ValidationErrors
		if errors.As(err, &verrs) {
			fmt.Printf("✗ %d problem(s) found for board %s:\n", len(verrs), b.Name)
			for _, e := range verrs {
				fmt.Printf("  %-32s %s\n", e.Type, e.Message)
			}
			return fmt.Errorf("validation failed: %d error(s)", len(verrs))
		}
		if err != nil {
			return err
		}
	}

	switch outputFormat {
	case "json":
		data, err := res.ExportJSON()
		if err != nil {
			return fmt.Errorf("failed to encode result: %w", err)
		}
		fmt.Println(string(data))
	case "csv":
		if err := writeCSV(res); err != nil {
			return err
		}
	default:
		printResult(res)
	}

	return res.Err()
}

func printResult(res *alloc.Result) {
	fmt.Printf("Assigned: %d requirement(s)\n", len(res.Assigned))
	for _, a := range res.Assigned {
		fmt.Printf("  %-12s %-10s", a.Requirement.Key(), a.Requirement.Wants())
		blocks := make([]string, len(a.Blocks))
		for i, blk := range a.Blocks {
			blocks[i] = formatBlock(blk)
		}
		fmt.Printf(" %s", strings.Join(blocks, "  "))
		if a.Shortfall > 0 {
			fmt.Printf("  (short by %d)", a.Shortfall)
		}
		fmt.Println()
	}

	if len(res.Unassigned) > 0 {
		fmt.Printf("\nUnassigned: %d requirement(s)\n", len(res.Unassigned))
		for _, r := range res.Unassigned {
			fmt.Printf("  %-12s %s\n", r.Key(), r.Wants())
		}
	}

	fmt.Printf("\nRemaining pins: %s\n", strings.Join(res.RemainingPins, " "))
	if verbose {
		fmt.Printf("Iterations: %d, fingerprint: %016x\n", res.Iterations, res.Fingerprint())
	}

	if res.Success {
		fmt.Println("\nAllocation completed successfully!")
	} else {
		fmt.Println("\nAllocation incomplete.")
	}
}

func formatBlock(blk alloc.Block) string {
	s := strings.Join(blk.Pins, ",")
	switch {
	case blk.Port != alloc.NoPort:
		return fmt.Sprintf("[%s port %d]", s, blk.Port)
	case blk.Bank != alloc.NoBank:
		return fmt.Sprintf("[%s bank %d]", s, blk.Bank)
	default:
		return "[" + s + "]"
	}
}

func writeCSV(res *alloc.Result) error {
	w := csv.NewWriter(os.Stdout)
	if err := w.Write([]string{"requirement", "capability", "block", "port", "bank", "pin"}); err != nil {
		return fmt.Errorf("failed to write csv: %w", err)
	}
	for _, a := range res.Assigned {
		for i, blk := range a.Blocks {
			for _, pin := range blk.Pins {
				row := []string{
					a.Requirement.Key(),
					a.Requirement.Wants(),
					strconv.Itoa(i),
					optionalInt(blk.Port, alloc.NoPort),
					optionalInt(blk.Bank, alloc.NoBank),
					pin,
				}
				if err := w.Write(row); err != nil {
					return fmt.Errorf("failed to write csv: %w", err)
				}
			}
		}
	}
	w.Flush()
	return w.Error()
}

func optionalInt(v, unset int) string {
	if v == unset {
		return ""
	}
	return strconv.Itoa(v)
}
