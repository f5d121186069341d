package cmd

import (
	"encoding/json"
	"fmt"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/OpenTraceLab/pinplan/pkg/board"
)

var (
	boardJSON bool
)

var boardCmd = &cobra.Command{
	Use:   "board <catalog-file>",
	Short: "Show the pins and capabilities of a board catalog",
	Long: `Load a board catalog and print its capability table and pinout.
Derived values (capability limits, GPIO bank sizes) are shown as resolved.

Examples:
  pinplan board testdata/boards/devkit.yaml
  pinplan board --json testdata/boards/devkit.yaml`,
	Args: cobra.ExactArgs(1),
	RunE: runBoard,
}

func init() {
	rootCmd.AddCommand(boardCmd)

	boardCmd.Flags().BoolVar(&boardJSON, "json", false, "output the normalized catalog as JSON")
}

func runBoard(cmd *cobra.Command, args []string) error {
	b, err := loadBoard(args[0])
	if err != nil {
		return err
	}

	if boardJSON {
		data, err := json.MarshalIndent(b, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to encode board: %w", err)
		}
		fmt.Println(string(data))
		return nil
	}

	fmt.Printf("Board: %s (%d pins, %d capabilities)\n\n", b.Name, len(b.Pins), len(b.Capabilities))

	fmt.Printf("Capabilities:\n")
	fmt.Printf("  %-10s %-16s %-8s %4s  %s\n", "NAME", "LABEL", "ALLOC", "MAX", "GPIO BANKS")
	for _, name := range b.Interfaces {
		c, ok := b.Capability(name)
		if !ok {
			continue
		}
		fmt.Printf("  %-10s %-16s %-8s %4d  %s\n", name, c.Label, c.Allocation, c.Max, formatBanks(c.GPIOPins))
	}
	fmt.Println()

	fmt.Printf("Pins:\n")
	fmt.Printf("  %3s  %-8s %-8s %s\n", "#", "ID", "SIDE", "INTERFACES")
	for _, p := range b.Pins {
		fmt.Printf("  %3d  %-8s %-8s %s\n", p.Number, p.ID, p.Side, formatInterfaces(p))
	}

	if verbose {
		fmt.Printf("\n%d allocatable pin(s)\n", countAllocatable(b))
	}
	return nil
}

func formatBanks(banks map[int]int) string {
	if len(banks) == 0 {
		return ""
	}
	ids := make([]int, 0, len(banks))
	for id := range banks {
		ids = append(ids, id)
	}
	slices.Sort(ids)

	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = fmt.Sprintf("%d:%d", id, banks[id])
	}
	return strings.Join(parts, " ")
}

func formatInterfaces(p board.Pin) string {
	if p.Designation != "" {
		return "[" + p.Designation + "]"
	}
	parts := make([]string, 0, len(p.Interfaces))
	for _, name := range p.Capabilities() {
		parts = append(parts, name+"="+p.Interfaces[name].String())
	}
	return strings.Join(parts, ", ")
}

func countAllocatable(b *board.Board) int {
	n := 0
	for _, p := range b.Pins {
		if p.Allocatable() {
			n++
		}
	}
	return n
}
