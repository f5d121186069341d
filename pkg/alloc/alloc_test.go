package alloc

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/OpenTraceLab/pinplan/pkg/board"
	"github.com/OpenTraceLab/pinplan/pkg/requirement"
)

// mini has two i2c ports, P2 being an optional member of port 0.
const miniCatalog = `
name: mini
capabilities:
  digital: {allocation: pin}
  pwm: {allocation: pin}
  i2c: {allocation: port}
  can: {allocation: hybrid, max: 1}
pins:
  - id: P1
    number: 1
    interfaces:
      digital: {gpio: {port: 1, bit: 0}}
      pwm: PWM0
      i2c: {port: 0, required: true}
  - id: P2
    number: 2
    interfaces:
      digital: {gpio: {port: 1, bit: 1}}
      i2c: {port: 0}
  - id: P3
    number: 3
    interfaces:
      digital: {gpio: {port: 2, bit: 0}}
      i2c: {port: 1, required: true}
  - id: P4
    number: 4
    interfaces:
      can: CAN0
  - id: GND
    number: 5
    designation: ground
`

func mustParse(t *testing.T, doc string) *board.Board {
	t.Helper()
	b, err := board.Parse([]byte(doc))
	require.NoError(t, err)
	return b
}

func devkit(t *testing.T) *board.Board {
	t.Helper()
	b, err := board.LoadFile(filepath.Join("..", "..", "testdata", "boards", "devkit.yaml"))
	require.NoError(t, err)
	return b
}

func loadReqs(t *testing.T, name string) []requirement.Requirement {
	t.Helper()
	p, err := requirement.NewParser()
	require.NoError(t, err)
	reqs, err := p.ParseFile(filepath.Join("..", "..", "testdata", "requirements", name))
	require.NoError(t, err)
	return reqs
}

func blockPins(blocks []Block) [][]string {
	out := make([][]string, len(blocks))
	for i, blk := range blocks {
		out[i] = blk.Pins
	}
	return out
}
