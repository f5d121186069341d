package board

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"maps"
	"os"
	"path/filepath"
	"slices"

	"gopkg.in/yaml.v3"
)

// Load reads a board catalog document from r.
func Load(r io.Reader) (*Board, error) {
	var b Board
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&b); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("board: empty catalog")
		}
		return nil, fmt.Errorf("board: parse catalog: %w", err)
	}
	if err := b.normalize(); err != nil {
		return nil, err
	}
	return &b, nil
}

// Parse decodes a board catalog held in memory.
func Parse(data []byte) (*Board, error) {
	return Load(bytes.NewReader(data))
}

// LoadFile reads a board catalog from disk. The board name defaults to the
// file name without extension.
func LoadFile(path string) (*Board, error) {
	f, err := os.Open(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("board: open catalog: %w", err)
	}
	defer f.Close()

	b, err := Load(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if b.Name == "" {
		base := filepath.Base(path)
		b.Name = base[:len(base)-len(filepath.Ext(base))]
	}
	return b, nil
}

// New builds a board from already decoded parts and applies the same checks
// and defaults as Load.
func New(name string, caps map[string]Capability, pins []Pin) (*Board, error) {
	b := &Board{
		Name:         name,
		Capabilities: maps.Clone(caps),
		Pins:         slices.Clone(pins),
	}
	if err := b.normalize(); err != nil {
		return nil, err
	}
	return b, nil
}

// normalize validates the catalog, sorts pins into board order, fills in
// derived capability limits and builds the id index.
func (b *Board) normalize() error {
	if len(b.Pins) == 0 {
		return fmt.Errorf("board: %q has no pins", b.Name)
	}
	if b.Capabilities == nil {
		b.Capabilities = make(map[string]Capability)
	}

	seen := make(map[string]bool, len(b.Pins))
	for _, p := range b.Pins {
		if p.ID == "" {
			return fmt.Errorf("board: pin %d has no id", p.Number)
		}
		if seen[p.ID] {
			return fmt.Errorf("board: duplicate pin id %q", p.ID)
		}
		seen[p.ID] = true

		for name, iface := range p.Interfaces {
			capDetail, ok := b.Capabilities[name]
			if !ok {
				return fmt.Errorf("board: pin %s uses undeclared capability %q", p.ID, name)
			}
			if capDetail.Allocation == AllocPort && iface.Kind != KindPort {
				return fmt.Errorf("board: pin %s: %s is port-allocated but has no port descriptor", p.ID, name)
			}
			if name == Digital && iface.Kind != KindGPIO {
				return fmt.Errorf("board: pin %s: digital needs a gpio descriptor", p.ID)
			}
		}
	}

	sortPins(b.Pins)

	for name, c := range b.Capabilities {
		if c.Allocation == "" {
			c.Allocation = AllocPin
		}
		if !c.Allocation.Valid() {
			return fmt.Errorf("board: capability %q has unknown allocation %q", name, c.Allocation)
		}
		if c.Label == "" {
			c.Label = name
		}
		if name == Digital && c.GPIOPins == nil {
			c.GPIOPins = b.gpioBankSizes()
		}
		if c.Max == 0 {
			c.Max = b.deriveMax(name, c.Allocation)
		}
		b.Capabilities[name] = c
	}

	if len(b.Interfaces) == 0 {
		for name := range b.Capabilities {
			b.Interfaces = append(b.Interfaces, name)
		}
		slices.Sort(b.Interfaces)
	}

	b.reindex()
	return nil
}

func (b *Board) deriveMax(name string, mode Allocation) int {
	if mode == AllocPort {
		ports := make(map[int]bool)
		for _, p := range b.Pins {
			if iface, ok := p.Interfaces[name]; ok && p.Allocatable() {
				ports[iface.Port] = true
			}
		}
		return len(ports)
	}
	n := 0
	for _, p := range b.Pins {
		if p.Allocatable() && p.Has(name) {
			n++
		}
	}
	return n
}

func (b *Board) gpioBankSizes() map[int]int {
	banks := make(map[int]int)
	for _, p := range b.Pins {
		iface, ok := p.Interfaces[Digital]
		if !ok || !p.Allocatable() {
			continue
		}
		banks[iface.GPIO.Bank]++
	}
	return banks
}
