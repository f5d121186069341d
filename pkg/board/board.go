package board

import (
	"cmp"
	"slices"
)

// Digital is the capability name that carries GPIO bank information.
const Digital = "digital"

// Allocation describes how one unit of a capability consumes pins.
type Allocation string

const (
	// AllocPin means each unit consumes exactly one pin.
	AllocPin Allocation = "pin"
	// AllocPort means each unit consumes a whole numbered port.
	AllocPort Allocation = "port"
	// AllocHybrid is accepted in catalogs but cannot be allocated yet.
	AllocHybrid Allocation = "hybrid"
)

// Valid reports whether a is a known allocation mode.
func (a Allocation) Valid() bool {
	switch a {
	case AllocPin, AllocPort, AllocHybrid:
		return true
	}
	return false
}

// Capability describes one interface type offered by the board.
type Capability struct {
	Label      string     `yaml:"label" json:"label"`
	Allocation Allocation `yaml:"allocation" json:"allocation"`
	Max        int        `yaml:"max" json:"max"`

	// GPIOPins maps a GPIO bank to its pin count. Only set for digital.
	GPIOPins map[int]int `yaml:"gpio,omitempty" json:"gpio,omitempty"`
}

// GPIO locates a digital pin inside a GPIO bank.
type GPIO struct {
	Bank int `yaml:"port" json:"port"`
	Bit  int `yaml:"bit" json:"bit"`
}

// InterfaceKind tells which form an Interface descriptor takes.
type InterfaceKind int

const (
	KindTag InterfaceKind = iota
	KindPort
	KindGPIO
)

// Interface is the per-pin descriptor of one capability. Exactly one of
// Channel, Port/Required or GPIO is meaningful, selected by Kind.
type Interface struct {
	Kind     InterfaceKind
	Channel  string
	Port     int
	Required bool
	GPIO     GPIO
}

// Pin is one physical pin of the board.
type Pin struct {
	ID          string               `yaml:"id" json:"id"`
	Number      int                  `yaml:"number" json:"number"`
	Side        string               `yaml:"side,omitempty" json:"side,omitempty"`
	Interfaces  map[string]Interface `yaml:"interfaces,omitempty" json:"interfaces,omitempty"`
	Designation string               `yaml:"designation,omitempty" json:"designation,omitempty"`
}

// Allocatable reports whether the pin may be handed out at all.
func (p Pin) Allocatable() bool {
	return p.Designation == "" && len(p.Interfaces) > 0
}

// Has reports whether the pin exposes the capability.
func (p Pin) Has(capability string) bool {
	_, ok := p.Interfaces[capability]
	return ok
}

// Capabilities returns the capability names exposed by the pin, sorted.
func (p Pin) Capabilities() []string {
	names := make([]string, 0, len(p.Interfaces))
	for name := range p.Interfaces {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Board is a fixed pinout together with its capability catalog.
type Board struct {
	Name         string                `yaml:"name" json:"name"`
	Interfaces   []string              `yaml:"interfaces,omitempty" json:"interfaces,omitempty"`
	Capabilities map[string]Capability `yaml:"capabilities" json:"capabilities"`
	Pins         []Pin                 `yaml:"pins" json:"pins"`

	index map[string]int
}

// PinByID returns the pin with the given id.
func (b *Board) PinByID(id string) (Pin, bool) {
	if b.index != nil {
		i, ok := b.index[id]
		if !ok {
			return Pin{}, false
		}
		return b.Pins[i], true
	}
	for _, p := range b.Pins {
		if p.ID == id {
			return p, true
		}
	}
	return Pin{}, false
}

// Capability returns the catalog entry for name.
func (b *Board) Capability(name string) (Capability, bool) {
	c, ok := b.Capabilities[name]
	return c, ok
}

// PortMembers returns every board pin exposing capability on port, in board
// order. Optional members are included only when withOptional is set.
func (b *Board) PortMembers(capability string, port int, withOptional bool) []Pin {
	var out []Pin
	for _, p := range b.Pins {
		iface, ok := p.Interfaces[capability]
		if !ok || iface.Kind != KindPort || iface.Port != port {
			continue
		}
		if !iface.Required && !withOptional {
			continue
		}
		out = append(out, p)
	}
	return out
}

// sortPins orders pins by ordinal number, then id.
func sortPins(pins []Pin) {
	slices.SortStableFunc(pins, func(a, b Pin) int {
		if c := cmp.Compare(a.Number, b.Number); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
}

func (b *Board) reindex() {
	b.index = make(map[string]int, len(b.Pins))
	for i, p := range b.Pins {
		b.index[p.ID] = i
	}
}
