package alloc

import (
	"slices"

	"github.com/OpenTraceLab/pinplan/pkg/board"
)

// Pool is the set of pins still available during one run. A Pool is never
// modified in place; Without returns the next generation.
type Pool struct {
	pins []board.Pin
	ids  map[string]struct{}
	gen  int
}

// NewPool snapshots every allocatable pin of b, in board order.
func NewPool(b *board.Board) Pool {
	pins := make([]board.Pin, 0, len(b.Pins))
	for _, p := range b.Pins {
		if p.Allocatable() {
			pins = append(pins, p)
		}
	}
	return newPool(pins, 0)
}

func newPool(pins []board.Pin, gen int) Pool {
	ids := make(map[string]struct{}, len(pins))
	for _, p := range pins {
		ids[p.ID] = struct{}{}
	}
	return Pool{pins: pins, ids: ids, gen: gen}
}

// Has reports whether the pin is still available.
func (p Pool) Has(id string) bool {
	_, ok := p.ids[id]
	return ok
}

// Len returns the number of available pins.
func (p Pool) Len() int { return len(p.pins) }

// Generation counts how many times the pool has been shrunk.
func (p Pool) Generation() int { return p.gen }

// Pins returns the available pins in board order.
func (p Pool) Pins() []board.Pin { return slices.Clone(p.pins) }

// IDs returns the available pin ids in board order.
func (p Pool) IDs() []string {
	ids := make([]string, len(p.pins))
	for i, pin := range p.pins {
		ids[i] = pin.ID
	}
	return ids
}

// Without returns a new pool lacking the given pins.
func (p Pool) Without(ids ...string) Pool {
	drop := make(map[string]bool, len(ids))
	for _, id := range ids {
		drop[id] = true
	}
	kept := make([]board.Pin, 0, len(p.pins))
	for _, pin := range p.pins {
		if !drop[pin.ID] {
			kept = append(kept, pin)
		}
	}
	return newPool(kept, p.gen+1)
}

// retire removes every pin of the committed blocks. A removed pin that is a
// required member of a port-allocated capability also takes every other
// board pin on that port out of the pool, optional members included.
func retire(p Pool, b *board.Board, blocks []Block) Pool {
	var drop []string
	for _, blk := range blocks {
		for _, id := range blk.Pins {
			drop = append(drop, id)

			pin, ok := b.PinByID(id)
			if !ok {
				continue
			}
			for _, name := range pin.Capabilities() {
				iface := pin.Interfaces[name]
				if iface.Kind != board.KindPort || !iface.Required {
					continue
				}
				if c, ok := b.Capability(name); !ok || c.Allocation != board.AllocPort {
					continue
				}
				for _, member := range b.PortMembers(name, iface.Port, true) {
					drop = append(drop, member.ID)
				}
			}
		}
	}
	return p.Without(drop...)
}
