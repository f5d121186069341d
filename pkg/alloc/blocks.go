package alloc

import (
	"cmp"
	"encoding/json"
	"slices"

	"github.com/OpenTraceLab/pinplan/pkg/board"
	"github.com/OpenTraceLab/pinplan/pkg/requirement"
)

// NoPort and NoBank mark blocks that are not a port group or carry no GPIO
// bank tag.
const (
	NoPort = -1
	NoBank = -1
)

// Block is one candidate unit that can satisfy one unit of a requirement:
// a single pin, or every member of one port.
type Block struct {
	Pins []string
	Port int
	Bank int

	// RequiredPeripheralCount counts how many capabilities wanted by other
	// pending requirements the block's pins also offer.
	RequiredPeripheralCount int
	// TotalPeripheralCount counts every capability the block's pins offer.
	TotalPeripheralCount int
}

type blockJSON struct {
	Pins     []string `json:"pins"`
	Port     *int     `json:"port,omitempty"`
	Bank     *int     `json:"bank,omitempty"`
	Required int      `json:"requiredPeripheralCount"`
	Total    int      `json:"totalPeripheralCount"`
}

// MarshalJSON omits the port and bank fields when they are unset.
func (b Block) MarshalJSON() ([]byte, error) {
	out := blockJSON{Pins: b.Pins, Required: b.RequiredPeripheralCount, Total: b.TotalPeripheralCount}
	if b.Port != NoPort {
		port := b.Port
		out.Port = &port
	}
	if b.Bank != NoBank {
		bank := b.Bank
		out.Bank = &bank
	}
	return json.Marshal(out)
}

// BuildBlocks enumerates the candidate blocks for req against the current
// pool. otherPending lists the capabilities wanted by the other requirements
// still waiting; committed maps already assigned pin ids to their owner.
//
// Capabilities with an allocation mode other than pin or port yield no blocks.
func BuildBlocks(req requirement.Peripheral, otherPending []string, committed map[string]string, pool Pool, b *board.Board) []Block {
	detail, ok := b.Capability(req.Capability)
	if !ok {
		return nil
	}
	wanted := make(map[string]bool, len(otherPending))
	for _, name := range otherPending {
		wanted[name] = true
	}

	switch detail.Allocation {
	case board.AllocPin:
		return pinBlocks(req, wanted, committed, pool)
	case board.AllocPort:
		return portBlocks(req, wanted, committed, pool, b)
	default:
		return nil
	}
}

func pinBlocks(req requirement.Peripheral, wanted map[string]bool, committed map[string]string, pool Pool) []Block {
	bank, fixed := req.Bank.Fixed()

	var blocks []Block
	for _, pin := range pool.pins {
		iface, ok := pin.Interfaces[req.Capability]
		if !ok {
			continue
		}
		if fixed && (iface.Kind != board.KindGPIO || iface.GPIO.Bank != bank) {
			continue
		}
		if _, taken := committed[pin.ID]; taken {
			continue
		}

		blk := Block{
			Pins:                    []string{pin.ID},
			Port:                    NoPort,
			Bank:                    NoBank,
			RequiredPeripheralCount: congestion(pin, wanted),
			TotalPeripheralCount:    len(pin.Interfaces),
		}
		if req.Bank.Mode == requirement.BankAuto && iface.Kind == board.KindGPIO {
			blk.Bank = iface.GPIO.Bank
		}
		blocks = append(blocks, blk)
	}
	return blocks
}

func portBlocks(req requirement.Peripheral, wanted map[string]bool, committed map[string]string, pool Pool, b *board.Board) []Block {
	var ports []int
	for _, pin := range pool.pins {
		iface, ok := pin.Interfaces[req.Capability]
		if !ok || iface.Kind != board.KindPort {
			continue
		}
		if !slices.Contains(ports, iface.Port) {
			ports = append(ports, iface.Port)
		}
	}
	slices.Sort(ports)

	var blocks []Block
	for _, port := range ports {
		members := b.PortMembers(req.Capability, port, req.IncludeOptionalPins)
		if len(members) == 0 {
			continue
		}

		blk := Block{Port: port, Bank: NoBank}
		usable := true
		for _, pin := range members {
			if _, taken := committed[pin.ID]; taken || !pool.Has(pin.ID) {
				usable = false
				break
			}
			blk.Pins = append(blk.Pins, pin.ID)
			blk.RequiredPeripheralCount += congestion(pin, wanted)
			blk.TotalPeripheralCount += len(pin.Interfaces)
		}
		if usable {
			blocks = append(blocks, blk)
		}
	}
	return blocks
}

func congestion(pin board.Pin, wanted map[string]bool) int {
	n := 0
	for name := range pin.Interfaces {
		if wanted[name] {
			n++
		}
	}
	return n
}

// LeastCongestedFirst returns blocks ordered ascending by required, then
// total peripheral count. The sort is stable, so equal blocks keep board
// order.
func LeastCongestedFirst(blocks []Block) []Block {
	out := slices.Clone(blocks)
	slices.SortStableFunc(out, func(a, b Block) int {
		if c := cmp.Compare(a.RequiredPeripheralCount, b.RequiredPeripheralCount); c != 0 {
			return c
		}
		return cmp.Compare(a.TotalPeripheralCount, b.TotalPeripheralCount)
	})
	return out
}

// MostCongestedFirst returns blocks ordered descending by required, then
// total peripheral count. Used inside a bank chosen for auto GPIO selection.
func MostCongestedFirst(blocks []Block) []Block {
	out := slices.Clone(blocks)
	slices.SortStableFunc(out, func(a, b Block) int {
		if c := cmp.Compare(b.RequiredPeripheralCount, a.RequiredPeripheralCount); c != 0 {
			return c
		}
		return cmp.Compare(b.TotalPeripheralCount, a.TotalPeripheralCount)
	})
	return out
}
