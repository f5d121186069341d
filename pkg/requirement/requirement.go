package requirement

import (
	"fmt"
	"strconv"
)

// Requirement is one caller intent. The concrete type is either SinglePin or
// Peripheral; no other implementations exist.
type Requirement interface {
	// Key returns the caller-assigned requirement id.
	Key() string
	// Wants returns the capability the requirement asks for.
	Wants() string

	sealed()
}

// SinglePin forces a specific capability onto a specific pin.
type SinglePin struct {
	ID         string
	PinID      string
	Capability string
}

func (r SinglePin) Key() string   { return r.ID }
func (r SinglePin) Wants() string { return r.Capability }
func (SinglePin) sealed()         {}

// Peripheral requests Count independent units of a capability.
type Peripheral struct {
	ID                  string
	Capability          string
	Count               int
	Bank                BankSelector
	IncludeOptionalPins bool
}

func (r Peripheral) Key() string   { return r.ID }
func (r Peripheral) Wants() string { return r.Capability }
func (Peripheral) sealed()         {}

// Split separates single-pin from peripheral requirements, preserving order.
func Split(reqs []Requirement) ([]SinglePin, []Peripheral) {
	var singles []SinglePin
	var periphs []Peripheral
	for _, r := range reqs {
		switch v := r.(type) {
		case SinglePin:
			singles = append(singles, v)
		case Peripheral:
			periphs = append(periphs, v)
		}
	}
	return singles, periphs
}

// BankMode tells how a Peripheral constrains its GPIO bank.
type BankMode int

const (
	// BankNone places no bank constraint.
	BankNone BankMode = iota
	// BankAny ("R") explicitly allows any bank, allocated pin by pin.
	BankAny
	// BankAuto ("A") picks one bank and takes every pin from it.
	BankAuto
	// BankFixed restricts allocation to one concrete bank.
	BankFixed
)

// BankSelector is the GPIO bank constraint of a Peripheral.
type BankSelector struct {
	Mode BankMode
	Bank int
}

// Convenience selectors.
var (
	AnyBank  = BankSelector{Mode: BankAny}
	AutoBank = BankSelector{Mode: BankAuto}
)

// BankOf selects one concrete bank.
func BankOf(bank int) BankSelector {
	return BankSelector{Mode: BankFixed, Bank: bank}
}

// Fixed reports whether a concrete bank was requested, returning it.
func (s BankSelector) Fixed() (int, bool) {
	return s.Bank, s.Mode == BankFixed
}

// String returns the catalog form: "", "R", "A" or the bank number.
func (s BankSelector) String() string {
	switch s.Mode {
	case BankAny:
		return "R"
	case BankAuto:
		return "A"
	case BankFixed:
		return strconv.Itoa(s.Bank)
	default:
		return ""
	}
}

// ParseBank is the inverse of BankSelector.String.
func ParseBank(s string) (BankSelector, error) {
	switch s {
	case "":
		return BankSelector{}, nil
	case "R", "r":
		return AnyBank, nil
	case "A", "a":
		return AutoBank, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return BankSelector{}, fmt.Errorf("requirement: invalid gpio bank %q", s)
	}
	return BankOf(n), nil
}
