package requirement

import (
	"encoding/json"
	"fmt"
)

const (
	kindPin        = "pin"
	kindPeripheral = "peripheral"
)

// wire is the tagged JSON shape shared by both variants.
type wire struct {
	Kind                string `json:"kind"`
	ID                  string `json:"id"`
	PinID               string `json:"pin,omitempty"`
	Capability          string `json:"capability"`
	Count               int    `json:"count,omitempty"`
	GPIOPort            string `json:"gpioPort,omitempty"`
	IncludeOptionalPins bool   `json:"includeOptionalPins,omitempty"`
}

// MarshalJSON encodes the requirement with a "pin" kind tag.
func (r SinglePin) MarshalJSON() ([]byte, error) {
	return json.Marshal(wire{Kind: kindPin, ID: r.ID, PinID: r.PinID, Capability: r.Capability})
}

// MarshalJSON encodes the requirement with a "peripheral" kind tag.
func (r Peripheral) MarshalJSON() ([]byte, error) {
	return json.Marshal(wire{
		Kind:                kindPeripheral,
		ID:                  r.ID,
		Capability:          r.Capability,
		Count:               r.Count,
		GPIOPort:            r.Bank.String(),
		IncludeOptionalPins: r.IncludeOptionalPins,
	})
}

// List is a JSON-decodable slice of requirements.
type List []Requirement

// UnmarshalJSON decodes each element according to its kind tag.
func (l *List) UnmarshalJSON(data []byte) error {
	var raw []wire
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("requirement: %w", err)
	}
	out := make(List, 0, len(raw))
	for i, w := range raw {
		r, err := w.decode()
		if err != nil {
			return fmt.Errorf("requirement: element %d: %w", i, err)
		}
		out = append(out, r)
	}
	*l = out
	return nil
}

func (w wire) decode() (Requirement, error) {
	switch w.Kind {
	case kindPin:
		if w.PinID == "" {
			return nil, fmt.Errorf("pin requirement %q has no pin", w.ID)
		}
		return SinglePin{ID: w.ID, PinID: w.PinID, Capability: w.Capability}, nil
	case kindPeripheral, "":
		bank, err := ParseBank(w.GPIOPort)
		if err != nil {
			return nil, err
		}
		count := w.Count
		if count == 0 {
			count = 1
		}
		return Peripheral{
			ID:                  w.ID,
			Capability:          w.Capability,
			Count:               count,
			Bank:                bank,
			IncludeOptionalPins: w.IncludeOptionalPins,
		}, nil
	default:
		return nil, fmt.Errorf("unknown kind %q", w.Kind)
	}
}
