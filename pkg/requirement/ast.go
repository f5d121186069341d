package requirement

import "github.com/alecthomas/participle/v2/lexer"

// File is a parsed requirement file.
type File struct {
	Entries []*Entry `@@*`
}

// Entry is one statement.
type Entry struct {
	Pos lexer.Position

	Pin    *PinEntry    `  @@`
	Periph *PeriphEntry `| @@`
}

// PinEntry forces a pin.
// Example: pin status = D13 : digital;
type PinEntry struct {
	Name       string `"pin" @Ident`
	PinID      string `Assign @( Ident | Int )`
	Capability string `( Colon @Ident )? Semicolon`
}

// PeriphEntry requests peripheral units.
// Example: periph leds : digital x 3 bank auto optional;
type PeriphEntry struct {
	Name       string      `"periph" @Ident Colon`
	Capability string      `@Ident`
	Count      *int        `( "x" @Int )?`
	Bank       *BankClause `@@?`
	Optional   bool        `@"optional"? Semicolon`
}

// BankClause selects the GPIO bank.
type BankClause struct {
	Auto  bool `"bank" ( @"auto"`
	Any   bool `       | @"any"`
	Fixed *int `       | @Int )`
}

// Requirements converts the parsed statements into requirements, in file
// order.
func (f *File) Requirements() []Requirement {
	out := make([]Requirement, 0, len(f.Entries))
	for _, e := range f.Entries {
		switch {
		case e.Pin != nil:
			out = append(out, SinglePin{
				ID:         e.Pin.Name,
				PinID:      e.Pin.PinID,
				Capability: e.Pin.Capability,
			})
		case e.Periph != nil:
			out = append(out, e.Periph.requirement())
		}
	}
	return out
}

func (p *PeriphEntry) requirement() Peripheral {
	r := Peripheral{
		ID:                  p.Name,
		Capability:          p.Capability,
		Count:               1,
		IncludeOptionalPins: p.Optional,
	}
	if p.Count != nil {
		r.Count = *p.Count
	}
	if b := p.Bank; b != nil {
		switch {
		case b.Auto:
			r.Bank = AutoBank
		case b.Any:
			r.Bank = AnyBank
		case b.Fixed != nil:
			r.Bank = BankOf(*b.Fixed)
		}
	}
	return r
}
