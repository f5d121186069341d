package alloc

import (
	"fmt"

	"github.com/OpenTraceLab/pinplan/pkg/board"
	"github.com/OpenTraceLab/pinplan/pkg/requirement"
)

// Validate runs every pre-flight check against the capability catalog and
// returns all findings. Checks never short-circuit; an empty result means the
// requirement set may be handed to the optimizer.
func Validate(reqs []requirement.Requirement, caps map[string]board.Capability) ValidationErrors {
	var errs ValidationErrors
	errs = append(errs, checkMissingPeripheral(reqs)...)
	errs = append(errs, checkSinglePinConflicts(reqs)...)
	errs = append(errs, checkCapacity(reqs, caps)...)
	errs = append(errs, checkDigitalCapacity(reqs, caps)...)
	errs = append(errs, checkShapes(reqs, caps)...)
	return errs
}

func checkMissingPeripheral(reqs []requirement.Requirement) ValidationErrors {
	var errs ValidationErrors
	for _, r := range reqs {
		sp, ok := r.(requirement.SinglePin)
		if !ok || sp.Capability != "" {
			continue
		}
		errs = append(errs, &ValidationError{
			Type:    SinglePinMissingPeripheral,
			Message: fmt.Sprintf("pin requirement %q on %s has no peripheral", sp.ID, sp.PinID),
			Details: Details{RequirementIDs: []string{sp.ID}, PinID: sp.PinID},
		})
	}
	return errs
}

func checkSinglePinConflicts(reqs []requirement.Requirement) ValidationErrors {
	claims := make(map[string][]string)
	var order []string
	for _, r := range reqs {
		sp, ok := r.(requirement.SinglePin)
		if !ok {
			continue
		}
		if _, seen := claims[sp.PinID]; !seen {
			order = append(order, sp.PinID)
		}
		claims[sp.PinID] = append(claims[sp.PinID], sp.ID)
	}

	var errs ValidationErrors
	for _, pin := range order {
		ids := claims[pin]
		if len(ids) < 2 {
			continue
		}
		errs = append(errs, &ValidationError{
			Type:    SinglePinConflict,
			Message: fmt.Sprintf("pin %s is claimed by %d requirements %v", pin, len(ids), ids),
			Details: Details{RequirementIDs: ids, PinID: pin},
		})
	}
	return errs
}

// claim reports the capacity r draws on. A pin requirement with a
// capability claims one unit and never selects a bank.
func claim(r requirement.Requirement) (requirement.Peripheral, bool) {
	switch v := r.(type) {
	case requirement.Peripheral:
		return v, v.Count >= 1
	case requirement.SinglePin:
		return requirement.Peripheral{ID: v.ID, Capability: v.Capability, Count: 1}, v.Capability != ""
	}
	return requirement.Peripheral{}, false
}

// checkCapacity sums requested units per non-digital capability. Each
// capability yields at most one error whose Requested grows as later
// requirements add to it.
func checkCapacity(reqs []requirement.Requirement, caps map[string]board.Capability) ValidationErrors {
	var errs ValidationErrors
	totals := make(map[string]int)
	contributors := make(map[string][]string)
	open := make(map[string]*ValidationError)

	for _, r := range reqs {
		p, ok := claim(r)
		if !ok || p.Capability == board.Digital {
			continue
		}
		detail, ok := caps[p.Capability]
		if !ok {
			continue
		}
		if e, ok := open[p.Capability]; ok {
			e.addRequested(p.ID, p.Count)
			continue
		}

		totals[p.Capability] += p.Count
		contributors[p.Capability] = append(contributors[p.Capability], p.ID)
		if totals[p.Capability] <= detail.Max {
			continue
		}

		kind := PinLimitExceeded
		if detail.Allocation == board.AllocPort {
			kind = PortLimitExceeded
		}
		e := &ValidationError{
			Type: kind,
			Details: Details{
				RequirementIDs: contributors[p.Capability],
				Capability:     p.Capability,
				Requested:      totals[p.Capability],
				Maximum:        detail.Max,
			},
		}
		e.Message = capacityMessage(kind, e.Details)
		open[p.Capability] = e
		errs = append(errs, e)
	}
	return errs
}

// checkDigitalCapacity applies the per-bank and the global digital caps.
// Only concrete bank selectors count against a bank; every digital
// requirement and digital pin claim counts against the global cap.
func checkDigitalCapacity(reqs []requirement.Requirement, caps map[string]board.Capability) ValidationErrors {
	detail, ok := caps[board.Digital]
	if !ok {
		return nil
	}

	var errs ValidationErrors
	bankTotals := make(map[int]int)
	bankIDs := make(map[int][]string)
	bankErrs := make(map[int]*ValidationError)
	var total int
	var totalIDs []string
	var totalErr *ValidationError

	for _, r := range reqs {
		p, ok := claim(r)
		if !ok || p.Capability != board.Digital {
			continue
		}

		if bank, fixed := p.Bank.Fixed(); fixed {
			if e, ok := bankErrs[bank]; ok {
				e.addRequested(p.ID, p.Count)
			} else {
				bankTotals[bank] += p.Count
				bankIDs[bank] = append(bankIDs[bank], p.ID)
				if limit := detail.GPIOPins[bank]; bankTotals[bank] > limit {
					b := bank
					e := &ValidationError{
						Type: GPIOPinLimitExceeded,
						Details: Details{
							RequirementIDs: bankIDs[bank],
							Capability:     board.Digital,
							Requested:      bankTotals[bank],
							Maximum:        limit,
							Bank:           &b,
						},
					}
					e.Message = capacityMessage(GPIOPinLimitExceeded, e.Details)
					bankErrs[bank] = e
					errs = append(errs, e)
				}
			}
		}

		if totalErr != nil {
			totalErr.addRequested(p.ID, p.Count)
			continue
		}
		total += p.Count
		totalIDs = append(totalIDs, p.ID)
		if total > detail.Max {
			totalErr = &ValidationError{
				Type: PinLimitExceeded,
				Details: Details{
					RequirementIDs: totalIDs,
					Capability:     board.Digital,
					Requested:      total,
					Maximum:        detail.Max,
				},
			}
			totalErr.Message = capacityMessage(PinLimitExceeded, totalErr.Details)
			errs = append(errs, totalErr)
		}
	}
	return errs
}

// checkShapes reports requirements that cannot be interpreted at all.
func checkShapes(reqs []requirement.Requirement, caps map[string]board.Capability) ValidationErrors {
	var errs ValidationErrors
	invalid := func(id, capability, format string, args ...any) {
		errs = append(errs, &ValidationError{
			Type:    InvalidRequirement,
			Message: fmt.Sprintf(format, args...),
			Details: Details{RequirementIDs: []string{id}, Capability: capability},
		})
	}

	seen := make(map[string]bool)
	for _, r := range reqs {
		if id := r.Key(); id != "" {
			if seen[id] {
				invalid(id, r.Wants(), "duplicate requirement id %q", id)
			}
			seen[id] = true
		}

		switch v := r.(type) {
		case requirement.SinglePin:
			if v.Capability == "" {
				continue
			}
			if _, ok := caps[v.Capability]; !ok {
				invalid(v.ID, v.Capability, "requirement %q asks for unknown capability %q", v.ID, v.Capability)
			}
		case requirement.Peripheral:
			if _, ok := caps[v.Capability]; !ok {
				invalid(v.ID, v.Capability, "requirement %q asks for unknown capability %q", v.ID, v.Capability)
			}
			if v.Count < 1 {
				invalid(v.ID, v.Capability, "requirement %q must request at least one unit, got %d", v.ID, v.Count)
			}
			if v.Bank.Mode != requirement.BankNone && v.Capability != board.Digital {
				invalid(v.ID, v.Capability, "requirement %q selects a GPIO bank for non-digital capability %q", v.ID, v.Capability)
			}
		}
	}
	return errs
}

// validatePins checks single-pin requirements against the board pinout.
func validatePins(reqs []requirement.Requirement, b *board.Board) ValidationErrors {
	var errs ValidationErrors
	for _, r := range reqs {
		sp, ok := r.(requirement.SinglePin)
		if !ok {
			continue
		}
		invalid := func(format string, args ...any) {
			errs = append(errs, &ValidationError{
				Type:    InvalidRequirement,
				Message: fmt.Sprintf(format, args...),
				Details: Details{RequirementIDs: []string{sp.ID}, PinID: sp.PinID, Capability: sp.Capability},
			})
		}

		pin, ok := b.PinByID(sp.PinID)
		switch {
		case !ok:
			invalid("requirement %q names unknown pin %s", sp.ID, sp.PinID)
		case pin.Designation != "":
			invalid("requirement %q names %s pin %s", sp.ID, pin.Designation, sp.PinID)
		case sp.Capability != "" && !pin.Has(sp.Capability):
			invalid("pin %s does not provide %s for requirement %q", sp.PinID, sp.Capability, sp.ID)
		}
	}
	return errs
}
