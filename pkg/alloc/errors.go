package alloc

import (
	"errors"
	"fmt"
	"strings"
)

// ErrIncomplete is returned by Result.Err when a run stopped on a requirement
// that had no feasible block or committed a requirement short.
var ErrIncomplete = errors.New("alloc: allocation incomplete")

// ErrorType classifies validation findings.
type ErrorType string

const (
	SinglePinConflict          ErrorType = "SINGLE_PIN_CONFLICT"
	SinglePinMissingPeripheral ErrorType = "SINGLE_PIN_MISSING_PERIPHERAL"
	PortLimitExceeded          ErrorType = "PORT_LIMIT_EXCEEDED"
	PinLimitExceeded           ErrorType = "PIN_LIMIT_EXCEEDED"
	GPIOPinLimitExceeded       ErrorType = "GPIO_PIN_LIMIT_EXCEEDED"
	InvalidRequirement         ErrorType = "INVALID_REQUIREMENT"
)

// Details carries the structured context of a ValidationError.
type Details struct {
	RequirementIDs []string `json:"requirementIds,omitempty"`
	PinID          string   `json:"pinId,omitempty"`
	Capability     string   `json:"capability,omitempty"`
	Requested      int      `json:"requested"`
	Maximum        int      `json:"maximum"`
	Bank           *int     `json:"bank,omitempty"`
}

// ValidationError is one problem found before allocation.
type ValidationError struct {
	Type    ErrorType `json:"type"`
	Message string    `json:"message"`
	Details Details   `json:"details"`
}

func (e *ValidationError) Error() string { return e.Message }

// addRequested folds another requirement into a capacity error, keeping
// the message in step with the details.
func (e *ValidationError) addRequested(id string, n int) {
	e.Details.Requested += n
	e.Details.RequirementIDs = append(e.Details.RequirementIDs, id)
	e.Message = capacityMessage(e.Type, e.Details)
}

func capacityMessage(t ErrorType, d Details) string {
	switch t {
	case PortLimitExceeded:
		return fmt.Sprintf("%d %s port(s) requested, board provides %d", d.Requested, d.Capability, d.Maximum)
	case GPIOPinLimitExceeded:
		return fmt.Sprintf("%d pin(s) requested from GPIO bank %d, bank provides %d", d.Requested, *d.Bank, d.Maximum)
	default:
		return fmt.Sprintf("%d %s pin(s) requested, board provides %d", d.Requested, d.Capability, d.Maximum)
	}
}

// ValidationErrors is the complete list of findings of one validation pass.
type ValidationErrors []*ValidationError

func (v ValidationErrors) Error() string {
	msgs := make([]string, len(v))
	for i, e := range v {
		msgs[i] = e.Message
	}
	return fmt.Sprintf("alloc: %d validation error(s): %s", len(v), strings.Join(msgs, "; "))
}

// Has reports whether any finding is of type t.
func (v ValidationErrors) Has(t ErrorType) bool {
	return v.Find(t) != nil
}

// Find returns the first finding of type t, or nil.
func (v ValidationErrors) Find(t ErrorType) *ValidationError {
	for _, e := range v {
		if e.Type == t {
			return e
		}
	}
	return nil
}
