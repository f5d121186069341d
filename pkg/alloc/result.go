package alloc

import (
	"encoding/json"
	"fmt"

	"github.com/zeebo/xxh3"

	"github.com/OpenTraceLab/pinplan/pkg/requirement"
)

// Assignment is a committed requirement together with its blocks.
type Assignment struct {
	Requirement requirement.Requirement `json:"requirement"`
	Blocks      []Block                 `json:"assignedBlocks"`
	// Shortfall is the number of requested units that could not be
	// committed because fewer candidate blocks were left.
	Shortfall int `json:"shortfall,omitempty"`
}

// Pins returns every pin of the assignment, block by block.
func (a Assignment) Pins() []string {
	var pins []string
	for _, blk := range a.Blocks {
		pins = append(pins, blk.Pins...)
	}
	return pins
}

// Result is the outcome of one optimization run.
type Result struct {
	Success    bool                      `json:"success"`
	Assigned   []Assignment              `json:"assignedRequirements"`
	Unassigned []requirement.Requirement `json:"unassignedRequirements"`

	// RemainingPins lists the pool after the last commit, in board order.
	RemainingPins []string `json:"remainingPins"`
	// Iterations counts greedy loop iterations.
	Iterations int `json:"iterations"`
}

func newResult() *Result {
	return &Result{
		Success:       true,
		Assigned:      []Assignment{},
		Unassigned:    []requirement.Requirement{},
		RemainingPins: []string{},
	}
}

// Err returns nil for a complete run. Otherwise it returns ErrIncomplete
// naming the requirement the run stopped on, or the first requirement that
// was committed short.
func (r *Result) Err() error {
	if r.Success {
		return nil
	}
	if len(r.Unassigned) > 0 {
		return fmt.Errorf("%w: no feasible block for requirement %q (%d left unassigned)",
			ErrIncomplete, r.Unassigned[0].Key(), len(r.Unassigned))
	}
	for _, a := range r.Assigned {
		if a.Shortfall > 0 {
			return fmt.Errorf("%w: requirement %q is %d unit(s) short",
				ErrIncomplete, a.Requirement.Key(), a.Shortfall)
		}
	}
	return ErrIncomplete
}

// PinMap maps every committed pin id to its requirement id.
func (r *Result) PinMap() map[string]string {
	m := make(map[string]string)
	for _, a := range r.Assigned {
		for _, id := range a.Pins() {
			m[id] = a.Requirement.Key()
		}
	}
	return m
}

// ExportJSON returns the indented JSON form of the result.
func (r *Result) ExportJSON() ([]byte, error) {
	return json.MarshalIndent(r, "", "  ")
}

// Fingerprint hashes the canonical JSON encoding. Two runs over identical
// inputs produce identical fingerprints.
func (r *Result) Fingerprint() uint64 {
	data, err := json.Marshal(r)
	if err != nil {
		return 0
	}
	return xxh3.Hash(data)
}
