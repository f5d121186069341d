package alloc

import (
	"cmp"
	"slices"

	"github.com/OpenTraceLab/pinplan/pkg/requirement"
)

// candidate is one pending requirement as seen by a single iteration.
type candidate struct {
	req    requirement.Peripheral
	index  int
	blocks []Block
	score  Score
}

// run executes the greedy loop. It never fails; a requirement without a
// feasible block stops the run and is reported with the rest of the backlog.
func (p *Planner) run(reqs []requirement.Requirement) *Result {
	singles, pending := requirement.Split(reqs)
	res := newResult()
	pool := NewPool(p.board)
	committed := make(map[string]string)

	for i, sp := range singles {
		// A pin retired by an earlier port cascade is still free for a
		// pin requirement; only an unknown or already claimed pin halts.
		pin, ok := p.board.PinByID(sp.PinID)
		_, claimed := committed[sp.PinID]
		if !ok || !pin.Allocatable() || claimed {
			p.logger.Warn("pin requirement cannot be placed", "requirement", sp.ID, "pin", sp.PinID, "claimed", claimed)
			res.Success = false
			for _, rest := range singles[i:] {
				res.Unassigned = append(res.Unassigned, rest)
			}
			for _, rest := range pending {
				res.Unassigned = append(res.Unassigned, rest)
			}
			res.RemainingPins = pool.IDs()
			return res
		}

		blk := Block{
			Pins:                 []string{pin.ID},
			Port:                 NoPort,
			Bank:                 NoBank,
			TotalPeripheralCount: len(pin.Interfaces),
		}
		res.Assigned = append(res.Assigned, Assignment{Requirement: sp, Blocks: []Block{blk}})
		committed[pin.ID] = sp.ID
		pool = retire(pool, p.board, []Block{blk})
		p.logger.Debug("pin requirement committed", "requirement", sp.ID, "pin", pin.ID, "capability", sp.Capability)
	}

	for len(pending) > 0 {
		res.Iterations++
		cands := p.candidates(pending, committed, pool)
		next := selectNext(cands)
		chosen := chooseBlocks(next.req, next.blocks)

		if len(chosen) == 0 {
			p.logger.Warn("requirement has no feasible block",
				"requirement", next.req.ID,
				"capability", next.req.Capability,
				"iteration", res.Iterations,
				"backlog", len(pending)-1)
			res.Success = false
			res.Unassigned = append(res.Unassigned, next.req)
			for i, rest := range pending {
				if i != next.index {
					res.Unassigned = append(res.Unassigned, rest)
				}
			}
			break
		}

		a := Assignment{Requirement: next.req, Blocks: chosen, Shortfall: next.req.Count - len(chosen)}
		if a.Shortfall > 0 {
			res.Success = false
			p.logger.Warn("requirement committed short",
				"requirement", next.req.ID,
				"requested", next.req.Count,
				"committed", len(chosen))
		}
		res.Assigned = append(res.Assigned, a)
		for _, blk := range chosen {
			for _, id := range blk.Pins {
				committed[id] = next.req.ID
			}
		}
		pool = retire(pool, p.board, chosen)
		pending = slices.Delete(slices.Clone(pending), next.index, next.index+1)

		p.logger.Debug("requirement committed",
			"requirement", next.req.ID,
			"capability", next.req.Capability,
			"pins", a.Pins(),
			"ratio", next.score.Ratio,
			"candidates", next.score.Candidates,
			"pool", pool.Len())
	}

	res.RemainingPins = pool.IDs()
	return res
}

// candidates rebuilds blocks and scores for every pending requirement.
func (p *Planner) candidates(pending []requirement.Peripheral, committed map[string]string, pool Pool) []candidate {
	cands := make([]candidate, len(pending))
	for i, req := range pending {
		others := make([]string, 0, len(pending)-1)
		for j, other := range pending {
			if j != i {
				others = append(others, other.Capability)
			}
		}
		blocks := BuildBlocks(req, others, committed, pool, p.board)
		cands[i] = candidate{
			req:    req,
			index:  i,
			blocks: blocks,
			score:  ScoreRequirement(req, blocks),
		}
	}
	return cands
}

// selectNext orders candidates ascending by ratio, then descending by
// candidate count, and returns the last one: the most constrained
// requirement. The sort is stable so equal candidates keep input order.
func selectNext(cands []candidate) candidate {
	sorted := slices.Clone(cands)
	slices.SortStableFunc(sorted, func(a, b candidate) int {
		if c := cmp.Compare(a.score.Ratio, b.score.Ratio); c != 0 {
			return c
		}
		return cmp.Compare(b.score.Candidates, a.score.Candidates)
	})
	return sorted[len(sorted)-1]
}

// chooseBlocks picks the blocks to commit for req.
func chooseBlocks(req requirement.Peripheral, blocks []Block) []Block {
	if req.Count < 1 || len(blocks) == 0 {
		return nil
	}
	if req.Bank.Mode == requirement.BankAuto {
		return chooseBank(req.Count, blocks)
	}
	ordered := LeastCongestedFirst(blocks)
	return ordered[:min(req.Count, len(ordered))]
}

type bankChoice struct {
	bank     int
	blocks   []Block
	required int
	total    int
}

// chooseBank takes count blocks from a single bank. Within each bank that
// holds enough candidates the most congested blocks are taken; banks are
// ranked descending by the summed counts of those blocks, ties to the lower
// bank id.
func chooseBank(count int, blocks []Block) []Block {
	var choices []bankChoice
	for _, g := range groupByBank(blocks) {
		if len(g.blocks) < count {
			continue
		}
		top := MostCongestedFirst(g.blocks)[:count]
		c := bankChoice{bank: g.bank, blocks: top}
		for _, blk := range top {
			c.required += blk.RequiredPeripheralCount
			c.total += blk.TotalPeripheralCount
		}
		choices = append(choices, c)
	}
	if len(choices) == 0 {
		return nil
	}

	slices.SortStableFunc(choices, func(a, b bankChoice) int {
		if c := cmp.Compare(b.required, a.required); c != 0 {
			return c
		}
		return cmp.Compare(b.total, a.total)
	})
	return choices[0].blocks
}
