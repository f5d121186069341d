package alloc

import (
	"math"
	"slices"

	"github.com/OpenTraceLab/pinplan/pkg/requirement"
)

// Score is the scarcity metric of one pending requirement.
type Score struct {
	// Ratio is requested units over candidate blocks. Values near or above 1
	// mean the requirement is tightly constrained; +Inf means no candidates.
	Ratio float64
	// Candidates is the number of candidate blocks.
	Candidates int
	// Bank is the bank whose pressure set Ratio for auto GPIO selection,
	// NoBank otherwise.
	Bank int
}

// ScoreRequirement computes the availability ratio of req over its blocks.
//
// For auto bank selection the ratio is that of the most pressured bank that
// still holds Count candidates; ties go to the bank with fewer candidates,
// then to the lower bank id.
func ScoreRequirement(req requirement.Peripheral, blocks []Block) Score {
	s := Score{Ratio: math.Inf(1), Candidates: len(blocks), Bank: NoBank}
	if req.Bank.Mode != requirement.BankAuto {
		if len(blocks) > 0 {
			s.Ratio = float64(req.Count) / float64(len(blocks))
		}
		return s
	}

	found, bestN := false, 0
	for _, g := range groupByBank(blocks) {
		n := len(g.blocks)
		if n < req.Count {
			continue
		}
		ratio := float64(req.Count) / float64(n)
		if !found || ratio > s.Ratio || (ratio == s.Ratio && n < bestN) {
			s.Ratio, s.Bank, bestN = ratio, g.bank, n
			found = true
		}
	}
	return s
}

type bankGroup struct {
	bank   int
	blocks []Block
}

// groupByBank partitions blocks by their bank tag, ascending by bank id.
// Block order inside a group is preserved.
func groupByBank(blocks []Block) []bankGroup {
	var banks []int
	byBank := make(map[int][]Block)
	for _, blk := range blocks {
		if _, ok := byBank[blk.Bank]; !ok {
			banks = append(banks, blk.Bank)
		}
		byBank[blk.Bank] = append(byBank[blk.Bank], blk)
	}
	slices.Sort(banks)

	groups := make([]bankGroup, len(banks))
	for i, bank := range banks {
		groups[i] = bankGroup{bank: bank, blocks: byBank[bank]}
	}
	return groups
}
