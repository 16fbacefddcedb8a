package pipeline

import (
	"sort"

	"github.com/alchemorsel/vitaplan/internal/domain/plan"
	"github.com/alchemorsel/vitaplan/internal/ports/inbound"
)

// variantPreference is the order in which variants are kept when fewer
// than three per base are requested
var variantPreference = []plan.Label{plan.LabelStandard, plan.LabelLite, plan.LabelPlus}

// selectVariants keeps vn variants of one base in label order
func selectVariants(all [3]plan.Variant, vn int) []plan.Variant {
	if vn >= len(all) {
		return all[:]
	}
	keep := make(map[plan.Label]bool, vn)
	for _, l := range variantPreference[:vn] {
		keep[l] = true
	}
	out := make([]plan.Variant, 0, vn)
	for _, v := range all {
		if keep[v.Label] {
			out = append(out, v)
		}
	}
	return out
}

// rank sorts by score descending, ties by base order then variant order,
// and numbers the candidates from 1
func rank(candidates []inbound.Candidate) {
	sort.SliceStable(candidates, func(i, j int) bool {
		a, b := candidates[i], candidates[j]
		if a.Assessment.Score != b.Assessment.Score {
			return a.Assessment.Score > b.Assessment.Score
		}
		if a.Variant.BaseIndex != b.Variant.BaseIndex {
			return a.Variant.BaseIndex < b.Variant.BaseIndex
		}
		return a.Variant.Label.Order() < b.Variant.Label.Order()
	})
	for i := range candidates {
		candidates[i].Rank = i + 1
	}
}

// top keeps candidates scoring at least minScore, at most k of them
func top(candidates []inbound.Candidate, minScore float64, k int) []inbound.Candidate {
	out := make([]inbound.Candidate, 0, k)
	for _, c := range candidates {
		if len(out) >= k {
			break
		}
		if c.Assessment.Score >= minScore {
			out = append(out, c)
		}
	}
	return out
}
