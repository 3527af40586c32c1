package attempt

import (
	"math/rand"
	"sort"

	"github.com/stepwise-health/stepwise/internal/catalog"
)

// GenerateOrder produces the question sequence for a new attempt.
// Randomized assessments get a uniform shuffle; otherwise questions
// are ordered by display order with IDs breaking ties so the result
// is a total order. Pure apart from rng; the caller persists the
// result once per attempt and never regenerates it on resume.
func GenerateOrder(qs []catalog.Question, randomize bool, rng *rand.Rand) []int64 {
	ids := make([]int64, len(qs))
	if randomize {
		for i, p := range rng.Perm(len(qs)) {
			ids[i] = qs[p].ID
		}
		return ids
	}
	sorted := make([]catalog.Question, len(qs))
	copy(sorted, qs)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].DisplayOrder != sorted[j].DisplayOrder {
			return sorted[i].DisplayOrder < sorted[j].DisplayOrder
		}
		return sorted[i].ID < sorted[j].ID
	})
	for i, q := range sorted {
		ids[i] = q.ID
	}
	return ids
}
