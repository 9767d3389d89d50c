package diag

import (
	"fmt"
	"strings"

	"github.com/lithammer/fuzzysearch/fuzzy"
)

// Suggest returns a "did you mean" hint for target drawn from candidates,
// or "" when nothing is close. A small edit distance wins; otherwise a
// candidate that contains target as a subsequence is offered.
func Suggest(target string, candidates []string) string {
	if target == "" || len(candidates) == 0 {
		return ""
	}
	limit := max(1, len(target)/3)
	best, bestDist := "", limit+1
	for _, c := range candidates {
		d := fuzzy.LevenshteinDistance(strings.ToLower(target), strings.ToLower(c))
		if d < bestDist {
			best, bestDist = c, d
		}
	}
	if best != "" {
		return fmt.Sprintf("did you mean '%s'?", best)
	}
	ranks := fuzzy.RankFindFold(target, candidates)
	if len(ranks) == 0 {
		return ""
	}
	top := ranks[0]
	for _, r := range ranks[1:] {
		if r.Distance < top.Distance {
			top = r
		}
	}
	return fmt.Sprintf("did you mean '%s'?", top.Target)
}
