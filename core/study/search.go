package study

import (
	"context"
	"sort"
	"strings"

	"github.com/pmezard/go-difflib/difflib"

	"github.com/trezcool/studygroups/core"
)

// minSimilarity is the difflib ratio above which a name matches a query.
const minSimilarity = .6

type Match struct {
	Placement
	Score float64 `json:"score"`
}

// nameScore returns 1 for substring matches, else the similarity ratio of query and name.
func nameScore(query, name string) float64 {
	name = strings.ToLower(name)
	if strings.Contains(name, query) {
		return 1
	}
	m := difflib.NewMatcher(strings.Split(query, ""), strings.Split(name, ""))
	return m.Ratio()
}

// SearchStudents looks up students by name in every pool, best matches first.
func (svc *Service) SearchStudents(ctx context.Context, query string) []Match {
	query = core.CleanString(query, true /* lower */)
	if query == "" {
		return nil
	}

	var matches []Match
	_ = svc.read(func(c *Catalog) error {
		for _, p := range c.Pools() {
			for _, pl := range p.Students() {
				if score := nameScore(query, pl.Student.Name); score >= minSimilarity {
					matches = append(matches, Match{Placement: pl, Score: score})
				}
			}
		}
		return nil
	})

	sort.SliceStable(matches, func(i, j int) bool {
		if matches[i].Score != matches[j].Score {
			return matches[i].Score > matches[j].Score
		}
		return matches[i].Student.ID < matches[j].Student.ID
	})
	return matches
}
