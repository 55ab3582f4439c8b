// Package rank orders collapsed gesture runs by how often each label occurred.
package rank

import (
	"sort"

	"github.com/signlearn/gesture-session/segment"
)

// DefaultK is the number of labels kept in a session summary.
const DefaultK = 5

type Entry struct {
	Label string `json:"label" yaml:"label"`
	Count int    `json:"count" yaml:"count"`
}

// Counts tallies runs per label, most frequent first. Labels with equal
// counts keep the order in which they first appeared.
func Counts(runs []segment.Run) []Entry {
	idx := make(map[string]int, len(runs))
	var out []Entry
	for _, r := range runs {
		if i, ok := idx[r.Label]; ok {
			out[i].Count++
			continue
		}
		idx[r.Label] = len(out)
		out = append(out, Entry{Label: r.Label, Count: 1})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Count > out[j].Count })
	if out == nil {
		out = []Entry{}
	}
	return out
}

// Rank returns at most k entries of Counts(runs). k <= 0 yields no entries.
func Rank(runs []segment.Run, k int) []Entry {
	if k <= 0 {
		return []Entry{}
	}
	out := Counts(runs)
	if len(out) > k {
		out = out[:k:k]
	}
	return out
}
