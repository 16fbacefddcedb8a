// Package knowledge defines the evidence returned by graph retrieval.
package knowledge

import (
	"fmt"
	"strings"
)

// Retrieval modes recorded on a result
const (
	ModeKeyword  = "keyword"
	ModeSemantic = "semantic"
	ModeEmpty    = "empty"
)

// Relation is one (head, relation, tail) triple from the graph
type Relation struct {
	Head     string   `json:"head"`
	Relation string   `json:"relation"`
	Tail     string   `json:"tail"`
	Score    *float64 `json:"score,omitempty"`
}

// Key identifies the triple independent of its score
func (r Relation) Key() string {
	return strings.ToLower(r.Head) + "\x00" + strings.ToLower(r.Relation) + "\x00" + strings.ToLower(r.Tail)
}

// String renders the relation as a prompt line
func (r Relation) String() string {
	return fmt.Sprintf("%s -[%s]-> %s", r.Head, r.Relation, r.Tail)
}

// Anchor is a seed entity for neighbourhood expansion
type Anchor struct {
	Name  string  `json:"name"`
	Score float64 `json:"score"`
}

// Result is the output of one retrieval call
type Result struct {
	Query     string     `json:"query"`
	Mode      string     `json:"mode"`
	Anchors   []Anchor   `json:"anchors"`
	Relations []Relation `json:"relations"`
	// Fallback records why the requested mode was not used
	Fallback string `json:"fallback,omitempty"`
}

// Empty reports whether the result carries no relations
func (r Result) Empty() bool {
	return len(r.Relations) == 0
}

// Merge collapses duplicate triples keeping the highest score. First-seen
// order is preserved.
func Merge(relations []Relation) []Relation {
	index := make(map[string]int, len(relations))
	out := make([]Relation, 0, len(relations))
	for _, r := range relations {
		key := r.Key()
		i, seen := index[key]
		if !seen {
			index[key] = len(out)
			out = append(out, r)
			continue
		}
		if higher(r.Score, out[i].Score) {
			out[i].Score = r.Score
		}
	}
	return out
}

func higher(a, b *float64) bool {
	if a == nil {
		return false
	}
	return b == nil || *a > *b
}

// FormatContext renders at most limit relations as one line each.
// A non-positive limit renders all of them.
func FormatContext(relations []Relation, limit int) string {
	if limit <= 0 || limit > len(relations) {
		limit = len(relations)
	}
	var b strings.Builder
	for i := 0; i < limit; i++ {
		b.WriteString("- ")
		b.WriteString(relations[i].String())
		b.WriteByte('\n')
	}
	return b.String()
}

// WithScore returns a copy of the relation carrying score
func (r Relation) WithScore(score float64) Relation {
	r.Score = &score
	return r
}
