// Package materialize turns raw traversal paths into the de-duplicated
// node/edge graph returned to callers.
package materialize

import (
	"sort"
	"time"

	"github.com/dd0wney/cluso-commgraph/pkg/graphstore"
	"github.com/dd0wney/cluso-commgraph/pkg/schema"
)

// TimeFormat is the canonical string form of temporal property values.
const TimeFormat = time.RFC3339Nano

// Materialize walks paths in order. Nodes are kept once per store id, in
// first-seen order. Relationships are appended every time they are seen, so
// overlapping paths repeat edges. The result never has nil lists.
func Materialize(paths []graphstore.Path) schema.Graph {
	g := schema.EmptyGraph()
	seen := make(map[string]bool)

	for _, p := range paths {
		for _, n := range p.Nodes {
			if seen[n.ID] {
				continue
			}
			seen[n.ID] = true
			g.Nodes = append(g.Nodes, schema.Node{
				ID:         n.ID,
				Label:      PrimaryLabel(n.Labels),
				Properties: Properties(n.Properties),
			})
		}
		for _, r := range p.Relationships {
			g.Edges = append(g.Edges, schema.Edge{
				ID:         r.ID,
				Source:     r.StartID,
				Target:     r.EndID,
				Label:      r.Type,
				Properties: Properties(r.Properties),
			})
		}
	}
	return g
}

// PrimaryLabel picks the lexicographically smallest label, independent of
// the order the store reports them in. A node without labels gets "".
func PrimaryLabel(labels []string) string {
	switch len(labels) {
	case 0:
		return ""
	case 1:
		return labels[0]
	}
	sorted := append([]string(nil), labels...)
	sort.Strings(sorted)
	return sorted[0]
}

// Properties copies a property map, rendering temporal values as UTC
// RFC 3339 strings. Everything else passes through unchanged.
func Properties(in map[string]any) map[string]any {
	out := make(map[string]any, len(in))
	for k, v := range in {
		out[k] = normalize(v)
	}
	return out
}

// timeLike covers driver temporal types that wrap a time.Time.
type timeLike interface {
	Time() time.Time
}

func normalize(v any) any {
	switch t := v.(type) {
	case time.Time:
		return t.UTC().Format(TimeFormat)
	case timeLike:
		return t.Time().UTC().Format(TimeFormat)
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = normalize(e)
		}
		return out
	default:
		return v
	}
}
