package chart

import "strings"

// Kind is a supported chart family.
type Kind string

const (
	KindBar     Kind = "bar"
	KindLine    Kind = "line"
	KindScatter Kind = "scatter"
)

// ParseKind maps a free-text chart-type label such as "Bar Chart",
// "line-graph" or "scatterplot" to a Kind. Matching ignores case,
// separators and a trailing chart/plot/graph word.
func ParseKind(label string) (Kind, bool) {
	s := strings.ToLower(strings.TrimSpace(label))
	s = strings.Map(func(r rune) rune {
		switch r {
		case ' ', '-', '_', '\t':
			return -1
		}
		return r
	}, s)
	for _, suffix := range []string{"chart", "plot", "graph"} {
		if strings.HasSuffix(s, suffix) && len(s) > len(suffix) {
			s = strings.TrimSuffix(s, suffix)
			break
		}
	}
	switch Kind(s) {
	case KindBar, KindLine, KindScatter:
		return Kind(s), true
	}
	return "", false
}
