package core

import (
	"slices"
	"strconv"
	"strings"
)

// ResolveIgnoreIndices turns column identifiers into concrete positions.
//
// With a header, position i is ignored when an identifier equals header[i]
// or equals strconv.Itoa(i). Without one, identifiers are parsed as
// decimal indices and anything non-numeric is dropped.
func ResolveIgnoreIndices(header Row, ids []string) IgnoreIndexSet {
	set := make(IgnoreIndexSet)
	if len(ids) == 0 {
		return set
	}

	if header != nil {
		wanted := make(map[string]struct{}, len(ids))
		for _, id := range ids {
			wanted[id] = struct{}{}
		}
		for i, name := range header {
			if _, ok := wanted[name]; ok {
				set[i] = struct{}{}
				continue
			}
			if _, ok := wanted[strconv.Itoa(i)]; ok {
				set[i] = struct{}{}
			}
		}
		return set
	}

	for _, id := range ids {
		n, err := strconv.Atoi(strings.TrimSpace(id))
		if err != nil || n < 0 {
			continue
		}
		set[n] = struct{}{}
	}
	return set
}

// Sorted returns the ignored positions in ascending order, for logging.
func (s IgnoreIndexSet) Sorted() []int {
	out := make([]int, 0, len(s))
	for i := range s {
		out = append(out, i)
	}
	slices.Sort(out)
	return out
}

// keptValues returns row's non-ignored cells, trimmed.
func keptValues(row Row, ignore IgnoreIndexSet) []string {
	kept := make([]string, 0, len(row))
	for i, v := range row {
		if ignore.Contains(i) {
			continue
		}
		kept = append(kept, strings.TrimSpace(v))
	}
	return kept
}

// renderRow joins row's kept cells for display.
func renderRow(row Row, ignore IgnoreIndexSet) string {
	return strings.Join(keptValues(row, ignore), Delimiter)
}
