package core

import (
	"slices"
	"strings"
)

// PlannedPair is one unit of engine work. Exactly one of the following holds:
//   - Source1 and Source2 are both set: a comparison.
//   - Only one of them is set: a one-sided file.
//   - Conflict is set: a manual pair that could not be resolved.
type PlannedPair struct {
	Index    int
	Source1  Source
	Source2  Source
	Manual   bool
	Conflict *PairingConflictError
}

// PairKind classifies a planned pair.
type PairKind string

const (
	KindConflict    PairKind = "conflict"
	KindManual      PairKind = "manual"
	KindPositional  PairKind = "positional"
	KindOnlySource1 PairKind = "only_source1"
	KindOnlySource2 PairKind = "only_source2"
)

// Kind returns the classification used for logging and metrics.
func (p PlannedPair) Kind() PairKind {
	switch {
	case p.Conflict != nil:
		return KindConflict
	case p.Source1 != nil && p.Source2 != nil:
		if p.Manual {
			return KindManual
		}
		return KindPositional
	case p.Source1 != nil:
		return KindOnlySource1
	default:
		return KindOnlySource2
	}
}

// pairingState tracks which uploads have been claimed within one request.
type pairingState struct {
	s1, s2             []Source
	claimed1, claimed2 []bool
	plan               []PlannedPair
}

// claimStrategy claims files from the state and appends to its plan.
type claimStrategy func(st *pairingState)

// PlanPairs decides which files are compared against which.
//
// Strategies run in fixed precedence: manual pairs in request order, then
// positional pairing of the remaining files when sort is true, then every
// unclaimed file as a one-sided entry (source 1 first). The result is
// deterministic for the same inputs and input order.
func PlanPairs(s1, s2 []Source, manual []ManualPair, sort bool) []PlannedPair {
	st := &pairingState{
		s1:       slices.Clone(s1),
		s2:       slices.Clone(s2),
		claimed1: make([]bool, len(s1)),
		claimed2: make([]bool, len(s2)),
	}
	if sort {
		sortByName(st.s1)
		sortByName(st.s2)
	}

	strategies := []claimStrategy{manualStrategy(manual)}
	if sort {
		strategies = append(strategies, positionalStrategy)
	}
	strategies = append(strategies, oneSidedStrategy)

	for _, s := range strategies {
		s(st)
	}
	return st.plan
}

func sortByName(files []Source) {
	slices.SortStableFunc(files, func(a, b Source) int {
		return strings.Compare(strings.ToLower(a.Name()), strings.ToLower(b.Name()))
	})
}

func (st *pairingState) emit(p PlannedPair) {
	p.Index = len(st.plan)
	st.plan = append(st.plan, p)
}

// lookup finds the first unclaimed file named name. When none is free it
// reports whether a claimed file of that name exists.
func lookup(files []Source, claimed []bool, name string) (idx int, taken bool) {
	for i, f := range files {
		if f.Name() != name {
			continue
		}
		if !claimed[i] {
			return i, false
		}
		taken = true
	}
	return -1, taken
}

func manualStrategy(pairs []ManualPair) claimStrategy {
	return func(st *pairingState) {
		for _, mp := range pairs {
			i1, taken1 := lookup(st.s1, st.claimed1, mp.Source1FileName)
			i2, taken2 := lookup(st.s2, st.claimed2, mp.Source2FileName)

			if i1 >= 0 && i2 >= 0 {
				st.claimed1[i1] = true
				st.claimed2[i2] = true
				st.emit(PlannedPair{Source1: st.s1[i1], Source2: st.s2[i2], Manual: true})
				continue
			}

			if i1 >= 0 {
				st.claimed1[i1] = true
			}
			if i2 >= 0 {
				st.claimed2[i2] = true
			}
			st.emit(PlannedPair{
				Manual: true,
				Conflict: &PairingConflictError{
					Source1FileName: mp.Source1FileName,
					Source2FileName: mp.Source2FileName,
					Missing1:        i1 < 0 && !taken1,
					Missing2:        i2 < 0 && !taken2,
					Claimed1:        taken1,
					Claimed2:        taken2,
				},
			})
		}
	}
}

func positionalStrategy(st *pairingState) {
	var rest1, rest2 []int
	for i, c := range st.claimed1 {
		if !c {
			rest1 = append(rest1, i)
		}
	}
	for i, c := range st.claimed2 {
		if !c {
			rest2 = append(rest2, i)
		}
	}

	n := min(len(rest1), len(rest2))
	for k := 0; k < n; k++ {
		i1, i2 := rest1[k], rest2[k]
		st.claimed1[i1] = true
		st.claimed2[i2] = true
		st.emit(PlannedPair{Source1: st.s1[i1], Source2: st.s2[i2]})
	}
}

func oneSidedStrategy(st *pairingState) {
	for i, f := range st.s1 {
		if !st.claimed1[i] {
			st.claimed1[i] = true
			st.emit(PlannedPair{Source1: f})
		}
	}
	for i, f := range st.s2 {
		if !st.claimed2[i] {
			st.claimed2[i] = true
			st.emit(PlannedPair{Source2: f})
		}
	}
}
