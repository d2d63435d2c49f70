package core

// Accumulate folds one pair result into m.
//
// One-sided results only bump their file counter. Pairing-error results are
// left out of the pair counters entirely. Every other result counts as a
// considered pair and contributes its line counters whatever its status.
func (m *OverallMetrics) Accumulate(res PairResult, onlyS1, onlyS2 bool) {
	if onlyS1 {
		m.FilesOnlyInSource1++
		return
	}
	if onlyS2 {
		m.FilesOnlyInSource2++
		return
	}
	if res.PairingError {
		return
	}

	m.PairsConsidered++
	switch res.Status {
	case StatusMatched:
		m.FullyMatchedPairs++
	case StatusMismatched, StatusDifferentRowCount:
		m.MismatchedPairs++
	}

	m.TotalLineMatches += res.MatchCount
	m.TotalLineMismatches += res.MismatchCount
	m.TotalLinesMissingInS1 += res.MissingInSource1Cnt
	m.TotalLinesMissingInS2 += res.MissingInSource2Cnt
}

// AllMatched reports whether every uploaded file was paired and matched.
func (m OverallMetrics) AllMatched() bool {
	return m.FilesOnlyInSource1 == 0 &&
		m.FilesOnlyInSource2 == 0 &&
		m.PairsConsidered > 0 &&
		m.FullyMatchedPairs == m.PairsConsidered
}
