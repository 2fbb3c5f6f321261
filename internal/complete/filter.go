package complete

import (
	"sort"
	"strings"
)

// filterCandidates narrows each source's candidates against the live
// context and merges them in source order. Each candidate's pattern is
// the live prefix text from its own offset, so items that started the
// word earlier than the cursor's keyword still match correctly.
func filterCandidates(sources []*Source, live *Context) []*Candidate {
	var out []*Candidate
	liveRunes := []rune(live.CursorBeforeLine)
	for _, src := range sources {
		var kept []*Candidate
		for _, c := range src.Candidates() {
			pattern := ""
			if c.Offset() <= len(liveRunes) {
				pattern = string(liveRunes[c.Offset():])
			}
			if fuzzyMatch(c.FilterText(), pattern) {
				kept = append(kept, c)
			}
		}
		out = append(out, sortCandidates(kept, live.WordPrefix())...)
	}
	return out
}

// sortCandidates orders one source's surviving candidates: preselected
// first, then exact prefix matches, then sort text case-insensitively,
// then label length.
func sortCandidates(candidates []*Candidate, prefix string) []*Candidate {
	if len(candidates) <= 1 {
		return candidates
	}

	prefixLower := strings.ToLower(prefix)

	sorted := make([]*Candidate, len(candidates))
	copy(sorted, candidates)

	sort.SliceStable(sorted, func(i, j int) bool {
		a, b := sorted[i], sorted[j]

		if a.Item().Preselect != b.Item().Preselect {
			return a.Item().Preselect
		}

		if prefixLower != "" {
			aPrefix := strings.HasPrefix(strings.ToLower(a.FilterText()), prefixLower)
			bPrefix := strings.HasPrefix(strings.ToLower(b.FilterText()), prefixLower)
			if aPrefix != bPrefix {
				return aPrefix
			}
		}

		sortA := strings.ToLower(a.SortText())
		sortB := strings.ToLower(b.SortText())
		if sortA != sortB {
			return sortA < sortB
		}

		return len(a.Item().Label) < len(b.Item().Label)
	})

	return sorted
}

// fuzzyMatch reports whether text matches the pattern, first as a
// case-insensitive substring, then as an in-order character
// subsequence.
func fuzzyMatch(text, pattern string) bool {
	if pattern == "" {
		return true
	}

	textLower := strings.ToLower(text)
	patternLower := strings.ToLower(pattern)

	if strings.Contains(textLower, patternLower) {
		return true
	}

	textRunes := []rune(textLower)
	patternRunes := []rune(patternLower)

	ti := 0
	for pi := 0; pi < len(patternRunes); pi++ {
		for ti < len(textRunes) && textRunes[ti] != patternRunes[pi] {
			ti++
		}
		if ti >= len(textRunes) {
			return false
		}
		ti++
	}

	return true
}
