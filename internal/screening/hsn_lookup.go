package screening

import (
	"math"

	"invscreen/internal/port"
)

// HSNRate holds one valid GST rate for an HSN/SAC code.
type HSNRate struct {
	Rate          float64
	ConditionDesc string
}

// HSNLookup answers rate questions from the HSN master table in memory.
// It is immutable after construction and safe for concurrent screenings.
type HSNLookup struct {
	byCode map[string][]HSNRate
}

// NewHSNLookup indexes the HSN master rows by code.
func NewHSNLookup(entries []port.HSNEntry) *HSNLookup {
	m := make(map[string][]HSNRate, len(entries))
	for idx := range entries {
		e := &entries[idx]
		m[e.Code] = append(m[e.Code], HSNRate{Rate: e.GSTRate, ConditionDesc: e.ConditionDesc})
	}
	return &HSNLookup{byCode: m}
}

// Len reports how many distinct codes are loaded.
func (h *HSNLookup) Len() int {
	if h == nil {
		return 0
	}
	return len(h.byCode)
}

// Rates returns the valid rates for code, falling back from 8 to 6 to 4 digit prefixes.
func (h *HSNLookup) Rates(code string) []HSNRate {
	if h.Len() == 0 || code == "" {
		return nil
	}
	if rates, ok := h.byCode[code]; ok {
		return rates
	}
	for _, prefixLen := range []int{6, 4} {
		if len(code) > prefixLen {
			if rates, ok := h.byCode[code[:prefixLen]]; ok {
				return rates
			}
		}
	}
	return nil
}

// RateMatches reports whether billed is within tolerance percentage points of any
// known rate for code. known is empty when the code is not in the master.
func (h *HSNLookup) RateMatches(code string, billed, tolerance float64) (matched bool, known []HSNRate) {
	known = h.Rates(code)
	for idx := range known {
		if math.Abs(known[idx].Rate-billed) <= tolerance {
			return true, known
		}
	}
	return false, known
}
