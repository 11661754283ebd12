package screening

import (
	"math"
	"regexp"
	"strings"

	"github.com/pmezard/go-difflib/difflib"

	"invscreen/internal/domain"
)

// TextSimilarity scores two strings on a 0..100 scale using the Ratcliff/Obershelp
// ratio over their normalized forms. The pair is put in a fixed order before
// matching so the score is symmetric. Empty input scores 0: a missing
// identifier is not evidence of a match.
func TextSimilarity(a, b string) float64 {
	na, nb := NormalizeText(a), NormalizeText(b)
	if na == "" || nb == "" {
		return 0
	}
	if na == nb {
		return 100
	}
	if nb < na {
		na, nb = nb, na
	}
	m := difflib.NewMatcher(runes(na), runes(nb))
	return m.Ratio() * 100
}

func runes(s string) []string {
	out := make([]string, 0, len(s))
	for _, r := range s {
		out = append(out, string(r))
	}
	return out
}

// tokenPattern mirrors the usual bag-of-words tokenizer: runs of two or more word characters.
var tokenPattern = regexp.MustCompile(`[\p{L}\p{N}_]{2,}`)

// LineItemSimilarity compares the concatenated item descriptions of two invoices
// as term-count vectors over their joint vocabulary and returns the cosine
// similarity on a 0..100 scale. Invoices without usable description text score 0.
func LineItemSimilarity(a, b domain.LineItems) float64 {
	ta := termCounts(a)
	tb := termCounts(b)
	if len(ta) == 0 || len(tb) == 0 {
		return 0
	}

	var dot, na, nb float64
	for term, ca := range ta {
		na += float64(ca * ca)
		if cb, ok := tb[term]; ok {
			dot += float64(ca * cb)
		}
	}
	for _, cb := range tb {
		nb += float64(cb * cb)
	}
	if na == 0 || nb == 0 {
		return 0
	}
	sim := dot / (math.Sqrt(na) * math.Sqrt(nb)) * 100
	if math.IsNaN(sim) {
		return 0
	}
	return math.Min(sim, 100)
}

func termCounts(items domain.LineItems) map[string]int {
	descs := make([]string, 0, len(items))
	for i := range items {
		descs = append(descs, items[i].Description.String())
	}
	doc := strings.ToLower(strings.Join(descs, " "))
	counts := make(map[string]int)
	for _, tok := range tokenPattern.FindAllString(doc, -1) {
		counts[tok]++
	}
	return counts
}

// relativeTotalDiff is |candidate-existing|/existing. A zero existing total gives
// 0 when both are zero and 1 (maximal) otherwise.
func relativeTotalDiff(candidate, existing domain.Amount) float64 {
	c, e := float64(candidate), float64(existing)
	if e > 0 {
		return math.Abs(c-e) / e
	}
	if c == 0 && e == 0 {
		return 0
	}
	return 1
}
