package screening

import (
	"math"

	"invscreen/internal/domain"
)

// Outcome tells the engine whether screening continues after a stage.
type Outcome int

const (
	// Continue hands the accumulated evidence to the next stage.
	Continue Outcome = iota
	// Terminate ends screening; the verdict is final.
	Terminate
)

// Stage is one named detector in the screening cascade.
type Stage struct {
	key  string
	name string
	fn   func(*session) Outcome
}

func (s *Stage) Key() string  { return s.key }
func (s *Stage) Name() string { return s.name }

// session carries the candidate, the ledger snapshot and the verdict under
// construction through the stages of a single Screen call.
type session struct {
	opts      *Options
	candidate *domain.InvoiceRecord
	ledger    *domain.Ledger
	verdict   *domain.Verdict

	pairs   []comparison
	nearIdx map[int64]int
}

// comparison holds the pairwise signals between the candidate and one ledger entry.
type comparison struct {
	entry        *domain.LedgerEntry
	invoiceNoSim float64
	vendorSim    float64
	gstinMatch   bool
	totalRelDiff float64
	dateDiff     float64
	lineSim      float64
}

func (c *comparison) datesWithin(days float64) bool {
	return !math.IsNaN(c.dateDiff) && c.dateDiff <= days
}

func newSession(opts *Options, candidate *domain.InvoiceRecord, ledger *domain.Ledger, v *domain.Verdict) *session {
	return &session{
		opts:      opts,
		candidate: candidate,
		ledger:    ledger,
		verdict:   v,
		nearIdx:   make(map[int64]int),
	}
}

// comparisons computes the pairwise signals against every ledger entry once.
func (s *session) comparisons() []comparison {
	if s.pairs != nil {
		return s.pairs
	}
	cand := s.candidate
	candGSTIN := NormalizeText(cand.GSTIN.String())
	s.pairs = make([]comparison, len(s.ledger.Entries))
	for i := range s.ledger.Entries {
		e := &s.ledger.Entries[i]
		existing := &e.Invoice
		s.pairs[i] = comparison{
			entry:        e,
			invoiceNoSim: TextSimilarity(cand.InvoiceNumber.String(), existing.InvoiceNumber.String()),
			vendorSim:    TextSimilarity(cand.VendorName.String(), existing.VendorName.String()),
			gstinMatch:   candGSTIN != "" && candGSTIN == NormalizeText(existing.GSTIN.String()),
			totalRelDiff: relativeTotalDiff(cand.TotalAmount, existing.TotalAmount),
			dateDiff:     DateDiffDays(cand.Date.String(), existing.Date.String()),
			lineSim:      LineItemSimilarity(cand.LineItems, existing.LineItems),
		}
	}
	return s.pairs
}

// escalate raises the overall flag; it never lowers it.
func (s *session) escalate(f domain.Flag) {
	s.verdict.OverallFlag = s.verdict.OverallFlag.Max(f)
}

func (s *session) addReason(reason string) {
	for _, r := range s.verdict.Reasons {
		if r == reason {
			return
		}
	}
	s.verdict.Reasons = append(s.verdict.Reasons, reason)
}

// addNearDuplicate records c as a near-duplicate. A ledger entry that several
// passes agree on is recorded once, collecting each pass's lead reason.
func (s *session) addNearDuplicate(c *comparison, lead string) {
	if pos, ok := s.nearIdx[c.entry.Index]; ok {
		nd := &s.verdict.NearDuplicates[pos]
		nd.Reasons = append(nd.Reasons, lead)
		return
	}
	nd := buildNearDuplicate(s.candidate, c, lead)
	s.nearIdx[c.entry.Index] = len(s.verdict.NearDuplicates)
	s.verdict.NearDuplicates = append(s.verdict.NearDuplicates, nd)
}
