package screening

import (
	"math"

	"invscreen/internal/domain"
)

// Reasons emitted by the duplicate passes.
const (
	ReasonExactDuplicate     = "Exact duplicate: identical vendor+invoice+date+amount"
	ReasonInvoiceNumberMatch = "Invoice number extremely similar + totals match -> high risk"
	ReasonDateTotalsClose    = "Invoice date and totals close -> possible duplicate"
	ReasonGSTINStrongMatch   = "GSTIN match with strong supporting signals -> high risk"
	ReasonGSTINMatch         = "GSTIN match with supporting signals -> possible duplicate"
)

func exactMatchStage() *Stage {
	return &Stage{key: "exact_match", name: "Exact-Match Detector", fn: runExactMatch}
}

func runExactMatch(s *session) Outcome {
	for i := range s.ledger.Entries {
		e := &s.ledger.Entries[i]
		if Fingerprint(&e.Invoice) != s.verdict.InvoiceHash {
			continue
		}
		idx := e.Index
		s.verdict.ExactDuplicate = true
		s.verdict.ExactDuplicateMatch = &idx
		s.escalate(domain.FlagExactDuplicate)
		s.addReason(ReasonExactDuplicate)
		return Terminate
	}
	return Continue
}

func invoiceNumberStage() *Stage {
	return &Stage{key: "invoice_number_priority", name: "Invoice-Number Priority", fn: runInvoiceNumberPass}
}

// runInvoiceNumberPass flags a near-identical invoice number with matching
// totals. A similar number alone is coincidence; it needs one corroborating
// signal (items, GSTIN or dates) before it counts.
func runInvoiceNumberPass(s *session) Outcome {
	pairs := s.comparisons()
	for i := range pairs {
		c := &pairs[i]
		if c.invoiceNoSim < 95 || c.totalRelDiff > 0.05 {
			continue
		}
		if c.lineSim < 50 && !c.gstinMatch && !c.datesWithin(3) {
			continue
		}
		s.addNearDuplicate(c, "Invoice number nearly identical and amounts match")
		s.escalate(domain.FlagHighRiskNearDuplicate)
		s.addReason(ReasonInvoiceNumberMatch)
		return Terminate
	}
	return Continue
}

func datePriorityStage() *Stage {
	return &Stage{key: "date_priority", name: "Date Priority", fn: runDatePass}
}

// runDatePass flags same-vendor invoices a day apart with matching totals. It
// never terminates so a stronger later pass can still escalate.
func runDatePass(s *session) Outcome {
	pairs := s.comparisons()
	for i := range pairs {
		c := &pairs[i]
		if !c.datesWithin(1) || c.totalRelDiff > 0.05 || c.vendorSim < 75 {
			continue
		}
		if c.lineSim < 40 && !c.gstinMatch {
			continue
		}
		s.addNearDuplicate(c, "Dates and totals very close")
		s.escalate(domain.FlagMediumRiskDuplicate)
		s.addReason(ReasonDateTotalsClose)
	}
	return Continue
}

func gstinPriorityStage() *Stage {
	return &Stage{key: "gstin_priority", name: "GSTIN Priority", fn: runGSTINPass}
}

// runGSTINPass looks at invoices from the same GSTIN. Low item overlap with a
// dissimilar number is a different, legitimate invoice from a regular vendor.
func runGSTINPass(s *session) Outcome {
	pairs := s.comparisons()
	for i := range pairs {
		c := &pairs[i]
		if !c.gstinMatch {
			continue
		}
		if c.totalRelDiff > 0.05 && c.invoiceNoSim < 80 && c.lineSim < 60 {
			continue
		}
		if c.lineSim < 30 && c.invoiceNoSim < 90 {
			continue
		}
		s.addNearDuplicate(c, "GSTIN matches and supporting signals present")
		if c.invoiceNoSim >= 90 || c.totalRelDiff <= 0.02 {
			s.escalate(domain.FlagHighRiskNearDuplicate)
			s.addReason(ReasonGSTINStrongMatch)
			return Terminate
		}
		s.escalate(domain.FlagMediumRiskDuplicate)
		s.addReason(ReasonGSTINMatch)
	}
	return Continue
}

// Confidence weights for the composite near-duplicate score.
const (
	weightInvoiceNumber = 0.35
	weightDate          = 0.20
	weightGSTIN         = 0.15
	weightLineItems     = 0.20
	weightAmount        = 0.10
)

func buildNearDuplicate(candidate *domain.InvoiceRecord, c *comparison, lead string) domain.NearDuplicate {
	existing := &c.entry.Invoice

	fs := domain.FeatureSet{
		InvoiceNumberSimilarity: round(c.invoiceNoSim, 3),
		VendorNameSimilarity:    round(c.vendorSim, 3),
		GSTINMatch:              c.gstinMatch,
		TotalRelativeDiff:       round(c.totalRelDiff, 6),
		LineItemSimilarity:      round(c.lineSim, 3),
		HSNMismatch:             !sameSet(candidate.HSNCodes(), existing.HSNCodes()),
	}
	if !math.IsNaN(c.dateDiff) {
		d := c.dateDiff
		fs.DateDiffDays = &d
	}
	fs.FinalConfidence = confidence(c)

	reasons := []string{lead}
	if c.invoiceNoSim >= 85 {
		reasons = append(reasons, "Invoice number similar")
	}
	if c.lineSim >= 50 {
		reasons = append(reasons, "Line items similar")
	}
	if c.totalRelDiff <= 0.05 {
		reasons = append(reasons, "Totals nearly identical")
	}
	if c.datesWithin(3) {
		reasons = append(reasons, "Dates close")
	}
	if c.gstinMatch {
		reasons = append(reasons, "GSTIN exact match")
	}

	return domain.NearDuplicate{
		Index: c.entry.Index,
		Existing: domain.InvoiceSummary{
			InvoiceNumber: existing.InvoiceNumber.String(),
			GSTIN:         existing.GSTIN.String(),
			Date:          existing.Date.String(),
			TotalAmount:   existing.TotalAmount,
		},
		Features:        fs,
		FinalConfidence: fs.FinalConfidence,
		Reasons:         reasons,
	}
}

// confidence blends the pairwise signals into a score clamped to [0,1].
// Unknown dates do not penalize the score.
func confidence(c *comparison) float64 {
	amountFactor := 1 - math.Min(1, c.totalRelDiff)
	dateFactor := 1.0
	if !math.IsNaN(c.dateDiff) && c.dateDiff > 2 {
		dateFactor = math.Max(0, 1-c.dateDiff/30)
	}
	gstin := 0.0
	if c.gstinMatch {
		gstin = 1
	}
	score := weightInvoiceNumber*(c.invoiceNoSim/100) +
		weightDate*dateFactor +
		weightGSTIN*gstin +
		weightLineItems*(c.lineSim/100) +
		weightAmount*amountFactor
	return round(math.Max(0, math.Min(1, score)), 4)
}

func round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}

func sameSet(a, b map[string]bool) bool {
	if len(a) != len(b) {
		return false
	}
	for k := range a {
		if !b[k] {
			return false
		}
	}
	return true
}
