package screening

import (
	"sort"

	"invscreen/internal/domain"
)

// Ghost signal reasons.
const (
	GhostUnseenGSTIN   = "GSTIN not previously seen in historical data"
	GhostUnseenHSN     = "HSN codes in invoice not matching vendor's historical HSNs"
	GhostDeviantTotal  = "Invoice total is highly deviant from vendor's historical median"
	ghostMinSignals    = 2
	ghostMedianHistory = 3
)

func ghostStage() *Stage {
	return &Stage{key: "ghost_invoice", name: "Ghost-Invoice Heuristic", fn: runGhost}
}

// runGhost raises POTENTIAL_GHOST_INVOICE only when two independent signals
// agree. A single signal is dropped silently.
func runGhost(s *session) Outcome {
	signals := ghostSignals(s.candidate, s.ledger)
	if len(signals) < ghostMinSignals {
		return Continue
	}
	s.verdict.GhostSignals = append(s.verdict.GhostSignals, signals...)
	s.escalate(domain.FlagPotentialGhost)
	for _, r := range signals {
		s.addReason(r)
	}
	return Continue
}

func ghostSignals(candidate *domain.InvoiceRecord, ledger *domain.Ledger) []string {
	gstin := NormalizeText(candidate.GSTIN.String())

	seen := false
	vendorHSN := make(map[string]bool)
	var vendorTotals []float64
	for i := range ledger.Entries {
		inv := &ledger.Entries[i].Invoice
		g := NormalizeText(inv.GSTIN.String())
		if g == "" || g != gstin {
			continue
		}
		seen = true
		for code := range inv.HSNCodes() {
			vendorHSN[code] = true
		}
		vendorTotals = append(vendorTotals, float64(inv.TotalAmount))
	}

	var signals []string
	if !seen {
		signals = append(signals, GhostUnseenGSTIN)
	}
	if len(vendorTotals) > 0 {
		for code := range candidate.HSNCodes() {
			if !vendorHSN[code] {
				signals = append(signals, GhostUnseenHSN)
				break
			}
		}
	}
	if len(vendorTotals) >= ghostMedianHistory {
		med := median(vendorTotals)
		total := float64(candidate.TotalAmount)
		if med > 0 && (total > 10*med || total < 0.1*med) {
			signals = append(signals, GhostDeviantTotal)
		}
	}
	return signals
}

func median(vals []float64) float64 {
	sorted := append([]float64(nil), vals...)
	sort.Float64s(sorted)
	n := len(sorted)
	if n == 0 {
		return 0
	}
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}
