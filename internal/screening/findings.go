package screening

import (
	"fmt"
	"math"
	"regexp"
	"strings"

	"github.com/agnivade/levenshtein"

	"invscreen/internal/domain"
)

var (
	gstinPattern = regexp.MustCompile(`^\d{2}[A-Z]{5}\d{4}[A-Z][1-9A-Z]Z[0-9A-Z]$`)
	irnPattern   = regexp.MustCompile(`^[0-9a-f]{64}$`)
)

// Finding codes.
const (
	CodeGSTINMissing     = "gstin.missing"
	CodeGSTINMalformed   = "gstin.malformed"
	CodeGSTINValid       = "gstin.valid"
	CodeGSTINLookalike   = "gstin.lookalike"
	CodeTotalMissing     = "total.missing"
	CodeTotalHighValue   = "total.high_value"
	CodeIRNMissing       = "irn.missing"
	CodeIRNMalformed     = "irn.malformed"
	CodeIRNPresent       = "irn.present"
	CodeHSNMissing       = "hsn.missing"
	CodeHSNRateMismatch  = "hsn.rate_mismatch"
	lookalikeMaxDistance = 2
	rateTolerance        = 0.5
)

// check produces zero or more findings for a candidate.
type check struct {
	key string
	fn  func(*domain.InvoiceRecord, *domain.Ledger, *Options) []domain.Finding
}

func findingChecks() []check {
	return []check{
		{key: "gstin.format", fn: checkGSTINFormat},
		{key: "gstin.lookalike", fn: checkGSTINLookalike},
		{key: "total", fn: checkTotal},
		{key: "irn", fn: checkIRN},
		{key: "hsn.present", fn: checkHSNPresent},
		{key: "hsn.rate", fn: checkHSNRates},
	}
}

// Findings runs the informational discrepancy checks. They never affect the
// overall flag.
func Findings(candidate *domain.InvoiceRecord, ledger *domain.Ledger, opts *Options) []domain.Finding {
	out := make([]domain.Finding, 0, 8)
	for _, c := range findingChecks() {
		out = append(out, c.fn(candidate, ledger, opts)...)
	}
	return out
}

func finding(sev domain.Severity, code, format string, args ...any) domain.Finding {
	return domain.Finding{Severity: sev, Code: code, Message: fmt.Sprintf(format, args...)}
}

func checkGSTINFormat(inv *domain.InvoiceRecord, _ *domain.Ledger, _ *Options) []domain.Finding {
	g := strings.ToUpper(strings.TrimSpace(inv.GSTIN.String()))
	switch {
	case g == "":
		return []domain.Finding{finding(domain.SeverityError, CodeGSTINMissing, "GSTIN is missing")}
	case !gstinPattern.MatchString(g):
		return []domain.Finding{finding(domain.SeverityWarning, CodeGSTINMalformed, "GSTIN %q does not match the 15-character format", g)}
	default:
		return []domain.Finding{finding(domain.SeveritySuccess, CodeGSTINValid, "GSTIN %s is well-formed", g)}
	}
}

// checkGSTINLookalike warns when an unseen GSTIN is a couple of edits away from
// a known vendor, which usually means a typo or an impersonation.
func checkGSTINLookalike(inv *domain.InvoiceRecord, ledger *domain.Ledger, _ *Options) []domain.Finding {
	g := strings.ToUpper(strings.TrimSpace(inv.GSTIN.String()))
	if g == "" {
		return nil
	}
	known := make(map[string]bool)
	for i := range ledger.Entries {
		if k := strings.ToUpper(strings.TrimSpace(ledger.Entries[i].Invoice.GSTIN.String())); k != "" {
			known[k] = true
		}
	}
	if known[g] {
		return nil
	}
	best, bestDist := "", math.MaxInt
	for k := range known {
		d := levenshtein.ComputeDistance(g, k)
		if d < bestDist || (d == bestDist && k < best) {
			best, bestDist = k, d
		}
	}
	if best == "" || bestDist > lookalikeMaxDistance {
		return nil
	}
	return []domain.Finding{finding(domain.SeverityWarning, CodeGSTINLookalike,
		"GSTIN %s is not in the ledger but differs from known GSTIN %s by %d character(s)", g, best, bestDist)}
}

func checkTotal(inv *domain.InvoiceRecord, _ *domain.Ledger, opts *Options) []domain.Finding {
	total := float64(inv.TotalAmount)
	if total <= 0 {
		return []domain.Finding{finding(domain.SeverityError, CodeTotalMissing, "Total amount is missing or zero")}
	}
	if opts.HighValueThreshold > 0 && total > opts.HighValueThreshold {
		return []domain.Finding{{
			Severity: domain.SeverityWarning,
			Code:     CodeTotalHighValue,
			Message:  money.Sprintf("High-value invoice (%.2f); manual review suggested", total),
		}}
	}
	return nil
}

func checkIRN(inv *domain.InvoiceRecord, _ *domain.Ledger, _ *Options) []domain.Finding {
	irn := strings.ToLower(strings.TrimSpace(inv.IRN))
	switch {
	case irn == "":
		return []domain.Finding{finding(domain.SeverityWarning, CodeIRNMissing, "IRN is missing")}
	case !irnPattern.MatchString(irn):
		return []domain.Finding{finding(domain.SeverityWarning, CodeIRNMalformed, "IRN is not a 64-character hex string")}
	default:
		return []domain.Finding{finding(domain.SeveritySuccess, CodeIRNPresent, "IRN present")}
	}
}

func checkHSNPresent(inv *domain.InvoiceRecord, _ *domain.Ledger, _ *Options) []domain.Finding {
	if len(inv.HSNCodes()) > 0 {
		return nil
	}
	return []domain.Finding{finding(domain.SeverityInfo, CodeHSNMissing, "No HSN/SAC codes found on any line item")}
}

// checkHSNRates derives each line's billed GST rate and compares it with the
// rates the HSN master allows for its code.
func checkHSNRates(inv *domain.InvoiceRecord, _ *domain.Ledger, opts *Options) []domain.Finding {
	if opts.HSN.Len() == 0 {
		return nil
	}
	var out []domain.Finding
	for i := range inv.LineItems {
		item := &inv.LineItems[i]
		code := item.HSNSAC.String()
		base := float64(item.Quantity)*float64(item.UnitPrice) - float64(item.Discount)
		if code == "" || item.Tax <= 0 || base <= 0 {
			continue
		}
		billed := float64(item.Tax) / base * 100
		ok, known := opts.HSN.RateMatches(code, billed, rateTolerance)
		if ok || len(known) == 0 {
			continue
		}
		rates := make([]string, 0, len(known))
		for _, r := range known {
			rates = append(rates, fmt.Sprintf("%g%%", r.Rate))
		}
		out = append(out, finding(domain.SeverityWarning, CodeHSNRateMismatch,
			"Line %d (HSN %s): billed GST rate %.2f%% does not match expected %s",
			i+1, code, billed, strings.Join(rates, ", ")))
	}
	return out
}
