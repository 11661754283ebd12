package domain

import "regexp"

// Flag is the overall risk classification of a screened invoice.
type Flag string

const (
	FlagClean                 Flag = "CLEAN"
	FlagLowRiskRecheck        Flag = "LOW_RISK_RECHECK"
	FlagPriceAnomaly          Flag = "PRICE_ANOMALY"
	FlagPotentialGhost        Flag = "POTENTIAL_GHOST_INVOICE"
	FlagMediumRiskDuplicate   Flag = "MEDIUM_RISK_POSSIBLE_DUPLICATE"
	FlagHighRiskNearDuplicate Flag = "HIGH_RISK_NEAR_DUPLICATE"
	FlagExactDuplicate        Flag = "EXACT_DUPLICATE"
)

var flagRanks = map[Flag]int{
	FlagClean:                 0,
	FlagLowRiskRecheck:        1,
	FlagPriceAnomaly:          2,
	FlagPotentialGhost:        3,
	FlagMediumRiskDuplicate:   4,
	FlagHighRiskNearDuplicate: 5,
	FlagExactDuplicate:        6,
}

// Rank orders flags by escalation priority. Unknown flags rank below CLEAN.
func (f Flag) Rank() int {
	if r, ok := flagRanks[f]; ok {
		return r
	}
	return -1
}

// Max returns the higher-priority of two flags.
func (f Flag) Max(other Flag) Flag {
	if other.Rank() > f.Rank() {
		return other
	}
	return f
}

// Severity tags a Finding for display. Rendering is up to the caller.
type Severity string

const (
	SeveritySuccess Severity = "success"
	SeverityInfo    Severity = "info"
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
)

// ExportFormat is a supported ledger export encoding.
type ExportFormat string

const (
	ExportFormatCSV  ExportFormat = "csv"
	ExportFormatXLSX ExportFormat = "xlsx"
)

// ContentTypes maps export formats to their MIME type.
var ContentTypes = map[ExportFormat]string{
	ExportFormatCSV:  "text/csv; charset=utf-8",
	ExportFormatXLSX: "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
}

var ledgerNamePattern = regexp.MustCompile(`^[a-z0-9][a-z0-9_-]{0,62}$`)

// ValidateLedgerName rejects names that are unsafe as file names or table keys.
func ValidateLedgerName(name string) error {
	if !ledgerNamePattern.MatchString(name) {
		return ErrInvalidLedgerName
	}
	return nil
}
